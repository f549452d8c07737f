package fieldcheck

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckCollectsMessagesInRuleOrder(t *testing.T) {
	got := Check("", Rules{Required: true, MinLength: 2, Email: true})
	require.Equal(t, []string{MsgRequired, "최소 2자 이상 입력해주세요."}, got)

	got = Check("가나다라마", Rules{MaxLength: 4})
	require.Equal(t, []string{"최대 4자까지 입력 가능합니다."}, got)

	require.Empty(t, Check("가나다라", Rules{MaxLength: 4}), "length counts runes, not bytes")
}

func TestCheckFormatRulesSkipEmpty(t *testing.T) {
	require.Empty(t, Check("", Rules{Email: true, Phone: true, URL: true}))
	require.Equal(t, []string{MsgEmail}, Check("nope", Rules{Email: true}))
	require.Equal(t, []string{MsgPhone}, Check("02-123-4567", Rules{Phone: true}))
	require.Empty(t, Check("010-1234-5678", Rules{Phone: true}))
	require.Equal(t, []string{MsgURL}, Check("naegaolryeo.kr", Rules{URL: true}))
}

func TestErrorsTracksFields(t *testing.T) {
	errs := Errors{}
	require.False(t, errs.Validate("email", "x", Rules{Email: true}))
	require.Equal(t, MsgEmail, errs.First("email"))

	require.True(t, errs.Validate("email", "a@b.co", Rules{Email: true}))
	require.Empty(t, errs.First("email"))
	require.Empty(t, errs)
}
