package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/repositories"
)

func TestCartRoundTripIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	reg := New()

	_, err := reg.GetCart(ctx, "v1")
	require.True(t, repositories.IsNotFound(err))

	cart := domain.Cart{VisitorID: "v1", Items: []domain.LineItem{{ID: "test", Name: "반영테스트", Price: 99000, Quantity: 1}}}
	saved, err := reg.SaveCart(ctx, cart)
	require.NoError(t, err)
	require.False(t, saved.UpdatedAt.IsZero())

	cart.Items[0].Quantity = 9
	got, err := reg.GetCart(ctx, "v1")
	require.NoError(t, err)
	require.Equal(t, 1, got.Items[0].Quantity, "stored cart must not alias the caller's slice")
}

func TestSnapshotLifecycle(t *testing.T) {
	ctx := context.Background()
	reg := New()

	require.NoError(t, reg.PutSnapshot(ctx, "s1", []byte(`{"businessType":"general"}`)))
	raw, err := reg.GetSnapshot(ctx, "s1")
	require.NoError(t, err)
	require.JSONEq(t, `{"businessType":"general"}`, string(raw))

	require.NoError(t, reg.DeleteSnapshot(ctx, "s1"))
	require.NoError(t, reg.DeleteSnapshot(ctx, "s1"))
	_, err = reg.GetSnapshot(ctx, "s1")
	require.True(t, repositories.IsNotFound(err))
}

func TestProfileRequiresVisitor(t *testing.T) {
	_, err := New().SaveProfile(context.Background(), " ", domain.UserProfile{})
	require.Error(t, err)
}
