package notify

import (
	"context"
	"testing"
	"time"
)

func TestRequestNotifierCollectsPerRequest(t *testing.T) {
	ctx, buf := WithBuffer(context.Background())
	var n RequestNotifier

	Success(ctx, n, "주문이 성공적으로 접수되었습니다.")
	Error(ctx, n, "필수 약관에 동의해주세요.")

	got := buf.Drain()
	if len(got) != 2 || got[0].Kind != KindSuccess || got[1].Kind != KindError {
		t.Fatalf("unexpected toasts: %+v", got)
	}
	if again := buf.Drain(); len(again) != 0 {
		t.Fatalf("expected drained buffer, got %+v", again)
	}
}

func TestRequestNotifierWithoutBuffer(t *testing.T) {
	RequestNotifier{}.Notify(context.Background(), Toast{Kind: KindInfo, Message: "ignored"})
}

func TestRedirectDelayMillis(t *testing.T) {
	if got := (Redirect{URL: "/products", Delay: 2 * time.Second}).DelayMillis(); got != 2000 {
		t.Fatalf("expected 2000, got %d", got)
	}
}
