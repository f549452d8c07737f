package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/seungjae8520/hjjtest/internal/platform/requestctx"
)

func TestWriteErrorIncludesRequestAndTrace(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	ctx = requestctx.WithTrace(ctx, requestctx.TraceInfo{TraceID: "abc"})

	rr := httptest.NewRecorder()
	WriteError(ctx, rr, NewError("order_invalid", "상호명을(를) 입력해주세요.", http.StatusUnprocessableEntity).
		WithDetails(map[string]any{"field": "businessName"}))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "order_invalid" || body["request_id"] != "req-1" || body["trace_id"] != "abc" {
		t.Fatalf("unexpected envelope: %v", body)
	}
	if body["field"] != "businessName" {
		t.Fatalf("expected details merged, got %v", body)
	}
	if !strings.Contains(rr.Body.String(), "상호명") {
		t.Fatalf("expected unescaped korean message, got %s", rr.Body.String())
	}
}

func TestSanitizeKeepsRuneBoundaries(t *testing.T) {
	if got := sanitize("주문이\n성공", 4); got != "주문이 " {
		t.Fatalf("unexpected truncation %q", got)
	}
}
