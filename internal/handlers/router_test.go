package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seungjae8520/hjjtest/internal/catalog"
	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/notify"
	"github.com/seungjae8520/hjjtest/internal/platform/events"
	"github.com/seungjae8520/hjjtest/internal/platform/idempotency"
	"github.com/seungjae8520/hjjtest/internal/platform/session"
	"github.com/seungjae8520/hjjtest/internal/repositories/memory"
	"github.com/seungjae8520/hjjtest/internal/services"
)

var testNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

type stubIntake struct {
	orderFunc func(context.Context, domain.OrderPayload) (domain.SubmitResult, error)
	leadFunc  func(context.Context, domain.Lead) (domain.SubmitResult, error)
	orders    atomic.Int32
}

func (s *stubIntake) SubmitOrder(ctx context.Context, payload domain.OrderPayload) (domain.SubmitResult, error) {
	s.orders.Add(1)
	return s.orderFunc(ctx, payload)
}

func (s *stubIntake) SubmitLead(ctx context.Context, lead domain.Lead) (domain.SubmitResult, error) {
	return s.leadFunc(ctx, lead)
}

type testServer struct {
	handler http.Handler
	intake  *stubIntake
	repo    *memory.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo := memory.New()
	intake := &stubIntake{
		orderFunc: func(context.Context, domain.OrderPayload) (domain.SubmitResult, error) {
			return domain.SubmitResult{Success: true, OrderID: "ORD-42"}, nil
		},
		leadFunc: func(context.Context, domain.Lead) (domain.SubmitResult, error) {
			return domain.SubmitResult{Success: true}, nil
		},
	}
	clock := func() time.Time { return testNow }
	workspaces := services.NewWorkspaces(catalog.Default(), time.Hour, clock)

	carts, err := services.NewCartService(services.CartServiceDeps{Repository: repo.Carts(), Clock: clock})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}
	profiles, err := services.NewProfileService(services.ProfileServiceDeps{Repository: repo.Profiles(), Clock: clock})
	if err != nil {
		t.Fatalf("NewProfileService: %v", err)
	}
	selections, err := services.NewSelectionService(services.SelectionServiceDeps{
		Workspaces: workspaces,
		Snapshots:  repo.Snapshots(),
		Notifier:   notify.RequestNotifier{},
	})
	if err != nil {
		t.Fatalf("NewSelectionService: %v", err)
	}
	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Workspaces: workspaces,
		Snapshots:  repo.Snapshots(),
		Intake:     intake,
		Publisher:  events.NopPublisher{},
		Notifier:   notify.RequestNotifier{},
		Clock:      clock,
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	leads, err := services.NewLeadService(services.LeadServiceDeps{
		Intake:    intake,
		Publisher: events.NopPublisher{},
		Notifier:  notify.RequestNotifier{},
		Clock:     clock,
	})
	if err != nil {
		t.Fatalf("NewLeadService: %v", err)
	}

	guard := idempotency.Middleware(idempotency.NewMemoryStore(), idempotency.WithClock(clock))
	router := NewRouter(
		WithMiddlewares(testIdentity),
		WithCatalogRoutes(NewCatalogHandlers(nil).Routes),
		WithCartRoutes(NewCartHandlers(carts).Routes),
		WithProfileRoutes(NewProfileHandlers(profiles).Routes),
		WithSelectionRoutes(NewSelectionHandlers(selections).Routes),
		WithOrderRoutes(NewOrderHandlers(orders, guard).Routes),
		WithLeadRoutes(NewLeadHandlers(leads, guard).Routes),
		WithToolRoutes(NewToolHandlers().Routes),
	)
	return &testServer{handler: router, intake: intake, repo: repo}
}

// testIdentity reads the visitor and session from headers instead of signed cookies.
func testIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := session.Identity{VisitorID: r.Header.Get("X-Test-Visitor"), SessionID: r.Header.Get("X-Test-Session")}
		if id.VisitorID != "" {
			r = r.WithContext(session.WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	return s.doAs(t, "v1", "s1", method, path, body)
}

func (s *testServer) doAs(t *testing.T, visitor, sess, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if visitor != "" {
		req.Header.Set("X-Test-Visitor", visitor)
		req.Header.Set("X-Test-Session", sess)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	var decoded map[string]any
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode %s %s response: %v (%s)", method, path, err, rr.Body.String())
		}
	}
	return rr, decoded
}

func nested(t *testing.T, body map[string]any, key string) map[string]any {
	t.Helper()
	value, ok := body[key].(map[string]any)
	if !ok {
		t.Fatalf("expected object at %q, got %v", key, body[key])
	}
	return value
}

func firstToast(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	toasts, ok := body["toasts"].([]any)
	if !ok || len(toasts) == 0 {
		t.Fatalf("expected toasts in %v", body)
	}
	return toasts[0].(map[string]any)
}

func TestRouterNotFoundAndUnconfiguredGroups(t *testing.T) {
	rr, body := newTestServer(t).do(t, http.MethodGet, "/api/v1/nope", nil)
	if rr.Code != http.StatusNotFound || body["error"] != errorNotFoundCode {
		t.Fatalf("expected route_not_found, got %d %v", rr.Code, body)
	}

	bare := NewRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	bare.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501 for unconfigured cart, got %d", rec.Code)
	}
}

func TestCatalogEndpoint(t *testing.T) {
	rr, body := newTestServer(t).do(t, http.MethodGet, "/api/v1/catalog", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	cat := nested(t, body, "catalog")
	if platforms, _ := cat["platforms"].([]any); len(platforms) != 3 {
		t.Fatalf("expected 3 platforms, got %v", cat["platforms"])
	}
}

func TestCartEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rr, body := srv.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"id": "test", "name": "반영테스트", "price": 99000})
	if rr.Code != http.StatusOK {
		t.Fatalf("add item: %d %v", rr.Code, body)
	}
	srv.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"id": "test", "name": "반영테스트", "price": 99000})

	rr, body = srv.do(t, http.MethodGet, "/api/v1/cart", nil)
	cart := nested(t, body, "cart")
	if cart["total"] != float64(198000) || cart["formatted_total"] != "₩198,000" {
		t.Fatalf("unexpected cart %v", cart)
	}
	if rr.Header().Get("ETag") == "" || rr.Header().Get("Cache-Control") == "" {
		t.Fatalf("expected cache headers, got %v", rr.Header())
	}

	rr, body = srv.do(t, http.MethodPatch, "/api/v1/cart/items/test", map[string]any{"quantity": 0})
	if rr.Code != http.StatusOK || nested(t, body, "cart")["total"] != float64(99000) {
		t.Fatalf("quantity clamp: %d %v", rr.Code, body)
	}

	rr, body = srv.do(t, http.MethodPatch, "/api/v1/cart/items/missing", map[string]any{"quantity": 2})
	if rr.Code != http.StatusNotFound || body["error"] != "cart_item_not_found" {
		t.Fatalf("expected 404 cart_item_not_found, got %d %v", rr.Code, body)
	}

	// Carts follow the visitor across browser sessions.
	_, body = srv.doAs(t, "v1", "s2", http.MethodGet, "/api/v1/cart", nil)
	if nested(t, body, "cart")["items_count"] != float64(1) {
		t.Fatalf("expected cart to survive a new session, got %v", body)
	}

	rr, body = srv.do(t, http.MethodDelete, "/api/v1/cart", nil)
	if rr.Code != http.StatusOK || nested(t, body, "cart")["items_count"] != float64(0) {
		t.Fatalf("clear: %d %v", rr.Code, body)
	}
}

func TestCartRejectsBadInput(t *testing.T) {
	srv := newTestServer(t)
	cases := []struct {
		name string
		body any
		code string
	}{
		{"missing name", map[string]any{"id": "x", "price": 1}, "invalid_request"},
		{"negative price", map[string]any{"id": "x", "name": "x", "price": -1}, "invalid_request"},
		{"unknown member", map[string]any{"id": "x", "name": "x", "price": 1, "extra": true}, "invalid_request"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, body := srv.do(t, http.MethodPost, "/api/v1/cart/items", tc.body)
			if rr.Code != http.StatusBadRequest || body["error"] != tc.code {
				t.Fatalf("expected 400 %s, got %d %v", tc.code, rr.Code, body)
			}
		})
	}

	rr, body := srv.doAs(t, "", "", http.MethodGet, "/api/v1/cart", nil)
	if rr.Code != http.StatusBadRequest || body["error"] != "session_required" {
		t.Fatalf("expected session_required, got %d %v", rr.Code, body)
	}
}

func TestProfileEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rr, body := srv.do(t, http.MethodPatch, "/api/v1/profile", map[string]any{"business_name": "내가올려 식당", "phone": "01012345678"})
	if rr.Code != http.StatusOK {
		t.Fatalf("patch: %d %v", rr.Code, body)
	}
	srv.do(t, http.MethodPatch, "/api/v1/profile", map[string]any{"region": "서울"})

	_, body = srv.do(t, http.MethodGet, "/api/v1/profile", nil)
	profile := nested(t, body, "profile")
	if profile["business_name"] != "내가올려 식당" || profile["region"] != "서울" || profile["phone"] != "010-1234-5678" {
		t.Fatalf("expected merged profile, got %v", profile)
	}

	rr, body = srv.do(t, http.MethodPatch, "/api/v1/profile", map[string]any{"phone": "12345"})
	if rr.Code != http.StatusUnprocessableEntity || body["field"] != "phone" {
		t.Fatalf("expected 422 on phone, got %d %v", rr.Code, body)
	}
}

func TestSelectionFlowToOrderSubmit(t *testing.T) {
	srv := newTestServer(t)

	rr, body := srv.do(t, http.MethodPost, "/api/v1/selection/proceed", nil)
	if rr.Code != http.StatusUnprocessableEntity || body["error"] != "nothing_selected" {
		t.Fatalf("expected nothing_selected, got %d %v", rr.Code, body)
	}
	if firstToast(t, body)["kind"] != string(notify.KindError) {
		t.Fatalf("expected error toast, got %v", body["toasts"])
	}

	srv.do(t, http.MethodPut, "/api/v1/selection/business-type", map[string]any{"business_type": "general"})
	rr, body = srv.do(t, http.MethodPost, "/api/v1/selection/step/next", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("step 1 -> 2: %d %v", rr.Code, body)
	}
	rr, body = srv.do(t, http.MethodPost, "/api/v1/selection/step/next", nil)
	if rr.Code != http.StatusUnprocessableEntity || body["error"] != "step_locked" {
		t.Fatalf("expected step_locked, got %d %v", rr.Code, body)
	}

	rr, body = srv.do(t, http.MethodPost, "/api/v1/selection/platforms/naver_place:toggle", nil)
	if rr.Code != http.StatusOK || body["selected"] != true {
		t.Fatalf("toggle platform: %d %v", rr.Code, body)
	}
	srv.do(t, http.MethodPut, "/api/v1/selection/main-keyword", map[string]any{"keyword": "강남 맛집"})
	rr, body = srv.do(t, http.MethodPost, "/api/v1/selection/step/next", nil)
	if rr.Code != http.StatusOK || nested(t, body, "selection")["step"] != float64(3) {
		t.Fatalf("step 2 -> 3: %d %v", rr.Code, body)
	}

	rr, body = srv.do(t, http.MethodPost, "/api/v1/selection/products/nope:toggle", nil)
	if rr.Code != http.StatusNotFound || body["error"] != "unknown_item" {
		t.Fatalf("expected unknown_item, got %d %v", rr.Code, body)
	}
	srv.do(t, http.MethodPost, "/api/v1/selection/products/test:toggle", nil)
	rr, body = srv.do(t, http.MethodPost, "/api/v1/selection/virals/smartblock:toggle", map[string]any{"price": 450000})
	if rr.Code != http.StatusOK || nested(t, body, "selection")["total_price"] != float64(549000) {
		t.Fatalf("expected total 549000, got %d %v", rr.Code, body)
	}

	rr, body = srv.do(t, http.MethodPost, "/api/v1/selection/proceed", nil)
	if rr.Code != http.StatusOK || nested(t, body, "redirect")["url"] != services.OrderPagePath {
		t.Fatalf("proceed: %d %v", rr.Code, body)
	}

	rr, body = srv.do(t, http.MethodGet, "/api/v1/order", nil)
	if rr.Code != http.StatusOK || nested(t, body, "order_form")["total_price"] != float64(549000) {
		t.Fatalf("load order: %d %v", rr.Code, body)
	}

	rr, body = srv.do(t, http.MethodPost, "/api/v1/order:submit", nil)
	if rr.Code != http.StatusUnprocessableEntity || body["field"] != "businessName" {
		t.Fatalf("expected validation on businessName, got %d %v", rr.Code, body)
	}

	for _, f := range [][2]string{
		{"businessName", "내가올려 식당"},
		{"ownerName", "김대표"},
		{"phone", "01012345678"},
	} {
		rr, body = srv.do(t, http.MethodPatch, "/api/v1/order/fields", map[string]any{"field": f[0], "value": f[1]})
		if rr.Code != http.StatusOK {
			t.Fatalf("set %s: %d %v", f[0], rr.Code, body)
		}
	}
	if body["value"] != "010-1234-5678" {
		t.Fatalf("expected formatted phone, got %v", body["value"])
	}
	srv.do(t, http.MethodPut, "/api/v1/order/address", map[string]any{"postal_code": "06236", "address": "서울 강남구 테헤란로 1"})
	rr, body = srv.do(t, http.MethodPost, "/api/v1/order/agreements:toggle-all", map[string]any{"checked": true})
	if rr.Code != http.StatusOK || nested(t, body, "order_form")["can_submit"] != true {
		t.Fatalf("toggle all: %d %v", rr.Code, body)
	}

	rr, body = srv.do(t, http.MethodPost, "/api/v1/order:submit", nil)
	if rr.Code != http.StatusOK || body["order_id"] != "ORD-42" {
		t.Fatalf("submit: %d %v", rr.Code, body)
	}
	redirect := nested(t, body, "redirect")
	if redirect["url"] != "/complete?orderId=ORD-42" || redirect["delay_ms"] != float64(1500) {
		t.Fatalf("unexpected redirect %v", redirect)
	}
	if firstToast(t, body)["kind"] != string(notify.KindSuccess) {
		t.Fatalf("expected success toast, got %v", body["toasts"])
	}

	rr, body = srv.do(t, http.MethodGet, "/api/v1/order", nil)
	if rr.Code != http.StatusNotFound || nested(t, body, "redirect")["url"] != "/products" {
		t.Fatalf("expected snapshot cleared, got %d %v", rr.Code, body)
	}
}

func TestOrderLoadWithoutSnapshot(t *testing.T) {
	rr, body := newTestServer(t).do(t, http.MethodGet, "/api/v1/order", nil)
	if rr.Code != http.StatusNotFound || body["error"] != "order_snapshot_missing" {
		t.Fatalf("expected order_snapshot_missing, got %d %v", rr.Code, body)
	}
	if redirect := nested(t, body, "redirect"); redirect["delay_ms"] != float64(2000) {
		t.Fatalf("unexpected redirect %v", redirect)
	}
}

func TestRestaurantTrack(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPut, "/api/v1/selection/business-type", map[string]any{"business_type": "restaurant"})

	rr, body := srv.do(t, http.MethodPost, "/api/v1/selection/restaurant/counts/traffic:adjust", map[string]any{"amount": -500})
	if rr.Code != http.StatusOK || body["count"] != float64(100) {
		t.Fatalf("expected clamp at minimum, got %d %v", rr.Code, body)
	}
	rr, body = srv.do(t, http.MethodPost, "/api/v1/selection/restaurant/counts/traffic:adjust", map[string]any{"amount": math.MaxInt64 - 100})
	if rr.Code != http.StatusUnprocessableEntity || body["error"] != "count_out_of_range" {
		t.Fatalf("expected count_out_of_range, got %d %v", rr.Code, body)
	}
	srv.do(t, http.MethodPost, "/api/v1/selection/restaurant/products/traffic:toggle", nil)

	rr, body = srv.do(t, http.MethodPost, "/api/v1/selection/restaurant/submit", nil)
	if rr.Code != http.StatusUnprocessableEntity || body["error"] != "restaurant_incomplete" {
		t.Fatalf("expected restaurant_incomplete, got %d %v", rr.Code, body)
	}

	srv.do(t, http.MethodPatch, "/api/v1/selection/restaurant", map[string]any{"business_name": "내가올려 식당", "phone": "010-1234-5678"})
	rr, body = srv.do(t, http.MethodPost, "/api/v1/selection/restaurant/submit", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("submit restaurant: %d %v", rr.Code, body)
	}
	if raw, err := srv.repo.GetSnapshot(context.Background(), "s1"); err != nil || len(raw) == 0 {
		t.Fatalf("expected stored snapshot, got %v", err)
	}

	rr, body = srv.do(t, http.MethodPost, "/api/v1/selection/proceed", nil)
	if rr.Code != http.StatusConflict || body["error"] != "wrong_track" {
		t.Fatalf("expected wrong_track, got %d %v", rr.Code, body)
	}
}

func TestSelectionSubKeywords(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/api/v1/selection/sub-keywords", map[string]any{"keyword": " 파스타 "})
	_, body := srv.do(t, http.MethodPost, "/api/v1/selection/sub-keywords", map[string]any{"keyword": "파스타"})
	if body["added"] != false {
		t.Fatalf("expected duplicate to be ignored, got %v", body)
	}
	_, body = srv.do(t, http.MethodDelete, "/api/v1/selection/sub-keywords/0", nil)
	if subs, _ := nested(t, body, "selection")["sub_keywords"].([]any); len(subs) != 0 || body["removed"] != true {
		t.Fatalf("expected keyword removed, got %v", body)
	}
	rr, _ := srv.do(t, http.MethodDelete, "/api/v1/selection/sub-keywords/x", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric index, got %d", rr.Code)
	}
}

func TestOrderSubmitIntakeFailure(t *testing.T) {
	srv := newTestServer(t)
	srv.intake.orderFunc = func(context.Context, domain.OrderPayload) (domain.SubmitResult, error) {
		return domain.SubmitResult{}, errors.New("connection refused")
	}
	srv.do(t, http.MethodPut, "/api/v1/selection/business-type", map[string]any{"business_type": "general"})
	srv.do(t, http.MethodPost, "/api/v1/selection/products/test:toggle", nil)
	srv.do(t, http.MethodPost, "/api/v1/selection/proceed", nil)
	for field, value := range map[string]string{"businessName": "a", "ownerName": "b", "phone": "01012345678"} {
		srv.do(t, http.MethodPatch, "/api/v1/order/fields", map[string]any{"field": field, "value": value})
	}
	srv.do(t, http.MethodPut, "/api/v1/order/address", map[string]any{"postal_code": "06236", "address": "서울"})
	srv.do(t, http.MethodPut, "/api/v1/order/agreements", map[string]any{"name": "terms", "checked": true})
	srv.do(t, http.MethodPut, "/api/v1/order/agreements", map[string]any{"name": "privacy", "checked": true})

	rr, body := srv.do(t, http.MethodPost, "/api/v1/order:submit", nil)
	if rr.Code != http.StatusBadGateway || body["error"] != "intake_unavailable" {
		t.Fatalf("expected 502, got %d %v", rr.Code, body)
	}

	// The guard released the key, so a retry reaches the intake again.
	srv.do(t, http.MethodPost, "/api/v1/order:submit", nil)
	if got := srv.intake.orders.Load(); got != 2 {
		t.Fatalf("expected two intake attempts, got %d", got)
	}
	if raw, err := srv.repo.GetSnapshot(context.Background(), "s1"); err != nil || len(raw) == 0 {
		t.Fatalf("snapshot must survive a failed submit: %v", err)
	}
}

func TestOrderFieldUnknown(t *testing.T) {
	rr, body := newTestServer(t).do(t, http.MethodPatch, "/api/v1/order/fields", map[string]any{"field": "nope", "value": "x"})
	if rr.Code != http.StatusBadRequest || body["error"] != "unknown_field" {
		t.Fatalf("expected unknown_field, got %d %v", rr.Code, body)
	}
}

func TestLeadCapture(t *testing.T) {
	srv := newTestServer(t)
	rr, body := srv.do(t, http.MethodPost, "/api/v1/leads", map[string]any{"business_name": "가게", "name": "홍길동", "phone": "010-123"})
	if rr.Code != http.StatusUnprocessableEntity || body["field"] != "phone" {
		t.Fatalf("expected phone validation, got %d %v", rr.Code, body)
	}

	rr, body = srv.doAs(t, "v1", "s9", http.MethodPost, "/api/v1/leads", map[string]any{
		"business_name": "가게",
		"name":          "홍길동",
		"phone":         "01012345678",
		"email":         "owner@example.com",
	})
	if rr.Code != http.StatusCreated || body["success"] != true {
		t.Fatalf("expected 201, got %d %v", rr.Code, body)
	}
	if firstToast(t, body)["message"] != services.MsgLeadSuccess {
		t.Fatalf("unexpected toast %v", body["toasts"])
	}
}

func TestValidateEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rr, body := srv.do(t, http.MethodPost, "/api/v1/validate", map[string]any{
		"fields": map[string]any{
			"email": map[string]any{"value": "bad", "rules": map[string]any{"required": true, "email": true}},
			"name":  map[string]any{"value": "홍길동", "rules": map[string]any{"required": true, "max_length": 10}},
		},
	})
	if rr.Code != http.StatusOK || body["valid"] != false {
		t.Fatalf("expected invalid result, got %d %v", rr.Code, body)
	}
	errs := nested(t, body, "errors")
	if _, ok := errs["name"]; ok {
		t.Fatalf("name should pass, got %v", errs)
	}
	if msgs, _ := errs["email"].([]any); len(msgs) != 1 {
		t.Fatalf("expected one email message, got %v", errs["email"])
	}

	rr, _ = srv.do(t, http.MethodPost, "/api/v1/validate", map[string]any{"fields": map[string]any{}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty field set, got %d", rr.Code)
	}
}

func TestQuotePackageEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rr, body := srv.do(t, http.MethodPost, "/api/v1/quotes/package", map[string]any{
		"base_price": 300000,
		"period":     15,
		"quantity":   2,
		"options":    []map[string]any{{"id": "booster", "price": 50000, "quantity": 2}},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("quote: %d %v", rr.Code, body)
	}
	// 300000 × 2 × 15/10 + 50000 × 2
	if body["total"] != float64(1000000) || body["formatted_total"] != "₩1,000,000" {
		t.Fatalf("unexpected quote %v", body)
	}

	rr, body = srv.do(t, http.MethodPost, "/api/v1/quotes/package", map[string]any{"base_price": -1})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative price, got %d %v", rr.Code, body)
	}

	for name, payload := range map[string]map[string]any{
		"quantity beyond counter": {"base_price": 1000, "quantity": 5000},
		"period beyond a year":    {"base_price": 1000, "period": 400},
		"options beyond int64": {
			"base_price": 1000,
			"options":    []map[string]any{{"id": "bulk", "price": 5_000_000_000_000_000, "quantity": 4}},
		},
	} {
		rr, body = srv.do(t, http.MethodPost, "/api/v1/quotes/package", payload)
		if rr.Code != http.StatusBadRequest || body["error"] != "invalid_request" {
			t.Fatalf("%s: expected 400 invalid_request, got %d %v", name, rr.Code, body)
		}
	}
}
