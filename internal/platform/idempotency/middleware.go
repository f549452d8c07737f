package idempotency

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/seungjae8520/hjjtest/internal/platform/httpx"
	"github.com/seungjae8520/hjjtest/internal/platform/session"
)

const (
	defaultHeaderName = "Idempotency-Key"
	replayHeaderName  = "X-Idempotent-Replay"

	guardFingerprint = "in-flight"
	msgInProgress    = "이미 처리 중인 요청입니다. 잠시만 기다려주세요."
)

// Logger is satisfied by observability.PrintfAdapter.
type Logger interface {
	Printf(format string, args ...any)
}

type middlewareConfig struct {
	headerName string
	ttl        time.Duration
	methods    map[string]struct{}
	clock      func() time.Time
	logger     Logger
}

type MiddlewareOption func(*middlewareConfig)

// WithHeader overrides the header carrying the key.
func WithHeader(name string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if name = strings.TrimSpace(name); name != "" {
			cfg.headerName = name
		}
	}
}

// WithTTL sets how long completed responses are replayed.
func WithTTL(ttl time.Duration) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if ttl > 0 {
			cfg.ttl = ttl
		}
	}
}

// WithMethods restricts the guarded HTTP methods.
func WithMethods(methods ...string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		set := make(map[string]struct{}, len(methods))
		for _, method := range methods {
			if method = strings.ToUpper(strings.TrimSpace(method)); method != "" {
				set[method] = struct{}{}
			}
		}
		if len(set) > 0 {
			cfg.methods = set
		}
	}
}

func WithLogger(logger Logger) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.logger = logger
	}
}

func WithClock(clock func() time.Time) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// Middleware guards mutating requests. With a key header the first successful response is
// stored and replayed for the same session; a different request under the same key is a 409.
// Error responses are not stored, so the key may be retried once the cause is fixed.
// Without the header only one request per session and route may run at a time.
func Middleware(store Store, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	cfg := middlewareConfig{
		headerName: defaultHeaderName,
		ttl:        DefaultTTL,
		methods:    map[string]struct{}{http.MethodPost: {}, http.MethodPut: {}, http.MethodPatch: {}, http.MethodDelete: {}},
		clock:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := cfg.methods[r.Method]; !ok {
				next.ServeHTTP(w, r)
				return
			}
			owner := requester(r.Context())
			key := strings.TrimSpace(r.Header.Get(cfg.headerName))
			if key == "" {
				guard(w, r, next, store, cfg, owner)
				return
			}
			replay(w, r, next, store, cfg, owner, key)
		})
	}
}

func guard(w http.ResponseWriter, r *http.Request, next http.Handler, store Store, cfg middlewareConfig, owner string) {
	ctx := r.Context()
	key := "guard|" + owner + "|" + r.Method + "|" + r.URL.Path
	reservation, err := store.Reserve(ctx, key, guardFingerprint, cfg.clock().UTC(), cfg.ttl)
	if err != nil {
		handleStoreError(ctx, w, cfg.logger, err)
		return
	}
	if reservation.State != ReservationStateNew {
		respondError(ctx, w, http.StatusConflict, "submission_in_progress", msgInProgress)
		return
	}
	defer func() {
		// The request context may already be cancelled here.
		if err := store.Release(context.WithoutCancel(ctx), key, guardFingerprint); err != nil && cfg.logger != nil {
			cfg.logger.Printf("idempotency: release guard %s: %v", r.URL.Path, err)
		}
	}()
	next.ServeHTTP(w, r)
}

func replay(w http.ResponseWriter, r *http.Request, next http.Handler, store Store, cfg middlewareConfig, owner, key string) {
	ctx := r.Context()
	body, err := readAndReplayBody(r)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid_body", "unable to read request body")
		return
	}
	fingerprint := requestFingerprint(r, body, owner)
	scoped := key + "|" + owner

	reservation, err := store.Reserve(ctx, scoped, fingerprint, cfg.clock().UTC(), cfg.ttl)
	if err != nil {
		handleStoreError(ctx, w, cfg.logger, err)
		return
	}
	switch reservation.State {
	case ReservationStateCompleted:
		writeStoredResponse(w, reservation.Record)
		return
	case ReservationStatePending:
		respondError(ctx, w, http.StatusConflict, "idempotency_in_progress", msgInProgress)
		return
	}

	recorder := newResponseRecorder(w)
	next.ServeHTTP(recorder, r)

	saveCtx := context.WithoutCancel(ctx)
	if recorder.Status() >= http.StatusBadRequest {
		if err := store.Release(saveCtx, scoped, fingerprint); err != nil && cfg.logger != nil {
			cfg.logger.Printf("idempotency: release key %s: %v", key, err)
		}
	} else {
		resp := Response{Status: recorder.Status(), Headers: recorder.header.Clone(), Body: recorder.Body()}
		if err := store.SaveResponse(saveCtx, scoped, fingerprint, resp, cfg.clock().UTC(), cfg.ttl); err != nil && cfg.logger != nil {
			cfg.logger.Printf("idempotency: persist response for key %s: %v", key, err)
		}
	}
	if err := recorder.Commit(); err != nil && cfg.logger != nil {
		cfg.logger.Printf("idempotency: flush response for key %s: %v", key, err)
	}
}

func requester(ctx context.Context) string {
	if id, ok := session.FromContext(ctx); ok && id.SessionID != "" {
		return id.SessionID
	}
	return "anonymous"
}

func readAndReplayBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func requestFingerprint(r *http.Request, body []byte, owner string) string {
	var b strings.Builder
	for _, part := range []string{r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("Content-Type"), owner} {
		b.WriteString(part)
		b.WriteString("|")
	}
	if len(body) > 0 {
		b.WriteString(sha256Hex(body))
	}
	return sha256Hex([]byte(b.String()))
}

func handleStoreError(ctx context.Context, w http.ResponseWriter, logger Logger, err error) {
	if errors.Is(err, ErrFingerprintMismatch) {
		respondError(ctx, w, http.StatusConflict, "idempotency_key_conflict", "idempotency key already used for a different request")
		return
	}
	if logger != nil {
		logger.Printf("idempotency: store error: %v", err)
	}
	respondError(ctx, w, http.StatusInternalServerError, "idempotency_store_error", "unable to process idempotency key")
}

func writeStoredResponse(w http.ResponseWriter, record Record) {
	dst := w.Header()
	for name, values := range headersFromRecord(record.ResponseHeaders) {
		dst[name] = values
	}
	dst.Set(replayHeaderName, "true")
	status := record.ResponseStatus
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(record.ResponseBody) > 0 {
		_, _ = w.Write(record.ResponseBody)
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	httpx.WriteError(ctx, w, httpx.NewError(code, message, status))
}

type responseRecorder struct {
	parent http.ResponseWriter
	header http.Header
	status int
	body   bytes.Buffer
}

func newResponseRecorder(parent http.ResponseWriter) *responseRecorder {
	return &responseRecorder{parent: parent, header: make(http.Header)}
}

func (r *responseRecorder) Header() http.Header { return r.header }

func (r *responseRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(data)
}

func (r *responseRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *responseRecorder) Body() []byte {
	if r.body.Len() == 0 {
		return nil
	}
	return append([]byte(nil), r.body.Bytes()...)
}

// Commit copies the recorded response to the real writer.
func (r *responseRecorder) Commit() error {
	dst := r.parent.Header()
	for name, values := range r.header {
		dst[name] = values
	}
	r.parent.WriteHeader(r.Status())
	if r.body.Len() == 0 {
		return nil
	}
	_, err := r.parent.Write(r.body.Bytes())
	return err
}
