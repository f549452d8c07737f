package session

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "id-" + strconv.Itoa(n)
	}
}

func TestMiddlewareIssuesBothCookies(t *testing.T) {
	t.Parallel()

	m, err := NewManager("test-key", WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)
	require.False(t, m.Ephemeral())

	var seen Identity
	h := m.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		require.True(t, ok)
		seen = id
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, Identity{VisitorID: "id-1", SessionID: "id-2"}, seen)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		require.True(t, c.HttpOnly)
		if c.Name == SessionCookie {
			require.True(t, c.Expires.IsZero(), "session cookie must not persist")
		} else {
			require.False(t, c.Expires.IsZero())
		}
	}
}

func TestMiddlewareReusesSignedCookies(t *testing.T) {
	t.Parallel()

	m, err := NewManager("test-key", WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)

	first := httptest.NewRecorder()
	m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range first.Result().Cookies() {
		req.AddCookie(c)
	}

	var seen Identity
	second := httptest.NewRecorder()
	m.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	})).ServeHTTP(second, req)

	require.Equal(t, Identity{VisitorID: "id-1", SessionID: "id-2"}, seen)
	require.Empty(t, second.Result().Cookies())
}

func TestMiddlewareRejectsTamperedCookie(t *testing.T) {
	t.Parallel()

	m, err := NewManager("test-key", WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookie, Value: "someone-else.c2lnbmF0dXJl"})

	var seen Identity
	m.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), req)

	require.NotEqual(t, "someone-else", seen.VisitorID)
}

func TestEmptyKeyIsEphemeral(t *testing.T) {
	t.Parallel()

	m, err := NewManager("  ")
	require.NoError(t, err)
	require.True(t, m.Ephemeral())
}
