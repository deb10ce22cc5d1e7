package degiro

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const (
	testSessionID = "sid-1"
	testAccount   = int64(1001)
	testUserToken = int64(77)
)

// fakeVendor serves the DEGIRO endpoints from one httptest server. Routes
// are keyed by "METHOD path" where path includes any ;jsessionid suffix.
type fakeVendor struct {
	t      *testing.T
	srv    *httptest.Server
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]int
}

func newFakeVendor(t *testing.T) *fakeVendor {
	t.Helper()
	f := &fakeVendor{t: t, routes: map[string]http.HandlerFunc{}, hits: map[string]int{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)

	f.handle(http.MethodPost, "/login/secure/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: testSessionID, Path: "/"})
		writeJSON(w, http.StatusOK, map[string]any{"status": 0, "statusText": "success", "sessionId": testSessionID})
	})
	f.handle(http.MethodGet, "/login/secure/config", func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie("JSESSIONID"); err != nil || ck.Value != testSessionID {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "no session"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"clientId":               testUserToken,
			"paUrl":                  f.srv.URL + "/pa/",
			"productSearchUrl":       f.srv.URL + "/product_search/",
			"productTypesUrl":        f.srv.URL + "/product_types/",
			"reportingUrl":           f.srv.URL + "/reporting/",
			"tradingUrl":             f.srv.URL + "/trading/",
			"vwdQuotecastServiceUrl": "",
		}})
	})
	f.handle(http.MethodGet, "/pa/client", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sessionId") != testSessionID {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "bad session"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"id":          testUserToken,
			"intAccount":  testAccount,
			"clientRole":  "basic",
			"username":    "user",
			"displayName": "Test User",
		}})
	})
	return f
}

func (f *fakeVendor) serve(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	f.mu.Lock()
	h, ok := f.routes[key]
	f.hits[key]++
	f.mu.Unlock()
	if !ok {
		f.t.Logf("fake vendor: no route for %s", key)
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "no route " + key})
		return
	}
	h(w, r)
}

func (f *fakeVendor) handle(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	f.routes[method+" "+path] = h
	f.mu.Unlock()
}

func (f *fakeVendor) hitCount(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[method+" "+path]
}

func (f *fakeVendor) client(opts ...Option) *Client {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	base := []Option{
		WithBaseURL(f.srv.URL),
		WithQuotecastURL(f.srv.URL + "/quotecast"),
		WithCredentials("user", "pass"),
		WithRateLimiter(nil),
		WithLogger(logger),
		WithTimeout(5 * time.Second),
	}
	return NewClient(append(base, opts...)...)
}

func (f *fakeVendor) loggedIn(opts ...Option) *Client {
	f.t.Helper()
	c := f.client(opts...)
	_, err := c.Login(context.Background())
	require.NoError(f.t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// memStore is an in-memory SessionStore.
type memStore struct {
	mu      sync.Mutex
	session *Session
	saves   int
	clears  int
}

func (m *memStore) Load(context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil
	}
	s := *m.session
	return &s, nil
}

func (m *memStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &s
	m.saves++
	return nil
}

func (m *memStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	m.clears++
	return nil
}

// recordingHook captures order pipeline events.
type recordingHook struct {
	mu      sync.Mutex
	checked []CheckedOrder
	placed  []PlacedOrder
	deleted []string
}

func (h *recordingHook) OrderChecked(_ context.Context, o CheckedOrder) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checked = append(h.checked, o)
	return nil
}

func (h *recordingHook) OrderPlaced(_ context.Context, o PlacedOrder) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.placed = append(h.placed, o)
	return nil
}

func (h *recordingHook) OrderDeleted(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deleted = append(h.deleted, id)
	return nil
}
