package api

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admin-dashboard/internal/auth"
	"admin-dashboard/internal/config"
	"admin-dashboard/internal/services"
	"admin-dashboard/internal/shell"
	"admin-dashboard/internal/stubapi"
)

type harness struct {
	t        *testing.T
	server   *httptest.Server
	client   *http.Client
	upstream *services.ServiceClient
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	users := httptest.NewServer(stubapi.NewUsersHandler())
	t.Cleanup(users.Close)
	products := httptest.NewServer(stubapi.NewProductsHandler())
	t.Cleanup(products.Close)

	sc := services.NewServiceClient(&config.Config{
		UsersAPIURL:    users.URL,
		ProductsAPIURL: products.URL,
	})
	registry := shell.NewRegistry(time.Hour, shell.Dashboard(sc.Users, sc.Products))
	h := NewHandler(registry, auth.NewMiddleware("test-secret", false), opts...)

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &harness{
		t:        t,
		server:   srv,
		client:   &http.Client{Jar: jar},
		upstream: sc,
	}
}

func (h *harness) get(path string) (int, string) {
	h.t.Helper()
	resp, err := h.client.Get(h.server.URL + path)
	require.NoError(h.t, err)
	return read(h.t, resp)
}

func (h *harness) post(path string, form url.Values) (int, string) {
	h.t.Helper()
	resp, err := h.client.PostForm(h.server.URL+path, form)
	require.NoError(h.t, err)
	return read(h.t, resp)
}

func read(t *testing.T, resp *http.Response) (int, string) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestIndexShowsEmptyUsers(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	status, body := h.get("/")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Multi APIs Dashboard")
	assert.Contains(t, body, "No users registered")
	assert.Contains(t, body, "Create User")
}

func TestUserLifecycle(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.get("/users")

	status, body := h.post("/users/submit", url.Values{"name": {"Ada"}, "email": {"ada@x.com"}})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "User created successfully")
	assert.Contains(t, body, "<td>Ada</td>")
	assert.Contains(t, body, "<td>ada@x.com</td>")
	assert.NotContains(t, body, "No users registered")

	_, body = h.post("/users/edit", url.Values{"id": {"1"}})
	assert.Contains(t, body, `value="Ada"`)
	assert.Contains(t, body, "Update")
	assert.Contains(t, body, `name="editing" value="1"`)

	_, body = h.post("/users/submit", url.Values{"editing": {"1"}, "name": {"Ada"}, "email": {"ada@lovelace.org"}})
	assert.Contains(t, body, "User updated successfully")
	assert.Contains(t, body, "<td>ada@lovelace.org</td>")
	assert.Contains(t, body, "Create User")

	users, err := h.upstream.Users.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "ada@lovelace.org", users[0].Email)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.get("/users")
	h.post("/users/submit", url.Values{"name": {"Ada"}, "email": {"ada@x.com"}})

	_, body := h.post("/users/delete", url.Values{"id": {"1"}})
	assert.Contains(t, body, "Are you sure you want to delete this user?")

	_, body = h.post("/users/delete/decline", nil)
	assert.NotContains(t, body, "Are you sure")
	assert.Contains(t, body, "<td>Ada</td>")

	users, err := h.upstream.Users.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)

	h.post("/users/delete", url.Values{"id": {"1"}})
	_, body = h.post("/users/delete/confirm", nil)
	assert.Contains(t, body, "User deleted successfully")
	assert.Contains(t, body, "No users registered")

	_, body = h.post("/users/delete/confirm", nil)
	assert.Contains(t, body, "no deletion awaiting confirmation")
}

func TestProductPriceFormatting(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, body := h.get("/products")
	assert.Contains(t, body, "No products registered")

	_, body = h.post("/products/submit", url.Values{"name": {"Widget"}, "price": {"5"}})
	assert.Contains(t, body, "Product created successfully")
	assert.Contains(t, body, "<td>$5.00</td>")

	products, err := h.upstream.Products.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	id := string(products[0].ID)
	assert.Contains(t, body, `class="mono">`+id)

	_, body = h.post("/products/edit", url.Values{"id": {id}})
	assert.Contains(t, body, `value="5"`)

	_, body = h.post("/products/submit", url.Values{"editing": {id}, "name": {"Widget"}, "price": {"7.5"}})
	assert.Contains(t, body, "Product updated successfully")
	assert.Contains(t, body, "<td>$7.50</td>")
}

func TestEmptyFieldSendsNothing(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.get("/users")

	_, body := h.post("/users/submit", url.Values{"name": {"Ada"}, "email": {""}})
	assert.Contains(t, body, "all fields are required")
	assert.Contains(t, body, `value="Ada"`)

	users, err := h.upstream.Users.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestSwitchingTabsResetsForm(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.get("/users")
	h.post("/users/submit", url.Values{"name": {"Ada"}, "email": {""}})

	_, body := h.get("/products")
	assert.Contains(t, body, `class="active">Products`)

	_, body = h.get("/users")
	assert.NotContains(t, body, `value="Ada"`)
}

func TestEditFormFromClosedTabDoesNotCreate(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.get("/products")
	h.post("/products/submit", url.Values{"name": {"Widget"}, "price": {"5"}})
	products, err := h.upstream.Products.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	id := string(products[0].ID)

	h.post("/products/edit", url.Values{"id": {id}})
	h.get("/users")

	status, body := h.post("/products/submit", url.Values{"editing": {id}, "name": {"Widget"}, "price": {"7.5"}})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "that tab is no longer open, nothing was changed")
	assert.Contains(t, body, `class="active">Products`)

	products, err = h.upstream.Products.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 5.0, products[0].Price)
}

func TestActionsOnClosedTabAreIgnored(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.get("/users")
	h.post("/users/submit", url.Values{"name": {"Ada"}, "email": {"ada@x.com"}})
	h.post("/users/delete", url.Values{"id": {"1"}})
	h.get("/products")

	_, body := h.post("/users/delete/confirm", nil)
	assert.Contains(t, body, "that tab is no longer open, nothing was changed")

	users, err := h.upstream.Users.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestStaleEditingIDIsRejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.get("/users")
	h.post("/users/submit", url.Values{"name": {"Ada"}, "email": {"ada@x.com"}})
	h.post("/users/edit", url.Values{"id": {"1"}})
	h.post("/users/cancel", nil)

	_, body := h.post("/users/submit", url.Values{"editing": {"1"}, "name": {"Ada"}, "email": {"new@x.com"}})
	assert.Contains(t, body, "the form no longer matches the record being edited")

	users, err := h.upstream.Users.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "ada@x.com", users[0].Email)
}

func TestUnknownRecordIsWarning(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.get("/users")
	status, body := h.post("/users/edit", url.Values{"id": {"42"}})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "record is not in the current list")
}

func TestUnknownTab(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	status, _ := h.get("/orders")
	assert.Equal(t, http.StatusNotFound, status)
}

type denyAll struct{}

func (denyAll) IsRateLimited(context.Context, string) bool { return true }

func TestRateLimitedMutation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, WithRateLimiter(denyAll{}))
	status, _ := h.get("/users")
	require.Equal(t, http.StatusOK, status)

	status, _ = h.post("/users/submit", url.Values{"name": {"Ada"}, "email": {"ada@x.com"}})
	assert.Equal(t, http.StatusTooManyRequests, status)

	users, err := h.upstream.Users.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

type keyRecorder struct {
	mu   sync.Mutex
	keys []string
}

func (k *keyRecorder) IsRateLimited(_ context.Context, key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys = append(k.keys, key)
	return false
}

func (k *keyRecorder) last() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.keys) == 0 {
		return ""
	}
	return k.keys[len(k.keys)-1]
}

func TestRateLimitKeyIgnoresForwardedHeaders(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name  string
		trust bool
		want  string
	}{
		{name: "direct", trust: false, want: "127.0.0.1"},
		{name: "behind proxy", trust: true, want: "203.0.113.7"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			keys := &keyRecorder{}
			h := newHarness(t, WithRateLimiter(keys), WithTrustedProxy(tc.trust))
			h.get("/users")

			req, err := http.NewRequest(http.MethodPost, h.server.URL+"/users/delete/confirm", nil)
			require.NoError(t, err)
			req.Header.Set("X-Forwarded-For", "203.0.113.7")
			resp, err := h.client.Do(req)
			require.NoError(t, err)
			read(t, resp)

			assert.Equal(t, tc.want, keys.last())
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	status, body := h.get("/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)

	h.get("/users")
	status, body = h.get("/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "dashboard_http_requests_total")
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientIP(r))

	r.RemoteAddr = "10.0.0.2"
	assert.Equal(t, "10.0.0.2", clientIP(r))
}
