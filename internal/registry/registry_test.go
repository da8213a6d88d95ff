package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seclens/edrsearch-mcp/pkg/edr"
)

// authServer is a minimal token endpoint counting authentication attempts.
func authServer(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/token" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&calls, 1)
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("client_secret") == "bad" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 1800})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestRegistry(srv *httptest.Server, env map[string]string) *Registry {
	var mu sync.RWMutex
	return New(Options{
		BaseURL: srv.URL,
		Lookup: func(key string) string {
			mu.RLock()
			defer mu.RUnlock()
			return env[key]
		},
	})
}

func credsFor(code string) map[string]string {
	return map[string]string{
		"EDR_CLIENT_ID_" + code:     "id-" + code,
		"EDR_CLIENT_SECRET_" + code: "secret-" + code,
	}
}

func TestGet_cachesSessionPerTenant(t *testing.T) {
	srv, calls := authServer(t)
	r := newTestRegistry(srv, credsFor("T1"))

	first, err := r.Get(context.Background(), "T1")
	require.NoError(t, err)
	second, err := r.Get(context.Background(), "T1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestGet_concurrentFirstCallsAuthenticateOnce(t *testing.T) {
	srv, calls := authServer(t)
	r := newTestRegistry(srv, credsFor("T1"))

	const n = 16
	clients := make([]*edr.Client, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := r.Get(context.Background(), "T1")
			assert.NoError(t, err)
			clients[i] = c
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(calls), "exactly one authentication attempt")
	for i := 1; i < n; i++ {
		assert.Same(t, clients[0], clients[i], "all callers observe the same session")
	}
}

func TestGet_distinctTenantsGetDistinctSessions(t *testing.T) {
	srv, _ := authServer(t)
	env := credsFor("T1")
	for k, v := range credsFor("T2") {
		env[k] = v
	}
	r := newTestRegistry(srv, env)

	c1, err := r.Get(context.Background(), "T1")
	require.NoError(t, err)
	c2, err := r.Get(context.Background(), "T2")
	require.NoError(t, err)

	assert.NotSame(t, c1, c2)
	assert.Equal(t, []string{"T1", "T2"}, r.Codes())
}

func TestGet_tenantCodeIsCaseInsensitive(t *testing.T) {
	srv, calls := authServer(t)
	r := newTestRegistry(srv, credsFor("ACME"))

	c1, err := r.Get(context.Background(), "acme")
	require.NoError(t, err)
	c2, err := r.Get(context.Background(), "Acme")
	require.NoError(t, err)

	assert.Same(t, c1, c2)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestGet_missingCredentialsNotCachedAsFailed(t *testing.T) {
	srv, _ := authServer(t)
	env := map[string]string{}
	var mu sync.RWMutex
	r := New(Options{
		BaseURL: srv.URL,
		Lookup: func(key string) string {
			mu.RLock()
			defer mu.RUnlock()
			return env[key]
		},
	})

	_, err := r.Get(context.Background(), "T1")
	require.ErrorIs(t, err, edr.ErrConfiguration)
	assert.Empty(t, r.Codes())

	// Credentials configured later: the next call must retry construction.
	mu.Lock()
	for k, v := range credsFor("T1") {
		env[k] = v
	}
	mu.Unlock()

	_, err = r.Get(context.Background(), "T1")
	assert.NoError(t, err)
}

func TestGet_authFailureSurfacesAndIsRetriable(t *testing.T) {
	srv, calls := authServer(t)
	r := newTestRegistry(srv, map[string]string{
		"EDR_CLIENT_ID_T1":     "id",
		"EDR_CLIENT_SECRET_T1": "bad",
	})

	_, err := r.Get(context.Background(), "T1")
	require.ErrorIs(t, err, edr.ErrAuthentication)
	assert.Empty(t, r.Codes(), "half-authenticated sessions must not be cached")

	_, err = r.Get(context.Background(), "T1")
	require.ErrorIs(t, err, edr.ErrAuthentication)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls), "failures are retried, not negatively cached")
}

func TestGet_emptyTenantCode(t *testing.T) {
	srv, _ := authServer(t)
	r := newTestRegistry(srv, nil)
	_, err := r.Get(context.Background(), "  ")
	assert.ErrorIs(t, err, edr.ErrConfiguration)
}

func TestEvict_forcesReauthentication(t *testing.T) {
	srv, calls := authServer(t)
	r := newTestRegistry(srv, credsFor("T1"))

	_, err := r.Get(context.Background(), "T1")
	require.NoError(t, err)
	assert.True(t, r.Evict("t1"))
	assert.False(t, r.Evict("t1"), "second evict is a no-op")

	_, err = r.Get(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestClose_dropsAllSessions(t *testing.T) {
	srv, _ := authServer(t)
	r := newTestRegistry(srv, credsFor("T1"))
	_, err := r.Get(context.Background(), "T1")
	require.NoError(t, err)

	r.Close()
	assert.Empty(t, r.Codes())
}

func TestGet_perTenantBaseURLOverride(t *testing.T) {
	srvDefault, defaultCalls := authServer(t)
	srvOverride, overrideCalls := authServer(t)

	env := credsFor("T1")
	var mu sync.RWMutex
	r := New(Options{
		BaseURL:   srvDefault.URL,
		Overrides: map[string]TenantOverride{"T1": {BaseURL: srvOverride.URL}},
		Lookup: func(key string) string {
			mu.RLock()
			defer mu.RUnlock()
			return env[key]
		},
	})

	_, err := r.Get(context.Background(), "T1")
	require.NoError(t, err)
	assert.Zero(t, atomic.LoadInt32(defaultCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(overrideCalls))
}
