package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoai-civic/ecoai-client/internal/credential"
	"github.com/ecoai-civic/ecoai-client/internal/credential/credentialtest"
	"github.com/ecoai-civic/ecoai-client/internal/events"
	"github.com/ecoai-civic/ecoai-client/internal/navigation"
	"github.com/ecoai-civic/ecoai-client/internal/observability"
)

type captured struct {
	method      string
	path        string
	auth        string
	contentType string
	body        []byte
}

func newServer(t *testing.T, status int, last *captured) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		*last = captured{
			method:      r.Method,
			path:        r.URL.Path,
			auth:        r.Header.Get("Authorization"),
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		}
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setup(t *testing.T, status int) (*Client, *credential.Store, *navigation.Recorder, *captured, *observability.Metrics, events.Dispatcher) {
	t.Helper()
	last := &captured{}
	srv := newServer(t, status, last)
	provider, dispatcher := credentialtest.NewProvider(t)
	store := provider.Store("tab-1")
	metrics := observability.NewMetrics()
	gw := New(Options{BaseURL: srv.URL + "/api/", LoginPath: "/login", Metrics: metrics})
	rec := navigation.NewRecorder()
	return gw.Bind(store, rec), store, rec, last, metrics, dispatcher
}

func TestClient_AttachesBearerWhenPresent(t *testing.T) {
	client, store, _, last, _, _ := setup(t, http.StatusOK)
	ctx := context.Background()

	resp, err := client.Do(ctx, Request{Path: "/trucks/locations/"})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, last.auth)
	assert.Equal(t, "/api/trucks/locations/", last.path)
	assert.Equal(t, http.MethodGet, last.method)

	require.NoError(t, store.Save(ctx, credential.Pair{Access: "acc", Refresh: "ref"}))
	resp, err = client.Do(ctx, Request{Path: "trucks/locations/"})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Bearer acc", last.auth)
}

func TestClient_ContentNegotiation(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		wantType string
		wantBody string
	}{
		{
			name:     "structured body defaults to json",
			req:      Request{Method: http.MethodPost, Path: "/chat/", Body: map[string]string{"message": "hi"}},
			wantType: "application/json",
			wantBody: `{"message":"hi"}`,
		},
		{
			name:     "no body still defaults to json",
			req:      Request{Path: "/staff/reports/"},
			wantType: "application/json",
		},
		{
			name: "caller content type is kept",
			req: Request{Method: http.MethodPatch, Path: "/staff/reports/1/update/",
				Body:   json.RawMessage(`{"status":"resolved"}`),
				Header: http.Header{"Content-Type": []string{"application/merge-patch+json"}}},
			wantType: "application/merge-patch+json",
			wantBody: `{"status":"resolved"}`,
		},
		{
			name:     "binary body gets no content type",
			req:      Request{Method: http.MethodPost, Path: "/reports/create/", Body: []byte{0x89, 0x50}},
			wantType: "",
			wantBody: "\x89P",
		},
		{
			name: "binary body keeps the caller's boundary header",
			req: Request{Method: http.MethodPost, Path: "/reports/create/",
				Body:   strings.NewReader("--xyz--\r\n"),
				Header: http.Header{"Content-Type": []string{"multipart/form-data; boundary=xyz"}}},
			wantType: "multipart/form-data; boundary=xyz",
			wantBody: "--xyz--\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _, _, last, _, _ := setup(t, http.StatusCreated)
			resp, err := client.Do(context.Background(), tt.req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusCreated, resp.StatusCode)
			assert.Equal(t, tt.wantType, last.contentType)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, string(last.body))
			}
		})
	}
}

func TestClient_MultipartFormIgnoresCallerContentType(t *testing.T) {
	client, _, _, last, _, _ := setup(t, http.StatusCreated)

	form := NewForm().Set("description", "overflowing bin").Set("latitude", "51.5")
	form.Attach("image", "bin.jpg", strings.NewReader("jpeg-bytes"))
	resp, err := client.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/reports/create/",
		Body:   form,
		Header: http.Header{"Content-Type": []string{"application/json"}},
	})
	require.NoError(t, err)
	resp.Body.Close()

	assert.True(t, strings.HasPrefix(last.contentType, "multipart/form-data; boundary="), last.contentType)
	assert.Contains(t, string(last.body), `name="description"`)
	assert.Contains(t, string(last.body), `filename="bin.jpg"`)
	assert.Contains(t, string(last.body), "jpeg-bytes")
}

func TestClient_NonUnauthorizedStatusesPassThrough(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError} {
		client, store, rec, _, _, _ := setup(t, status)
		ctx := context.Background()
		require.NoError(t, store.Save(ctx, credential.Pair{Access: "acc"}))

		resp, err := client.Do(ctx, Request{Path: "/staff/reports/"})
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, status, resp.StatusCode)
		assert.True(t, store.HasCredential(ctx))
		_, redirected := rec.Pending()
		assert.False(t, redirected)
	}
}

func TestClient_UnauthorizedEvicts(t *testing.T) {
	client, store, rec, _, metrics, dispatcher := setup(t, http.StatusUnauthorized)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, credential.Pair{Access: "acc", Refresh: "ref"}))

	var clears int
	dispatcher.Subscribe(events.EventStorageChanged, func(context.Context, events.Event) error {
		clears++
		return nil
	})

	resp, err := client.Do(ctx, Request{Path: "/chat/", Method: http.MethodPost, Body: map[string]string{"message": "hi"}})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, store.HasCredential(ctx))
	assert.Equal(t, 1, clears)

	redirect, ok := rec.Pending()
	require.True(t, ok)
	assert.Equal(t, navigation.Redirect{To: "/login", Replace: true}, redirect)
	assert.Equal(t, int64(1), metrics.Snapshot().Evictions)
}

func TestClient_ConcurrentUnauthorized(t *testing.T) {
	client, store, rec, _, _, dispatcher := setup(t, http.StatusUnauthorized)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, credential.Pair{Access: "acc", Refresh: "ref"}))

	var clears atomic.Int32
	dispatcher.Subscribe(events.EventStorageChanged, func(context.Context, events.Event) error {
		clears.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Do(ctx, Request{Path: "/trucks/locations/"})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.True(t, errors.Is(err, ErrUnauthorized))
	}
	assert.False(t, store.HasCredential(ctx))
	assert.LessOrEqual(t, clears.Load(), int32(1))
	redirect, ok := rec.Pending()
	require.True(t, ok)
	assert.Equal(t, "/login", redirect.To)
}

func TestGateway_AnonymousSkipsCredentialAndEviction(t *testing.T) {
	client, store, rec, last, _, _ := setup(t, http.StatusUnauthorized)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, credential.Pair{Access: "acc"}))

	resp, err := client.g.Anonymous(ctx, Request{Method: http.MethodPost, Path: "/auth/token/", Body: map[string]string{"username": "u"}})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, last.auth)
	assert.True(t, store.HasCredential(ctx))
	_, redirected := rec.Pending()
	assert.False(t, redirected)
}

func TestClient_TransportFailure(t *testing.T) {
	provider, _ := credentialtest.NewProvider(t)
	store := provider.Store("tab")
	gw := New(Options{BaseURL: "http://127.0.0.1:1"})
	rec := navigation.NewRecorder()

	_, err := gw.Bind(store, rec).Do(context.Background(), Request{Path: "/auth/me/"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnauthorized))
	_, redirected := rec.Pending()
	assert.False(t, redirected)
}
