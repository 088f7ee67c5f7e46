package http

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lawliet-Chan/offchain-storage/pkg/access"
	"github.com/Lawliet-Chan/offchain-storage/pkg/events"
	"github.com/Lawliet-Chan/offchain-storage/pkg/gateway"
	contentmemory "github.com/Lawliet-Chan/offchain-storage/pkg/store/content/memory"
	metadatamemory "github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata/memory"
)

type testEnv struct {
	adapter  *HTTPAdapter
	server   *httptest.Server
	recorder *events.Recorder
}

func newTestEnv(t *testing.T, cfg HTTPConfig, policy access.Policy) *testEnv {
	t.Helper()

	rec := events.NewRecorder()
	gw, err := gateway.New(gateway.Config{
		Metadata: metadatamemory.NewMemoryMetadataStoreWithDefaults(),
		Content:  contentmemory.NewMemoryContentStore(),
		Notifier: rec,
		Policy:   &policy,
	})
	require.NoError(t, err)

	a := New(cfg, nil)
	a.SetGateway(gw)

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{adapter: a, server: srv, recorder: rec}
}

func (e *testEnv) do(t *testing.T, method, path, caller string, body []byte) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	if caller != "" {
		req.Header.Set(IdentityHeader, caller)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func recordPath(id string) string {
	return "/v1/records/" + hex.EncodeToString([]byte(id))
}

func decodeError(t *testing.T, resp *http.Response) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestWriteReadDelete(t *testing.T) {
	env := newTestEnv(t, HTTPConfig{}, access.StrictPolicy())
	path := recordPath("k")

	resp := env.do(t, http.MethodPut, path, "alice", []byte("hello"))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	resp = env.do(t, http.MethodGet, path, "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	require.Equal(t, 1, env.recorder.Len())
	last, ok := env.recorder.Last()
	require.True(t, ok)
	assert.Equal(t, access.Identity("bob"), last.Caller)

	resp = env.do(t, http.MethodDelete, path, "bob", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "permission_denied", decodeError(t, resp).Code)

	resp = env.do(t, http.MethodDelete, path, "alice", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, path, "alice", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProvisionAndSetAccess(t *testing.T) {
	env := newTestEnv(t, HTTPConfig{}, access.CompatPolicy())
	path := recordPath("doc")

	resp := env.do(t, http.MethodPut, path, "alice", []byte("x"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "compat policy does not create on write")

	resp = env.do(t, http.MethodPost, path+"/provision?access=avoid", "alice", nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodPost, path+"/provision", "bob", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, http.MethodPut, path, "alice", []byte("x"))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, path, "bob", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPatch, path+"/access?access=read", "bob", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPatch, path+"/access?access=read", "alice", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, path+"/meta", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var meta RecordResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&meta))
	assert.Equal(t, RecordResponse{ID: hex.EncodeToString([]byte("doc")), Author: "alice", Access: "read"}, meta)
}

func TestBadRequests(t *testing.T) {
	env := newTestEnv(t, HTTPConfig{}, access.StrictPolicy())

	resp := env.do(t, http.MethodGet, recordPath("k"), "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/v1/records/not-hex", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, recordPath("k")+"/provision?access=admin", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, decodeError(t, resp).RequestID)
}

func TestBinaryIdentifier(t *testing.T) {
	env := newTestEnv(t, HTTPConfig{}, access.StrictPolicy())
	path := "/v1/records/" + hex.EncodeToString([]byte{0x00, 0xff, 0x10})

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodPut, path, "alice", []byte{1, 2}).StatusCode)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, path, "alice", nil).StatusCode)
}

func TestBodyTooLarge(t *testing.T) {
	env := newTestEnv(t, HTTPConfig{MaxBodySize: 4}, access.StrictPolicy())

	resp := env.do(t, http.MethodPut, recordPath("k"), "alice", []byte("too large"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = env.do(t, http.MethodGet, recordPath("k"), "alice", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRateLimitPerCaller(t *testing.T) {
	cfg := HTTPConfig{RateLimit: RateLimitConfig{RequestsPerSecond: 1, Burst: 1}}
	env := newTestEnv(t, cfg, access.StrictPolicy())
	path := recordPath("missing")

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, path, "alice", nil).StatusCode)
	resp := env.do(t, http.MethodGet, path, "alice", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))

	// bob has a separate bucket
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, path, "bob", nil).StatusCode)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, HTTPConfig{}, access.StrictPolicy())

	resp := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{gateway.ErrNoSuchRecord, http.StatusNotFound},
		{gateway.ErrPermissionDenied, http.StatusForbidden},
		{gateway.ErrRecordExists, http.StatusConflict},
		{gateway.ErrInvalidIdentifier, http.StatusBadRequest},
		{gateway.ErrExternal, http.StatusBadGateway},
		{gateway.ErrStore, http.StatusInternalServerError},
		{context.Canceled, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(&gateway.OpError{Op: "read", ID: "k", Err: tt.err}))
		})
	}
}

func TestServeAndStop(t *testing.T) {
	gw, err := gateway.New(gateway.Config{
		Metadata: metadatamemory.NewMemoryMetadataStoreWithDefaults(),
		Content:  contentmemory.NewMemoryContentStore(),
	})
	require.NoError(t, err)

	a := New(HTTPConfig{ShutdownTimeout: time.Second}, nil)
	a.SetGateway(gw)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.serveListener(ctx, listener) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, listener.Addr().(*net.TCPAddr).Port, a.Port())

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, a.Stop(stopCtx))
	require.NoError(t, a.Stop(stopCtx), "Stop is idempotent")

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return")
	}
}

func TestServe_RequiresGateway(t *testing.T) {
	a := New(HTTPConfig{}, nil)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	assert.Error(t, a.serveListener(context.Background(), listener))
}
