package client

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapper_PassesThrough(t *testing.T) {
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := NewHTTPClient(WrapperConfig{Provider: "test", RPS: 100, Burst: 10}, time.Second)
	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "taskbridge/1.0", ua.Load())
}

func TestWrapper_OpensCircuit(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, w := NewHTTPClient(WrapperConfig{Provider: "flaky", ConsecutiveFailures: 2, OpenTimeout: time.Minute}, time.Second)

	for i := 0; i < 2; i++ {
		resp, err := c.Get(srv.URL)
		require.NoError(t, err, "5xx responses are returned to the caller")
		resp.Body.Close()
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	}
	assert.Equal(t, "open", w.State())

	_, err := c.Get(srv.URL)
	require.Error(t, err)
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.True(t, pe.IsCircuitOpen())
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestWrapper_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, _ := NewHTTPClient(WrapperConfig{Provider: "gone"}, time.Second)
	_, err := c.Get(url)
	require.Error(t, err)
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "transport", pe.Type)
}
