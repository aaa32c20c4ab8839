package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctor_reputation/internal/adapters/fetch"
)

func TestFetch_ReturnsBodyAndSendsHeaders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "en-US", r.Header.Get("Accept-Language"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	doc, err := fetch.New(100, time.Second).Fetch(context.Background(), ts.URL+"/x?y=1", map[string]string{
		"User-Agent":      "test-agent",
		"Accept-Language": "en-US",
	})
	require.NoError(t, err)
	assert.Equal(t, 200, doc.Status)
	assert.Equal(t, `{"ok":true}`, string(doc.Body))
}

func TestFetch_ServerErrorIsNotRetried(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	doc, err := fetch.New(100, time.Second).Fetch(context.Background(), ts.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, doc.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetch_TimeoutIsTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	_, err := fetch.New(100, 50*time.Millisecond).Fetch(context.Background(), ts.URL, nil)
	assert.Error(t, err)
}

func TestFetch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fetch.New(1, time.Second).Fetch(ctx, "http://127.0.0.1:1", nil)
	assert.Error(t, err)
}
