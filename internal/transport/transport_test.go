package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRequest(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	return req
}

func TestSendDeliversCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		fmt.Fprint(w, "body")
	}))
	defer server.Close()

	client := NewClient(nil, time.Second, nil)
	out := make(chan Completion, 1)
	call := client.Send(context.Background(), mustRequest(t, server.URL), 7, out)

	select {
	case comp := <-out:
		require.NoError(t, comp.Err)
		assert.Equal(t, uint64(7), comp.Epoch)
		assert.Equal(t, uint64(7), call.Epoch())
		assert.Equal(t, http.StatusTeapot, comp.Status)
		assert.Equal(t, "body", string(comp.Body))
	case <-time.After(2 * time.Second):
		t.Fatal("no completion delivered")
	}
}

func TestSendStripsForwardingHeaders(t *testing.T) {
	headers := make(chan http.Header, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
	}))
	defer server.Close()

	req := mustRequest(t, server.URL)
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	req.Header.Set("Forwarded", "for=10.0.0.1")
	req.Header.Set("X-Custom", "kept")

	client := NewClient(nil, time.Second, nil)
	out := make(chan Completion, 1)
	client.Send(context.Background(), req, 1, out)
	<-out

	got := <-headers
	assert.Empty(t, got.Get("X-Forwarded-For"))
	assert.Empty(t, got.Get("Forwarded"))
	assert.Equal(t, "kept", got.Get("X-Custom"))
}

func TestSendTimeoutDeliversFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(nil, 50*time.Millisecond, nil)
	out := make(chan Completion, 1)
	client.Send(context.Background(), mustRequest(t, server.URL), 1, out)

	select {
	case comp := <-out:
		require.Error(t, comp.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("no completion delivered after timeout")
	}
}

func TestCancelSuppressesDelivery(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(nil, 5*time.Second, nil)
	out := make(chan Completion, 1)
	call := client.Send(context.Background(), mustRequest(t, server.URL), 1, out)

	<-started
	call.Cancel()
	// Cancel twice: must be safe.
	call.Cancel()

	select {
	case comp := <-out:
		t.Fatalf("completion delivered after cancel: %+v", comp)
	case <-time.After(300 * time.Millisecond):
	}
}
