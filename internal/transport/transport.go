// Package transport sends token endpoint requests asynchronously and
// delivers exactly one completion per call back to the owner's channel.
//
// Cancellation contract: Cancel suppresses delivery on a best-effort
// basis (a completion racing with Cancel may still be delivered). The
// caller tags each call with an epoch and must drop completions whose
// epoch does not match its current in-flight call; that check, not
// cancellation, is the authoritative guard against stale completions.
package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxBodyBytes caps how much of a token response is read. Token
// endpoint bodies are small; anything larger is malformed.
const maxBodyBytes = 1 << 20

// forwardingHeaders are stripped from every outgoing request. Metadata
// and token endpoints reject requests that appear to be forwarded.
var forwardingHeaders = []string{
	"Forwarded",
	"X-Forwarded-For",
	"X-Forwarded-Host",
	"X-Forwarded-Proto",
}

// Completion is the single terminal event of a call. Either Err is set
// (transport-level failure, including timeout) or Status and Body hold
// the HTTP response.
type Completion struct {
	Epoch  uint64
	Status int
	Body   []byte
	Err    error
}

// Call is a handle to one in-flight request.
type Call struct {
	epoch  uint64
	cancel context.CancelFunc
}

// Epoch returns the caller-assigned generation of this call.
func (c *Call) Epoch() uint64 { return c.epoch }

// Cancel aborts the request. No-op after completion; safe to call
// multiple times.
func (c *Call) Cancel() { c.cancel() }

// Client dispatches requests with a fixed per-call timeout.
type Client struct {
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient creates a client around httpClient. If httpClient is nil a
// pooled default is used.
func NewClient(httpClient *http.Client, timeout time.Duration, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{http: httpClient, timeout: timeout, logger: logger}
}

// Send dispatches req on its own goroutine and delivers one Completion
// tagged with epoch on out, unless the call is cancelled first. The
// returned handle cancels the request.
func (c *Client) Send(ctx context.Context, req *http.Request, epoch uint64, out chan<- Completion) *Call {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)

	for _, h := range forwardingHeaders {
		req.Header.Del(h)
	}
	req = req.WithContext(cctx)

	go func() {
		defer cancel()

		done := c.do(req)
		if cctx.Err() == context.Canceled {
			// Cancelled by the owner; a newer call supersedes this one.
			return
		}
		select {
		case out <- Completion{Epoch: epoch, Status: done.Status, Body: done.Body, Err: done.Err}:
		case <-ctx.Done():
		}
	}()

	return &Call{epoch: epoch, cancel: cancel}
}

func (c *Client) do(req *http.Request) Completion {
	resp, err := c.http.Do(req)
	if err != nil {
		return Completion{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Completion{Err: err}
	}
	return Completion{Status: resp.StatusCode, Body: body}
}
