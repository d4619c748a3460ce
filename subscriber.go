package tokensub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/blueberrycongee/tokensub/internal/metrics"
	"github.com/blueberrycongee/tokensub/internal/transport"
	"github.com/blueberrycongee/tokensub/pkg/cache"
	"github.com/blueberrycongee/tokensub/pkg/ready"
	"github.com/blueberrycongee/tokensub/pkg/types"
)

const (
	// requestTimeout bounds each token endpoint request.
	requestTimeout = 5000 * time.Millisecond

	// retryBackoff is the delay before retrying after any failed fetch.
	retryBackoff = 2 * time.Second

	// refreshBuffer is subtracted from the token TTL when scheduling
	// the next fetch, so the token is replaced before it expires.
	refreshBuffer = 5 * time.Second
)

// Subscriber fetches a token from one endpoint and keeps it fresh.
//
// All state transitions run on a single goroutine started by Init (or
// Start): timer fires, external refresh triggers, and transport
// completions are delivered into that goroutine via channels, so the
// subscriber needs no locking around its refresh state.
type Subscriber struct {
	name     string
	kind     types.Kind
	tokenURL string
	info     types.TokenInfo
	onToken  types.UpdateFunc
	parse    func([]byte) (types.Result, error)

	client *transport.Client
	cache  cache.Cache
	logger *slog.Logger

	completions chan transport.Completion
	refreshCh   chan struct{}
	stopCh      chan struct{}
	stopped     chan struct{}
	stopOnce    sync.Once
	started     atomic.Bool

	// Loop-owned state. Touched only by the run goroutine.
	timer        fetchTimer
	active       *transport.Call
	epoch        uint64
	dispatchedAt time.Time
	target       *ready.Target
	readyOnce    bool

	latest atomic.Pointer[latestToken]
}

// latestToken is the most recent successful fetch, kept for the
// TokenSource adapter and the agent's read surface.
type latestToken struct {
	token     string
	fetchedAt time.Time
	expiresAt time.Time
}

// New creates a Subscriber from the given options. The token URL,
// token info, and update callback are required; an unknown token kind
// is a construction error rather than a dead state discovered
// mid-loop.
func New(opts ...Option) (*Subscriber, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.TokenURL == "" {
		return nil, errors.New("token url is required")
	}
	if cfg.Info == nil {
		return nil, errors.New("token info is required")
	}
	if cfg.OnToken == nil {
		return nil, errors.New("update callback is required")
	}
	if !cfg.Kind.Valid() {
		return nil, fmt.Errorf("unknown token kind %v", cfg.Kind)
	}
	if cfg.Name == "" {
		cfg.Name = cfg.TokenURL
	}

	s := &Subscriber{
		name:        cfg.Name,
		kind:        cfg.Kind,
		tokenURL:    cfg.TokenURL,
		info:        cfg.Info,
		onToken:     cfg.OnToken,
		cache:       cfg.Cache,
		logger:      cfg.Logger,
		completions: make(chan transport.Completion, 1),
		refreshCh:   make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
		stopped:     make(chan struct{}),
		timer:       newWallTimer(),
	}
	s.client = transport.NewClient(cfg.HTTPClient, requestTimeout, cfg.Logger)

	// Select the parse strategy at construction so the completion
	// handler has no kind dispatch at all.
	switch cfg.Kind {
	case types.IdentityToken:
		s.parse = cfg.Info.ParseIdentityToken
	case types.AccessToken:
		s.parse = cfg.Info.ParseAccessToken
	}

	return s, nil
}

// Init starts the subscriber's run loop and registers a readiness
// target with tracker. The first refresh is triggered when the tracker
// starts the target; the target signals ready after the first
// successful fetch. A nil tracker is allowed; trigger the first
// refresh with Refresh, or use Start.
func (s *Subscriber) Init(ctx context.Context, tracker *ready.Tracker) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	if tracker != nil {
		s.target = tracker.Register(s.name, s.Refresh)
	}
	go s.run(ctx)
}

// Start starts the subscriber without a readiness tracker and triggers
// the first refresh immediately.
func (s *Subscriber) Start(ctx context.Context) {
	s.Init(ctx, nil)
	s.Refresh()
}

// Refresh triggers a fetch attempt. Non-blocking; concurrent triggers
// coalesce into one refresh cycle.
func (s *Subscriber) Refresh() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

// Close cancels any in-flight request and stops the run loop. After
// Close returns, the update callback and readiness target are never
// invoked again, even if a previously dispatched request completes
// late.
func (s *Subscriber) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	if s.started.Load() {
		<-s.stopped
	}
	return nil
}

// Name returns the subscriber's identifier.
func (s *Subscriber) Name() string { return s.name }

// Kind returns the configured token kind.
func (s *Subscriber) Kind() types.Kind { return s.kind }

// Latest returns the most recently fetched token, or ok=false if no
// fetch has succeeded yet.
func (s *Subscriber) Latest() (token string, ok bool) {
	lt := s.latest.Load()
	if lt == nil {
		return "", false
	}
	return lt.token, true
}

// run owns all refresh state. It exits when ctx is done or Close is
// called, cancelling any in-flight request first.
func (s *Subscriber) run(ctx context.Context) {
	defer close(s.stopped)
	defer s.cancelActive()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-s.refreshCh:
			s.refresh(ctx)
		case <-s.timer.C():
			s.refresh(ctx)
		case comp := <-s.completions:
			s.handleCompletion(ctx, comp)
		}
	}
}

// refresh runs one fetch cycle: cancel whatever is in flight, build
// the request, dispatch it. A declined build (preconditions unmet) is
// not an error and takes the normal failure path.
func (s *Subscriber) refresh(ctx context.Context) {
	s.cancelActive()
	s.timer.Stop()

	req, err := s.info.PrepareRequest(s.tokenURL)
	if err != nil {
		s.logger.Error("building token request failed",
			"subscriber", s.name, "error", err)
		s.scheduleRetry(metrics.ReasonPreconditions)
		return
	}
	if req == nil {
		s.logger.Warn("token request preconditions not met, retrying later",
			"subscriber", s.name)
		s.scheduleRetry(metrics.ReasonPreconditions)
		return
	}

	s.epoch++
	s.dispatchedAt = time.Now()
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)
	s.logger.Debug("dispatching token request",
		"subscriber", s.name, "url", s.tokenURL,
		"request_id", requestID, "epoch", s.epoch)

	s.active = s.client.Send(ctx, req, s.epoch, s.completions)
}

// handleCompletion interprets exactly one transport completion. Stale
// completions (superseded epoch, or nothing in flight) are dropped;
// the epoch check is what makes cancel-then-replace safe even if the
// transport still delivers a late result.
func (s *Subscriber) handleCompletion(ctx context.Context, comp transport.Completion) {
	if s.active == nil || comp.Epoch != s.epoch {
		s.logger.Debug("dropping stale completion",
			"subscriber", s.name, "epoch", comp.Epoch, "current", s.epoch)
		return
	}
	s.active = nil
	metrics.FetchLatency.WithLabelValues(s.name).Observe(time.Since(s.dispatchedAt).Seconds())

	if comp.Err != nil {
		s.logger.Error("token fetch failed",
			"subscriber", s.name, "error", comp.Err)
		s.scheduleRetry(metrics.ReasonTransport)
		return
	}
	if comp.Status != http.StatusOK {
		s.logger.Error("token endpoint returned unexpected status",
			"subscriber", s.name, "status", comp.Status)
		s.scheduleRetry(metrics.ReasonStatus)
		return
	}

	result, err := s.parse(comp.Body)
	if err != nil {
		s.logger.Error("parsing token response failed",
			"subscriber", s.name, "kind", s.kind.String(), "error", err)
		s.scheduleRetry(metrics.ReasonParse)
		return
	}

	s.handleSuccess(ctx, result)
}

// scheduleRetry is the shared failure path: no callback, no readiness,
// timer re-armed at the fixed backoff.
func (s *Subscriber) scheduleRetry(reason string) {
	metrics.FetchTotal.WithLabelValues(s.name, s.kind.String(), "failure").Inc()
	metrics.FetchFailures.WithLabelValues(s.name, s.kind.String(), reason).Inc()
	s.timer.Reset(retryBackoff)
}

// handleSuccess delivers the token and schedules the next refresh. If
// the token lives no longer than the refresh buffer, the next cycle
// runs immediately instead of arming a near-zero timer.
func (s *Subscriber) handleSuccess(ctx context.Context, result types.Result) {
	now := time.Now()
	s.latest.Store(&latestToken{
		token:     result.Token,
		fetchedAt: now,
		expiresAt: now.Add(result.ExpiresIn),
	})
	s.storeCached(ctx, result, now)

	metrics.FetchTotal.WithLabelValues(s.name, s.kind.String(), "success").Inc()
	metrics.TokenTTL.WithLabelValues(s.name, s.kind.String()).Set(result.ExpiresIn.Seconds())
	s.logger.Debug("token refreshed",
		"subscriber", s.name, "ttl", result.ExpiresIn)

	s.onToken(result.Token)

	if result.ExpiresIn <= refreshBuffer {
		s.refresh(ctx)
	} else {
		s.timer.Reset(result.ExpiresIn - refreshBuffer)
	}

	if s.target != nil {
		s.target.Ready()
	}
	if !s.readyOnce {
		s.readyOnce = true
		metrics.Ready.WithLabelValues(s.name).Set(1)
	}
}

// storeCached mirrors the token into the configured cache. Failures
// are logged and otherwise ignored; the cache is not on the refresh
// critical path.
func (s *Subscriber) storeCached(ctx context.Context, result types.Result, now time.Time) {
	if s.cache == nil {
		return
	}
	tok := cache.Token{
		Value:     result.Token,
		Kind:      s.kind.String(),
		FetchedAt: now,
		ExpiresAt: now.Add(result.ExpiresIn),
	}
	if err := s.cache.Set(ctx, "token:"+s.name, tok, result.ExpiresIn); err != nil {
		s.logger.Warn("caching token failed",
			"subscriber", s.name, "error", err)
	}
}

func (s *Subscriber) cancelActive() {
	if s.active != nil {
		s.active.Cancel()
		s.active = nil
	}
}
