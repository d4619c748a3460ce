package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/goccy/go-json"

	"github.com/blueberrycongee/tokensub"
	"github.com/blueberrycongee/tokensub/internal/config"
	"github.com/blueberrycongee/tokensub/pkg/cache"
	"github.com/blueberrycongee/tokensub/pkg/ready"
	"github.com/blueberrycongee/tokensub/pkg/types"
	"github.com/blueberrycongee/tokensub/tokeninfos"
)

// agent owns the running subscriber set and swaps it atomically when
// the configuration changes.
type agent struct {
	logger *slog.Logger
	cache  cache.Cache

	mu          sync.RWMutex
	subscribers map[string]*tokensub.Subscriber
	tracker     *ready.Tracker
}

func newAgent(logger *slog.Logger, tokenCache cache.Cache) *agent {
	return &agent{
		logger:      logger,
		cache:       tokenCache,
		subscribers: make(map[string]*tokensub.Subscriber),
	}
}

// apply builds subscribers for cfg and replaces the current set. The
// new set is fully constructed before the old one is stopped, so a bad
// reload never tears down working subscribers.
func (a *agent) apply(ctx context.Context, cfg *config.Config) error {
	tracker := ready.NewTracker()
	next := make(map[string]*tokensub.Subscriber, len(cfg.Subscribers))

	for _, sc := range cfg.Subscribers {
		sub, err := a.buildSubscriber(sc)
		if err != nil {
			for _, s := range next {
				_ = s.Close()
			}
			return err
		}
		next[sc.Name] = sub
	}

	for _, sub := range next {
		sub.Init(ctx, tracker)
	}
	tracker.Start()

	a.mu.Lock()
	old := a.subscribers
	a.subscribers = next
	a.tracker = tracker
	a.mu.Unlock()

	for _, sub := range old {
		_ = sub.Close()
	}

	a.logger.Info("subscribers applied", "count", len(next))
	return nil
}

func (a *agent) buildSubscriber(sc config.SubscriberConfig) (*tokensub.Subscriber, error) {
	kind, err := types.ParseKind(sc.Kind)
	if err != nil {
		return nil, err
	}
	info, err := tokeninfos.New(sc.Info)
	if err != nil {
		return nil, err
	}

	name := sc.Name
	logger := a.logger
	return tokensub.New(
		tokensub.WithName(name),
		tokensub.WithTokenURL(sc.TokenURL),
		tokensub.WithKind(kind),
		tokensub.WithTokenInfo(info),
		tokensub.WithLogger(logger),
		tokensub.WithCache(a.cache),
		tokensub.WithUpdateFunc(func(token string) {
			logger.Debug("token updated", "subscriber", name, "bytes", len(token))
		}),
	)
}

func (a *agent) close() {
	a.mu.Lock()
	subs := a.subscribers
	a.subscribers = nil
	a.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
}

func (a *agent) handleLive(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *agent) handleReady(w http.ResponseWriter, _ *http.Request) {
	a.mu.RLock()
	tracker := a.tracker
	a.mu.RUnlock()

	if tracker == nil || !tracker.Ready() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// tokenResponse is the body served to local consumers.
type tokenResponse struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Token     string `json:"token"`
	FetchedAt string `json:"fetched_at,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// handleToken serves the current token for one subscriber, preferring
// the cache entry (which carries fetch metadata) and falling back to
// the subscriber's in-memory copy.
func (a *agent) handleToken(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	a.mu.RLock()
	sub, ok := a.subscribers[name]
	a.mu.RUnlock()
	if !ok {
		http.Error(w, "unknown subscriber", http.StatusNotFound)
		return
	}

	resp := tokenResponse{Name: name, Kind: sub.Kind().String()}

	if tok, found, err := a.cache.Get(r.Context(), "token:"+name); err == nil && found {
		resp.Token = tok.Value
		resp.FetchedAt = tok.FetchedAt.UTC().Format(timeFormat)
		resp.ExpiresAt = tok.ExpiresAt.UTC().Format(timeFormat)
	} else if token, ok := sub.Latest(); ok {
		resp.Token = token
	} else {
		http.Error(w, "no token available", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(resp)
}

const timeFormat = "2006-01-02T15:04:05Z07:00"
