package tokensub

import (
	"log/slog"
	"net/http"

	"github.com/blueberrycongee/tokensub/pkg/cache"
	"github.com/blueberrycongee/tokensub/pkg/types"
)

// subscriberConfig holds all configuration for a Subscriber. The
// configuration is immutable once New returns.
type subscriberConfig struct {
	// Name identifies the subscriber in logs and metrics. Defaults to
	// the token URL.
	Name string

	// TokenURL is the endpoint the subscriber fetches from.
	TokenURL string

	// Kind selects which TokenInfo parser is used.
	Kind types.Kind

	// Info is the endpoint-specific request/parse strategy.
	Info types.TokenInfo

	// OnToken receives each newly fetched token.
	OnToken types.UpdateFunc

	// Logger for structured logging.
	Logger *slog.Logger

	// HTTPClient overrides the pooled default transport.
	HTTPClient *http.Client

	// Cache, if set, receives a write-through copy of each token.
	Cache cache.Cache
}

// Option is a function that configures a Subscriber.
type Option func(*subscriberConfig)

// defaultConfig returns sensible defaults.
func defaultConfig() *subscriberConfig {
	return &subscriberConfig{
		Kind:   types.AccessToken,
		Logger: slog.Default(),
	}
}

// WithName sets the name used in logs and metrics.
func WithName(name string) Option {
	return func(c *subscriberConfig) { c.Name = name }
}

// WithTokenURL sets the token endpoint URL. Required.
func WithTokenURL(url string) Option {
	return func(c *subscriberConfig) { c.TokenURL = url }
}

// WithKind sets the token kind. Unknown kinds are rejected by New.
func WithKind(kind types.Kind) Option {
	return func(c *subscriberConfig) { c.Kind = kind }
}

// WithTokenInfo sets the endpoint strategy. Required.
func WithTokenInfo(info types.TokenInfo) Option {
	return func(c *subscriberConfig) { c.Info = info }
}

// WithUpdateFunc sets the consumer callback. Required.
func WithUpdateFunc(fn types.UpdateFunc) Option {
	return func(c *subscriberConfig) { c.OnToken = fn }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *subscriberConfig) { c.Logger = logger }
}

// WithHTTPClient overrides the HTTP client used for token requests.
// The per-request timeout is still enforced by the subscriber.
func WithHTTPClient(client *http.Client) Option {
	return func(c *subscriberConfig) { c.HTTPClient = client }
}

// WithCache enables write-through of each fetched token into cc under
// the key "token:<name>".
func WithCache(cc cache.Cache) Option {
	return func(c *subscriberConfig) { c.Cache = cc }
}
