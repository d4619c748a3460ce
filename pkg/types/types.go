// Package types defines the shared data model for token subscribers:
// token kinds, fetch results, and the strategy contract that endpoint
// integrations implement.
package types

import (
	"fmt"
	"net/http"
	"time"
)

// Kind selects which parser a subscriber invokes on a token endpoint
// response. It is fixed for the lifetime of a subscriber.
type Kind int

const (
	// IdentityToken is a signed identity assertion (typically a JWT)
	// whose lifetime is carried inside the token itself.
	IdentityToken Kind = iota

	// AccessToken is an opaque bearer credential whose lifetime is
	// carried alongside it in the endpoint response.
	AccessToken
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case IdentityToken:
		return "identity"
	case AccessToken:
		return "access"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Valid reports whether k is a known token kind.
func (k Kind) Valid() bool {
	return k == IdentityToken || k == AccessToken
}

// ParseKind converts a configuration string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "identity", "identity_token":
		return IdentityToken, nil
	case "access", "access_token":
		return AccessToken, nil
	default:
		return 0, fmt.Errorf("unknown token kind %q", s)
	}
}

// Result holds one successfully fetched token. It is transient: the
// subscriber hands it to the consumer and derives the next refresh time
// from it, but does not retain it.
type Result struct {
	// Token is the bearer credential exactly as extracted from the
	// endpoint response.
	Token string

	// ExpiresIn is the remaining lifetime of the token at fetch time.
	ExpiresIn time.Duration
}

// UpdateFunc receives each newly fetched token.
type UpdateFunc func(token string)

// TokenInfo is the endpoint-specific strategy a subscriber calls
// through. Implementations build the outgoing request and decode the
// two response shapes; the subscriber owns scheduling, retries, and
// delivery.
type TokenInfo interface {
	// PrepareRequest builds a ready-to-send request for the token URL.
	// Returning (nil, nil) means preconditions are not yet met (for
	// example, local credential material has not been provisioned).
	// That is an expected condition, not an error: the subscriber logs
	// a warning and retries after its backoff.
	PrepareRequest(tokenURL string) (*http.Request, error)

	// ParseIdentityToken extracts a token and its remaining lifetime
	// from an identity-token response body.
	ParseIdentityToken(body []byte) (Result, error)

	// ParseAccessToken extracts a token and its remaining lifetime
	// from an access-token response body.
	ParseAccessToken(body []byte) (Result, error)
}
