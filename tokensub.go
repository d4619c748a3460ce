// Package tokensub implements self-renewing credential fetchers. A
// Subscriber obtains a bearer or identity token from a remote token
// endpoint, hands it to a consumer callback, and refetches it shortly
// before it expires, indefinitely, absorbing transient endpoint
// failures into a fixed retry backoff.
//
// Basic usage:
//
//	sub, err := tokensub.New(
//	    tokensub.WithName("gcp-access"),
//	    tokensub.WithTokenURL(metadata.AccessTokenURL),
//	    tokensub.WithKind(tokensub.AccessToken),
//	    tokensub.WithTokenInfo(metadata.New()),
//	    tokensub.WithUpdateFunc(func(token string) {
//	        // push the token wherever it is consumed
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sub.Start(ctx)
//	defer sub.Close()
package tokensub

import (
	"github.com/blueberrycongee/tokensub/pkg/cache"
	"github.com/blueberrycongee/tokensub/pkg/types"
)

// Version is the current version of tokensub.
const Version = "1.0.0"

// Re-export the core data model so callers can use tokensub.Kind
// instead of types.Kind.
type (
	// Kind selects which parser a subscriber invokes.
	Kind = types.Kind

	// Result holds one successfully fetched token.
	Result = types.Result

	// TokenInfo is the endpoint-specific request/parse strategy.
	TokenInfo = types.TokenInfo

	// UpdateFunc receives each newly fetched token.
	UpdateFunc = types.UpdateFunc

	// Cache mirrors the current token per subscriber.
	Cache = cache.Cache
)

// Token kinds.
const (
	IdentityToken = types.IdentityToken
	AccessToken   = types.AccessToken
)
