package tokensub

import (
	"errors"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned by the TokenSource before the first
// successful fetch.
var ErrNoToken = errors.New("tokensub: no token fetched yet")

// TokenSource exposes the subscriber's current token as an
// oauth2.TokenSource, so it can feed any client library that accepts
// one. The source never blocks: until the first successful fetch it
// returns ErrNoToken; gate startup on the readiness tracker if callers
// cannot tolerate that.
func (s *Subscriber) TokenSource() oauth2.TokenSource {
	return &subscriberSource{s: s}
}

type subscriberSource struct {
	s *Subscriber
}

// Token returns the most recently fetched token.
func (ss *subscriberSource) Token() (*oauth2.Token, error) {
	lt := ss.s.latest.Load()
	if lt == nil {
		return nil, ErrNoToken
	}
	return &oauth2.Token{
		AccessToken: lt.token,
		TokenType:   "Bearer",
		Expiry:      lt.expiresAt,
	}, nil
}
