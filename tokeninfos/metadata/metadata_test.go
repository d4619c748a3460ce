package metadata

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedJWT(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestPrepareRequestSetsMetadataFlavor(t *testing.T) {
	info := New()
	req, err := info.PrepareRequest(AccessTokenURL)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "Google", req.Header.Get("Metadata-Flavor"))
}

func TestParseIdentityToken(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	raw := signedJWT(t, jwt.MapClaims{
		"iss": "https://accounts.google.com",
		"aud": "https://service.example.com",
		"exp": exp.Unix(),
	})

	info := New()
	result, err := info.ParseIdentityToken([]byte(raw + "\n"))
	require.NoError(t, err)
	assert.Equal(t, raw, result.Token)
	assert.InDelta(t, time.Hour.Seconds(), result.ExpiresIn.Seconds(), 5)
}

func TestParseIdentityTokenMissingExp(t *testing.T) {
	raw := signedJWT(t, jwt.MapClaims{"iss": "https://accounts.google.com"})

	_, err := New().ParseIdentityToken([]byte(raw))
	assert.ErrorContains(t, err, "exp claim")
}

func TestParseIdentityTokenGarbage(t *testing.T) {
	_, err := New().ParseIdentityToken([]byte("not-a-jwt"))
	assert.Error(t, err)

	_, err = New().ParseIdentityToken([]byte("   \n"))
	assert.ErrorContains(t, err, "empty")
}

func TestParseAccessToken(t *testing.T) {
	body := `{"access_token":"ya29.token","expires_in":3599,"token_type":"Bearer"}`

	result, err := New().ParseAccessToken([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "ya29.token", result.Token)
	assert.Equal(t, 3599*time.Second, result.ExpiresIn)
}

func TestParseAccessTokenInvalid(t *testing.T) {
	cases := map[string]string{
		"garbage":       `{{`,
		"missing token": `{"expires_in":3599,"token_type":"Bearer"}`,
		"wrong type":    `{"access_token":"x","expires_in":3599,"token_type":"MAC"}`,
		"zero expiry":   `{"access_token":"x","expires_in":0,"token_type":"Bearer"}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New().ParseAccessToken([]byte(body))
			assert.Error(t, err)
		})
	}
}
