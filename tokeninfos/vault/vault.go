// Package vault implements the token strategy for HashiCorp Vault's
// AppRole login endpoint. The role-id and secret-id are read from
// files on every attempt, so credentials mounted after startup (for
// example by an init container or secret syncer) are picked up without
// restarting: until both files exist the strategy declines, which the
// subscriber treats as a retryable precondition failure.
package vault

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	vaultapi "github.com/hashicorp/vault/api"

	"github.com/blueberrycongee/tokensub/pkg/types"
)

// Config holds configuration for the Vault AppRole strategy.
type Config struct {
	// RoleIDFile and SecretIDFile are paths to the AppRole credential
	// material. Both must exist before a login request is built.
	RoleIDFile   string `yaml:"role_id_file"`
	SecretIDFile string `yaml:"secret_id_file"`

	// Namespace is an optional Vault enterprise namespace.
	Namespace string `yaml:"namespace"`
}

// Info implements types.TokenInfo against a Vault AppRole login URL
// (e.g. https://vault.example.com/v1/auth/approle/login).
type Info struct {
	cfg Config
}

// New creates a Vault AppRole token strategy.
func New(cfg Config) (*Info, error) {
	if cfg.RoleIDFile == "" || cfg.SecretIDFile == "" {
		return nil, errors.New("role_id_file and secret_id_file are required")
	}
	return &Info{cfg: cfg}, nil
}

// PrepareRequest builds the AppRole login request. Returns (nil, nil)
// while either credential file is not yet present.
func (i *Info) PrepareRequest(tokenURL string) (*http.Request, error) {
	roleID, ok, err := readCredential(i.cfg.RoleIDFile)
	if err != nil || !ok {
		return nil, err
	}
	secretID, ok, err := readCredential(i.cfg.SecretIDFile)
	if err != nil || !ok {
		return nil, err
	}

	payload, err := json.Marshal(map[string]string{
		"role_id":   roleID,
		"secret_id": secretID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode approle login: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, tokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build approle login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if i.cfg.Namespace != "" {
		req.Header.Set("X-Vault-Namespace", i.cfg.Namespace)
	}
	return req, nil
}

// readCredential loads one credential file. A missing file is the
// preconditions-unmet case, not an error.
func readCredential(path string) (value string, ok bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read credential file %s: %w", path, err)
	}
	value = strings.TrimSpace(string(data))
	if value == "" {
		return "", false, nil
	}
	return value, true, nil
}

// ParseIdentityToken is not supported: Vault logins issue client
// (access) tokens.
func (i *Info) ParseIdentityToken(_ []byte) (types.Result, error) {
	return types.Result{}, errors.New("vault issues access tokens, not identity tokens")
}

// ParseAccessToken decodes the login response into a Vault secret and
// extracts the client token with its lease duration.
func (i *Info) ParseAccessToken(body []byte) (types.Result, error) {
	var secret vaultapi.Secret
	if err := json.Unmarshal(body, &secret); err != nil {
		return types.Result{}, fmt.Errorf("decode vault login response: %w", err)
	}

	if secret.Auth == nil || secret.Auth.ClientToken == "" {
		return types.Result{}, errors.New("vault login response has no auth token")
	}
	if secret.Auth.LeaseDuration <= 0 {
		return types.Result{}, fmt.Errorf("non-positive lease duration %d", secret.Auth.LeaseDuration)
	}

	return types.Result{
		Token:     secret.Auth.ClientToken,
		ExpiresIn: time.Duration(secret.Auth.LeaseDuration) * time.Second,
	}, nil
}
