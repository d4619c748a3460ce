package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
server:
  port: 8390
subscribers:
  - name: gcp-access
    kind: access
    token_url: http://metadata.google.internal/computeMetadata/v1/instance/service-accounts/default/token
    info:
      type: metadata
`

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, validConfig)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if len(cfg.Subscribers) != 1 {
		t.Fatalf("len(Subscribers) = %d, want 1", len(cfg.Subscribers))
	}
	if cfg.Subscribers[0].Name != "gcp-access" {
		t.Fatalf("Subscribers[0].Name = %q", cfg.Subscribers[0].Name)
	}

	// Defaults applied for unspecified sections.
	if cfg.Cache.Type != "memory" {
		t.Fatalf("Cache.Type = %q, want memory", cfg.Cache.Type)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Fatalf("unexpected metrics defaults: %+v", cfg.Metrics)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Fatalf("Server.ReadTimeout = %v", cfg.Server.ReadTimeout)
	}
}

func TestLoadFromFileExpandsEnv(t *testing.T) {
	t.Setenv("TOKEN_URL", "https://vault.example.com/v1/auth/approle/login")
	path := writeConfigFile(t, `
subscribers:
  - name: vault
    kind: access
    token_url: ${TOKEN_URL}
    info:
      type: vault
      vault:
        role_id_file: /etc/vault/role-id
        secret_id_file: /etc/vault/secret-id
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Subscribers[0].TokenURL != "https://vault.example.com/v1/auth/approle/login" {
		t.Fatalf("TokenURL = %q", cfg.Subscribers[0].TokenURL)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"no subscribers": `
server:
  port: 8390
`,
		"missing name": `
subscribers:
  - kind: access
    token_url: http://x
`,
		"missing url": `
subscribers:
  - name: a
    kind: access
`,
		"bad kind": `
subscribers:
  - name: a
    kind: refresh
    token_url: http://x
`,
		"duplicate name": `
subscribers:
  - name: a
    kind: access
    token_url: http://x
  - name: a
    kind: access
    token_url: http://y
`,
		"bad port": `
server:
  port: 99999
subscribers:
  - name: a
    kind: access
    token_url: http://x
`,
		"bad cache": `
cache:
  type: memcached
subscribers:
  - name: a
    kind: access
    token_url: http://x
`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeConfigFile(t, content)
			if _, err := LoadFromFile(path); err == nil {
				t.Fatal("LoadFromFile() succeeded, want error")
			}
		})
	}
}
