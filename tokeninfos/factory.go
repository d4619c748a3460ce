// Package tokeninfos provides the built-in token endpoint strategies
// and a type-name factory for config-driven wiring.
package tokeninfos

import (
	"fmt"

	"github.com/blueberrycongee/tokensub/pkg/types"
	"github.com/blueberrycongee/tokensub/tokeninfos/metadata"
	"github.com/blueberrycongee/tokensub/tokeninfos/vault"
)

// Strategy type names accepted in configuration.
const (
	TypeMetadata = "metadata"
	TypeVault    = "vault"
)

// Config selects and parameterizes a strategy.
type Config struct {
	Type  string       `yaml:"type"`
	Vault vault.Config `yaml:"vault"`
}

// New creates a token strategy by type name.
func New(cfg Config) (types.TokenInfo, error) {
	switch cfg.Type {
	case TypeMetadata, "":
		return metadata.New(), nil
	case TypeVault:
		return vault.New(cfg.Vault)
	default:
		return nil, fmt.Errorf("unknown token info type %q", cfg.Type)
	}
}

// NewMetadata creates the metadata-server strategy.
func NewMetadata() *metadata.Info {
	return metadata.New()
}

// NewVault creates the Vault AppRole strategy.
func NewVault(cfg vault.Config) (*vault.Info, error) {
	return vault.New(cfg)
}
