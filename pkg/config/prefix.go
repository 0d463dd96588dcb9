package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// PrefixConfig holds the mount points of the route groups.
//
// Environment variables:
//   - API_PREFIX_AUTH: login flow (default: /auth)
//   - API_PREFIX_SIGNUP: registration (default: /signup)
//   - API_PREFIX_ACCOUNT: current user and 2FA preference (default: /me)
type PrefixConfig struct {
	Auth    string `env:"API_PREFIX_AUTH" env-default:"/auth"`
	Signup  string `env:"API_PREFIX_SIGNUP" env-default:"/signup"`
	Account string `env:"API_PREFIX_ACCOUNT" env-default:"/me"`
}

// DefaultPrefixes returns the prefixes the storefront expects
func DefaultPrefixes() PrefixConfig {
	return PrefixConfig{
		Auth:    "/auth",
		Signup:  "/signup",
		Account: "/me",
	}
}

// LoadPrefixConfig reads PrefixConfig from the environment and normalizes it
func LoadPrefixConfig() (PrefixConfig, error) {
	var p PrefixConfig
	if err := cleanenv.ReadEnv(&p); err != nil {
		return PrefixConfig{}, err
	}
	return p.Normalize(), nil
}

// Normalize strips trailing slashes
func (p PrefixConfig) Normalize() PrefixConfig {
	return PrefixConfig{
		Auth:    strings.TrimRight(p.Auth, "/"),
		Signup:  strings.TrimRight(p.Signup, "/"),
		Account: strings.TrimRight(p.Account, "/"),
	}
}

// Validate checks that every prefix is an absolute path and that no two collide
func (p PrefixConfig) Validate() error {
	seen := make(map[string]string, 3)
	for name, prefix := range map[string]string{"auth": p.Auth, "signup": p.Signup, "account": p.Account} {
		if !strings.HasPrefix(prefix, "/") || len(prefix) < 2 {
			return fmt.Errorf("%s prefix must start with / and not be the root: %q", name, prefix)
		}
		if other, dup := seen[prefix]; dup {
			return fmt.Errorf("%s and %s prefixes are both %q", other, name, prefix)
		}
		seen[prefix] = name
	}
	return nil
}
