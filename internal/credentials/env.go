package credentials

import (
	"context"
	"fmt"
	"os"
)

const (
	DefaultUsernameEnv = "DEPLOYKIT_USERNAME"
	DefaultPasswordEnv = "DEPLOYKIT_PASSWORD"
)

// EnvProvider reads credentials from environment variables
type EnvProvider struct {
	UsernameVar string
	PasswordVar string

	lookup func(string) (string, bool)
}

// NewEnvProvider creates an EnvProvider, empty names fall back to the defaults
func NewEnvProvider(usernameVar, passwordVar string) *EnvProvider {
	if usernameVar == "" {
		usernameVar = DefaultUsernameEnv
	}
	if passwordVar == "" {
		passwordVar = DefaultPasswordEnv
	}
	return &EnvProvider{
		UsernameVar: usernameVar,
		PasswordVar: passwordVar,
		lookup:      os.LookupEnv,
	}
}

// Resolve implements Provider
func (p *EnvProvider) Resolve(_ context.Context, known Credentials) (Credentials, error) {
	lookup := p.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	got := known
	if got.Username == "" {
		got.Username, _ = lookup(p.UsernameVar)
	}
	if got.Password == "" {
		got.Password, _ = lookup(p.PasswordVar)
	}

	if got == known && !known.Complete() {
		return known, &ConfigurationError{
			Msg: fmt.Sprintf("environment variables %s / %s not set", p.UsernameVar, p.PasswordVar),
		}
	}
	return got, nil
}
