// Package credentials resolves the account used to talk to the distribution
// service. Providers only fill in fields that are still missing, so an explicit
// username from the command line can be combined with a password from the
// environment, a secret store or an interactive prompt.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Credentials holds the account used by the transporter
type Credentials struct {
	Username string
	Password string
}

// Complete reports whether both fields are set
func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}

// merge fills empty fields of c from other
func (c Credentials) merge(other Credentials) Credentials {
	if c.Username == "" {
		c.Username = other.Username
	}
	if c.Password == "" {
		c.Password = other.Password
	}
	return c
}

func (c Credentials) missing() []string {
	var fields []string
	if c.Username == "" {
		fields = append(fields, "username")
	}
	if c.Password == "" {
		fields = append(fields, "password")
	}
	return fields
}

// Provider supplies the fields missing from known.
// Implementations must return known unchanged for fields that are already set.
type Provider interface {
	Resolve(ctx context.Context, known Credentials) (Credentials, error)
}

// ConfigurationError is returned when credentials cannot be resolved
type ConfigurationError struct {
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Chain asks each provider in turn until both fields are known
type Chain []Provider

// Resolve implements Provider
func (c Chain) Resolve(ctx context.Context, known Credentials) (Credentials, error) {
	var errs []error
	for _, p := range c {
		if known.Complete() {
			break
		}
		if err := ctx.Err(); err != nil {
			return known, &ConfigurationError{Msg: "credential resolution cancelled", Err: err}
		}
		got, err := p.Resolve(ctx, known)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		known = known.merge(got)
	}

	if !known.Complete() {
		return known, &ConfigurationError{
			Msg: fmt.Sprintf("could not resolve %s", strings.Join(known.missing(), " and ")),
			Err: errors.Join(errs...),
		}
	}
	return known, nil
}
