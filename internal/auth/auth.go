// Package auth implements the API-key gate in front of ingestion.
package auth

import (
	"crypto/subtle"
	"errors"
)

var ErrUnauthorized = errors.New("missing or invalid API key")

// Gate validates caller-supplied credentials against a configured secret.
// An empty secret means auth is disabled: any non-empty key is accepted. A
// wholly absent key is rejected even in disabled mode, so producers cannot
// silently post without identifying themselves.
type Gate struct {
	secret string
}

func NewGate(secret string) *Gate {
	return &Gate{secret: secret}
}

// Enabled reports whether a secret is configured.
func (g *Gate) Enabled() bool {
	return g.secret != ""
}

// Authorize is a pure predicate over (secret, key); it has no side effects.
func (g *Gate) Authorize(key string) error {
	if key == "" {
		return ErrUnauthorized
	}
	if g.secret != "" && subtle.ConstantTimeCompare([]byte(key), []byte(g.secret)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
