package auth

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

// ErrNoPrincipal is returned when a request context carries no authenticated principal
var ErrNoPrincipal = goerr.New("no authenticated principal")

// Principal is the authenticated actor of a request
type Principal struct {
	UserID types.UserID
	Name   string
}

// Validate checks the principal carries a user ID
func (p Principal) Validate() error {
	if err := p.UserID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid principal")
	}
	return nil
}

type ctxPrincipalKey struct{}

// ContextWithPrincipal stores the principal in the context
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey{}, p)
}

// PrincipalFromContext retrieves the principal stored by the auth middleware
func PrincipalFromContext(ctx context.Context) (Principal, error) {
	p, ok := ctx.Value(ctxPrincipalKey{}).(Principal)
	if !ok {
		return Principal{}, ErrNoPrincipal
	}
	return p, nil
}

// Secret is a credential that must never appear in logs
type Secret string

func (s Secret) String() string {
	return "[REDACTED]"
}

// Reveal returns the raw secret value
func (s Secret) Reveal() string {
	return string(s)
}
