// Package actor carries the authenticated user id through a request.
//
// Every row the store writes is owned by the current actor and every read is
// scoped to it, so callers resolve the actor once (per CLI invocation or per
// HTTP request) and attach it to the context.
package actor

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNoActor is returned when a context carries no actor id.
var ErrNoActor = eris.New("actor: no authenticated user in context")

type ctxKey struct{}

// WithActor returns a copy of ctx carrying the given user id.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, strings.TrimSpace(userID))
}

// FromContext returns the user id attached to ctx.
func FromContext(ctx context.Context) (string, error) {
	id, _ := ctx.Value(ctxKey{}).(string)
	if id == "" {
		return "", ErrNoActor
	}
	return id, nil
}
