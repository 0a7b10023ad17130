package domain

import (
	"context"
	"errors"
)

// Actor is the authenticated caller on whose behalf an operation runs.
type Actor struct {
	ID       string
	BranchID string
}

// SystemActor is used for maintenance operations started from the CLI.
var SystemActor = Actor{ID: "system"}

// Authentication errors
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

type actorKey struct{}

// ContextWithActor stores the actor in ctx.
func ContextWithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext returns the actor stored by ContextWithActor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok && a.ID != ""
}
