// Package store defines the persistence ports for the badge service and the
// read-only users collection, plus the Firestore and Postgres backends.
// Services depend only on the interfaces so tests can run against an
// in-memory fake.
package store

import (
	"context"

	"millionMetersAPI/internal/badge"
	"millionMetersAPI/internal/user"
	"millionMetersAPI/internal/workout"
)

// BadgeStore persists per-user badge documents keyed by user id.
// Get returns (nil, nil) when no document exists for the user.
type BadgeStore interface {
	Get(ctx context.Context, userID string) (*badge.Data, error)
	Set(ctx context.Context, data *badge.Data) error
}

// UserStore reads user documents from the users collection. AppendActivity
// is the only write: submissions append to the user's activity log.
// Get returns (nil, nil) for unknown users.
type UserStore interface {
	Get(ctx context.Context, userID string) (*user.User, error)
	List(ctx context.Context) ([]*user.User, error)
	AppendActivity(ctx context.Context, userID string, a workout.Activity) error
}
