// Package jobs tracks long-running operations so clients can poll them and
// so duplicate triggers are admitted at most once.
package jobs

import (
	"context"
	"time"

	"Vedit/model"
)

// Store keeps job records that expire ttl after their last write.
type Store interface {
	// Begin records job under key only if no live entry exists.
	Begin(ctx context.Context, key string, job model.Job, ttl time.Duration) (bool, error)
	// Claim records job under key when no entry exists or the existing one
	// is terminal, so finished work can be started again.
	Claim(ctx context.Context, key string, job model.Job, ttl time.Duration) (bool, error)
	// Set overwrites the entry and restarts its ttl.
	Set(ctx context.Context, key string, job model.Job, ttl time.Duration) error
	// Get returns an apperr NotFound error for absent or expired keys.
	Get(ctx context.Context, key string) (model.Job, error)
	Delete(ctx context.Context, key string) error
}

// Key builds the tracker key for a resource within a project.
func Key(kind, project, resource string) string {
	return kind + ":" + project + ":" + resource
}
