// Package store persists engine run records. The engines themselves never
// touch persistence; the CLI and server layers record runs when a store is
// configured.
package store

import (
	"context"

	"github.com/maplecrest-planning/taxplan-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Kind   model.RunKind   `json:"kind,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for run records.
type Store interface {
	// CreateRun records the start of an engine invocation in the running
	// state and returns the stored record.
	CreateRun(ctx context.Context, kind model.RunKind, profile model.TaxProfile) (*model.Run, error)

	// CompleteRun marks the run succeeded and attaches the kind-specific
	// result, marshaled to JSON.
	CompleteRun(ctx context.Context, runID string, result any) error

	// FailRun marks the run failed and records the cause.
	FailRun(ctx context.Context, runID string, cause error) error

	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
