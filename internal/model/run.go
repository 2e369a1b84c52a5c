package model

import "time"

// RunKind identifies which engine operation a run recorded.
type RunKind string

// Run kinds.
const (
	RunCalculate RunKind = "calculate"
	RunRates     RunKind = "rates"
	RunOptimize  RunKind = "optimize"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the audit record of one engine invocation. The engines themselves
// never persist anything; the CLI and server layers write runs when a store
// is configured.
type Run struct {
	ID        string     `json:"id"`
	Kind      RunKind    `json:"kind"`
	Status    RunStatus  `json:"status"`
	Profile   TaxProfile `json:"profile"`
	Result    []byte     `json:"result,omitempty"` // JSON of the kind-specific result
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
