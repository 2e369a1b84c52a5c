// Package oracle defines the narrow contract to the tax-computation kernel
// and the subprocess transport that speaks it.
//
// The engines depend only on the Oracle interface; whether a call is an
// in-process computation or a kernel process exchange is an injection
// decision made in cmd.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/maplecrest-planning/taxplan-cli/internal/model"
)

// Oracle turns one tax profile into one tax result. Implementations must be
// deterministic (identical profiles yield identical results), must not
// share mutable state between calls, and must be safe for concurrent use.
type Oracle interface {
	Evaluate(ctx context.Context, p model.TaxProfile) (*model.TaxResult, error)
}

// Reason classifies an oracle failure.
type Reason string

// Failure reasons.
const (
	// ReasonTransport: the kernel could not be reached at all (spawn or
	// pipe failure, deadline hit before any exchange).
	ReasonTransport Reason = "transport-failure"
	// ReasonExit: the kernel ran and reported failure via non-zero exit.
	ReasonExit Reason = "nonzero-exit"
	// ReasonMalformed: the kernel produced output that does not parse as a
	// tax result.
	ReasonMalformed Reason = "malformed-output"
)

// OracleError is the typed failure of one Evaluate call. A failed
// evaluation is never represented as a zero-filled result.
type OracleError struct {
	Reason Reason
	Detail string
	Err    error
}

func (e *OracleError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("oracle: %s: %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("oracle: %s: %v", e.Reason, e.Err)
}

func (e *OracleError) Unwrap() error { return e.Err }

// AsOracleError unwraps err to an OracleError if one is in the chain.
func AsOracleError(err error) (*OracleError, bool) {
	var oe *OracleError
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}
