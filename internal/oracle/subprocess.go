package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/maplecrest-planning/taxplan-cli/internal/model"
	"github.com/maplecrest-planning/taxplan-cli/internal/resilience"
)

// request is the kernel wire shape: profile JSON on stdin, result JSON on
// stdout, one exchange per process.
type request struct {
	Province     string           `json:"province"`
	PersonalInfo model.Personal   `json:"personalInfo"`
	Income       model.Income     `json:"income"`
	Deductions   model.Deductions `json:"deductions"`
}

// kernelFailure is the error object the kernel prints before exiting
// non-zero.
type kernelFailure struct {
	Error string `json:"error"`
}

// SubprocessOptions configures the kernel process transport.
type SubprocessOptions struct {
	// Command and Args name the kernel executable.
	Command string
	Args    []string

	// Timeout bounds one exchange. Default: 30s.
	Timeout time.Duration

	// SpawnRate caps process creation per second; fan-out callers may
	// dispatch many evaluations at once. Zero means 20/s.
	SpawnRate float64

	// Retry is the transport-level retry policy. The default retries
	// nothing; exit and malformed-output failures are never retried
	// regardless of policy.
	Retry resilience.Policy
}

// Subprocess evaluates profiles by running the kernel process once per
// call. Each exchange is self-contained, so instances are safe for
// concurrent use.
type Subprocess struct {
	command string
	args    []string
	timeout time.Duration
	limiter *rate.Limiter
	retry   resilience.Policy
}

// NewSubprocess creates the process transport.
func NewSubprocess(opts SubprocessOptions) *Subprocess {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	spawnRate := opts.SpawnRate
	if spawnRate <= 0 {
		spawnRate = 20
	}
	retry := opts.Retry
	retry.Retryable = transportOnly

	return &Subprocess{
		command: opts.Command,
		args:    opts.Args,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(spawnRate), 1),
		retry:   retry,
	}
}

// transportOnly restricts retries to transport failures. A kernel that ran
// and failed, or produced garbage, is a domain problem the caller must see.
func transportOnly(err error) bool {
	oe, ok := AsOracleError(err)
	return ok && oe.Reason == ReasonTransport
}

// Evaluate serializes the profile, runs one kernel process, and parses the
// response. Failures surface as *OracleError; no result is ever synthesized.
func (s *Subprocess) Evaluate(ctx context.Context, p model.TaxProfile) (*model.TaxResult, error) {
	payload, err := json.Marshal(request{
		Province:     string(p.Jurisdiction),
		PersonalInfo: p.Personal,
		Income:       p.Income,
		Deductions:   p.Deductions,
	})
	if err != nil {
		return nil, &OracleError{Reason: ReasonTransport, Detail: "marshal request", Err: err}
	}

	return resilience.DoVal(ctx, s.retry, "kernel evaluate", func(ctx context.Context) (*model.TaxResult, error) {
		return s.exchange(ctx, payload)
	})
}

func (s *Subprocess) exchange(ctx context.Context, payload []byte) (*model.TaxResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &OracleError{Reason: ReasonTransport, Detail: "spawn limiter", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.command, s.args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	switch {
	case runErr == nil:
		// fall through to parsing

	case ctx.Err() != nil:
		return nil, &OracleError{
			Reason: ReasonTransport,
			Detail: "kernel exceeded deadline",
			Err:    ctx.Err(),
		}

	default:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			detail := strings.TrimSpace(stderr.String())
			var kf kernelFailure
			if json.Unmarshal(stdout.Bytes(), &kf) == nil && kf.Error != "" {
				detail = kf.Error
			}
			return nil, &OracleError{Reason: ReasonExit, Detail: detail, Err: runErr}
		}
		return nil, &OracleError{Reason: ReasonTransport, Detail: "spawn kernel", Err: runErr}
	}

	var result model.TaxResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, &OracleError{Reason: ReasonMalformed, Detail: "decode kernel output", Err: err}
	}
	// A well-formed JSON object that is actually the kernel's error shape
	// must not pass as a zero-filled result.
	var kf kernelFailure
	if json.Unmarshal(stdout.Bytes(), &kf) == nil && kf.Error != "" {
		return nil, &OracleError{Reason: ReasonMalformed, Detail: kf.Error}
	}

	zap.L().Debug("kernel exchange complete",
		zap.Duration("elapsed", elapsed),
		zap.Int("request_bytes", len(payload)),
		zap.Int("response_bytes", stdout.Len()),
	)

	return &result, nil
}
