package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplecrest-planning/taxplan-cli/internal/model"
)

func testProfile() model.TaxProfile {
	return model.TaxProfile{
		Jurisdiction: model.Ontario,
		Personal:     model.DefaultPersonal(),
		Income:       model.Income{Employment: 85000},
	}
}

// shKernel builds a Subprocess whose "kernel" is a shell one-liner.
func shKernel(script string, opts SubprocessOptions) *Subprocess {
	opts.Command = "sh"
	opts.Args = []string{"-c", script}
	return NewSubprocess(opts)
}

func TestSubprocess_Success(t *testing.T) {
	s := shKernel(`cat > /dev/null; echo '{"totalIncome":85000,"totalPayable":21000,"marginalTaxRate":29.65}'`, SubprocessOptions{})

	res, err := s.Evaluate(context.Background(), testProfile())
	require.NoError(t, err)
	assert.InDelta(t, 85000, res.TotalIncome, 1e-9)
	assert.InDelta(t, 21000, res.TotalPayable, 1e-9)
	assert.InDelta(t, 29.65, res.MarginalTaxRate, 1e-9)
}

func TestSubprocess_NonZeroExitWithStderr(t *testing.T) {
	s := shKernel(`cat > /dev/null; echo "boom" 1>&2; exit 3`, SubprocessOptions{})

	_, err := s.Evaluate(context.Background(), testProfile())
	require.Error(t, err)

	oerr, ok := AsOracleError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonExit, oerr.Reason)
	assert.Equal(t, "boom", oerr.Detail)
}

func TestSubprocess_KernelErrorObject(t *testing.T) {
	s := shKernel(`cat > /dev/null; echo '{"error":"unsupported province: ZZ"}'; exit 1`, SubprocessOptions{})

	_, err := s.Evaluate(context.Background(), testProfile())
	require.Error(t, err)

	oerr, ok := AsOracleError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonExit, oerr.Reason)
	assert.Equal(t, "unsupported province: ZZ", oerr.Detail)
}

func TestSubprocess_GarbageOutput(t *testing.T) {
	s := shKernel(`cat > /dev/null; echo 'not json at all'`, SubprocessOptions{})

	_, err := s.Evaluate(context.Background(), testProfile())
	require.Error(t, err)

	oerr, ok := AsOracleError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonMalformed, oerr.Reason)
}

// A clean exit whose output is the kernel's error shape must not pass as a
// zero-filled result.
func TestSubprocess_ErrorObjectWithCleanExit(t *testing.T) {
	s := shKernel(`cat > /dev/null; echo '{"error":"division by zero"}'`, SubprocessOptions{})

	_, err := s.Evaluate(context.Background(), testProfile())
	require.Error(t, err)

	oerr, ok := AsOracleError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonMalformed, oerr.Reason)
	assert.Equal(t, "division by zero", oerr.Detail)
}

func TestSubprocess_SpawnFailure(t *testing.T) {
	s := NewSubprocess(SubprocessOptions{Command: "/nonexistent/tax-kernel"})

	_, err := s.Evaluate(context.Background(), testProfile())
	require.Error(t, err)

	oerr, ok := AsOracleError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonTransport, oerr.Reason)
}

func TestSubprocess_Timeout(t *testing.T) {
	s := shKernel(`sleep 5`, SubprocessOptions{Timeout: 100 * time.Millisecond})

	start := time.Now()
	_, err := s.Evaluate(context.Background(), testProfile())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	oerr, ok := AsOracleError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonTransport, oerr.Reason)
}

func TestSubprocess_ContextCancelled(t *testing.T) {
	s := shKernel(`sleep 5`, SubprocessOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Evaluate(ctx, testProfile())
	require.Error(t, err)

	oerr, ok := AsOracleError(err)
	require.True(t, ok)
	assert.Equal(t, ReasonTransport, oerr.Reason)
}
