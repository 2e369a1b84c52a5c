package rates

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplecrest-planning/taxplan-cli/internal/kernel"
	"github.com/maplecrest-planning/taxplan-cli/internal/model"
)

// linearOracle taxes each category at a fixed flat rate, which makes every
// expected finite difference exact.
type linearOracle struct {
	ordinary    float64
	capital     float64
	eligible    float64
	nonEligible float64
}

func (o *linearOracle) Evaluate(_ context.Context, p model.TaxProfile) (*model.TaxResult, error) {
	in := p.Income
	total := in.Employment + in.CapitalGains + in.EligibleDividends + in.NonEligibleDividends
	payable := in.Employment*o.ordinary + in.CapitalGains*o.capital +
		in.EligibleDividends*o.eligible + in.NonEligibleDividends*o.nonEligible
	return &model.TaxResult{TotalIncome: total, TotalPayable: payable}, nil
}

type failingOracle struct {
	failOn model.RateCategory
	inner  *linearOracle
}

func (o *failingOracle) Evaluate(ctx context.Context, p model.TaxProfile) (*model.TaxResult, error) {
	if o.failOn == model.RateCapitalGains && p.Income.CapitalGains > 0 {
		return nil, errors.New("kernel unavailable")
	}
	return o.inner.Evaluate(ctx, p)
}

func baseProfile(employment float64) model.TaxProfile {
	return model.TaxProfile{
		Jurisdiction: model.Ontario,
		Personal:     model.DefaultPersonal(),
		Income:       model.Income{Employment: employment},
	}
}

func TestRates_LinearOracle(t *testing.T) {
	o := &linearOracle{ordinary: 0.30, capital: 0.30, eligible: 0.20, nonEligible: 0.25}
	e := New(o, Config{})

	set, err := e.Rates(context.Background(), baseProfile(60000))
	require.NoError(t, err)

	assert.InDelta(t, 30.0, set.Ordinary, 1e-9)
	// The capital-gains rate is halved because profiles carry the taxable
	// post-inclusion amount.
	assert.InDelta(t, 15.0, set.CapitalGains, 1e-9)
	assert.InDelta(t, 20.0, set.EligibleDividends, 1e-9)
	assert.InDelta(t, 25.0, set.NonEligibleDividends, 1e-9)
	assert.Equal(t, DefaultProbe, set.Probe)
	require.NotNil(t, set.Base)
	assert.InDelta(t, 60000.0, set.Base.TotalIncome, 1e-9)
}

// TestRates_InclusionPairingWithKernel pins the arithmetic contract between
// the kernel and this engine: the kernel adds the reported gain at face
// value, the engine halves the derived rate, and the result lands at about
// half the ordinary rate.
func TestRates_InclusionPairingWithKernel(t *testing.T) {
	e := New(kernel.New(), Config{})

	// Employment well above the CPP and EI maxima and away from bracket
	// edges, so the only marginal cost of another dollar is income tax.
	set, err := e.Rates(context.Background(), baseProfile(100000))
	require.NoError(t, err)

	assert.Greater(t, set.Ordinary, 0.0)
	assert.InDelta(t, set.Ordinary/2, set.CapitalGains, 0.1)
}

// TestRates_OntarioEightyK pins the ON $80k employment profile against the
// kernel's 2024 tables: the base payable stays inside its expected band and
// the derived ordinary rate lands strictly between the combined bracket
// rates below and above the band 80k sits in.
func TestRates_OntarioEightyK(t *testing.T) {
	e := New(kernel.New(), Config{})

	set, err := e.Rates(context.Background(), baseProfile(80000))
	require.NoError(t, err)

	assert.InDelta(t, 20629.35, set.Base.TotalPayable, 1.0)

	// 80k is in the 20.5% federal and 9.15% Ontario brackets; the brackets
	// below sum to 15+5.05, the brackets above to 26+11.16.
	assert.Greater(t, set.Ordinary, 15+5.05)
	assert.Less(t, set.Ordinary, 26+11.16)
	assert.InDelta(t, 20.5+9.15, set.Ordinary, 0.01)
}

func TestRates_ZeroIncomeBaseline(t *testing.T) {
	e := New(kernel.New(), Config{})

	set, err := e.Rates(context.Background(), baseProfile(0))
	require.NoError(t, err)
	assert.Zero(t, set.Base.TotalPayable)
	assert.Zero(t, set.Base.MarginalTaxRate)
}

func TestRates_OASOverlayInsideBand(t *testing.T) {
	o := &linearOracle{ordinary: 0.30, capital: 0.30, eligible: 0.20, nonEligible: 0.25}
	e := New(o, Config{})

	set, err := e.Rates(context.Background(), baseProfile(100000))
	require.NoError(t, err)
	assert.InDelta(t, set.Ordinary+15, set.OASAdjusted, 1e-9)
}

func TestRates_OASOverlayOutsideBand(t *testing.T) {
	o := &linearOracle{ordinary: 0.30, capital: 0.30, eligible: 0.20, nonEligible: 0.25}
	e := New(o, Config{})

	tests := []struct {
		name       string
		employment float64
	}{
		{"below threshold", 50000},
		{"above ceiling", 200000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := e.Rates(context.Background(), baseProfile(tt.employment))
			require.NoError(t, err)
			assert.Equal(t, set.Ordinary, set.OASAdjusted)
		})
	}
}

func TestRates_OASOverlayDisabled(t *testing.T) {
	o := &linearOracle{ordinary: 0.30, capital: 0.30, eligible: 0.20, nonEligible: 0.25}
	e := New(o, Config{DisableOASOverlay: true})

	// Inside the band the overlay would normally apply.
	set, err := e.Rates(context.Background(), baseProfile(100000))
	require.NoError(t, err)
	assert.Equal(t, set.Ordinary, set.OASAdjusted)
}

func TestRates_ProbeFailureFailsWholeCall(t *testing.T) {
	o := &failingOracle{
		failOn: model.RateCapitalGains,
		inner:  &linearOracle{ordinary: 0.30, capital: 0.30, eligible: 0.20, nonEligible: 0.25},
	}
	e := New(o, Config{})

	set, err := e.Rates(context.Background(), baseProfile(60000))
	require.Error(t, err)
	assert.Nil(t, set)
	assert.Contains(t, err.Error(), "capitalGains probe")
}

func TestRates_BaseProfileUntouched(t *testing.T) {
	o := &linearOracle{ordinary: 0.30, capital: 0.30, eligible: 0.20, nonEligible: 0.25}
	e := New(o, Config{})

	p := baseProfile(60000)
	_, err := e.Rates(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, baseProfile(60000), p)
}

func TestRates_CustomProbe(t *testing.T) {
	o := &linearOracle{ordinary: 0.30, capital: 0.30, eligible: 0.20, nonEligible: 0.25}
	e := New(o, Config{Probe: 100})

	set, err := e.Rates(context.Background(), baseProfile(60000))
	require.NoError(t, err)
	assert.Equal(t, 100.0, set.Probe)
	assert.InDelta(t, 30.0, set.Ordinary, 1e-9)
}

func TestEffectiveRate_PointEstimate(t *testing.T) {
	o := &linearOracle{ordinary: 0.30, capital: 0.30, eligible: 0.20, nonEligible: 0.25}
	e := New(o, Config{})

	rate, err := e.EffectiveRate(context.Background(), baseProfile(60000))
	require.NoError(t, err)
	assert.InDelta(t, 30.0, rate, 1e-9)
}

// TestEffectiveRate_DivergesAtBracketEdge documents why the two probe sizes
// are not interchangeable: just below a bracket boundary, the $1 probe stays
// in the lower bracket while the $1000 probe blends in the upper rate.
func TestEffectiveRate_DivergesAtBracketEdge(t *testing.T) {
	e := New(kernel.New(), Config{})

	// The first federal bracket tops out at 55,867.
	p := baseProfile(55500)

	wide, err := e.Rates(context.Background(), p)
	require.NoError(t, err)
	point, err := e.EffectiveRate(context.Background(), p)
	require.NoError(t, err)

	assert.Greater(t, wide.Ordinary, point+1.0)
}
