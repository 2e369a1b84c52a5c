package kernel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplecrest-planning/taxplan-cli/internal/model"
	"github.com/maplecrest-planning/taxplan-cli/internal/oracle"
)

func ontarioProfile(employment float64) model.TaxProfile {
	return model.TaxProfile{
		Jurisdiction: model.Ontario,
		Personal:     model.DefaultPersonal(),
		Income:       model.Income{Employment: employment},
	}
}

func TestEvaluate_UnknownProvince(t *testing.T) {
	c := New()

	_, err := c.Evaluate(context.Background(), model.TaxProfile{Jurisdiction: "XX"})
	require.Error(t, err)

	oerr, ok := oracle.AsOracleError(err)
	require.True(t, ok)
	assert.Equal(t, oracle.ReasonExit, oerr.Reason)
}

func TestEvaluate_Deterministic(t *testing.T) {
	c := New()
	p := ontarioProfile(85000)
	p.Income.EligibleDividends = 5000
	p.Deductions.RRSP = 10000

	first, err := c.Evaluate(context.Background(), p)
	require.NoError(t, err)
	second, err := c.Evaluate(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEvaluate_ZeroIncome(t *testing.T) {
	c := New()

	res, err := c.Evaluate(context.Background(), ontarioProfile(0))
	require.NoError(t, err)

	assert.Zero(t, res.TotalPayable)
	assert.Zero(t, res.MarginalTaxRate)
	assert.Zero(t, res.AverageTaxRate)
}

func TestEvaluate_PayableMonotonicInEmployment(t *testing.T) {
	c := New()

	var prev float64
	for _, income := range []float64{10000, 30000, 55867, 80000, 111733, 150000, 250000} {
		res, err := c.Evaluate(context.Background(), ontarioProfile(income))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.TotalPayable, prev, "income %.0f", income)
		prev = res.TotalPayable
	}
}

// TestEvaluate_OntarioEightyK pins the ON $80k employment evaluation
// against the 2024 tables, component by component.
func TestEvaluate_OntarioEightyK(t *testing.T) {
	c := New()

	res, err := c.Evaluate(context.Background(), ontarioProfile(80000))
	require.NoError(t, err)

	assert.InDelta(t, 80000, res.TaxableIncome, 0.001)
	assert.InDelta(t, 13327.31, res.FederalTax, 0.01)
	assert.InDelta(t, 5210.71, res.ProvincialTax, 0.01)
	assert.InDelta(t, (71300-3500)*0.0595, res.CPPContribution, 0.01)
	assert.InDelta(t, 63750*0.0163, res.EIContribution, 0.01)
	assert.InDelta(t, 20629.35, res.TotalPayable, 1.0)
}

func TestEvaluate_OntarioMarginalRate(t *testing.T) {
	c := New()

	// 80k sits in the 20.5% federal and 9.15% Ontario brackets.
	res, err := c.Evaluate(context.Background(), ontarioProfile(80000))
	require.NoError(t, err)
	assert.InDelta(t, 29.65, res.MarginalTaxRate, 0.001)
}

func TestEvaluate_QuebecContributions(t *testing.T) {
	c := New()
	p := model.TaxProfile{
		Jurisdiction: model.Quebec,
		Personal:     model.DefaultPersonal(),
		Income:       model.Income{Employment: 80000},
	}

	res, err := c.Evaluate(context.Background(), p)
	require.NoError(t, err)

	// QPP on pensionable earnings at the Quebec rate.
	assert.InDelta(t, (71300-3500)*0.064, res.CPPContribution, 0.01)
	// Reduced EI rate plus QPIP on insurable earnings.
	assert.InDelta(t, 63750*(0.0127+0.00494), res.EIContribution, 0.01)
}

func TestEvaluate_CPPAndEICapped(t *testing.T) {
	c := New()

	res, err := c.Evaluate(context.Background(), ontarioProfile(500000))
	require.NoError(t, err)

	assert.InDelta(t, (71300-3500)*0.0595, res.CPPContribution, 0.01)
	assert.InDelta(t, 63750*0.0163, res.EIContribution, 0.01)
}

func TestEvaluate_OASClawback(t *testing.T) {
	c := New()
	p := ontarioProfile(92000)
	p.Income.OASBenefits = 8000

	res, err := c.Evaluate(context.Background(), p)
	require.NoError(t, err)

	// Net income 100,000: repayment is 15% of the excess over the threshold.
	want := (100000 - 86912.0) * 0.15
	assert.InDelta(t, want, res.OASClawback, 0.01)
	assert.InDelta(t, want, res.TotalClawbacks, 0.01)
}

func TestEvaluate_OASClawbackCappedAtBenefits(t *testing.T) {
	c := New()
	p := ontarioProfile(200000)
	p.Income.OASBenefits = 1000

	res, err := c.Evaluate(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 1000, res.OASClawback, 0.01)
}

func TestEvaluate_NoOASClawbackBelowThreshold(t *testing.T) {
	c := New()
	p := ontarioProfile(60000)
	p.Income.OASBenefits = 8000

	res, err := c.Evaluate(context.Background(), p)
	require.NoError(t, err)
	assert.Zero(t, res.OASClawback)
}

func TestEvaluate_CharitableCreditTiers(t *testing.T) {
	c := New()

	tests := []struct {
		name     string
		donation float64
		want     float64
	}{
		{"below low cap", 150, 150 * 0.15},
		{"above low cap", 1000, 200*0.15 + 800*0.29},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ontarioProfile(80000)
			p.Deductions.Charitable = tt.donation

			res, err := c.Evaluate(context.Background(), p)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, res.CharitableCredit, 0.001)
		})
	}
}

func TestEvaluate_SpouseCredit(t *testing.T) {
	c := New()
	p := ontarioProfile(80000)
	p.Personal.IsMarried = true
	p.Personal.SpouseIncome = 0

	res, err := c.Evaluate(context.Background(), p)
	require.NoError(t, err)

	want := 15705*0.15 + 12399*0.0505
	assert.InDelta(t, want, res.SpouseCredit, 0.01)
}

func TestEvaluate_SpouseCreditReducedByIncome(t *testing.T) {
	c := New()
	p := ontarioProfile(80000)
	p.Personal.IsMarried = true
	p.Personal.SpouseIncome = 50000

	res, err := c.Evaluate(context.Background(), p)
	require.NoError(t, err)
	assert.Zero(t, res.SpouseCredit)
}

func TestEvaluate_DividendGrossUp(t *testing.T) {
	c := New()
	p := model.TaxProfile{
		Jurisdiction: model.Ontario,
		Personal:     model.DefaultPersonal(),
		Income:       model.Income{EligibleDividends: 10000, NonEligibleDividends: 5000},
	}

	res, err := c.Evaluate(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 10000*1.38+5000*1.15, res.TotalIncome, 0.001)
}

func TestEvaluate_CapitalLossesOffsetGains(t *testing.T) {
	c := New()
	p := model.TaxProfile{
		Jurisdiction: model.Ontario,
		Personal:     model.DefaultPersonal(),
		Income:       model.Income{CapitalGains: 20000, CapitalLosses: 30000},
	}

	res, err := c.Evaluate(context.Background(), p)
	require.NoError(t, err)
	// Losses floor the net gain at zero; they never offset other income.
	assert.Zero(t, res.TotalIncome)
}

func TestEvaluate_DeductionsReduceTaxableIncome(t *testing.T) {
	c := New()
	p := ontarioProfile(90000)
	p.Deductions.RRSP = 15000
	p.Deductions.UnionDues = 1000

	res, err := c.Evaluate(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 74000, res.TaxableIncome, 0.001)
}

func TestEvaluate_AMTTracksTotalIncome(t *testing.T) {
	c := New()

	res, err := c.Evaluate(context.Background(), ontarioProfile(100000))
	require.NoError(t, err)
	assert.InDelta(t, (100000-40000)*0.15, res.AMTTax, 0.001)
}

func TestEvaluate_OntarioSurtax(t *testing.T) {
	c := New()

	res, err := c.Evaluate(context.Background(), ontarioProfile(200000))
	require.NoError(t, err)
	require.Greater(t, res.ProvincialTax, 7108.0)

	want := (res.ProvincialTax-5554)*0.20 + (res.ProvincialTax-7108)*0.36
	assert.InDelta(t, want, res.ProvincialSurtax, 0.01)
}

func TestEvaluate_AgeCredit(t *testing.T) {
	c := New()
	p := ontarioProfile(30000)
	p.Personal.Age = 70

	res, err := c.Evaluate(context.Background(), p)
	require.NoError(t, err)
	// Below the reduction threshold the full age amounts apply.
	want := 8790*0.15 + 5846*0.0505
	assert.InDelta(t, want, res.AgeCredit, 0.01)
}

func TestEvaluate_PensionCredit(t *testing.T) {
	c := New()
	p := model.TaxProfile{
		Jurisdiction: model.Ontario,
		Personal:     model.DefaultPersonal(),
		Income:       model.Income{PrivatePension: 30000},
	}

	res, err := c.Evaluate(context.Background(), p)
	require.NoError(t, err)
	want := 2000*0.15 + 1000*0.0505
	assert.InDelta(t, want, res.PensionCredit, 0.001)
}

func TestEvaluate_ChildBenefit(t *testing.T) {
	c := New()
	p := ontarioProfile(30000)
	p.Personal.NumDependants = 2
	p.Personal.DependantAges = []int{4, 10}

	res, err := c.Evaluate(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 7787+6570, res.CanadaChildBenefit, 0.001)
}

func TestEvaluate_AllJurisdictions(t *testing.T) {
	c := New()

	for _, j := range model.Jurisdictions {
		p := model.TaxProfile{
			Jurisdiction: j,
			Personal:     model.DefaultPersonal(),
			Income:       model.Income{Employment: 75000},
		}
		res, err := c.Evaluate(context.Background(), p)
		require.NoError(t, err, "jurisdiction %s", j)
		assert.Greater(t, res.TotalPayable, 0.0, "jurisdiction %s", j)
		assert.Greater(t, res.MarginalTaxRate, 0.0, "jurisdiction %s", j)
	}
}
