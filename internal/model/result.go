package model

// TaxResult is the output of one kernel evaluation. The engines treat it as
// opaque data and only read the documented field names; JSON tags are the
// kernel wire names.
type TaxResult struct {
	TotalIncome           float64 `json:"totalIncome"`
	NetIncome             float64 `json:"netIncome"`
	TaxableIncome         float64 `json:"taxableIncome"`
	FederalTax            float64 `json:"federalTax"`
	ProvincialTax         float64 `json:"provincialTax"`
	TotalTaxBeforeCredits float64 `json:"totalTaxBeforeCredits"`
	TotalTaxAfterCredits  float64 `json:"totalTaxAfterCredits"`
	CPPContribution       float64 `json:"cppContribution"`
	EIContribution        float64 `json:"eiContribution"`
	TotalPayable          float64 `json:"totalPayable"`
	NetIncomeAfterTax     float64 `json:"netIncomeAfterTax"`
	AverageTaxRate        float64 `json:"averageTaxRate"`
	MarginalTaxRate       float64 `json:"marginalTaxRate"`

	BasicPersonalCredit       float64 `json:"basicPersonalCredit"`
	SpouseCredit              float64 `json:"spouseCredit"`
	AgeCredit                 float64 `json:"ageCredit"`
	PensionCredit             float64 `json:"pensionCredit"`
	DisabilityCredit          float64 `json:"disabilityCredit"`
	MedicalCredit             float64 `json:"medicalCredit"`
	CharitableCredit          float64 `json:"charitableCredit"`
	TotalNonRefundableCredits float64 `json:"totalNonRefundableCredits"`

	GSTHSTCredit           float64 `json:"gstHstCredit"`
	CanadaChildBenefit     float64 `json:"canadaChildBenefit"`
	TotalRefundableCredits float64 `json:"totalRefundableCredits"`

	OASClawback    float64 `json:"oasClawback"`
	TotalClawbacks float64 `json:"totalClawbacks"`

	AMTIncome        float64 `json:"amtIncome"`
	AMTTax           float64 `json:"amtTax"`
	TOSITax          float64 `json:"tosiTax"`
	ProvincialSurtax float64 `json:"provincialSurtax"`
}

// RateCategory names one income type probed by the marginal rate engine.
type RateCategory string

// Probed income categories.
const (
	RateOrdinary             RateCategory = "ordinary"
	RateCapitalGains         RateCategory = "capitalGains"
	RateEligibleDividends    RateCategory = "eligibleDividends"
	RateNonEligibleDividends RateCategory = "nonEligibleDividends"
)

// RateCategories lists the probed categories in reporting order.
var RateCategories = []RateCategory{
	RateOrdinary, RateCapitalGains, RateEligibleDividends, RateNonEligibleDividends,
}

// MarginalRateSet holds the per-category marginal rates (percentages)
// derived from one base profile.
type MarginalRateSet struct {
	Ordinary             float64 `json:"ordinary"`
	CapitalGains         float64 `json:"capitalGains"`
	EligibleDividends    float64 `json:"eligibleDividends"`
	NonEligibleDividends float64 `json:"nonEligibleDividends"`

	// OASAdjusted is Ordinary plus the flat clawback rate when base total
	// income sits inside the clawback band. It is a heuristic overlay, not
	// a kernel recomputation.
	OASAdjusted float64 `json:"oasAdjusted"`

	// Probe is the perturbation amount the rates were derived with.
	Probe float64 `json:"probe"`

	Base *TaxResult `json:"base"`
}

// ScenarioName identifies one optimization scenario.
type ScenarioName string

// The four scenarios every Optimize call produces.
const (
	ScenarioCurrent              ScenarioName = "current"
	ScenarioMaxContribution      ScenarioName = "maxContribution"
	ScenarioIncomeSplitting      ScenarioName = "incomeSplitting"
	ScenarioContributionDeferral ScenarioName = "contributionDeferral"
)

// ScenarioNames lists the scenarios in reporting order.
var ScenarioNames = []ScenarioName{
	ScenarioCurrent, ScenarioMaxContribution,
	ScenarioIncomeSplitting, ScenarioContributionDeferral,
}

// Scenario pairs a derived profile with its evaluated result.
type Scenario struct {
	Name    ScenarioName `json:"name"`
	Profile TaxProfile   `json:"profile"`
	Result  *TaxResult   `json:"result"`
}

// ScenarioSet holds the four evaluated scenarios keyed by name. The engine
// does not rank them; comparison is the caller's concern.
type ScenarioSet struct {
	Scenarios map[ScenarioName]Scenario `json:"scenarios"`
}

// Get returns the named scenario.
func (s *ScenarioSet) Get(name ScenarioName) (Scenario, bool) {
	sc, ok := s.Scenarios[name]
	return sc, ok
}

// LineField is one line-coded amount reported on a tax form.
type LineField struct {
	Code  string  `json:"code"`
	Value float64 `json:"value"`
}
