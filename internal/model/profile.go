// Package model defines the value types shared by the tax engines: profiles,
// kernel results, rate sets, scenario sets, and run records.
package model

// Jurisdiction is a two-letter Canadian province or territory code.
type Jurisdiction string

// The 13 recognized province/territory codes.
const (
	Alberta              Jurisdiction = "AB"
	BritishColumbia      Jurisdiction = "BC"
	Manitoba             Jurisdiction = "MB"
	NewBrunswick         Jurisdiction = "NB"
	Newfoundland         Jurisdiction = "NL"
	NovaScotia           Jurisdiction = "NS"
	NorthwestTerritories Jurisdiction = "NT"
	Nunavut              Jurisdiction = "NU"
	Ontario              Jurisdiction = "ON"
	PrinceEdwardIsland   Jurisdiction = "PE"
	Quebec               Jurisdiction = "QC"
	Saskatchewan         Jurisdiction = "SK"
	Yukon                Jurisdiction = "YT"
)

// Jurisdictions lists every recognized code in display order.
var Jurisdictions = []Jurisdiction{
	Alberta, BritishColumbia, Manitoba, NewBrunswick, Newfoundland,
	NovaScotia, NorthwestTerritories, Nunavut, Ontario,
	PrinceEdwardIsland, Quebec, Saskatchewan, Yukon,
}

// Valid reports whether j is one of the 13 recognized codes.
func (j Jurisdiction) Valid() bool {
	for _, code := range Jurisdictions {
		if j == code {
			return true
		}
	}
	return false
}

// Personal holds the filer attributes that affect credits and scenario
// eligibility.
type Personal struct {
	Age                     int     `json:"age"`
	IsMarried               bool    `json:"isMarried"`
	SpouseIncome            float64 `json:"spouseIncome"`
	SpouseAge               int     `json:"spouseAge"`
	HasDisability           bool    `json:"hasDisability"`
	SpouseHasDisability     bool    `json:"spouseHasDisability"`
	NumDependants           int     `json:"numDependants"`
	DependantAges           []int   `json:"dependantAges,omitempty"`
	IsStudent               bool    `json:"isStudent"`
	IsVolunteerFirefighter  bool    `json:"isVolunteerFirefighter"`
	IsSearchRescueVolunteer bool    `json:"isSearchRescueVolunteer"`
}

// DefaultPersonal returns the documented fallback filer: age 30, unmarried,
// no disability, no dependants. It is an approximation, not real data;
// callers must pass it explicitly so the assumption is visible in fixtures
// and request logs.
func DefaultPersonal() Personal {
	return Personal{Age: 30, SpouseAge: 30}
}

// Income holds every income field the kernel accepts. JSON tags are the
// kernel wire names; absent fields are zero, never null.
type Income struct {
	Employment           float64 `json:"employmentIncome"`
	Commission           float64 `json:"commissionIncome"`
	Business             float64 `json:"businessIncome"`
	Professional         float64 `json:"professionalIncome"`
	Farming              float64 `json:"farmingIncome"`
	Fishing              float64 `json:"fishingIncome"`
	Interest             float64 `json:"interestIncome"`
	EligibleDividends    float64 `json:"canadianDividendIncome"`
	NonEligibleDividends float64 `json:"otherDividendIncome"`
	ForeignDividends     float64 `json:"foreignDividendIncome"`
	Rental               float64 `json:"rentalIncome"`
	// CapitalGains is the taxable (post-inclusion) amount from line 12700.
	CapitalGains         float64 `json:"capitalGains"`
	CapitalLosses        float64 `json:"capitalLosses"`
	CPPBenefits          float64 `json:"cppQppBenefits"`
	OASBenefits          float64 `json:"oasBenefits"`
	PrivatePension       float64 `json:"privatePension"`
	RRIFWithdrawals      float64 `json:"rrifWithdrawals"`
	EIBenefits           float64 `json:"eiBenefits"`
	SupportReceived      float64 `json:"alimonyReceived"`
	Other                float64 `json:"otherIncome"`
}

// Deductions holds every deduction field the kernel accepts.
type Deductions struct {
	RRSP                float64 `json:"rrspContribution"`
	PensionContribution float64 `json:"pensionContribution"`
	UnionDues           float64 `json:"unionDues"`
	ProfessionalDues    float64 `json:"professionalDues"`
	Childcare           float64 `json:"childcareExpenses"`
	SupportPaid         float64 `json:"alimonyPaid"`
	Medical             float64 `json:"medicalExpenses"`
	Tuition             float64 `json:"tuitionFees"`
	StudentLoanInterest float64 `json:"studentLoanInterest"`
	Moving              float64 `json:"movingExpenses"`
	Charitable          float64 `json:"charitableDonations"`
	Political           float64 `json:"politicalContributions"`
}

// TaxProfile is the canonical input to one kernel evaluation. It is a value
// object: derived scenarios and probes are always built with the With*
// helpers, never by mutating an existing profile.
type TaxProfile struct {
	Jurisdiction Jurisdiction `json:"jurisdiction"`
	Personal     Personal     `json:"personal"`
	Income       Income       `json:"income"`
	Deductions   Deductions   `json:"deductions"`

	// PersonalDefaulted records that Personal came from DefaultPersonal()
	// rather than caller-supplied data.
	PersonalDefaulted bool `json:"personalDefaulted,omitempty"`
}

// clone returns a deep copy; the dependant-ages slice is the only
// reference-typed field.
func (p TaxProfile) clone() TaxProfile {
	out := p
	if p.Personal.DependantAges != nil {
		out.Personal.DependantAges = append([]int(nil), p.Personal.DependantAges...)
	}
	return out
}

// WithIncome returns a copy of the profile with mut applied to the copy's
// income block.
func (p TaxProfile) WithIncome(mut func(*Income)) TaxProfile {
	out := p.clone()
	mut(&out.Income)
	return out
}

// WithDeductions returns a copy of the profile with mut applied to the
// copy's deductions block.
func (p TaxProfile) WithDeductions(mut func(*Deductions)) TaxProfile {
	out := p.clone()
	mut(&out.Deductions)
	return out
}

// WithPersonal returns a copy of the profile with mut applied to the copy's
// personal block.
func (p TaxProfile) WithPersonal(mut func(*Personal)) TaxProfile {
	out := p.clone()
	mut(&out.Personal)
	return out
}
