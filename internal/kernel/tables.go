package kernel

import (
	"math"

	"github.com/maplecrest-planning/taxplan-cli/internal/model"
)

// bracket is one progressive tax bracket.
type bracket struct {
	min  float64
	max  float64
	rate float64
}

// amounts holds the per-jurisdiction credit bases and rates.
type amounts struct {
	basicPersonal    float64
	spouseEquivalent float64
	dependant        float64
	ageAmount        float64
	ageThreshold     float64
	pensionAmount    float64
	disabilityAmount float64
	creditRate       float64
}

// surtax holds a provincial surtax schedule (tax-on-tax).
type surtax struct {
	rate1      float64
	threshold1 float64
	rate2      float64
	threshold2 float64
}

// province bundles one jurisdiction's schedule.
type province struct {
	brackets []bracket
	amounts  amounts
	surtax   *surtax
}

const inf = math.MaxFloat64

// 2024 federal schedule.
var federalBrackets = []bracket{
	{0, 55867, 0.15},
	{55867, 111733, 0.205},
	{111733, 173205, 0.26},
	{173205, 246752, 0.29},
	{246752, inf, 0.33},
}

// 2024 federal amounts and rates.
const (
	fedBasicPersonal    = 15705
	fedSpouseEquivalent = 15705
	fedDependant        = 2616
	fedAgeAmount        = 8790
	fedAgeThreshold     = 42335
	fedPensionAmount    = 2000
	fedDisabilityAmount = 9428
	fedCreditRate       = 0.15

	charitableRateLow   = 0.15
	charitableRateHigh  = 0.29
	charitableLowCap    = 200
	politicalCreditRate = 0.75
	politicalCreditMax  = 650

	eligibleDividendGrossUp    = 1.38
	nonEligibleDividendGrossUp = 1.15

	medicalThresholdCap  = 2759
	medicalThresholdRate = 0.03

	amtExemption = 40000
	amtRate      = 0.15
)

// 2024 CPP/QPP and EI constants.
const (
	cppMaxPensionable  = 71300
	cppBasicExemption  = 3500
	cppRate            = 0.0595
	cppMaxContribution = 4055.25

	qppRate = 0.064

	eiMaxInsurable = 63750
	eiRate         = 0.0163
	eiRateQuebec   = 0.0127
	qpipRate       = 0.00494
)

// 2024 clawback and refundable-credit thresholds.
const (
	// OASClawbackThreshold and OASClawbackCeiling bound the net-income
	// band in which OAS repayment accrues; OASClawbackRate applies inside
	// it. The rate engine's heuristic overlay uses the same three values.
	OASClawbackThreshold = 86912
	OASClawbackCeiling   = 142609
	OASClawbackRate      = 0.15

	eiClawbackThreshold = 78750
	eiClawbackRate      = 0.30

	gstCreditSingle    = 467
	gstCreditMarried   = 612
	gstCreditChild     = 161
	gstCreditThreshold = 42335

	ccbMaxUnder6       = 7787
	ccbMax6To17        = 6570
	ccbThreshold       = 36502
	ccbReductionRate   = 0.07
)

// provinces holds the 2024 provincial and territorial schedules.
var provinces = map[model.Jurisdiction]province{
	model.Alberta: {
		brackets: []bracket{{0, inf, 0.10}},
		amounts: amounts{
			basicPersonal: 21003, spouseEquivalent: 21003, dependant: 2616,
			ageAmount: 27060, ageThreshold: 42335, pensionAmount: 1360,
			disabilityAmount: 17787, creditRate: 0.10,
		},
	},
	model.BritishColumbia: {
		brackets: []bracket{
			{0, 47937, 0.0506},
			{47937, 95875, 0.077},
			{95875, 110076, 0.105},
			{110076, 133664, 0.1229},
			{133664, 181232, 0.147},
			{181232, inf, 0.2045},
		},
		amounts: amounts{
			basicPersonal: 12580, spouseEquivalent: 12580, dependant: 2616,
			ageAmount: 4908, ageThreshold: 42335, pensionAmount: 1000,
			disabilityAmount: 8405, creditRate: 0.0506,
		},
	},
	model.Manitoba: {
		brackets: []bracket{
			{0, 47000, 0.108},
			{47000, 100000, 0.1275},
			{100000, inf, 0.174},
		},
		amounts: amounts{
			basicPersonal: 15780, spouseEquivalent: 15780, dependant: 2616,
			ageAmount: 3728, ageThreshold: 42335, pensionAmount: 1000,
			disabilityAmount: 4530, creditRate: 0.108,
		},
	},
	model.NewBrunswick: {
		brackets: []bracket{
			{0, 49958, 0.094},
			{49958, 99916, 0.14},
			{99916, 185064, 0.16},
			{185064, inf, 0.195},
		},
		amounts: amounts{
			basicPersonal: 12458, spouseEquivalent: 12458, dependant: 2616,
			ageAmount: 5355, ageThreshold: 42335, pensionAmount: 1000,
			disabilityAmount: 8870, creditRate: 0.094,
		},
	},
	model.Newfoundland: {
		brackets: []bracket{
			{0, 43198, 0.087},
			{43198, 86395, 0.145},
			{86395, 154244, 0.158},
			{154244, 215943, 0.178},
			{215943, inf, 0.198},
		},
		amounts: amounts{
			basicPersonal: 10382, spouseEquivalent: 10382, dependant: 2616,
			ageAmount: 7401, ageThreshold: 42335, pensionAmount: 1000,
			disabilityAmount: 4200, creditRate: 0.087,
		},
	},
	model.NovaScotia: {
		brackets: []bracket{
			{0, 29590, 0.0879},
			{29590, 59180, 0.1495},
			{59180, 93000, 0.1667},
			{93000, 150000, 0.175},
			{150000, inf, 0.21},
		},
		amounts: amounts{
			basicPersonal: 8744, spouseEquivalent: 8744, dependant: 2616,
			ageAmount: 6313, ageThreshold: 42335, pensionAmount: 1000,
			disabilityAmount: 7341, creditRate: 0.0879,
		},
	},
	model.NorthwestTerritories: {
		brackets: []bracket{
			{0, 50597, 0.059},
			{50597, 101198, 0.086},
			{101198, 164525, 0.122},
			{164525, inf, 0.1405},
		},
		amounts: amounts{
			basicPersonal: 16593, spouseEquivalent: 16593, dependant: 2616,
			ageAmount: 7898, ageThreshold: 42335, pensionAmount: 1000,
			disabilityAmount: 4637, creditRate: 0.059,
		},
	},
	model.Nunavut: {
		brackets: []bracket{
			{0, 53268, 0.04},
			{53268, 106537, 0.07},
			{106537, 173205, 0.09},
			{173205, inf, 0.115},
		},
		amounts: amounts{
			basicPersonal: 19531, spouseEquivalent: 19531, dependant: 2616,
			ageAmount: 7898, ageThreshold: 42335, pensionAmount: 1000,
			disabilityAmount: 4637, creditRate: 0.04,
		},
	},
	model.Ontario: {
		brackets: []bracket{
			{0, 51446, 0.0505},
			{51446, 102894, 0.0915},
			{102894, 150000, 0.1116},
			{150000, 220000, 0.1216},
			{220000, inf, 0.1316},
		},
		amounts: amounts{
			basicPersonal: 12399, spouseEquivalent: 12399, dependant: 2616,
			ageAmount: 5846, ageThreshold: 42335, pensionAmount: 1000,
			disabilityAmount: 9545, creditRate: 0.0505,
		},
		surtax: &surtax{rate1: 0.20, threshold1: 5554, rate2: 0.36, threshold2: 7108},
	},
	model.PrinceEdwardIsland: {
		brackets: []bracket{
			{0, 32656, 0.098},
			{32656, 65312, 0.138},
			{65312, 105000, 0.167},
			{105000, inf, 0.187},
		},
		amounts: amounts{
			basicPersonal: 12500, spouseEquivalent: 12500, dependant: 2616,
			ageAmount: 4207, ageThreshold: 42335, pensionAmount: 1000,
			disabilityAmount: 7341, creditRate: 0.098,
		},
		surtax: &surtax{rate1: 0.10, threshold1: 12500},
	},
	model.Quebec: {
		brackets: []bracket{
			{0, 51780, 0.14},
			{51780, 103545, 0.19},
			{103545, 126000, 0.24},
			{126000, inf, 0.2575},
		},
		amounts: amounts{
			basicPersonal: 18056, spouseEquivalent: 18056, dependant: 2616,
			ageAmount: 3208, ageThreshold: 42335, pensionAmount: 2815,
			disabilityAmount: 3708, creditRate: 0.14,
		},
	},
	model.Saskatchewan: {
		brackets: []bracket{
			{0, 52057, 0.105},
			{52057, 148734, 0.125},
			{148734, inf, 0.145},
		},
		amounts: amounts{
			basicPersonal: 17661, spouseEquivalent: 17661, dependant: 2616,
			ageAmount: 6065, ageThreshold: 42335, pensionAmount: 1000,
			disabilityAmount: 5659, creditRate: 0.105,
		},
	},
	model.Yukon: {
		brackets: []bracket{
			{0, 55867, 0.064},
			{55867, 111733, 0.09},
			{111733, 173205, 0.109},
			{173205, 500000, 0.128},
			{500000, inf, 0.15},
		},
		amounts: amounts{
			basicPersonal: 15705, spouseEquivalent: 15705, dependant: 2616,
			ageAmount: 7898, ageThreshold: 42335, pensionAmount: 1000,
			disabilityAmount: 9428, creditRate: 0.064,
		},
	},
}

// taxOnBrackets computes progressive tax over a schedule.
func taxOnBrackets(income float64, brackets []bracket) float64 {
	var total float64
	for _, b := range brackets {
		if income <= b.min {
			break
		}
		top := math.Min(income, b.max)
		if top > b.min {
			total += (top - b.min) * b.rate
		}
	}
	return total
}

// bracketRate returns the statutory rate at the given income level.
func bracketRate(income float64, brackets []bracket) float64 {
	for _, b := range brackets {
		if income >= b.min && income < b.max {
			return b.rate
		}
	}
	if len(brackets) == 0 {
		return 0
	}
	return brackets[len(brackets)-1].rate
}
