// Package kernel is the in-process tax-computation kernel: 2024 federal and
// provincial bracket tables, credits, payroll contributions, clawbacks, AMT,
// and surtaxes.
//
// It implements the same contract as the external kernel process and stays
// entirely behind the oracle interface; the engines never see bracket or
// credit arithmetic.
package kernel

import (
	"context"
	"fmt"
	"math"

	"github.com/maplecrest-planning/taxplan-cli/internal/model"
	"github.com/maplecrest-planning/taxplan-cli/internal/oracle"
)

// Calculator evaluates tax profiles in-process. It holds only immutable
// schedule data, so one instance serves concurrent callers.
type Calculator struct{}

// New returns the 2024 calculator.
func New() *Calculator {
	return &Calculator{}
}

// Evaluate computes the full tax result for one profile. It is a pure
// function of the profile: identical inputs produce identical outputs.
func (c *Calculator) Evaluate(_ context.Context, p model.TaxProfile) (*model.TaxResult, error) {
	prov, ok := provinces[p.Jurisdiction]
	if !ok {
		return nil, &oracle.OracleError{
			Reason: oracle.ReasonExit,
			Detail: fmt.Sprintf("unknown province %q", p.Jurisdiction),
		}
	}

	totalIncome := totalIncome(p.Income)

	deductions := p.Deductions.RRSP + p.Deductions.PensionContribution +
		p.Deductions.UnionDues + p.Deductions.ProfessionalDues +
		p.Deductions.Childcare + p.Deductions.SupportPaid +
		p.Deductions.Moving + p.Deductions.StudentLoanInterest
	netIncome := math.Max(0, totalIncome-deductions)
	taxableIncome := netIncome

	federalTax := taxOnBrackets(taxableIncome, federalBrackets)
	provincialTax := taxOnBrackets(taxableIncome, prov.brackets)

	var provincialSurtax float64
	if st := prov.surtax; st != nil {
		if provincialTax > st.threshold1 {
			provincialSurtax += (provincialTax - st.threshold1) * st.rate1
		}
		if st.threshold2 > 0 && provincialTax > st.threshold2 {
			provincialSurtax += (provincialTax - st.threshold2) * st.rate2
		}
	}

	totalBeforeCredits := federalTax + provincialTax + provincialSurtax

	cr := nonRefundableCredits(p, prov.amounts, netIncome)
	totalAfterCredits := math.Max(0, totalBeforeCredits-cr.total)

	amtIncome := totalIncome
	amtTax := math.Max(0, amtIncome-amtExemption) * amtRate
	finalTax := math.Max(totalAfterCredits, amtTax)

	cpp := cppContribution(p.Income.Employment, p.Jurisdiction)
	ei := eiContribution(p.Income.Employment, p.Jurisdiction)

	oasClawback := clawbackOAS(netIncome, p.Income.OASBenefits)
	eiClawback := clawbackEI(netIncome, p.Income.EIBenefits)
	totalClawbacks := oasClawback + eiClawback

	gst := gstCredit(p.Personal, netIncome)
	ccb := childBenefit(p.Personal, netIncome)
	totalRefundable := gst + ccb

	totalPayable := finalTax + cpp + ei + totalClawbacks
	netAfterTax := netIncome - totalPayable + totalRefundable

	var averageRate float64
	if netIncome > 0 {
		averageRate = totalPayable / netIncome * 100
	}

	var marginalRate float64
	if taxableIncome > 0 {
		marginalRate = (bracketRate(taxableIncome, federalBrackets) +
			bracketRate(taxableIncome, prov.brackets)) * 100
	}

	return &model.TaxResult{
		TotalIncome:           totalIncome,
		NetIncome:             netIncome,
		TaxableIncome:         taxableIncome,
		FederalTax:            federalTax,
		ProvincialTax:         provincialTax,
		TotalTaxBeforeCredits: totalBeforeCredits,
		TotalTaxAfterCredits:  totalAfterCredits,
		CPPContribution:       cpp,
		EIContribution:        ei,
		TotalPayable:          totalPayable,
		NetIncomeAfterTax:     netAfterTax,
		AverageTaxRate:        averageRate,
		MarginalTaxRate:       marginalRate,

		BasicPersonalCredit:       cr.basicPersonal,
		SpouseCredit:              cr.spouse,
		AgeCredit:                 cr.age,
		PensionCredit:             cr.pension,
		DisabilityCredit:          cr.disability,
		MedicalCredit:             cr.medical,
		CharitableCredit:          cr.charitable,
		TotalNonRefundableCredits: cr.total,

		GSTHSTCredit:           gst,
		CanadaChildBenefit:     ccb,
		TotalRefundableCredits: totalRefundable,

		OASClawback:    oasClawback,
		TotalClawbacks: totalClawbacks,

		AMTIncome:        amtIncome,
		AMTTax:           amtTax,
		ProvincialSurtax: provincialSurtax,
	}, nil
}

// totalIncome aggregates every source, grossing up Canadian dividends.
//
// CapitalGains arrives as the taxable (post-inclusion) amount reported on
// line 12700, so it enters income at face value; the inclusion-rate
// adjustment happens in the marginal rate engine, and the pairing between
// the two is covered by an explicit test.
func totalIncome(in model.Income) float64 {
	employment := in.Employment + in.Commission
	business := in.Business + in.Professional + in.Farming + in.Fishing

	dividends := in.EligibleDividends*eligibleDividendGrossUp +
		in.NonEligibleDividends*nonEligibleDividendGrossUp +
		in.ForeignDividends
	investment := in.Interest + dividends + in.Rental

	capitalGains := math.Max(0, in.CapitalGains-in.CapitalLosses)

	pension := in.CPPBenefits + in.OASBenefits + in.PrivatePension + in.RRIFWithdrawals
	other := in.EIBenefits + in.SupportReceived + in.Other

	return employment + business + investment + capitalGains + pension + other
}

type credits struct {
	basicPersonal float64
	spouse        float64
	dependant     float64
	age           float64
	pension       float64
	disability    float64
	tuition       float64
	medical       float64
	charitable    float64
	political     float64
	total         float64
}

// nonRefundableCredits computes the combined federal and provincial
// non-refundable credit value.
func nonRefundableCredits(p model.TaxProfile, prov amounts, netIncome float64) credits {
	var cr credits
	combined := fedCreditRate + prov.creditRate

	cr.basicPersonal = fedBasicPersonal*fedCreditRate + prov.basicPersonal*prov.creditRate

	if p.Personal.IsMarried {
		fedSpouse := math.Max(0, fedSpouseEquivalent-p.Personal.SpouseIncome)
		provSpouse := math.Max(0, prov.spouseEquivalent-p.Personal.SpouseIncome)
		cr.spouse = fedSpouse*fedCreditRate + provSpouse*prov.creditRate
	}

	cr.dependant = float64(p.Personal.NumDependants) * fedDependant * combined

	if p.Personal.Age >= 65 {
		reduction := math.Max(0, netIncome-fedAgeThreshold) * fedCreditRate
		fedAge := math.Max(0, fedAgeAmount-reduction)
		provAge := math.Max(0, prov.ageAmount-reduction)
		cr.age = fedAge*fedCreditRate + provAge*prov.creditRate
	}

	eligiblePension := p.Income.PrivatePension + p.Income.RRIFWithdrawals
	cr.pension = math.Min(fedPensionAmount, eligiblePension)*fedCreditRate +
		math.Min(prov.pensionAmount, eligiblePension)*prov.creditRate

	if p.Personal.HasDisability {
		cr.disability = fedDisabilityAmount*fedCreditRate + prov.disabilityAmount*prov.creditRate
	}

	cr.tuition = p.Deductions.Tuition * fedCreditRate

	medicalThreshold := math.Min(medicalThresholdCap, netIncome*medicalThresholdRate)
	eligibleMedical := math.Max(0, p.Deductions.Medical-medicalThreshold)
	cr.medical = eligibleMedical * combined

	donations := p.Deductions.Charitable
	if donations <= charitableLowCap {
		cr.charitable = donations * charitableRateLow
	} else {
		cr.charitable = charitableLowCap*charitableRateLow +
			(donations-charitableLowCap)*charitableRateHigh
	}

	cr.political = math.Min(p.Deductions.Political*politicalCreditRate, politicalCreditMax)

	cr.total = cr.basicPersonal + cr.spouse + cr.dependant + cr.age + cr.pension +
		cr.disability + cr.tuition + cr.medical + cr.charitable + cr.political
	return cr
}

// cppContribution computes CPP (QPP in Quebec) on employment income.
func cppContribution(employment float64, j model.Jurisdiction) float64 {
	pensionable := math.Min(employment, cppMaxPensionable) - cppBasicExemption
	if pensionable <= 0 {
		return 0
	}
	if j == model.Quebec {
		return pensionable * qppRate
	}
	return math.Min(pensionable*cppRate, cppMaxContribution)
}

// eiContribution computes EI (plus QPIP in Quebec) on employment income.
func eiContribution(employment float64, j model.Jurisdiction) float64 {
	insurable := math.Min(employment, eiMaxInsurable)
	if j == model.Quebec {
		return insurable*eiRateQuebec + insurable*qpipRate
	}
	return insurable * eiRate
}

// clawbackOAS computes OAS repayment: 15 cents per dollar of net income
// over the threshold, capped at benefits received.
func clawbackOAS(netIncome, oasBenefits float64) float64 {
	if netIncome <= OASClawbackThreshold {
		return 0
	}
	return math.Min(oasBenefits, (netIncome-OASClawbackThreshold)*OASClawbackRate)
}

// clawbackEI computes EI benefit repayment above the clawback threshold.
func clawbackEI(netIncome, eiBenefits float64) float64 {
	if netIncome <= eiClawbackThreshold || eiBenefits <= 0 {
		return 0
	}
	return math.Min(eiBenefits*eiClawbackRate, (netIncome-eiClawbackThreshold)*eiClawbackRate)
}

// gstCredit computes the GST/HST refundable credit.
func gstCredit(p model.Personal, netIncome float64) float64 {
	base := float64(gstCreditSingle)
	if p.IsMarried {
		base = gstCreditMarried
	}
	base += float64(p.NumDependants) * gstCreditChild

	if netIncome > gstCreditThreshold {
		base = math.Max(0, base-(netIncome-gstCreditThreshold)*0.05)
	}
	return base
}

// childBenefit computes the Canada Child Benefit from dependant ages.
func childBenefit(p model.Personal, netIncome float64) float64 {
	if p.NumDependants == 0 {
		return 0
	}

	var amount float64
	for i := 0; i < p.NumDependants; i++ {
		age := 0
		if i < len(p.DependantAges) {
			age = p.DependantAges[i]
		}
		if age < 6 {
			amount += ccbMaxUnder6
		} else {
			amount += ccbMax6To17
		}
	}

	if netIncome > ccbThreshold {
		amount = math.Max(0, amount-(netIncome-ccbThreshold)*ccbReductionRate)
	}
	return amount
}
