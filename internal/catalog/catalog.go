// Package catalog maps T1 line codes to canonical profile attributes.
//
// The mapping is declarative data (catalog.yaml, embedded at build time) so
// it can be reviewed and tested independently of the engines: a miscoded
// line silently produces a wrong tax number, which makes this the most
// failure-prone part of the system. The loader enforces a single source of
// truth — every line code belongs to exactly one canonical attribute.
package catalog

import (
	_ "embed"
	"fmt"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/maplecrest-planning/taxplan-cli/internal/model"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Combinator names how multiple source codes resolve to one attribute value.
type Combinator string

// Supported combinators.
const (
	CombineSum          Combinator = "sum"
	CombineFirstPresent Combinator = "first-present"
	CombineConstant     Combinator = "constant"
)

// Mapping declares the source codes and combinator for one canonical
// attribute.
type Mapping struct {
	Codes   []string   `yaml:"codes"`
	Combine Combinator `yaml:"combine"`
	Default float64    `yaml:"default"`
}

// MappingError reports an inconsistency inside the catalog itself. It is
// raised at load time, never at request time.
type MappingError struct {
	Attribute string
	Detail    string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("catalog: %s: %s", e.Attribute, e.Detail)
}

// Catalog is the loaded, validated line-code table.
type Catalog struct {
	Version    string             `yaml:"version"`
	Income     map[string]Mapping `yaml:"income"`
	Deductions map[string]Mapping `yaml:"deductions"`
}

// incomeSetters binds canonical income attribute names to profile fields.
var incomeSetters = map[string]func(*model.Income, float64){
	"employmentIncome":       func(i *model.Income, v float64) { i.Employment = v },
	"commissionIncome":       func(i *model.Income, v float64) { i.Commission = v },
	"businessIncome":         func(i *model.Income, v float64) { i.Business = v },
	"professionalIncome":     func(i *model.Income, v float64) { i.Professional = v },
	"farmingIncome":          func(i *model.Income, v float64) { i.Farming = v },
	"fishingIncome":          func(i *model.Income, v float64) { i.Fishing = v },
	"interestIncome":         func(i *model.Income, v float64) { i.Interest = v },
	"canadianDividendIncome": func(i *model.Income, v float64) { i.EligibleDividends = v },
	"otherDividendIncome":    func(i *model.Income, v float64) { i.NonEligibleDividends = v },
	"foreignDividendIncome":  func(i *model.Income, v float64) { i.ForeignDividends = v },
	"rentalIncome":           func(i *model.Income, v float64) { i.Rental = v },
	"capitalGains":           func(i *model.Income, v float64) { i.CapitalGains = v },
	"capitalLosses":          func(i *model.Income, v float64) { i.CapitalLosses = v },
	"cppQppBenefits":         func(i *model.Income, v float64) { i.CPPBenefits = v },
	"oasBenefits":            func(i *model.Income, v float64) { i.OASBenefits = v },
	"privatePension":         func(i *model.Income, v float64) { i.PrivatePension = v },
	"rrifWithdrawals":        func(i *model.Income, v float64) { i.RRIFWithdrawals = v },
	"eiBenefits":             func(i *model.Income, v float64) { i.EIBenefits = v },
	"alimonyReceived":        func(i *model.Income, v float64) { i.SupportReceived = v },
	"otherIncome":            func(i *model.Income, v float64) { i.Other = v },
}

// deductionSetters binds canonical deduction attribute names to profile fields.
var deductionSetters = map[string]func(*model.Deductions, float64){
	"rrspContribution":       func(d *model.Deductions, v float64) { d.RRSP = v },
	"pensionContribution":    func(d *model.Deductions, v float64) { d.PensionContribution = v },
	"unionDues":              func(d *model.Deductions, v float64) { d.UnionDues = v },
	"professionalDues":       func(d *model.Deductions, v float64) { d.ProfessionalDues = v },
	"childcareExpenses":      func(d *model.Deductions, v float64) { d.Childcare = v },
	"alimonyPaid":            func(d *model.Deductions, v float64) { d.SupportPaid = v },
	"medicalExpenses":        func(d *model.Deductions, v float64) { d.Medical = v },
	"tuitionFees":            func(d *model.Deductions, v float64) { d.Tuition = v },
	"studentLoanInterest":    func(d *model.Deductions, v float64) { d.StudentLoanInterest = v },
	"movingExpenses":         func(d *model.Deductions, v float64) { d.Moving = v },
	"charitableDonations":    func(d *model.Deductions, v float64) { d.Charitable = v },
	"politicalContributions": func(d *model.Deductions, v float64) { d.Political = v },
}

// Load parses and validates the embedded catalog. Validation failures are
// MappingErrors and mean the build artifact itself is broken.
func Load() (*Catalog, error) {
	return parse(catalogYAML)
}

func parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, eris.Wrap(err, "catalog: unmarshal")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	claimed := map[string]string{} // code -> attribute

	check := func(attr string, m Mapping, known bool) error {
		if !known {
			return &MappingError{Attribute: attr, Detail: "no matching profile attribute"}
		}
		switch m.Combine {
		case CombineSum, CombineFirstPresent:
			if len(m.Codes) == 0 {
				return &MappingError{Attribute: attr, Detail: "combinator requires at least one source code"}
			}
		case CombineConstant:
			if len(m.Codes) != 0 {
				return &MappingError{Attribute: attr, Detail: "constant attribute must not list source codes"}
			}
		default:
			return &MappingError{Attribute: attr, Detail: fmt.Sprintf("unknown combinator %q", m.Combine)}
		}
		for _, code := range m.Codes {
			if prev, ok := claimed[code]; ok {
				return &MappingError{
					Attribute: attr,
					Detail:    fmt.Sprintf("code %s already claimed by %s", code, prev),
				}
			}
			claimed[code] = attr
		}
		return nil
	}

	for attr, m := range c.Income {
		_, known := incomeSetters[attr]
		if err := check(attr, m, known); err != nil {
			return err
		}
	}
	for attr, m := range c.Deductions {
		_, known := deductionSetters[attr]
		if err := check(attr, m, known); err != nil {
			return err
		}
	}
	return nil
}

// resolve combines the source codes of one mapping against the reported
// field values. Absent codes contribute zero; first-present takes the first
// code that was actually reported.
func resolve(m Mapping, fields map[string]float64) float64 {
	switch m.Combine {
	case CombineSum:
		var total float64
		for _, code := range m.Codes {
			total += fields[code]
		}
		return total
	case CombineFirstPresent:
		for _, code := range m.Codes {
			if v, ok := fields[code]; ok {
				return v
			}
		}
		return 0
	case CombineConstant:
		return m.Default
	}
	return 0
}

// Apply maps reported line fields onto canonical income and deduction
// blocks. Unknown codes are ignored: the upstream form extraction omits
// lines with no reported value and may carry lines this engine does not
// model.
func (c *Catalog) Apply(fields []model.LineField) (model.Income, model.Deductions) {
	byCode := make(map[string]float64, len(fields))
	for _, f := range fields {
		byCode[f.Code] = f.Value
	}

	var income model.Income
	for attr, m := range c.Income {
		incomeSetters[attr](&income, resolve(m, byCode))
	}

	var deductions model.Deductions
	for attr, m := range c.Deductions {
		deductionSetters[attr](&deductions, resolve(m, byCode))
	}

	return income, deductions
}

// Known reports whether a line code is claimed by any attribute. Used by
// the catalog check command to flag unmapped input.
func (c *Catalog) Known(code string) bool {
	for _, m := range c.Income {
		for _, cc := range m.Codes {
			if cc == code {
				return true
			}
		}
	}
	for _, m := range c.Deductions {
		for _, cc := range m.Codes {
			if cc == code {
				return true
			}
		}
	}
	return false
}
