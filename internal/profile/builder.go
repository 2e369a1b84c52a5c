// Package profile builds canonical tax profiles from line-coded form data.
package profile

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/maplecrest-planning/taxplan-cli/internal/catalog"
	"github.com/maplecrest-planning/taxplan-cli/internal/model"
)

// ValidationError reports caller input that can never evaluate: an
// unrecognized jurisdiction or malformed personal overrides. It is returned
// immediately and is never retried.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("profile: invalid %s: %s", e.Field, e.Detail)
}

// Builder assembles TaxProfiles through a shared catalog instance.
type Builder struct {
	catalog *catalog.Catalog
}

// NewBuilder creates a builder over the loaded catalog.
func NewBuilder(c *catalog.Catalog) *Builder {
	return &Builder{catalog: c}
}

// Build maps line fields through the catalog and attaches jurisdiction and
// personal data. A nil personal falls back to model.DefaultPersonal() and
// the profile is flagged as defaulted so callers can surface the
// approximation.
func (b *Builder) Build(fields []model.LineField, jurisdiction model.Jurisdiction, personal *model.Personal) (model.TaxProfile, error) {
	if !jurisdiction.Valid() {
		return model.TaxProfile{}, &ValidationError{
			Field:  "jurisdiction",
			Detail: fmt.Sprintf("%q is not a recognized province/territory code", jurisdiction),
		}
	}

	p := model.TaxProfile{Jurisdiction: jurisdiction}
	if personal == nil {
		p.Personal = model.DefaultPersonal()
		p.PersonalDefaulted = true
	} else {
		if err := validatePersonal(personal); err != nil {
			return model.TaxProfile{}, err
		}
		p.Personal = *personal
	}

	p.Income, p.Deductions = b.catalog.Apply(fields)

	if p.PersonalDefaulted {
		zap.L().Debug("profile built with default personal data",
			zap.String("jurisdiction", string(jurisdiction)),
			zap.Int("fields", len(fields)),
		)
	}

	return p, nil
}

func validatePersonal(p *model.Personal) error {
	if p.Age < 0 || p.Age > 130 {
		return &ValidationError{Field: "personal.age", Detail: fmt.Sprintf("%d out of range", p.Age)}
	}
	if p.SpouseAge < 0 || p.SpouseAge > 130 {
		return &ValidationError{Field: "personal.spouseAge", Detail: fmt.Sprintf("%d out of range", p.SpouseAge)}
	}
	if p.SpouseIncome < 0 {
		return &ValidationError{Field: "personal.spouseIncome", Detail: "must not be negative"}
	}
	if p.NumDependants < 0 {
		return &ValidationError{Field: "personal.numDependants", Detail: "must not be negative"}
	}
	if len(p.DependantAges) > 0 && len(p.DependantAges) != p.NumDependants {
		return &ValidationError{
			Field:  "personal.dependantAges",
			Detail: fmt.Sprintf("%d ages listed for %d dependants", len(p.DependantAges), p.NumDependants),
		}
	}
	return nil
}
