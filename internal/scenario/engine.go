// Package scenario builds bounded what-if variants of a tax profile and
// evaluates them against the base case.
package scenario

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/maplecrest-planning/taxplan-cli/internal/model"
	"github.com/maplecrest-planning/taxplan-cli/internal/oracle"
)

// Config holds the statutory caps the scenario builders respect.
type Config struct {
	// ContributionRate is the fraction of employment income eligible for
	// the max-contribution scenario. Default: 0.18.
	ContributionRate float64

	// AnnualContributionLimit caps the max-contribution deduction
	// regardless of income. Default: 31560 (2024 RRSP limit).
	AnnualContributionLimit float64

	// DeferralRate is the extra contribution fraction in the deferral
	// scenario. Default: 0.10.
	DeferralRate float64

	// DeferralRoomCap bounds the extra deferral deduction. Default: 10000.
	DeferralRoomCap float64

	// Concurrency bounds simultaneous oracle calls. Default: 4.
	Concurrency int
}

func (c Config) withDefaults() Config {
	if c.ContributionRate <= 0 {
		c.ContributionRate = 0.18
	}
	if c.AnnualContributionLimit <= 0 {
		c.AnnualContributionLimit = 31560
	}
	if c.DeferralRate <= 0 {
		c.DeferralRate = 0.10
	}
	if c.DeferralRoomCap <= 0 {
		c.DeferralRoomCap = 10000
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	return c
}

// Engine evaluates optimization scenario sets. Stateless; safe for
// concurrent use.
type Engine struct {
	oracle oracle.Oracle
	cfg    Config
}

// New creates an engine over the given oracle.
func New(o oracle.Oracle, cfg Config) *Engine {
	return &Engine{oracle: o, cfg: cfg.withDefaults()}
}

// build constructs the named variant as a copy-with-override of the base
// profile. Every variant leaves the base untouched.
func (e *Engine) build(name model.ScenarioName, base model.TaxProfile) model.TaxProfile {
	switch name {
	case model.ScenarioMaxContribution:
		target := math.Min(base.Income.Employment*e.cfg.ContributionRate, e.cfg.AnnualContributionLimit)
		return base.WithDeductions(func(d *model.Deductions) {
			d.RRSP = target
		})

	case model.ScenarioIncomeSplitting:
		// Identity transform when unmarried so the set always has four
		// members.
		if !base.Personal.IsMarried {
			return base
		}
		shift := math.Min(base.Income.PrivatePension*0.5, base.Income.PrivatePension)
		moved := base.WithIncome(func(in *model.Income) {
			in.PrivatePension -= shift
		})
		return moved.WithPersonal(func(p *model.Personal) {
			p.SpouseIncome += shift
		})

	case model.ScenarioContributionDeferral:
		extra := math.Min(base.Income.Employment*e.cfg.DeferralRate, e.cfg.DeferralRoomCap)
		return base.WithDeductions(func(d *model.Deductions) {
			d.RRSP += extra
		})
	}

	return base
}

// Optimize evaluates the base profile and its three variants concurrently
// and returns all four results keyed by scenario name. One failed
// evaluation fails the whole call — no partial sets. The engine does not
// rank scenarios; comparison is a presentation concern.
func (e *Engine) Optimize(ctx context.Context, base model.TaxProfile) (*model.ScenarioSet, error) {
	profiles := make(map[model.ScenarioName]model.TaxProfile, len(model.ScenarioNames))
	for _, name := range model.ScenarioNames {
		profiles[name] = e.build(name, base)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)

	results := make([]*model.TaxResult, len(model.ScenarioNames))
	for i, name := range model.ScenarioNames {
		g.Go(func() error {
			res, err := e.oracle.Evaluate(gctx, profiles[name])
			if err != nil {
				return eris.Wrapf(err, "scenario: %s evaluation", name)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := &model.ScenarioSet{Scenarios: make(map[model.ScenarioName]model.Scenario, len(model.ScenarioNames))}
	for i, name := range model.ScenarioNames {
		set.Scenarios[name] = model.Scenario{
			Name:    name,
			Profile: profiles[name],
			Result:  results[i],
		}
	}

	zap.L().Debug("scenario set evaluated",
		zap.String("jurisdiction", string(base.Jurisdiction)),
		zap.Bool("married", base.Personal.IsMarried),
		zap.Float64("base_payable", set.Scenarios[model.ScenarioCurrent].Result.TotalPayable),
	)

	return set, nil
}
