// Package rates derives per-category marginal tax rates by finite-difference
// probing of a base profile through the oracle.
package rates

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/maplecrest-planning/taxplan-cli/internal/model"
	"github.com/maplecrest-planning/taxplan-cli/internal/oracle"
)

// InclusionRate is the statutory fraction of a capital gain counted as
// taxable income. Profiles carry the post-inclusion line amount, so the
// computed capital-gains rate (not the probe) is scaled by this factor to
// express tax per dollar of gross gain. The kernel must make the matching
// assumption; rates_test pins the pairing.
const InclusionRate = 0.5

// Default probe sizes. The standard probe trades precision for stability
// across bracket edges; the effective probe gives a point estimate and is
// expected to diverge from the standard one near thresholds.
const (
	DefaultProbe   = 1000.0
	EffectiveProbe = 1.0
)

// Config tunes the engine.
type Config struct {
	// Probe is the perturbation amount in dollars. Default: 1000.
	Probe float64

	// Concurrency bounds simultaneous oracle calls during fan-out.
	// Default: 4 (one per probed category).
	Concurrency int

	// OASThreshold and OASCeiling bound the net-income band in which the
	// clawback overlay applies; OASRate is the flat percentage added to
	// the ordinary rate inside it. Defaults: 86912, 142609, 15. An OASRate
	// of zero falls back to the default; set DisableOASOverlay to switch
	// the overlay off entirely.
	OASThreshold float64
	OASCeiling   float64
	OASRate      float64

	DisableOASOverlay bool
}

func (c Config) withDefaults() Config {
	if c.Probe <= 0 {
		c.Probe = DefaultProbe
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.OASThreshold <= 0 {
		c.OASThreshold = 86912
	}
	if c.OASCeiling <= 0 {
		c.OASCeiling = 142609
	}
	if c.OASRate <= 0 {
		c.OASRate = 15
	}
	return c
}

// Engine computes marginal rate sets. It holds no mutable state; one
// instance serves concurrent requests.
type Engine struct {
	oracle oracle.Oracle
	cfg    Config
}

// New creates an engine over the given oracle.
func New(o oracle.Oracle, cfg Config) *Engine {
	return &Engine{oracle: o, cfg: cfg.withDefaults()}
}

// perturb returns a copy of the profile with the named category's income
// increased by amount. The base profile is never touched.
func perturb(p model.TaxProfile, category model.RateCategory, amount float64) model.TaxProfile {
	return p.WithIncome(func(in *model.Income) {
		switch category {
		case model.RateOrdinary:
			in.Employment += amount
		case model.RateCapitalGains:
			in.CapitalGains += amount
		case model.RateEligibleDividends:
			in.EligibleDividends += amount
		case model.RateNonEligibleDividends:
			in.NonEligibleDividends += amount
		}
	})
}

// Rates evaluates the base profile and one perturbed variant per income
// category, all fanned out through the oracle, and derives the rate set.
// Any failed evaluation fails the whole call; partial rate sets are never
// returned.
func (e *Engine) Rates(ctx context.Context, p model.TaxProfile) (*model.MarginalRateSet, error) {
	base, err := e.oracle.Evaluate(ctx, p)
	if err != nil {
		return nil, eris.Wrap(err, "rates: base evaluation")
	}

	probe := e.cfg.Probe
	deltas := make(map[model.RateCategory]float64, len(model.RateCategories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)

	results := make([]float64, len(model.RateCategories))
	for i, category := range model.RateCategories {
		g.Go(func() error {
			perturbed, err := e.oracle.Evaluate(gctx, perturb(p, category, probe))
			if err != nil {
				return eris.Wrapf(err, "rates: %s probe", category)
			}
			results[i] = (perturbed.TotalPayable - base.TotalPayable) / probe * 100
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, category := range model.RateCategories {
		deltas[category] = results[i]
	}

	set := &model.MarginalRateSet{
		Ordinary:             deltas[model.RateOrdinary],
		CapitalGains:         deltas[model.RateCapitalGains] * InclusionRate,
		EligibleDividends:    deltas[model.RateEligibleDividends],
		NonEligibleDividends: deltas[model.RateNonEligibleDividends],
		Probe:                probe,
		Base:                 base,
	}
	set.OASAdjusted = e.oasAdjusted(set.Ordinary, base)

	zap.L().Debug("marginal rates derived",
		zap.String("jurisdiction", string(p.Jurisdiction)),
		zap.Float64("probe", probe),
		zap.Float64("ordinary", set.Ordinary),
		zap.Float64("capital_gains", set.CapitalGains),
	)

	return set, nil
}

// oasAdjusted layers the flat OAS clawback rate on top of the ordinary rate
// when base total income falls inside the clawback band. This is a
// heuristic overlay, not a recomputation through the oracle.
//
// TODO: validate the overlay against the kernel's own oasClawback output;
// the additive constant may double-count for filers whose OAS is already
// fully clawed back near the ceiling.
func (e *Engine) oasAdjusted(ordinary float64, base *model.TaxResult) float64 {
	if e.cfg.DisableOASOverlay {
		return ordinary
	}
	if base.TotalIncome > e.cfg.OASThreshold && base.TotalIncome < e.cfg.OASCeiling {
		return ordinary + e.cfg.OASRate
	}
	return ordinary
}

// EffectiveRate returns a high-precision point estimate of the ordinary
// marginal rate using a $1 probe on employment income only.
//
// Callers must not conflate this with Rates: near bracket edges and
// clawback cliffs the $1 and $1000 probes legitimately diverge.
func (e *Engine) EffectiveRate(ctx context.Context, p model.TaxProfile) (float64, error) {
	base, err := e.oracle.Evaluate(ctx, p)
	if err != nil {
		return 0, eris.Wrap(err, "rates: base evaluation")
	}
	perturbed, err := e.oracle.Evaluate(ctx, perturb(p, model.RateOrdinary, EffectiveProbe))
	if err != nil {
		return 0, eris.Wrap(err, "rates: effective probe")
	}
	return (perturbed.TotalPayable - base.TotalPayable) / EffectiveProbe * 100, nil
}
