package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/maplecrest-planning/taxplan-cli/internal/catalog"
	"github.com/maplecrest-planning/taxplan-cli/internal/config"
	"github.com/maplecrest-planning/taxplan-cli/internal/kernel"
	"github.com/maplecrest-planning/taxplan-cli/internal/model"
	"github.com/maplecrest-planning/taxplan-cli/internal/oracle"
	"github.com/maplecrest-planning/taxplan-cli/internal/profile"
	"github.com/maplecrest-planning/taxplan-cli/internal/rates"
	"github.com/maplecrest-planning/taxplan-cli/internal/resilience"
	"github.com/maplecrest-planning/taxplan-cli/internal/scenario"
	"github.com/maplecrest-planning/taxplan-cli/internal/store"
)

// money formats dollar amounts with thousands grouping for table output.
var money = message.NewPrinter(language.English)

// profileInput is the JSON document the profile-taking commands accept,
// either from a file or stdin. The HTTP API accepts the same shape.
type profileInput struct {
	Jurisdiction string            `json:"jurisdiction"`
	Personal     *model.Personal   `json:"personal,omitempty"`
	Fields       []model.LineField `json:"fields"`
}

// loadInput reads and decodes a profile input document. "-" means stdin.
func loadInput(path string) (*profileInput, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "open input %s", path)
		}
		defer f.Close()
		r = f
	}

	var in profileInput
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, eris.Wrap(err, "decode input")
	}
	return &in, nil
}

// buildProfile loads the input document and maps it through the catalog.
// A non-empty jurisdiction flag overrides the document's value.
func buildProfile(path, jurisdictionFlag string) (model.TaxProfile, error) {
	in, err := loadInput(path)
	if err != nil {
		return model.TaxProfile{}, err
	}

	jur := in.Jurisdiction
	if jurisdictionFlag != "" {
		jur = jurisdictionFlag
	}

	cat, err := catalog.Load()
	if err != nil {
		return model.TaxProfile{}, err
	}
	return profile.NewBuilder(cat).Build(in.Fields, model.Jurisdiction(jur), in.Personal)
}

// initOracle builds the configured oracle: the in-process calculator or the
// external kernel process transport.
func initOracle() (oracle.Oracle, error) {
	switch cfg.Oracle.Mode {
	case "", "kernel":
		return kernel.New(), nil
	case "subprocess":
		return oracle.NewSubprocess(oracle.SubprocessOptions{
			Command:   cfg.Oracle.Command,
			Args:      cfg.Oracle.Args,
			Timeout:   cfg.Oracle.Timeout(),
			SpawnRate: cfg.Oracle.SpawnRate,
			Retry:     resilience.Policy{MaxAttempts: cfg.Oracle.RetryAttempts},
		}), nil
	default:
		return nil, eris.Errorf("unknown oracle mode %q", cfg.Oracle.Mode)
	}
}

func ratesConfig(c config.RatesConfig) rates.Config {
	return rates.Config{
		Probe:             c.Probe,
		Concurrency:       c.Concurrency,
		OASThreshold:      c.OASThreshold,
		OASCeiling:        c.OASCeiling,
		OASRate:           c.OASRate,
		DisableOASOverlay: c.DisableOASOverlay,
	}
}

func scenarioConfig(c config.ScenarioConfig) scenario.Config {
	return scenario.Config{
		ContributionRate:        c.ContributionRate,
		AnnualContributionLimit: c.AnnualContributionLimit,
		DeferralRate:            c.DeferralRate,
		DeferralRoomCap:         c.DeferralRoomCap,
		Concurrency:             c.Concurrency,
	}
}

// initStore builds the configured run store. A nil store means persistence
// is disabled; callers must handle that.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "":
		return nil, nil
	case "sqlite":
		st, err := store.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// recordRun persists a completed or failed engine invocation when a store
// is configured. Recording failures are logged, never fatal.
func recordRun(ctx context.Context, st store.Store, kind model.RunKind, p model.TaxProfile, result any, cause error) {
	if st == nil {
		return
	}
	run, err := st.CreateRun(ctx, kind, p)
	if err != nil {
		zap.L().Warn("create run record", zap.Error(err))
		return
	}
	if cause != nil {
		err = st.FailRun(ctx, run.ID, cause)
	} else {
		err = st.CompleteRun(ctx, run.ID, result)
	}
	if err != nil {
		zap.L().Warn("update run record", zap.String("run_id", run.ID), zap.Error(err))
	}
}
