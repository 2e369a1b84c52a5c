package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/maplecrest-planning/taxplan-cli/internal/model"
	"github.com/maplecrest-planning/taxplan-cli/internal/rates"
)

var (
	ratesInput        string
	ratesJurisdiction string
	ratesProbe        float64
	ratesJSON         bool
	ratesEffective    bool
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Derive per-category marginal tax rates for a profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := buildProfile(ratesInput, ratesJurisdiction)
		if err != nil {
			return err
		}

		o, err := initOracle()
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close()
		}

		rcfg := ratesConfig(cfg.Rates)
		if ratesProbe > 0 {
			rcfg.Probe = ratesProbe
		}
		engine := rates.New(o, rcfg)

		if ratesEffective {
			rate, err := engine.EffectiveRate(ctx, p)
			if err != nil {
				return eris.Wrap(err, "effective rate")
			}
			fmt.Printf("Effective marginal rate: %.2f%%\n", rate)
			return nil
		}

		set, err := engine.Rates(ctx, p)
		recordRun(ctx, st, model.RunRates, p, set, err)
		if err != nil {
			return eris.Wrap(err, "rates")
		}

		if ratesJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(set)
		}

		formatRates(os.Stdout, p, set)
		return nil
	},
}

func init() {
	ratesCmd.Flags().StringVar(&ratesInput, "input", "-", "profile input JSON file (- for stdin)")
	ratesCmd.Flags().StringVar(&ratesJurisdiction, "jurisdiction", "", "override the input document's province code")
	ratesCmd.Flags().Float64Var(&ratesProbe, "probe", 0, "perturbation amount in dollars (default from config)")
	ratesCmd.Flags().BoolVar(&ratesJSON, "json", false, "emit raw JSON instead of a table")
	ratesCmd.Flags().BoolVar(&ratesEffective, "effective", false, "print a $1-probe point estimate of the ordinary rate only")
	rootCmd.AddCommand(ratesCmd)
}

func formatRates(out io.Writer, p model.TaxProfile, set *model.MarginalRateSet) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Jurisdiction:\t%s\n", p.Jurisdiction)
	_, _ = fmt.Fprintf(w, "Base total income:\t%s\n", money.Sprintf("$%.2f", set.Base.TotalIncome))
	_, _ = fmt.Fprintf(w, "Probe:\t%s\n", money.Sprintf("$%.0f", set.Probe))
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintf(w, "Ordinary income:\t%.2f%%\n", set.Ordinary)
	_, _ = fmt.Fprintf(w, "Capital gains:\t%.2f%%\n", set.CapitalGains)
	_, _ = fmt.Fprintf(w, "Eligible dividends:\t%.2f%%\n", set.EligibleDividends)
	_, _ = fmt.Fprintf(w, "Non-eligible dividends:\t%.2f%%\n", set.NonEligibleDividends)
	if set.OASAdjusted != set.Ordinary {
		_, _ = fmt.Fprintf(w, "OAS-adjusted ordinary:\t%.2f%%\n", set.OASAdjusted)
	}
	_ = w.Flush()
}
