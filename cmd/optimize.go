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
	"github.com/maplecrest-planning/taxplan-cli/internal/scenario"
)

var (
	optimizeInput        string
	optimizeJurisdiction string
	optimizeJSON         bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Evaluate contribution and splitting scenarios for a profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := buildProfile(optimizeInput, optimizeJurisdiction)
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

		set, err := scenario.New(o, scenarioConfig(cfg.Scenario)).Optimize(ctx, p)
		recordRun(ctx, st, model.RunOptimize, p, set, err)
		if err != nil {
			return eris.Wrap(err, "optimize")
		}

		if optimizeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(set)
		}

		formatScenarios(os.Stdout, set)
		return nil
	},
}

func init() {
	optimizeCmd.Flags().StringVar(&optimizeInput, "input", "-", "profile input JSON file (- for stdin)")
	optimizeCmd.Flags().StringVar(&optimizeJurisdiction, "jurisdiction", "", "override the input document's province code")
	optimizeCmd.Flags().BoolVar(&optimizeJSON, "json", false, "emit raw JSON instead of a table")
	rootCmd.AddCommand(optimizeCmd)
}

func formatScenarios(out io.Writer, set *model.ScenarioSet) {
	current, _ := set.Get(model.ScenarioCurrent)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SCENARIO\tTOTAL PAYABLE\tAFTER-TAX\tVS CURRENT")
	_, _ = fmt.Fprintln(w, "--------\t-------------\t---------\t----------")
	for _, name := range model.ScenarioNames {
		sc, ok := set.Get(name)
		if !ok {
			continue
		}
		saving := current.Result.TotalPayable - sc.Result.TotalPayable
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			name,
			money.Sprintf("$%.2f", sc.Result.TotalPayable),
			money.Sprintf("$%.2f", sc.Result.NetIncomeAfterTax),
			money.Sprintf("%+.2f", saving),
		)
	}
	_ = w.Flush()
}
