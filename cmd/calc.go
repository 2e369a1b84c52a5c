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
)

var (
	calcInput        string
	calcJurisdiction string
	calcJSON         bool
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Evaluate one tax profile through the kernel",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := buildProfile(calcInput, calcJurisdiction)
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

		res, err := o.Evaluate(ctx, p)
		recordRun(ctx, st, model.RunCalculate, p, res, err)
		if err != nil {
			return eris.Wrap(err, "evaluate")
		}

		if calcJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		formatResult(os.Stdout, p, res)
		return nil
	},
}

func init() {
	calcCmd.Flags().StringVar(&calcInput, "input", "-", "profile input JSON file (- for stdin)")
	calcCmd.Flags().StringVar(&calcJurisdiction, "jurisdiction", "", "override the input document's province code")
	calcCmd.Flags().BoolVar(&calcJSON, "json", false, "emit raw JSON instead of a table")
	rootCmd.AddCommand(calcCmd)
}

// formatResult writes the headline numbers of one evaluation.
func formatResult(out io.Writer, p model.TaxProfile, res *model.TaxResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Jurisdiction:\t%s\n", p.Jurisdiction)
	if p.PersonalDefaulted {
		_, _ = fmt.Fprintf(w, "Personal data:\tdefaulted (age 30, single)\n")
	}
	_, _ = fmt.Fprintf(w, "Total income:\t%s\n", money.Sprintf("$%.2f", res.TotalIncome))
	_, _ = fmt.Fprintf(w, "Taxable income:\t%s\n", money.Sprintf("$%.2f", res.TaxableIncome))
	_, _ = fmt.Fprintf(w, "Federal tax:\t%s\n", money.Sprintf("$%.2f", res.FederalTax))
	_, _ = fmt.Fprintf(w, "Provincial tax:\t%s\n", money.Sprintf("$%.2f", res.ProvincialTax))
	if res.ProvincialSurtax > 0 {
		_, _ = fmt.Fprintf(w, "Provincial surtax:\t%s\n", money.Sprintf("$%.2f", res.ProvincialSurtax))
	}
	_, _ = fmt.Fprintf(w, "CPP/QPP:\t%s\n", money.Sprintf("$%.2f", res.CPPContribution))
	_, _ = fmt.Fprintf(w, "EI:\t%s\n", money.Sprintf("$%.2f", res.EIContribution))
	if res.TotalClawbacks > 0 {
		_, _ = fmt.Fprintf(w, "Clawbacks:\t%s\n", money.Sprintf("$%.2f", res.TotalClawbacks))
	}
	_, _ = fmt.Fprintf(w, "Total payable:\t%s\n", money.Sprintf("$%.2f", res.TotalPayable))
	_, _ = fmt.Fprintf(w, "After-tax income:\t%s\n", money.Sprintf("$%.2f", res.NetIncomeAfterTax))
	_, _ = fmt.Fprintf(w, "Average rate:\t%.2f%%\n", res.AverageTaxRate)
	_, _ = fmt.Fprintf(w, "Marginal rate:\t%.2f%%\n", res.MarginalTaxRate)
	_ = w.Flush()
}
