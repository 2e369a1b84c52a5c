package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/maplecrest-planning/taxplan-cli/internal/model"
	"github.com/maplecrest-planning/taxplan-cli/internal/rates"
	"github.com/maplecrest-planning/taxplan-cli/internal/scenario"
)

var (
	exportInput        string
	exportJurisdiction string
	exportOutput       string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a scenario comparison workbook",
	Long:  "Evaluates the optimization scenarios and the marginal rate set for a profile and writes both to an xlsx workbook.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := buildProfile(exportInput, exportJurisdiction)
		if err != nil {
			return err
		}

		o, err := initOracle()
		if err != nil {
			return err
		}

		set, err := scenario.New(o, scenarioConfig(cfg.Scenario)).Optimize(ctx, p)
		if err != nil {
			return eris.Wrap(err, "optimize")
		}
		rateSet, err := rates.New(o, ratesConfig(cfg.Rates)).Rates(ctx, p)
		if err != nil {
			return eris.Wrap(err, "rates")
		}

		if err := writeWorkbook(exportOutput, set, rateSet); err != nil {
			return err
		}

		zap.L().Info("workbook written",
			zap.String("path", exportOutput),
			zap.String("jurisdiction", string(p.Jurisdiction)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportInput, "input", "-", "profile input JSON file (- for stdin)")
	exportCmd.Flags().StringVar(&exportJurisdiction, "jurisdiction", "", "override the input document's province code")
	exportCmd.Flags().StringVar(&exportOutput, "output", "taxplan.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}

func writeWorkbook(path string, set *model.ScenarioSet, rateSet *model.MarginalRateSet) error {
	f := xlsx.NewFile()

	scenarios, err := f.AddSheet("Scenarios")
	if err != nil {
		return eris.Wrap(err, "export: add scenarios sheet")
	}
	header := scenarios.AddRow()
	for _, h := range []string{"Scenario", "Total Income", "Taxable Income", "Total Payable", "After-Tax Income", "Average Rate %", "Saving vs Current"} {
		header.AddCell().SetString(h)
	}

	current, _ := set.Get(model.ScenarioCurrent)
	for _, name := range model.ScenarioNames {
		sc, ok := set.Get(name)
		if !ok {
			continue
		}
		row := scenarios.AddRow()
		row.AddCell().SetString(string(name))
		row.AddCell().SetFloat(sc.Result.TotalIncome)
		row.AddCell().SetFloat(sc.Result.TaxableIncome)
		row.AddCell().SetFloat(sc.Result.TotalPayable)
		row.AddCell().SetFloat(sc.Result.NetIncomeAfterTax)
		row.AddCell().SetFloat(sc.Result.AverageTaxRate)
		row.AddCell().SetFloat(current.Result.TotalPayable - sc.Result.TotalPayable)
	}

	ratesSheet, err := f.AddSheet("Marginal Rates")
	if err != nil {
		return eris.Wrap(err, "export: add rates sheet")
	}
	rheader := ratesSheet.AddRow()
	rheader.AddCell().SetString("Category")
	rheader.AddCell().SetString("Rate %")

	for _, entry := range []struct {
		label string
		rate  float64
	}{
		{"Ordinary income", rateSet.Ordinary},
		{"Capital gains", rateSet.CapitalGains},
		{"Eligible dividends", rateSet.EligibleDividends},
		{"Non-eligible dividends", rateSet.NonEligibleDividends},
		{"OAS-adjusted ordinary", rateSet.OASAdjusted},
	} {
		row := ratesSheet.AddRow()
		row.AddCell().SetString(entry.label)
		row.AddCell().SetFloat(entry.rate)
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}
