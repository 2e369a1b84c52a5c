package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/maplecrest-planning/taxplan-cli/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the line-code catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every canonical attribute and its source codes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cat, err := catalog.Load()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "Catalog version:\t%s\n\n", cat.Version)
		_, _ = fmt.Fprintln(w, "ATTRIBUTE\tKIND\tCOMBINE\tCODES")
		_, _ = fmt.Fprintln(w, "---------\t----\t-------\t-----")

		printSection := func(kind string, m map[string]catalog.Mapping) {
			attrs := make([]string, 0, len(m))
			for attr := range m {
				attrs = append(attrs, attr)
			}
			sort.Strings(attrs)
			for _, attr := range attrs {
				mapping := m[attr]
				codes := "-"
				if len(mapping.Codes) > 0 {
					codes = fmt.Sprint(mapping.Codes)
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", attr, kind, mapping.Combine, codes)
			}
		}
		printSection("income", cat.Income)
		printSection("deduction", cat.Deductions)
		return w.Flush()
	},
}

var catalogCheckCmd = &cobra.Command{
	Use:   "check [input.json]",
	Short: "Validate the catalog and flag unmapped codes in an input document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load()
		if err != nil {
			return eris.Wrap(err, "catalog check")
		}
		fmt.Printf("Catalog %s: OK\n", cat.Version)

		if len(args) == 0 {
			return nil
		}

		in, err := loadInput(args[0])
		if err != nil {
			return err
		}
		var unmapped int
		for _, f := range in.Fields {
			if !cat.Known(f.Code) {
				fmt.Printf("  unmapped line %s (value %.2f)\n", f.Code, f.Value)
				unmapped++
			}
		}
		if unmapped == 0 {
			fmt.Printf("All %d reported lines map to catalog attributes.\n", len(in.Fields))
		} else {
			fmt.Printf("%d of %d reported lines are not modeled and will be ignored.\n", unmapped, len(in.Fields))
		}
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogCheckCmd)
	rootCmd.AddCommand(catalogCmd)
}
