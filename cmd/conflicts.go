package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Report rows whose shared columns disagree between endpoints",
	Long: `Read-only inspection: for every table present on both endpoints, lists
the primary keys whose rows differ — different column values, or a row that
exists on one side only (the absent side prints as NULL). Use the printed
table:key addresses with 'resolve --set'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		report, err := s.ConflictReport()
		if err != nil {
			return err
		}
		if len(report) == 0 {
			fmt.Println("No row-level conflicts found.")
			return nil
		}

		names := make([]string, 0, len(report))
		for n := range report {
			names = append(names, n)
		}
		sort.Strings(names)

		total := 0
		for _, name := range names {
			records := report[name]
			fmt.Printf("\n%s (%d conflicting rows):\n", name, len(records))
			for _, r := range records {
				fmt.Printf("  key %s:%s\n", r.Table, r.KeyString())

				cols := make([]string, 0, len(r.Columns))
				for c := range r.Columns {
					cols = append(cols, c)
				}
				sort.Strings(cols)
				for _, c := range cols {
					pair := r.Columns[c]
					fmt.Printf("    %-20s source=%s target=%s\n", c, renderSide(pair.Source), renderSide(pair.Target))
				}
			}
			total += len(records)
		}
		fmt.Println("--------------------------------------------------")
		fmt.Printf("%d conflicting rows across %d tables\n", total, len(report))
		return nil
	},
}

func renderSide(v *string) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%q", *v)
}

func init() {
	RootCmd.AddCommand(conflictsCmd)
}
