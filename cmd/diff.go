package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"db-sync/internal/diff"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare source and target schemas without touching either",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		plan := s.Analyze()
		printPlan(plan)
		return nil
	},
}

func printPlan(plan *diff.Plan) {
	if plan.Empty() && len(plan.Warnings) == 0 {
		fmt.Println("Schemas are structurally aligned. Nothing to do.")
		return
	}

	fmt.Println("Proposed additive changes:")
	for _, ct := range plan.CreateTables {
		fmt.Printf("  + CREATE TABLE %s\n", ct.Table)
	}
	for _, ac := range plan.AddColumns {
		fmt.Printf("  + ADD COLUMN   %s.%s (%s)\n", ac.Table, ac.Column.Name, ac.Column.Raw)
	}
	for _, fk := range plan.AddForeignKeys {
		fmt.Printf("  + ADD FK       %s (%s) -> %s (%s)\n",
			fk.Table, strings.Join(fk.Columns, ", "), fk.RefTable, strings.Join(fk.RefColumns, ", "))
	}
	for _, ix := range plan.AddIndexes {
		kind := "INDEX"
		if ix.Unique {
			kind = "UNIQUE INDEX"
		}
		fmt.Printf("  + ADD %-8s %s (%s)\n", kind, ix.Table, strings.Join(ix.Columns, ", "))
	}
	for _, u := range plan.AddUniques {
		fmt.Printf("  + ADD UNIQUE   %s (%s)\n", u.Table, strings.Join(u.Columns, ", "))
	}
	for _, ck := range plan.AddChecks {
		fmt.Printf("  + ADD CHECK    %s: %s\n", ck.Table, ck.Expr)
	}
	for _, sq := range plan.Sequences {
		fmt.Printf("  ~ RECONCILE    %s.%s (sequence realignment after sync)\n", sq.Table, sq.Column)
	}

	if len(plan.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range plan.Warnings {
			fmt.Printf("  [%s] %s\n", w.Level, w.Message)
		}
	}
}

func init() {
	RootCmd.AddCommand(diffCmd)
}
