package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var applyDryRun bool

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply additive schema changes to the target",
	Long: `Diffs the schemas and applies the additive changes (new tables, columns,
constraints, indexes) to the target. Nothing is ever dropped or narrowed;
structure that exists only in the target is reported but left alone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		plan := s.Analyze()
		printPlan(plan)
		if plan.Empty() {
			return nil
		}

		if applyDryRun {
			fmt.Println("\nDry-run mode: no changes were applied.")
			return nil
		}

		results := s.ApplySafeChanges(plan)

		applied, failed := 0, 0
		fmt.Println("\nApplied:")
		for _, r := range results {
			if r.Err != nil {
				failed++
				fmt.Printf("  [!] %s\n      └ %v\n", r.Statement, r.Err)
				continue
			}
			applied++
			fmt.Printf("  [✓] %s\n", r.Statement)
		}
		fmt.Println("--------------------------------------------------")
		fmt.Printf("%d applied, %d failed\n", applied, failed)

		// Re-introspect so a follow-up diff sees what actually stuck.
		if err := s.RefreshTarget(); err != nil {
			return err
		}
		if remaining := s.Analyze(); !remaining.Empty() {
			fmt.Println("\nSome differences remain; run 'diff' for details.")
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(applyCmd)

	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Show the plan without writing to the target")
}
