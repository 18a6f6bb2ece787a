package cmd

import (
	"fmt"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"

	"db-sync/internal/seed"
)

var (
	seedCount int
	seedSide  string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill an endpoint with random data for testing",
	Long: `Generates fake rows in foreign-key dependency order so child tables can
reference keys already inserted into their parents. Useful for exercising a
sync against realistic volumes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedSide != "source" && seedSide != "target" {
			return fmt.Errorf("invalid --side %q (want source or target)", seedSide)
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		db, d, meta := s.SourceDB(), s.SourceDialect(), s.SourceMeta()
		if seedSide == "target" {
			db, d, meta = s.TargetDB(), s.TargetDialect(), s.TargetMeta()
		}

		fmt.Printf("Seeding %s: %d rows per table across %d tables\n", seedSide, seedCount, len(meta))
		start := time.Now()

		uiprogress.Start()
		bar := uiprogress.AddBar(seedCount * len(meta)).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return "Seeding: "
		})

		results := seed.Run(db, d, meta, seedCount, logger, func() {
			bar.Incr()
		})

		uiprogress.Stop()

		fmt.Println("\nSummary Report (Dependency Order):")
		total := 0
		for i, r := range results {
			icon := "✓"
			if r.Err != nil || r.Inserted < r.Requested {
				icon = "!"
			}
			fmt.Printf("[%s] [%02d/%02d] %-24s : %d rows (Target: %d)\n",
				icon, i+1, len(results), r.Table, r.Inserted, r.Requested)
			if r.Err != nil {
				fmt.Printf("    └ Error: %v\n", r.Err)
			}
			total += r.Inserted
		}
		fmt.Println("--------------------------------------------------")
		fmt.Printf("Total Rows: %d. Time Elapsed: %s\n", total, time.Since(start))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(seedCmd)

	seedCmd.Flags().IntVar(&seedCount, "count", 100, "Number of rows to generate per table")
	seedCmd.Flags().StringVar(&seedSide, "side", "source", "Which endpoint to seed: source or target")
}
