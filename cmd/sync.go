package cmd

import (
	"fmt"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"db-sync/internal/engine"
)

var (
	syncStrategy string
	syncBatch    int
	extendSchema bool
	applyFirst   bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy row data from source to target in dependency order",
	Long: `Streams every source table's rows into the target, parents before
children. Rows missing from the target are inserted; rows present on both
sides follow the chosen strategy:

  skip       leave existing target rows untouched (default)
  overwrite  replace non-key columns with source values
  merge      fill only target columns that are null or empty

Tables in a foreign-key cycle are loaded last with constraint enforcement
suspended. Auto-increment sequences are realigned afterward.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, err := engine.ParseStrategy(viper.GetString("settings.strategy"))
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		if applyFirst {
			results := s.ApplySafeChanges(s.Analyze())
			for _, r := range results {
				if r.Err != nil {
					fmt.Printf("  [!] %s\n      └ %v\n", r.Statement, r.Err)
				}
			}
			if err := s.RefreshTarget(); err != nil {
				return err
			}
		}

		fmt.Printf("Syncing %d tables (strategy=%s)\n", len(s.SourceMeta()), strategy)
		start := time.Now()

		// Size the bar by the real source volume so it does not saturate.
		total := int(s.SourceRowCount())
		if total < 1 {
			total = 1
		}

		uiprogress.Start()
		bar := uiprogress.AddBar(total).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return "Syncing: "
		})

		outcomes := s.BulkSync(engine.SyncOptions{
			Strategy:     strategy,
			BatchSize:    viper.GetInt("settings.batch_size"),
			ExtendSchema: extendSchema,
			OnRow: func() {
				bar.Incr()
			},
		})

		uiprogress.Stop()

		printOutcomes(outcomes, time.Since(start))
		return nil
	},
}

func printOutcomes(outcomes []engine.TableOutcome, elapsed time.Duration) {
	fmt.Println("\nSummary Report (Dependency Order):")
	var inserted, updated, skipped int
	for i, o := range outcomes {
		icon := "✓"
		note := ""
		if o.Err != nil {
			icon = "!"
			note = " - ABORTED"
		} else if o.Cyclic {
			note = " - cyclic"
		}
		fmt.Printf("[%s] [%02d/%02d] %-24s : %d inserted, %d updated, %d skipped%s\n",
			icon, i+1, len(outcomes), o.Table, o.Inserted, o.Updated, o.Skipped, note)
		if o.Err != nil {
			fmt.Printf("    └ Error: %v\n", o.Err)
		}
		inserted += o.Inserted
		updated += o.Updated
		skipped += o.Skipped
	}
	fmt.Println("--------------------------------------------------")
	fmt.Printf("Total: %d inserted, %d updated, %d skipped. Time Elapsed: %s\n",
		inserted, updated, skipped, elapsed)
}

func init() {
	RootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVar(&syncStrategy, "strategy", string(engine.StrategySkip), "Conflict strategy: skip, overwrite or merge")
	syncCmd.Flags().IntVar(&syncBatch, "batch-size", engine.DefaultBatchSize, "Source read batch size")
	syncCmd.Flags().BoolVar(&extendSchema, "extend-schema", false, "Auto-create source-only columns on the target before copying")
	syncCmd.Flags().BoolVar(&applyFirst, "apply", false, "Apply additive schema changes before syncing data")

	viper.BindPFlag("settings.strategy", syncCmd.Flags().Lookup("strategy"))
	viper.BindPFlag("settings.batch_size", syncCmd.Flags().Lookup("batch-size"))
}
