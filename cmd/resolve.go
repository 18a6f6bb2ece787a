package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"db-sync/internal/engine"
)

var (
	resolveSets    []string
	resolveDefault string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Re-sync with per-row conflict strategies",
	Long: `Replays the data sync with row-targeted strategies. Each --set takes the
form table:key=strategy, where key is the primary key value as printed by
'conflicts' (composite values joined by commas):

  db-sync resolve --set users:42=overwrite --set users:7=merge

Rows without an override use --default.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := engine.ParseStrategy(resolveDefault)
		if err != nil {
			return err
		}

		overrides := make(map[string]engine.Strategy, len(resolveSets))
		for _, set := range resolveSets {
			addr, val, ok := strings.Cut(set, "=")
			if !ok || !strings.Contains(addr, ":") {
				return fmt.Errorf("invalid --set %q (want table:key=strategy)", set)
			}
			strategy, err := engine.ParseStrategy(val)
			if err != nil {
				return fmt.Errorf("invalid --set %q: %w", set, err)
			}
			overrides[addr] = strategy
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		fmt.Printf("Resolving with %d overrides (default=%s)\n", len(overrides), def)
		start := time.Now()

		outcomes := s.ResolveConflicts(overrides, def)
		printOutcomes(outcomes, time.Since(start))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringArrayVar(&resolveSets, "set", nil, "Per-row strategy, table:key=strategy (repeatable)")
	resolveCmd.Flags().StringVar(&resolveDefault, "default", string(engine.StrategySkip), "Strategy for rows without an override")
}
