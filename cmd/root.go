package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	verbose bool
	logger  *zap.Logger
)

var RootCmd = &cobra.Command{
	Use:   "db-sync",
	Short: "Cross-database schema reconciliation and data synchronization",
	Long: `
  ____  ____    ______   ___   _  ____
 |  _ \| __ )  / ___\ \ / / \ | |/ ___|
 | | | |  _ \  \___ \\ V /|  \| | |
 | |_| | |_) |  ___) || | | |\  | |___
 |____/|____/  |____/ |_| |_| \_|\____|

DB SYNC - Schema Reconciliation & Data Synchronizer

Compares a source and a target database (possibly on different engines),
applies additive schema changes to the target, and copies row data with
per-row conflict strategies.
`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			cfg := zap.NewProductionConfig()
			cfg.Encoding = "console"
			cfg.DisableCaller = true
			logger, err = cfg.Build()
		}
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./db-sync.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	RootCmd.PersistentFlags().String("source-dsn", "", "source Database Source Name (DSN)")
	RootCmd.PersistentFlags().String("source-driver", "", "source driver (postgres, mysql, sqlserver, oracle)")
	RootCmd.PersistentFlags().String("target-dsn", "", "target Database Source Name (DSN)")
	RootCmd.PersistentFlags().String("target-driver", "", "target driver (postgres, mysql, sqlserver, oracle)")

	viper.BindPFlag("source.dsn", RootCmd.PersistentFlags().Lookup("source-dsn"))
	viper.BindPFlag("source.driver", RootCmd.PersistentFlags().Lookup("source-driver"))
	viper.BindPFlag("target.dsn", RootCmd.PersistentFlags().Lookup("target-dsn"))
	viper.BindPFlag("target.driver", RootCmd.PersistentFlags().Lookup("target-driver"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if ex, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}
		viper.AddConfigPath(".")

		viper.SetConfigName("db-sync")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
