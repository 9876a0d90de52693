package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/entity-profile/internal/config"
	"github.com/danielpatrickdp/entity-profile/internal/logging"
)

// #region globals
var (
	configPath string
	dbOverride string

	cfg    config.Config
	logger *zap.Logger
)
// #endregion globals

// #region root
var rootCmd = &cobra.Command{
	Use:   "entityprofile",
	Short: "Entity profiles for high cardinality anomaly detectors",
	Long: `entityprofile reports the lifecycle state, init progress, activity and
model placement of a single entity of a high cardinality detector.

Run "serve" on every node that hosts entity models, "seed" to load detector,
job and result documents into the local store, and "profile" to query an entity.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if dbOverride != "" {
			cfg.DBPath = dbOverride
		}
		logger, err = logging.New(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbOverride, "db", "", "SQLite database path (overrides config)")

	rootCmd.AddCommand(serveCmd, profileCmd, seedCmd, inspectCmd)
}
// #endregion root

// #region main
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
// #endregion main
