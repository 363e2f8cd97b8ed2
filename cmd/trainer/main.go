// Command trainer manages datasets and trained forecast models.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/database"
	"github.com/smukkama/aqi-forecaster/internal/logger"
	"github.com/smukkama/aqi-forecaster/pkg/config"
)

var (
	cfg *config.Config
	zl  *zap.Logger

	rootCmd = &cobra.Command{
		Use:   "trainer",
		Short: "Train and register AQI forecast models",
		Long: `Offline model management:
- datasets: register and list uploaded measurement files
- train: fit, evaluate and register a model for a region and pollutant
- models: list and delete registered models`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if zl, err = logger.New(cfg.Log.Level, cfg.Log.Format); err != nil {
				return err
			}
			return nil
		},
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDB() (*database.DB, error) {
	db, err := database.Connect(cfg.Database.ConnectionString(), zl)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
