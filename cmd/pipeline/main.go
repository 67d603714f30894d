package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"demand-forecast-engine/config"
	"demand-forecast-engine/dashboard"
	"demand-forecast-engine/dataset"
	"demand-forecast-engine/forecast"
	"demand-forecast-engine/metrics"
	"demand-forecast-engine/preprocess"
	"demand-forecast-engine/storage"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Retail demand forecast batch pipeline",
		Long: `Batch entry points of the demand forecast engine. The scheduler runs
preprocess followed by forecast; report renders the monitoring view.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.json", "path to configuration file")

	rootCmd.AddCommand(newPreprocessCmd())
	rootCmd.AddCommand(newForecastCmd())
	rootCmd.AddCommand(newReportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (*config.Config, storage.TableStore, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	store, err := newTableStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

// pushMetrics delivers the run's counters to the configured gateway. A
// failed push is logged, never fatal: the logrus run summary stays the
// authoritative batch signal.
func pushMetrics(cfg *config.Config) {
	if cfg.Metrics.PushgatewayURL == "" {
		return
	}
	if err := metrics.PushBatch(cfg.Metrics.PushgatewayURL, "forecast_pipeline"); err != nil {
		logrus.WithError(err).Warn("failed to push pipeline metrics")
	}
}

func newTableStore(cfg *config.Config) (storage.TableStore, error) {
	switch cfg.Storage.Provider {
	case "redis":
		return storage.NewRedisStore(
			cfg.Storage.Redis.Addr,
			cfg.Storage.Redis.Password,
			cfg.Storage.Redis.DB,
			cfg.Storage.Redis.DialTimeout.Duration,
		)
	default:
		return storage.NewFilesystemStore(cfg.Storage.DataPath)
	}
}

// newPreprocessCmd builds the merged table from the three raw feeds.
// Any parse or join failure aborts with no output written.
func newPreprocessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preprocess",
		Short: "Merge raw sales, feature, and store feeds into the merged table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := setup()
			if err != nil {
				return err
			}

			merger := preprocess.NewMerger(store, cfg.Pipeline.AssertUniqueStoreKeys)
			if _, err := merger.Run(context.Background(),
				cfg.Pipeline.SalesPath,
				cfg.Pipeline.FeaturesPath,
				cfg.Pipeline.StoresPath,
			); err != nil {
				logrus.WithError(err).Error("preprocessing failed")
				return err
			}

			pushMetrics(cfg)
			return nil
		},
	}
}

// newForecastCmd fits one model per store and writes the forecast table.
// Stores that fail are reported individually; the partial table is still
// written and the command exits non-zero.
func newForecastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forecast",
		Short: "Fit per-store models and write the forecast table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := setup()
			if err != nil {
				return err
			}

			newModel, err := forecast.ModelFactory(cfg.Pipeline.Model)
			if err != nil {
				return err
			}
			generator, err := forecast.NewGenerator(store, newModel, cfg.Pipeline.HorizonPeriods, cfg.Pipeline.Workers)
			if err != nil {
				return err
			}

			result, err := generator.Run(context.Background())
			if err != nil {
				logrus.WithError(err).Error("forecasting failed")
				return err
			}

			// Counters cover partial runs too, so push before deciding
			// the exit status
			pushMetrics(cfg)

			if len(result.Failures) > 0 {
				for _, failure := range result.Failures {
					logrus.WithFields(logrus.Fields{
						"store": failure.Store,
					}).WithError(failure.Err).Error("store forecast failed")
				}
				return fmt.Errorf("%d store(s) failed to forecast", len(result.Failures))
			}
			return nil
		},
	}
}

// newReportCmd renders the monitoring view to a static HTML file
func newReportCmd() *cobra.Command {
	var selectedStore int
	var outPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the forecast accuracy report to HTML",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := setup()
			if err != nil {
				return err
			}

			merged, forecasts, err := loadTables(context.Background(), store)
			if err != nil {
				return err
			}

			report := dashboard.NewReport(merged, forecasts)
			if err := report.RenderFile(outPath, selectedStore); err != nil {
				return err
			}

			logrus.WithFields(logrus.Fields{
				"out":   outPath,
				"store": selectedStore,
			}).Info("report written")
			return nil
		},
	}

	cmd.Flags().IntVar(&selectedStore, "store", 1, "store id for the actual-vs-forecast chart")
	cmd.Flags().StringVar(&outPath, "out", "report.html", "output HTML path")
	return cmd
}

// loadTables reads the merged and forecast tables for the report. An
// absent table is an empty one: before the first forecast run the
// report still renders, with empty forecast series.
func loadTables(ctx context.Context, store storage.TableStore) ([]dataset.MergedRow, []dataset.ForecastRow, error) {
	var merged []dataset.MergedRow
	data, err := store.Get(ctx, storage.MergedTable)
	switch {
	case errors.Is(err, storage.ErrTableNotFound):
	case err != nil:
		return nil, nil, err
	default:
		if merged, err = dataset.DecodeMerged(data); err != nil {
			return nil, nil, err
		}
	}

	var forecasts []dataset.ForecastRow
	data, err = store.Get(ctx, storage.ForecastTable)
	switch {
	case errors.Is(err, storage.ErrTableNotFound):
	case err != nil:
		return nil, nil, err
	default:
		if forecasts, err = dataset.DecodeForecast(data); err != nil {
			return nil, nil, err
		}
	}

	return merged, forecasts, nil
}
