package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smukkama/aqi-forecaster/internal/forecast"
	"github.com/smukkama/aqi-forecaster/internal/metrics"
	"github.com/smukkama/aqi-forecaster/internal/training"
)

var trainReq training.TrainRequest

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train and register a model",
	Long: `Train a model on every dataset registered for the region:
- the series is resampled to the requested frequency
- MAE/RMSE are computed on the trailing holdout
- the model is refitted on the full series and registered`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().StringVar(&trainReq.Region, "region", "", "region name")
	trainCmd.Flags().StringVar(&trainReq.Pollutant, "pollutant", "", "pollutant (no2_conc, O3, pollution, ...)")
	trainCmd.Flags().StringVar(&trainReq.Frequency, "frequency", "daily", "daily, weekly, monthly or yearly")
	trainCmd.Flags().IntVar(&trainReq.Periods, "periods", 7, "preview forecast length")
	trainCmd.Flags().BoolVar(&trainReq.Overwrite, "overwrite", false, "replace existing models for the key")
	_ = trainCmd.MarkFlagRequired("region")
	_ = trainCmd.MarkFlagRequired("pollutant")
}

func runTrain(cmd *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	m := metrics.New(metrics.Registry)
	pipeline := forecast.NewPipeline(db, cfg.Forecast, zl.Named("forecast"), m)
	trainer := training.NewTrainer(db, db, os.DirFS(cfg.Training.DatasetDir), pipeline,
		cfg.Training.HoldoutRatio, zl.Named("training"), m)

	res, err := trainer.Train(cmd.Context(), trainReq)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rec := res.Model
	fmt.Fprintf(out, "Model %s trained for %s - %s (%s)\n", rec.ID, rec.Region, rec.Pollutant, rec.Frequency)
	fmt.Fprintf(out, "Trained until: %s\n", rec.TrainedUntil.Format("2006-01-02"))
	if rec.MAE != nil {
		fmt.Fprintf(out, "MAE: %.3f  RMSE: %.3f  (test samples: %d)\n", *rec.MAE, *rec.RMSE, res.TestSamples)
	} else {
		fmt.Fprintln(out, "Metrics skipped: empty test set")
	}
	for _, r := range forecast.Records(res.Preview) {
		fmt.Fprintf(out, "  %s  %8.2f  %s\n", r.Timestamp, r.PredictedValue, r.Category)
	}
	return nil
}
