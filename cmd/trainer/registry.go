package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smukkama/aqi-forecaster/internal/database"
	"github.com/smukkama/aqi-forecaster/internal/training"
)

var (
	datasetsCmd = &cobra.Command{
		Use:   "datasets",
		Short: "Manage registered datasets",
	}
	datasetsAddCmd = &cobra.Command{
		Use:   "add <filename>",
		Short: "Register a CSV file from DATASET_DIR",
		Args:  cobra.ExactArgs(1),
		RunE:  runDatasetsAdd,
	}
	datasetsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List datasets of a region",
		RunE:  runDatasetsList,
	}

	modelsCmd = &cobra.Command{
		Use:   "models",
		Short: "Manage registered models",
	}
	modelsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered models",
		RunE:  runModelsList,
	}
	modelsDeleteCmd = &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a model",
		Args:  cobra.ExactArgs(1),
		RunE:  runModelsDelete,
	}

	region string
	year   int
)

func init() {
	rootCmd.AddCommand(datasetsCmd, modelsCmd)
	datasetsCmd.AddCommand(datasetsAddCmd, datasetsListCmd)
	modelsCmd.AddCommand(modelsListCmd, modelsDeleteCmd)

	datasetsCmd.PersistentFlags().StringVar(&region, "region", "", "region name")
	_ = datasetsCmd.MarkPersistentFlagRequired("region")
	datasetsAddCmd.Flags().IntVar(&year, "year", 0, "measurement year")
	_ = datasetsAddCmd.MarkFlagRequired("year")

	modelsListCmd.Flags().StringVar(&region, "region", "", "only list models of this region")
}

func runDatasetsAdd(cmd *cobra.Command, args []string) error {
	filename := args[0]

	// the file must parse before it is registered
	f, err := os.Open(filepath.Join(cfg.Training.DatasetDir, filename))
	if err != nil {
		return err
	}
	frame, err := training.ReadDataset(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("invalid dataset %s: %w", filename, err)
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ds := &database.Dataset{Region: region, Year: year, Filename: filename}
	if err := db.CreateDataset(cmd.Context(), ds); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Dataset %s registered (%d rows, %d pollutant columns)\n",
		ds.ID, frame.Len(), len(frame.Columns))
	return nil
}

func runDatasetsList(cmd *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	datasets, err := db.ListDatasets(cmd.Context(), region)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tYEAR\tFILENAME")
	for _, ds := range datasets {
		fmt.Fprintf(w, "%s\t%d\t%s\n", ds.ID, ds.Year, ds.Filename)
	}
	return w.Flush()
}

func runModelsList(cmd *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	models, err := db.ListModels(cmd.Context(), region)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tREGION\tPOLLUTANT\tFREQUENCY\tTRAINED UNTIL\tMAE\tRMSE")
	for _, m := range models {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.Region, m.Pollutant, m.Frequency,
			m.TrainedUntil.Format("2006-01-02"), metric(m.MAE), metric(m.RMSE))
	}
	return w.Flush()
}

func runModelsDelete(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteModel(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Model %s deleted\n", args[0])
	return nil
}

func metric(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *v)
}
