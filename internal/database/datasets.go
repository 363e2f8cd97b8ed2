package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CreateDataset registers an uploaded dataset file
func (db *DB) CreateDataset(ctx context.Context, ds *Dataset) error {
	if ds.ID == "" {
		ds.ID = uuid.NewString()
	}

	query := `
		INSERT INTO datasets (id, region, year, filename)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	if err := db.QueryRowxContext(ctx, query, ds.ID, ds.Region, ds.Year, ds.Filename).Scan(&ds.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert dataset: %w", err)
	}
	return nil
}

// ListDatasets returns the region's datasets, oldest year first
func (db *DB) ListDatasets(ctx context.Context, region string) ([]Dataset, error) {
	query := `
		SELECT id, region, year, filename, created_at
		FROM datasets
		WHERE region = $1
		ORDER BY year, created_at
	`

	var datasets []Dataset
	if err := db.SelectContext(ctx, &datasets, query, region); err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return datasets, nil
}

// ListDatasetsByYear returns every region's datasets for one year
func (db *DB) ListDatasetsByYear(ctx context.Context, year int) ([]Dataset, error) {
	query := `
		SELECT id, region, year, filename, created_at
		FROM datasets
		WHERE year = $1
		ORDER BY region, created_at
	`

	var datasets []Dataset
	if err := db.SelectContext(ctx, &datasets, query, year); err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return datasets, nil
}
