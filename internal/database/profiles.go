package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/smukkama/aqi-forecaster/internal/aqi"
)

// GetProfile returns the user's health profile, or nil when none is stored
func (db *DB) GetProfile(ctx context.Context, userID string) (*aqi.HealthProfile, error) {
	query := `
		SELECT has_asthma, has_heart_disease, is_smoker, has_diabetes, has_lung_disease
		FROM profiles
		WHERE user_id = $1
	`

	var profile aqi.HealthProfile
	err := db.GetContext(ctx, &profile, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

// UpsertProfile stores the user's health profile
func (db *DB) UpsertProfile(ctx context.Context, userID string, p *aqi.HealthProfile) error {
	query := `
		INSERT INTO profiles (user_id, has_asthma, has_heart_disease, is_smoker, has_diabetes, has_lung_disease)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET has_asthma = EXCLUDED.has_asthma,
		    has_heart_disease = EXCLUDED.has_heart_disease,
		    is_smoker = EXCLUDED.is_smoker,
		    has_diabetes = EXCLUDED.has_diabetes,
		    has_lung_disease = EXCLUDED.has_lung_disease,
		    updated_at = NOW()
	`

	_, err := db.ExecContext(ctx, query,
		userID, p.HasAsthma, p.HasHeartDisease, p.IsSmoker, p.HasDiabetes, p.HasLungDisease)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}
