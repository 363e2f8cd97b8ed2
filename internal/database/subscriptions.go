package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CreateSubscription stores a new subscription. ID and CreatedAt are filled in.
func (db *DB) CreateSubscription(ctx context.Context, sub *Subscription) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}

	query := `
		INSERT INTO aqi_subscriptions (id, user_id, region, pollutant, threshold)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := db.QueryRowxContext(ctx, query,
		sub.ID, sub.UserID, sub.Region, sub.Pollutant, sub.Threshold,
	).Scan(&sub.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

// ListUserSubscriptions returns one user's subscriptions, newest first
func (db *DB) ListUserSubscriptions(ctx context.Context, userID string) ([]Subscription, error) {
	query := `
		SELECT a.id, a.user_id, u.email, a.region, a.pollutant, a.threshold, a.created_at
		FROM aqi_subscriptions a
		JOIN users u ON a.user_id = u.id
		WHERE a.user_id = $1
		ORDER BY a.created_at DESC
	`

	subs := []Subscription{}
	if err := db.SelectContext(ctx, &subs, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// ListSubscriptions returns every subscription joined with its owner's e-mail
func (db *DB) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	query := `
		SELECT a.id, a.user_id, u.email, a.region, a.pollutant, a.threshold, a.created_at
		FROM aqi_subscriptions a
		JOIN users u ON a.user_id = u.id
		ORDER BY a.created_at
	`

	var subs []Subscription
	if err := db.SelectContext(ctx, &subs, query); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// DeleteSubscription removes a subscription owned by userID
func (db *DB) DeleteSubscription(ctx context.Context, id, userID string) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM aqi_subscriptions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
