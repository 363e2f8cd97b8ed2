package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActiveAlerts keeps the latest triggered alert per subscription in Redis.
// Each user's alerts live in one hash that expires ttl after the last write.
type ActiveAlerts struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewActiveAlerts creates a new active alert registry
func NewActiveAlerts(redisClient *redis.Client, ttl time.Duration) *ActiveAlerts {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &ActiveAlerts{redis: redisClient, ttl: ttl}
}

func activeAlertsKey(userID string) string {
	return fmt.Sprintf("active_alerts:%s", userID)
}

// Record stores alert, replacing any earlier alert of the same subscription.
// The subscription ID is the hash field Dismiss removes, so it is required.
func (a *ActiveAlerts) Record(ctx context.Context, alert TriggeredAlert) error {
	if alert.SubscriptionID == "" {
		return errors.New("alert has no subscription id")
	}
	key := activeAlertsKey(alert.UserID)

	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	_, err = a.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, alert.SubscriptionID, data)
		pipe.Expire(ctx, key, a.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store alert in Redis: %w", err)
	}
	return nil
}

// ListForUser returns the user's active alerts ordered by forecast date
func (a *ActiveAlerts) ListForUser(ctx context.Context, userID string) ([]TriggeredAlert, error) {
	entries, err := a.redis.HGetAll(ctx, activeAlertsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get alerts from Redis: %w", err)
	}

	alerts := make([]TriggeredAlert, 0, len(entries))
	for _, data := range entries {
		var alert TriggeredAlert
		if err := json.Unmarshal([]byte(data), &alert); err != nil {
			continue
		}
		alerts = append(alerts, alert)
	}

	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].Date.Equal(alerts[j].Date) {
			return alerts[i].SubscriptionID < alerts[j].SubscriptionID
		}
		return alerts[i].Date.Before(alerts[j].Date)
	})
	return alerts, nil
}

// Dismiss removes the alert of one subscription
func (a *ActiveAlerts) Dismiss(ctx context.Context, userID, subscriptionID string) error {
	return a.redis.HDel(ctx, activeAlertsKey(userID), subscriptionID).Err()
}

// Clear removes every active alert of the user
func (a *ActiveAlerts) Clear(ctx context.Context, userID string) error {
	return a.redis.Del(ctx, activeAlertsKey(userID)).Err()
}
