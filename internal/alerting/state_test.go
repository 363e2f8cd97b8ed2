package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smukkama/aqi-forecaster/internal/aqi"
)

func newTestActiveAlerts(t *testing.T, ttl time.Duration) (*ActiveAlerts, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewActiveAlerts(client, ttl), mr
}

func TestActiveAlerts_RecordAndList(t *testing.T) {
	a, _ := newTestActiveAlerts(t, time.Hour)
	ctx := context.Background()

	later := TriggeredAlert{ID: "a-2", SubscriptionID: "s-2", UserID: "u-1", Region: "Delhi", Pollutant: "O3",
		Date: year(2026), Value: 170, Category: aqi.CategoryUnhealthy, Threshold: aqi.CategoryModerate}
	earlier := TriggeredAlert{ID: "a-1", SubscriptionID: "s-1", UserID: "u-1", Region: "Delhi", Pollutant: "NO2",
		Date: year(2025), Value: 90, Category: aqi.CategoryUnhealthy, Threshold: aqi.CategoryUnhealthy}

	require.NoError(t, a.Record(ctx, later))
	require.NoError(t, a.Record(ctx, earlier))
	require.NoError(t, a.Record(ctx, TriggeredAlert{ID: "a-3", SubscriptionID: "s-3", UserID: "u-2", Date: year(2025)}))

	alerts, err := a.ListForUser(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "a-1", alerts[0].ID)
	assert.Equal(t, aqi.CategoryUnhealthy, alerts[0].Category)
	assert.Equal(t, "a-2", alerts[1].ID)
	assert.True(t, alerts[1].Date.Equal(year(2026)))
}

func TestActiveAlerts_ReplacesSameSubscription(t *testing.T) {
	a, _ := newTestActiveAlerts(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, a.Record(ctx, TriggeredAlert{ID: "old", SubscriptionID: "s-1", UserID: "u-1", Category: aqi.CategoryModerate, Threshold: aqi.CategoryModerate}))
	require.NoError(t, a.Record(ctx, TriggeredAlert{ID: "new", SubscriptionID: "s-1", UserID: "u-1", Category: aqi.CategoryUnhealthy, Threshold: aqi.CategoryModerate}))

	alerts, err := a.ListForUser(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "new", alerts[0].ID)
}

func TestActiveAlerts_Expire(t *testing.T) {
	a, mr := newTestActiveAlerts(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, a.Record(ctx, TriggeredAlert{ID: "a-1", SubscriptionID: "s-1", UserID: "u-1", Category: aqi.CategoryGood, Threshold: aqi.CategoryGood}))
	mr.FastForward(2 * time.Hour)

	alerts, err := a.ListForUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestActiveAlerts_DismissAndClear(t *testing.T) {
	a, _ := newTestActiveAlerts(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, a.Record(ctx, TriggeredAlert{ID: "a-1", SubscriptionID: "s-1", UserID: "u-1", Category: aqi.CategoryGood, Threshold: aqi.CategoryGood}))
	require.NoError(t, a.Record(ctx, TriggeredAlert{ID: "a-2", SubscriptionID: "s-2", UserID: "u-1", Category: aqi.CategoryGood, Threshold: aqi.CategoryGood}))

	require.NoError(t, a.Dismiss(ctx, "u-1", "s-1"))
	alerts, err := a.ListForUser(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "a-2", alerts[0].ID)

	require.NoError(t, a.Clear(ctx, "u-1"))
	alerts, err = a.ListForUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestActiveAlerts_RequiresSubscriptionID(t *testing.T) {
	a, mr := newTestActiveAlerts(t, time.Hour)
	ctx := context.Background()

	err := a.Record(ctx, TriggeredAlert{ID: "a-1", UserID: "u-1", Category: aqi.CategoryGood, Threshold: aqi.CategoryGood})
	assert.Error(t, err)
	assert.False(t, mr.Exists(activeAlertsKey("u-1")))
}
