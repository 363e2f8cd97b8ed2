package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertNotification_RoundTrip(t *testing.T) {
	n := NewAlertNotification("a@example.com", "[AQI Alert] NO2 forecast for Delhi", "Region: Delhi")

	data, err := EncodeAlertNotification(n)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"aqi_alert"`)

	decoded, err := DecodeAlertNotification(data)
	require.NoError(t, err)
	assert.Equal(t, n.Email, decoded.Email)
	assert.Equal(t, n.Subject, decoded.Subject)
	assert.Equal(t, n.Body, decoded.Body)
	assert.True(t, n.CreatedAt.Equal(decoded.CreatedAt))
}

func TestDecodeAlertNotification_Invalid(t *testing.T) {
	_, err := DecodeAlertNotification([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeAlertNotification([]byte(`{"type":"metrics","email":"a@example.com"}`))
	assert.Error(t, err)

	_, err = DecodeAlertNotification([]byte(`{"type":"aqi_alert"}`))
	assert.Error(t, err)
}
