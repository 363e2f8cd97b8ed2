package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smukkama/aqi-forecaster/internal/protocol"
)

type published struct {
	key   string
	value []byte
}

type fakePublisher struct {
	messages []published
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, key string, value []byte) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, published{key, value})
	return nil
}

func TestKafkaNotifier_Notify(t *testing.T) {
	pub := &fakePublisher{}
	n := NewKafkaNotifier(pub, nil)

	require.NoError(t, n.Notify(context.Background(), "a@example.com", "subject", "body"))
	require.Len(t, pub.messages, 1)
	assert.Equal(t, "a@example.com", pub.messages[0].key)

	msg, err := protocol.DecodeAlertNotification(pub.messages[0].value)
	require.NoError(t, err)
	assert.Equal(t, "subject", msg.Subject)
	assert.Equal(t, "body", msg.Body)
}

func TestKafkaNotifier_PublishError(t *testing.T) {
	n := NewKafkaNotifier(&fakePublisher{err: errors.New("broker down")}, nil)
	assert.Error(t, n.Notify(context.Background(), "a@example.com", "subject", "body"))
}
