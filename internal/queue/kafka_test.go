package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smukkama/aqi-forecaster/internal/protocol"
)

// fakeReader serves queued messages, then cancels the consumer's context
type fakeReader struct {
	messages  []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.messages) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func encoded(t *testing.T, email string) []byte {
	t.Helper()
	data, err := protocol.EncodeAlertNotification(protocol.NewAlertNotification(email, "subject", "body"))
	require.NoError(t, err)
	return data
}

func TestConsumer_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{
		cancel: cancel,
		messages: []kafka.Message{
			{Offset: 1, Value: encoded(t, "ok@example.com")},
			{Offset: 2, Value: []byte("not json")},
			{Offset: 3, Value: encoded(t, "bounce@example.com")},
			{Offset: 4, Value: encoded(t, "ok2@example.com")},
		},
	}

	var delivered []string
	err := newConsumer(reader, nil).Run(ctx, func(_ context.Context, n *protocol.AlertNotification) error {
		if n.Email == "bounce@example.com" {
			return errors.New("mailbox unavailable")
		}
		delivered = append(delivered, n.Email)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"ok@example.com", "ok2@example.com"}, delivered)
	// the failed delivery is left uncommitted
	assert.Equal(t, []int64{1, 2, 4}, reader.committed)
}
