package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/protocol"
	"github.com/smukkama/aqi-forecaster/pkg/config"
)

// Producer writes keyed messages to the alerts topic
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a synchronous producer. Messages with the same key
// (recipient) land on the same partition.
func NewProducer(cfg config.KafkaConfig) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.TopicAlerts,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			WriteTimeout:           10 * time.Second,
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish sends one message
func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler delivers one decoded notification
type Handler func(ctx context.Context, n *protocol.AlertNotification) error

// Consumer reads alert notifications with manual offset commits
type Consumer struct {
	reader messageReader
	logger *zap.Logger
}

// NewConsumer joins the configured consumer group on the alerts topic
func NewConsumer(cfg config.KafkaConfig, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.TopicAlerts,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})
	return newConsumer(reader, logger)
}

func newConsumer(reader messageReader, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{reader: reader, logger: logger}
}

// Run fetches until ctx is done. Undecodable messages are committed and
// dropped; a message whose delivery fails is left uncommitted so it is
// redelivered after a restart or rebalance.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error("Failed to fetch message", zap.Error(err))
			continue
		}

		n, err := protocol.DecodeAlertNotification(msg.Value)
		if err != nil {
			c.logger.Error("Dropping undecodable notification",
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
			c.commit(ctx, msg)
			continue
		}

		if err := handle(ctx, n); err != nil {
			c.logger.Error("Failed to deliver notification",
				zap.String("email", n.Email),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
			continue
		}

		c.commit(ctx, msg)
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("Failed to commit offset", zap.Int64("offset", msg.Offset), zap.Error(err))
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
