package ingest

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/courtside-live/broadcast-server/internal/config"
	"github.com/courtside-live/broadcast-server/internal/core"
	"github.com/courtside-live/broadcast-server/internal/metrics"
)

// Publisher is the slice of the hub the consumer needs.
type Publisher interface {
	Publish(msg core.Message)
}

// Consumer bridges the upstream Kafka topics into the broadcaster. It only
// ever hands messages to the dispatcher; it never touches the registry or
// transports.
type Consumer struct {
	reader *kafka.Reader
	hub    Publisher
	log    *zerolog.Logger
}

// NewConsumer builds a consumer-group reader over the configured topics.
func NewConsumer(cfg config.KafkaConfig, hub Publisher, logger *zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    1 << 20, // 1MB
		MaxWait:     500 * time.Millisecond,
	})
	return &Consumer{reader: reader, hub: hub, log: logger}
}

// Run consumes until the context is cancelled or the reader is closed. One
// bad event never stalls the loop: malformed payloads are logged, counted,
// and skipped.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			metrics.IngestErrors.Inc()
			c.log.Error().Err(err).Msg("kafka read failed")
			continue
		}

		msg, err := Transform(m.Topic, m.Value)
		if err != nil {
			metrics.IngestEvents.WithLabelValues(m.Topic, "malformed").Inc()
			c.log.Warn().Err(err).Str("topic", m.Topic).Msg("skipping malformed upstream event")
			continue
		}

		c.hub.Publish(msg)
		metrics.IngestEvents.WithLabelValues(m.Topic, "ok").Inc()
		c.log.Debug().Str("topic", m.Topic).Str("event", msg.Event).Int("priority", msg.Priority).Msg("event ingested")
	}
}

// Close releases the consumer group subscription.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
