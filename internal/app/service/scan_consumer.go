package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudflying87/qrgenerator/internal/app/model"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const realtimeCounterTTL = 24 * time.Hour

// ScanConsumer consumes scan notices from JetStream and maintains real-time
// per-code counters in Redis for dashboards. It is a read-model updater:
// durable analytics live in Postgres regardless of what happens here.
type ScanConsumer struct {
	js     nats.JetStreamContext
	rdb    *redis.Client
	logger *zap.Logger
}

// NewScanConsumer creates a new scan notice consumer.
func NewScanConsumer(js nats.JetStreamContext, rdb *redis.Client, logger *zap.Logger) *ScanConsumer {
	return &ScanConsumer{js: js, rdb: rdb, logger: logger}
}

// Start ensures the stream and durable consumer exist, then begins consuming.
func (c *ScanConsumer) Start() error {
	_, err := c.js.StreamInfo(model.ScanStreamName)
	if err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.ScanStreamName,
			Subjects: []string{model.ScanStreamSubject},
			MaxBytes: model.ScanStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	_, err = c.js.ConsumerInfo(model.ScanStreamName, model.ScanConsumerName)
	if err != nil {
		_, err = c.js.AddConsumer(model.ScanStreamName, &nats.ConsumerConfig{
			Durable:   model.ScanConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.ScanStreamSubject, model.ScanConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

func (c *ScanConsumer) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && err != nats.ErrTimeout {
			c.logger.Error("failed to fetch scan notices", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			var notice model.ScanNotice
			if err := json.Unmarshal(msg.Data, &notice); err != nil {
				c.logger.Error("failed to unmarshal scan notice", zap.Error(err))
				msg.Nak()
				continue
			}

			if err := c.apply(ctx, notice); err != nil {
				c.logger.Error("failed to apply scan notice",
					zap.String("event_id", notice.EventID),
					zap.String("short_code", notice.ShortCode),
					zap.Error(err))
				msg.Nak()
				continue
			}

			msg.Ack()
		}
	}
}

func (c *ScanConsumer) apply(ctx context.Context, notice model.ScanNotice) error {
	key := "scans:realtime:" + notice.ShortCode
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		c.rdb.Expire(ctx, key, realtimeCounterTTL)
	}

	c.logger.Debug("realtime counter updated",
		zap.String("short_code", notice.ShortCode),
		zap.Int64("count", n),
	)
	return nil
}
