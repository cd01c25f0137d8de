// Package stream publishes chat events to a Redis stream and reads them back
// through a consumer group.
package stream

import (
	"context"
	"errors"
	"strings"
	"time"

	"sales_server/core/domain"
	"sales_server/core/port/out"
	"sales_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const (
	// StreamEvents carries every chat event.
	StreamEvents = "sales:events"
	// DefaultMaxLen caps the stream length (approximate trimming).
	DefaultMaxLen = 10000
)

type RedisStream struct {
	client *redis.Client
	group  string
	maxLen int64
}

var _ out.EventPublisher = (*RedisStream)(nil)

func NewRedisStream(client *redis.Client, group string) *RedisStream {
	return &RedisStream{
		client: client,
		group:  group,
		maxLen: DefaultMaxLen,
	}
}

func (s *RedisStream) CreateGroup(ctx context.Context, stream string) error {
	err := s.client.XGroupCreateMkStream(ctx, stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Publish appends the event to StreamEvents.
func (s *RedisStream) Publish(ctx context.Context, event *domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamEvents,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{"type": event.Type, "data": data},
	}).Err()
}

// Consume reads events through the consumer group until ctx is done. A
// message is acknowledged only when handler succeeds.
func (s *RedisStream) Consume(ctx context.Context, consumer string, handler func(event *domain.Event) error) error {
	if err := s.CreateGroup(ctx, StreamEvents); err != nil {
		return err
	}

	log := logger.WithFields(map[string]any{"group": s.group, "consumer": consumer})
	for {
		if ctx.Err() != nil {
			return nil
		}

		streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.group,
			Consumer: consumer,
			Streams:  []string{StreamEvents, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			log.WithError(err).Warn("[RedisStream.Consume] read failed")
			time.Sleep(time.Second)
			continue
		}

		for _, st := range streams {
			for _, msg := range st.Messages {
				event, err := decodeMessage(msg)
				if err != nil {
					log.WithError(err).Warn("[RedisStream.Consume] dropping malformed event %s", msg.ID)
					_ = s.Ack(ctx, msg.ID)
					continue
				}
				if err := handler(event); err != nil {
					log.WithError(err).Error("[RedisStream.Consume] handler failed for %s", msg.ID)
					continue
				}
				_ = s.Ack(ctx, msg.ID)
			}
		}
	}
}

var errMissingData = errors.New("stream message has no data field")

func decodeMessage(msg redis.XMessage) (*domain.Event, error) {
	raw, ok := msg.Values["data"].(string)
	if !ok {
		return nil, errMissingData
	}
	var event domain.Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *RedisStream) Ack(ctx context.Context, id string) error {
	return s.client.XAck(ctx, StreamEvents, s.group, id).Err()
}

func (s *RedisStream) Pending(ctx context.Context) (int64, error) {
	info, err := s.client.XPending(ctx, StreamEvents, s.group).Result()
	if err != nil {
		return 0, err
	}
	return info.Count, nil
}
