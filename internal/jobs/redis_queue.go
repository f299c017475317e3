package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"goal-image-service/internal/domain"
	"goal-image-service/internal/infra/logging"
)

// RedisQueue implements Queue on a Redis stream with one consumer group.
type RedisQueue struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
	// Block bounds each XREADGROUP call so cancellation is noticed.
	Block time.Duration
}

var _ Queue = (*RedisQueue)(nil)

func NewRedisQueue(client *redis.Client, stream, group string) *RedisQueue {
	consumer, _ := os.Hostname()
	if consumer == "" {
		consumer = "consumer"
	}
	consumer = fmt.Sprintf("%s-%d", consumer, os.Getpid())

	return &RedisQueue{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumer,
		Block:    2 * time.Second,
	}
}

// Publish appends job to the stream with XADD.
func (q *RedisQueue) Publish(ctx context.Context, job domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{"job": data},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

// Subscribe ensures the consumer group exists and reads new entries with
// XREADGROUP. The group starts at id 0 so jobs published before the first
// worker came up are still delivered.
func (q *RedisQueue) Subscribe(ctx context.Context) (<-chan domain.Job, error) {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	out := make(chan domain.Job)
	go func() {
		defer close(out)
		for ctx.Err() == nil {
			streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    q.group,
				Consumer: q.consumer,
				Streams:  []string{q.stream, ">"},
				Count:    1,
				Block:    q.Block,
			}).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				logging.Error("Redis read error", "stream", q.stream, "error", err)
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}

			for _, s := range streams {
				for _, msg := range s.Messages {
					job, ok := decodeJob(msg)
					if !ok {
						// Undecodable entries are acked and dropped.
						_ = q.client.XAck(ctx, q.stream, q.group, msg.ID).Err()
						continue
					}
					select {
					case out <- job:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}

func decodeJob(msg redis.XMessage) (domain.Job, bool) {
	val, ok := msg.Values["job"].(string)
	if !ok {
		logging.Error("Invalid job message format", "msg_id", msg.ID)
		return domain.Job{}, false
	}
	var job domain.Job
	if err := json.Unmarshal([]byte(val), &job); err != nil {
		logging.Error("Failed to unmarshal job", "msg_id", msg.ID, "error", err)
		return domain.Job{}, false
	}
	job.RawID = msg.ID
	return job, true
}

// Acknowledge confirms processing with XACK.
func (q *RedisQueue) Acknowledge(ctx context.Context, rawID string) error {
	return q.client.XAck(ctx, q.stream, q.group, rawID).Err()
}
