package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStreamPublisher appends messages to a Redis stream per topic.
type RedisStreamPublisher struct {
	client *redis.Client
	maxLen int64
}

func NewRedisStreamPublisher(client *redis.Client, maxLen int64) *RedisStreamPublisher {
	return &RedisStreamPublisher{client: client, maxLen: maxLen}
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", msg.Topic, err)
	}
	args := &redis.XAddArgs{
		Stream: msg.Topic,
		Values: map[string]interface{}{
			"data":      string(data),
			"season_id": msg.SeasonID,
			"timestamp": time.Now().Unix(),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", msg.Topic, err)
	}
	return nil
}
