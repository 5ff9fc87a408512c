package publish

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"relaygate.dev/internal/chk"
)

// RedisQueue is a durable FIFO over a single redis list: Enqueue does
// RPUSH, Dequeue does a blocking LPOP (BLPOP), and Retry re-enqueues at
// the back of the same list, the simplest policy that still guarantees
// every message is eventually retried rather than dropped.
type RedisQueue struct {
	client *redis.Client
	key    string
	// pollTimeout bounds each BLPOP call so Dequeue can observe context
	// cancellation instead of blocking the process's lifetime.
	pollTimeout time.Duration
}

// NewRedisQueue returns a Queue backed by the redis list at key.
func NewRedisQueue(addr, key string) *RedisQueue {
	return &RedisQueue{
		client:      redis.NewClient(&redis.Options{Addr: addr}),
		key:         key,
		pollTimeout: 2 * time.Second,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, raw []byte) error {
	err := q.client.RPush(ctx, q.key, raw).Err()
	chk.E(err)
	return err
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*Message, error) {
	res, err := q.client.BLPop(ctx, q.pollTimeout, q.key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		chk.E(err)
		return nil, err
	}
	// BLPOP on a single key returns [key, value].
	if len(res) != 2 {
		return nil, nil
	}
	return &Message{Raw: []byte(res[1])}, nil
}

// Ack is a no-op: BLPOP already removed the message from the list, so
// there is nothing left to acknowledge.
func (q *RedisQueue) Ack(ctx context.Context, msg *Message) error { return nil }

func (q *RedisQueue) Retry(ctx context.Context, msg *Message) error {
	err := q.client.RPush(ctx, q.key, msg.Raw).Err()
	chk.E(err)
	return err
}
