package store

import (
	"context"
	"encoding/json"
	"log"

	"github.com/go-redis/redis/v8"
)

// RedisNotifier 基于 Redis pub/sub 的变更通知实现。
type RedisNotifier struct {
	rdb *redis.Client
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

// Publish 发布一条变更事件。失败由调用方记日志，不重试。
func (n *RedisNotifier) Publish(ctx context.Context, channel string, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, channel, b).Err()
}

// Subscribe 打开对若干频道的订阅。先 Receive 确认订阅建立，
// 再起 goroutine 把原始消息解码后转发到事件管道。
func (n *RedisNotifier) Subscribe(ctx context.Context, channels ...string) (Subscription, error) {
	ps := n.rdb.Subscribe(ctx, channels...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := &redisSubscription{
		ps:     ps,
		events: make(chan Event, 16),
	}
	go sub.forward()
	return sub, nil
}

type redisSubscription struct {
	ps     *redis.PubSub
	events chan Event
}

func (s *redisSubscription) forward() {
	defer close(s.events)
	for msg := range s.ps.Channel() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Printf("change feed: drop malformed event on %s: %v", msg.Channel, err)
			continue
		}
		s.events <- ev
	}
}

func (s *redisSubscription) Events() <-chan Event {
	return s.events
}

func (s *redisSubscription) Close() error {
	return s.ps.Close()
}
