package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestNotifier(t *testing.T) *RedisNotifier {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisNotifier(rdb)
}

func TestRedisNotifier_PublishSubscribe(t *testing.T) {
	n := newTestNotifier(t)
	ctx := context.Background()

	sub, err := n.Subscribe(ctx, "chat:room:7:messages")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	ev := Event{Table: "lt_message", Op: "insert", RoomID: 7, At: time.Now()}
	if err := n.Publish(ctx, "chat:room:7:messages", ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-sub.Events():
		if got.Table != ev.Table || got.Op != ev.Op || got.RoomID != ev.RoomID {
			t.Fatalf("event mismatch: got %#v, want %#v", got, ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestRedisNotifier_SubscribeMultipleChannels(t *testing.T) {
	n := newTestNotifier(t)
	ctx := context.Background()

	sub, err := n.Subscribe(ctx, "chat:room:7:typing", "chat:presence")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	if err := n.Publish(ctx, "chat:presence", Event{Table: "lt_user_presence", Op: "update"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-sub.Events():
		if got.Table != "lt_user_presence" {
			t.Fatalf("unexpected event: %#v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestRedisNotifier_CloseEndsEventStream(t *testing.T) {
	n := newTestNotifier(t)

	sub, err := n.Subscribe(context.Background(), "chat:room:1:messages")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Fatal("expected closed event channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event channel not closed after Close")
	}
}

func TestRedisNotifier_DropsMalformedPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	n := NewRedisNotifier(rdb)
	ctx := context.Background()

	sub, err := n.Subscribe(ctx, "chat:room:7:messages")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	// 坏消息直接丢，后面的好消息照常到达
	if err := rdb.Publish(ctx, "chat:room:7:messages", "not-json").Err(); err != nil {
		t.Fatalf("raw publish: %v", err)
	}
	if err := n.Publish(ctx, "chat:room:7:messages", Event{Table: "lt_message", Op: "insert", RoomID: 7}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-sub.Events():
		if got.Op != "insert" {
			t.Fatalf("expected the well-formed event, got %#v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}
