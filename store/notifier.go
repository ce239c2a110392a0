package store

import (
	"context"
	"time"
)

// Event 行级变更事件。写路径在落库成功后发布，订阅侧不做增量合并，
// 收到任何事件都整体重拉快照（refetch-on-change）。
type Event struct {
	Table  string    `json:"table"`
	Op     string    `json:"op"` // insert / update / delete
	RoomID uint64    `json:"room_id,omitempty"`
	At     time.Time `json:"at"`
}

// Subscription 一条已打开的变更订阅。Events 在底层连接关闭后会被 close，
// 由调用方决定是否重连。
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// Notifier 变更通知的抽象：按频道发布/订阅行级变更。
// 当前实现走 Redis pub/sub；换存储时只需要换实现，服务层不动。
type Notifier interface {
	Publish(ctx context.Context, channel string, ev Event) error
	Subscribe(ctx context.Context, channels ...string) (Subscription, error)
}
