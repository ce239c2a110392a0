package community_chat

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lusotown/community-chat/cons"
	"github.com/lusotown/community-chat/service"
	"github.com/lusotown/community-chat/store"
)

// Handler types, one per feed kind. Every invocation receives a complete
// fresh snapshot, never a partial diff.
type (
	MessagesHandler func([]service.MessageListItemDTO)
	TypingHandler   func([]service.TypingIndicatorDTO)
	PresenceHandler func([]service.PresenceDTO)
)

type feedKey struct {
	roomID uint64
	kind   string
}

type feed struct {
	key      feedKey
	channels []string
	fetch    func() (interface{}, error)
	cancel   context.CancelFunc

	// handlers 由 Coordinator.mu 保护
	handlers map[uint64]func(interface{})
}

// Coordinator 把底层变更频道桥接到 UI 回调。每个 (room, feed) 只开一条
// 真实订阅，内部扇出到注册的全部回调；回调集合清空时关闭频道。
// 策略是 refetch-on-change：收到任何事件都整体重拉，不做客户端增量合并。
type Coordinator struct {
	notifier store.Notifier

	fetchMessages func(roomID uint64) ([]service.MessageListItemDTO, error)
	fetchTyping   func(roomID uint64) ([]service.TypingIndicatorDTO, error)
	fetchPresence func(roomID uint64) ([]service.PresenceDTO, error)

	// 重连退避区间
	retryMin time.Duration
	retryMax time.Duration

	mu        sync.Mutex
	feeds     map[feedKey]*feed
	nextToken uint64
}

func NewCoordinator(
	notifier store.Notifier,
	fetchMessages func(roomID uint64) ([]service.MessageListItemDTO, error),
	fetchTyping func(roomID uint64) ([]service.TypingIndicatorDTO, error),
	fetchPresence func(roomID uint64) ([]service.PresenceDTO, error),
	retryMin, retryMax time.Duration,
) *Coordinator {
	if retryMin <= 0 {
		retryMin = time.Second
	}
	if retryMax < retryMin {
		retryMax = 30 * time.Second
	}
	return &Coordinator{
		notifier:      notifier,
		fetchMessages: fetchMessages,
		fetchTyping:   fetchTyping,
		fetchPresence: fetchPresence,
		retryMin:      retryMin,
		retryMax:      retryMax,
		feeds:         make(map[feedKey]*feed),
	}
}

// SubscribeMessages 订阅房间消息流（消息 + 回应的任何变更都会触发整体重拉）。
// 返回的取消函数可重复调用。
func (c *Coordinator) SubscribeMessages(roomID uint64, h MessagesHandler) func() {
	return c.subscribe(
		feedKey{roomID: roomID, kind: cons.FeedMessages},
		[]string{cons.MessagesChannel(roomID)},
		func() (interface{}, error) { return c.fetchMessages(roomID) },
		func(snap interface{}) { h(snap.([]service.MessageListItemDTO)) },
	)
}

// SubscribeTyping 订阅房间输入指示器
func (c *Coordinator) SubscribeTyping(roomID uint64, h TypingHandler) func() {
	return c.subscribe(
		feedKey{roomID: roomID, kind: cons.FeedTyping},
		[]string{cons.TypingChannel(roomID)},
		func() (interface{}, error) { return c.fetchTyping(roomID) },
		func(snap interface{}) { h(snap.([]service.TypingIndicatorDTO)) },
	)
}

// SubscribePresence 订阅房间成员在线状态。presence 表是全局的，
// 所以监听全局频道，但快照只取本房间成员。
func (c *Coordinator) SubscribePresence(roomID uint64, h PresenceHandler) func() {
	return c.subscribe(
		feedKey{roomID: roomID, kind: cons.FeedPresence},
		[]string{cons.PresenceChannel},
		func() (interface{}, error) { return c.fetchPresence(roomID) },
		func(snap interface{}) { h(snap.([]service.PresenceDTO)) },
	)
}

func (c *Coordinator) subscribe(key feedKey, channels []string, fetch func() (interface{}, error), wrapped func(interface{})) func() {
	c.mu.Lock()
	f := c.feeds[key]
	if f == nil {
		ctx, cancel := context.WithCancel(context.Background())
		f = &feed{
			key:      key,
			channels: channels,
			fetch:    fetch,
			cancel:   cancel,
			handlers: make(map[uint64]func(interface{})),
		}
		c.feeds[key] = f
		go c.run(ctx, f)
	}
	c.nextToken++
	token := c.nextToken
	f.handlers[token] = wrapped
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.removeHandler(key, token) })
	}
}

func (c *Coordinator) removeHandler(key feedKey, token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.feeds[key]
	if f == nil {
		return
	}
	delete(f.handlers, token)
	if len(f.handlers) == 0 {
		f.cancel()
		delete(c.feeds, key)
	}
}

// Unsubscribe 关停整个 (room, feed)，不管还挂着多少回调。可重复调用。
func (c *Coordinator) Unsubscribe(roomID uint64, kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := feedKey{roomID: roomID, kind: kind}
	if f := c.feeds[key]; f != nil {
		f.cancel()
		delete(c.feeds, key)
	}
}

// UnsubscribeAll 进程收尾时关掉所有频道
func (c *Coordinator) UnsubscribeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, f := range c.feeds {
		f.cancel()
		delete(c.feeds, key)
	}
}

// run 是每条 feed 的主循环：订阅 -> 全量快照 -> 事件驱动重拉。
// 订阅断开后指数退避重连，重连成功先补一次快照再继续。
func (c *Coordinator) run(ctx context.Context, f *feed) {
	backoff := c.retryMin
	for {
		sub, err := c.notifier.Subscribe(ctx, f.channels...)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("realtime: open %s feed room=%d: %v (retry in %s)", f.key.kind, f.key.roomID, err, backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > c.retryMax {
				backoff = c.retryMax
			}
			continue
		}
		backoff = c.retryMin

		c.deliver(f)

		alive := true
		for alive {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case _, ok := <-sub.Events():
				if !ok {
					alive = false
					break
				}
				// 密集突发收敛成一次重拉：中间状态可以跳过，只有最新快照重要
				drained := true
				for drained {
					select {
					case _, ok := <-sub.Events():
						if !ok {
							alive = false
							drained = false
						}
					default:
						drained = false
					}
				}
				c.deliver(f)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		log.Printf("realtime: %s feed room=%d dropped, reconnecting", f.key.kind, f.key.roomID)
	}
}

// deliver 拉一次快照并扇出。拉取失败只记日志，订阅保持存活，
// 等下一个事件再试。
func (c *Coordinator) deliver(f *feed) {
	snap, err := f.fetch()
	if err != nil {
		log.Printf("realtime: fetch %s snapshot room=%d: %v", f.key.kind, f.key.roomID, err)
		return
	}

	c.mu.Lock()
	handlers := make([]func(interface{}), 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(snap)
	}
}
