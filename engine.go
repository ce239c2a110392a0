package community_chat

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	model "github.com/lusotown/community-chat/models"

	"github.com/lusotown/community-chat/message"
	"github.com/lusotown/community-chat/service"
	"github.com/lusotown/community-chat/store"
)

type ChatEngine struct {
	config *Config

	RoomService     *service.RoomService
	MsgService      *service.MessageService
	PresenceService *service.PresenceService
	Coordinator     *Coordinator
	WsServer        *WsServer

	sweepCancel context.CancelFunc
}

var (
	Instance *ChatEngine
	once     sync.Once
)

// NewEngine 创建实例
// 使用选项模式传入配置，Option回调
func NewEngine(opts ...Option) *ChatEngine {
	once.Do(func() {
		c := &Config{
			TablePrefix:          "lt_", // Default
			SnapshotLimit:        50,
			RetryMin:             time.Second,
			RetryMax:             30 * time.Second,
			TypingSweepInterval:  5 * time.Minute,
			TypingSweepRetention: 10 * time.Minute,
		}
		for _, opt := range opts {
			opt(c)
		}

		Instance = &ChatEngine{config: c}

		var notifier store.Notifier
		if c.RDB != nil {
			notifier = store.NewRedisNotifier(c.RDB)
		}

		baseService := &service.Service{
			DB:          c.DB,
			RDB:         c.RDB,
			TablePrefix: c.TablePrefix,
			Notifier:    notifier,
		}

		Instance.RoomService = service.NewRoomService(baseService)
		Instance.MsgService = service.NewMessageService(baseService)
		Instance.PresenceService = service.NewPresenceService(baseService)

		if notifier != nil {
			Instance.Coordinator = NewCoordinator(
				notifier,
				func(roomID uint64) ([]service.MessageListItemDTO, error) {
					return Instance.MsgService.GetRoomMessages(roomID, c.SnapshotLimit, nil)
				},
				Instance.PresenceService.FetchTyping,
				Instance.PresenceService.FetchPresence,
				c.RetryMin,
				c.RetryMax,
			)
		}

		// 初始化 WS，连接的建立/断开驱动 presence 上下线
		Instance.WsServer = NewWsServer()
		Instance.WsServer.onConnect = func(userID uint64) {
			if err := Instance.PresenceService.UpdatePresence(userID, true, model.PresenceOnline); err != nil {
				log.Printf("presence online user=%d: %v", userID, err)
			}
		}
		Instance.WsServer.onDisconnect = func(userID uint64) {
			if err := Instance.PresenceService.UpdatePresence(userID, false, model.PresenceOffline); err != nil {
				log.Printf("presence offline user=%d: %v", userID, err)
			}
		}
		go Instance.WsServer.Run()

		// 使用闭包处理 WS 入站消息：落库后直接推给房间成员。
		// 实时订阅方照常走 change feed 的重拉，这里只是给 WS 客户端的快路径。
		Instance.WsServer.onMessage = func(client *Client, msg []byte) {
			var req message.Req
			if err := json.Unmarshal(msg, &req); err != nil {
				log.Printf("Invalid message format: %v", err)
				return
			}

			dto, err := Instance.MsgService.SendMessage(req.RoomID, client.UserID, req.Content, req.Type, req.ReplyTo, nil)
			if err != nil {
				log.Printf("Failed to save message: %v", err)
				return
			}

			members, err := Instance.RoomService.GetActiveMemberIDs(req.RoomID)
			if err != nil {
				log.Printf("Failed to get room members: %v", err)
				return
			}

			push := message.Push{
				Kind:   message.PushKindMessage,
				RoomID: req.RoomID,
				At:     time.Now(),
				Data:   dto,
			}
			b, _ := json.Marshal(push)
			for _, memberID := range members {
				if memberID == client.UserID {
					continue
				}
				Instance.WsServer.SendToUser(memberID, b)
			}
		}

		// 迁移表
		if c.DB != nil {
			if err := Instance.AutoMigrate(); err != nil {
				log.Printf("AutoMigrate failed: %v", err)
			}
		}

		// 输入指示器清扫
		if c.DB != nil && c.TypingSweepInterval > 0 {
			ctx, cancel := context.WithCancel(context.Background())
			Instance.sweepCancel = cancel
			go runTypingSweeper(ctx, Instance.PresenceService, c.TypingSweepInterval, c.TypingSweepRetention)
		}
	})

	return Instance
}

func (c *ChatEngine) AutoMigrate() error {
	db := c.config.DB
	log.Println("AutoMigrate...")
	return db.AutoMigrate(
		&model.Profile{},
		&model.Room{},
		&model.RoomMember{},
		&model.Message{},
		&model.MessageReaction{},
		&model.TypingIndicator{},
		&model.UserPresence{},
	)
}

// Close 收尾：关掉所有实时订阅和清扫任务。WS 连接由各自的 pump 自行退出。
func (c *ChatEngine) Close() {
	if c.Coordinator != nil {
		c.Coordinator.UnsubscribeAll()
	}
	if c.sweepCancel != nil {
		c.sweepCancel()
	}
}

// ServeWS 处理 WebSocket 请求，userID 由宿主应用的鉴权层给出
func (c *ChatEngine) ServeWS(w http.ResponseWriter, r *http.Request, userID uint64) {
	c.WsServer.ServeWS(w, r, userID)
}

// HandleWS 返回 WebSocket 的Handler
func (c *ChatEngine) HandleWS(userID uint64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.WsServer.ServeWS(w, r, userID)
	}
}
