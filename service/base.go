package service

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/lusotown/community-chat/store"
)

// Service 基础服务，持有数据库与变更通知器
type Service struct {
	DB          *gorm.DB
	RDB         *redis.Client
	TablePrefix string

	// Notifier 变更通知器。写操作落库成功后在这里发事件，
	// 为 nil 时写路径正常工作，只是没有实时推送。
	Notifier store.Notifier
}

// Table 获取带前缀的表名
func (s *Service) Table(name string) *gorm.DB {
	return s.DB.Table(name)
}

// notifyChange 尽力而为地发布变更事件：失败只记日志，不影响主流程。
func (s *Service) notifyChange(channel, table, op string, roomID uint64) {
	if s.Notifier == nil {
		return
	}
	ev := store.Event{Table: table, Op: op, RoomID: roomID, At: time.Now()}
	if err := s.Notifier.Publish(context.Background(), channel, ev); err != nil {
		log.Printf("notifyChange %s %s/%s: %v", channel, table, op, err)
	}
}
