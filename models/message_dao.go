package models

import (
	"time"

	"gorm.io/gorm"
)

// MessageDAO 封装 Message 相关的数据库操作
type MessageDAO struct {
	db *gorm.DB
}

// NewMessageDAO 创建 MessageDAO 实例
func NewMessageDAO(db *gorm.DB) *MessageDAO {
	return &MessageDAO{db: db}
}

// Create 创建消息
func (dao *MessageDAO) Create(msg *Message) error {
	return dao.db.Create(msg).Error
}

// FindByID 根据ID查找消息（包含软删的，调用方自行判断 is_deleted）
func (dao *MessageDAO) FindByID(id uint64) (*Message, error) {
	var msg Message
	err := dao.db.Where("id = ?", id).First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindVisibleByRoom 获取房间可见消息（排除软删），按创建时间倒序取 limit 条。
// before 非 nil 时作为上界游标（created_at < before，开区间）。
// 带发送人与回应的 preload；调用方负责 reverse 成时间正序展示。
func (dao *MessageDAO) FindVisibleByRoom(roomID uint64, limit int, before *time.Time) ([]Message, error) {
	var messages []Message
	query := dao.db.Model(&Message{}).
		Preload("Sender").
		Preload("Reactions").
		Preload("Reactions.User").
		Where("room_id = ? AND is_deleted = ?", roomID, false)
	if before != nil {
		query = query.Where("created_at < ?", *before)
	}
	err := query.Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}
