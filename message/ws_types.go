// Package message 定义 WS 桥接层的线上载荷。
package message

import (
	"time"
)

// Req 客户端经 WS 发消息的载荷
type Req struct {
	RoomID  uint64  `json:"room_id"`
	Content string  `json:"content"`
	Type    string  `json:"type,omitempty"` // 空值按 text 处理
	ReplyTo *uint64 `json:"reply_to,omitempty"`
}

// 推送载荷类型
const (
	PushKindMessage = "message"
)

// Push 服务端推给成员的载荷，Data 为对应 DTO
type Push struct {
	Kind   string      `json:"kind"`
	RoomID uint64      `json:"room_id"`
	At     time.Time   `json:"at"`
	Data   interface{} `json:"data"`
}
