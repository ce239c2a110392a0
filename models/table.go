package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	prefix = "lt_"
)

// Membership tiers mirrored from the community platform's profile table.
const (
	TierFree    = "free"
	TierCore    = "core"
	TierPremium = "premium"
)

// Profile 社区用户资料（平台侧维护，这里只做展示投影）
// The messaging layer never writes profiles; it reads display fields only.
type Profile struct {
	ID             uint64 `gorm:"primarykey"`
	UID            string `gorm:"size:36;uniqueIndex;not null"` // 对外用户 ID
	FirstName      string `gorm:"size:100;not null"`
	LastName       string `gorm:"size:100"`
	AvatarURL      string `gorm:"size:500"`
	MembershipTier string `gorm:"size:20;default:free"` // free / core / premium
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (Profile) TableName() string {
	return prefix + "profile"
}

// DisplayName 展示名：first + last，last 可为空
func (p *Profile) DisplayName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Member roles.
const (
	RoleMember    = "member"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Room 聊天房间/群组表
type Room struct {
	ID uint64 `gorm:"primarykey"`

	// RoomAccount 对外房间号（UUID），用于搜索/分享，不参与外键关联。
	RoomAccount string `gorm:"column:room_account;type:varchar(36);uniqueIndex;not null"`

	Name        string `gorm:"size:100;not null"`
	Description string `gorm:"size:500"`
	Category    string `gorm:"size:50;default:General"`
	IsPrivate   bool   `gorm:"default:false"`

	// MaxMembers nil 表示不限人数。
	MaxMembers *int `gorm:"default:null"`

	// MemberCount 活跃成员数的反范式计数，join/leave 时用条件自增/自减维护，
	// 不做读后写（见 RoomService）。
	MemberCount int `gorm:"default:0"`

	CreatorID uint64 `gorm:"index"`
	IsActive  bool   `gorm:"default:true"`
	Rules     string `gorm:"type:text"`
	ImageURL  string `gorm:"size:500"`

	// LastActivityAt 最后活跃时间（发消息时刷新），房间列表按它排序。
	LastActivityAt time.Time `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	// 关联关系
	Creator  Profile      `gorm:"foreignKey:CreatorID"`
	Members  []RoomMember `gorm:"foreignKey:RoomID;references:ID"`
	Messages []Message    `gorm:"foreignKey:RoomID;references:ID"`
}

func (Room) TableName() string {
	return prefix + "room"
}

// RoomMember 房间成员表。退出走软删（is_active=false），保留历史，重进时复活。
type RoomMember struct {
	ID       uint64    `gorm:"primarykey"`
	RoomID   uint64    `gorm:"index:idx_room_user,unique;not null"`
	UserID   uint64    `gorm:"index:idx_room_user,unique;not null"`
	Role     string    `gorm:"size:20;default:member"` // member / moderator / admin
	IsActive bool      `gorm:"default:true;index"`
	JoinedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// 关联关系
	Room Room    `gorm:"foreignKey:RoomID;references:ID"`
	User Profile `gorm:"foreignKey:UserID"`
}

func (RoomMember) TableName() string {
	return prefix + "room_member"
}

// Message types.
const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
	MessageTypeEvent  = "event"
	MessageTypePoll   = "poll"
)

// DeletedPlaceholder 软删后替换的内容，原文不可再通过本层取回。
const DeletedPlaceholder = "[Message deleted]"

// Message 消息表。软删用显式 is_deleted 标记（行保留做审计），
// 不用 gorm.DeletedAt，避免查询满天飞 Unscoped。
type Message struct {
	ID           uint64  `gorm:"primarykey"`
	MessageUUID  string  `gorm:"size:36;uniqueIndex;not null"` // 对外消息 ID
	RoomID       uint64  `gorm:"index;not null"`
	SenderID     uint64  `gorm:"index;not null"`
	ReplyToMsgID *uint64 `gorm:"index"` // 不校验指向本房间的有效消息
	Type         string  `gorm:"size:10;default:text"`
	Content      string  `gorm:"type:text;not null"`

	// Mentions 从内容抽取的 @name 列表；Attachments 结构化附件。
	Mentions    datatypes.JSON `gorm:"type:json"`
	Attachments datatypes.JSON `gorm:"type:json"`

	IsEdited bool       `gorm:"default:false"`
	EditedAt *time.Time `gorm:"default:null"`

	IsDeleted bool       `gorm:"default:false;index"`
	DeletedAt *time.Time `gorm:"default:null"`

	IsPinned bool       `gorm:"default:false"`
	PinnedBy *uint64    `gorm:"default:null"`
	PinnedAt *time.Time `gorm:"default:null"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	// 关联关系
	Room      Room              `gorm:"foreignKey:RoomID;references:ID"`
	Sender    Profile           `gorm:"foreignKey:SenderID"`
	ReplyTo   *Message          `gorm:"foreignKey:ReplyToMsgID"`
	Reactions []MessageReaction `gorm:"foreignKey:MessageID;references:ID"`
}

func (Message) TableName() string {
	return prefix + "message"
}

// MessageReaction 表情回应。(message_id, user_id, emoji) 唯一，
// 重复添加靠 OnConflict DoNothing 幂等。
type MessageReaction struct {
	ID        uint64 `gorm:"primarykey"`
	MessageID uint64 `gorm:"index:idx_msg_user_emoji,unique;not null"`
	UserID    uint64 `gorm:"index:idx_msg_user_emoji,unique;not null"`
	Emoji     string `gorm:"size:32;index:idx_msg_user_emoji,unique;not null"`
	CreatedAt time.Time

	// 关联关系
	Message Message `gorm:"foreignKey:MessageID;references:ID"`
	User    Profile `gorm:"foreignKey:UserID"`
}

func (MessageReaction) TableName() string {
	return prefix + "message_reaction"
}

// TypingWindow 输入指示器有效窗口：读取时只认最近 30 秒内的记录。
const TypingWindow = 30 * time.Second

// TypingIndicator 输入指示器。(room_id, user_id) 唯一，纯 upsert，
// 过期行靠读取时过滤 + 周期清扫。
type TypingIndicator struct {
	ID          uint64    `gorm:"primarykey"`
	RoomID      uint64    `gorm:"index:idx_room_typer,unique;not null"`
	UserID      uint64    `gorm:"index:idx_room_typer,unique;not null"`
	IsTyping    bool      `gorm:"default:false"`
	LastTypedAt time.Time `gorm:"index;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// 关联关系
	User Profile `gorm:"foreignKey:UserID"`
}

func (TypingIndicator) TableName() string {
	return prefix + "typing_indicator"
}

// Presence statuses.
const (
	PresenceOnline  = "online"
	PresenceAway    = "away"
	PresenceBusy    = "busy"
	PresenceOffline = "offline"
)

// UserPresence 全局在线状态（不分房间），每用户一行，只有本人写。
type UserPresence struct {
	ID         uint64    `gorm:"primarykey"`
	UserID     uint64    `gorm:"uniqueIndex;not null"`
	IsOnline   bool      `gorm:"default:false"`
	Status     string    `gorm:"size:10;default:offline"` // online / away / busy / offline
	LastSeenAt time.Time `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// 关联关系
	User Profile `gorm:"foreignKey:UserID"`
}

func (UserPresence) TableName() string {
	return prefix + "user_presence"
}
