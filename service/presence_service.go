package service

import (
	"log"
	"time"

	"gorm.io/gorm/clause"

	"github.com/lusotown/community-chat/cons"
	"github.com/lusotown/community-chat/models"
)

// TypingIndicatorDTO 正在输入的人
type TypingIndicatorDTO struct {
	RoomID      uint64    `json:"room_id"`
	UserID      uint64    `json:"user_id"`
	UserName    string    `json:"user_name"`
	IsTyping    bool      `json:"is_typing"`
	LastTypedAt time.Time `json:"last_typed_at"`
}

// PresenceDTO 用户在线状态
type PresenceDTO struct {
	UserID     uint64    `json:"user_id"`
	IsOnline   bool      `json:"is_online"`
	Status     string    `json:"status"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

type PresenceService struct {
	*Service
}

func NewPresenceService(s *Service) *PresenceService {
	log.Println("NewPresenceService")
	return &PresenceService{Service: s}
}

// UpdateTyping 更新输入状态：(room_id, user_id) 上的 upsert，盖上当前时间。
// 失败不值得让调用方处理什么，记日志后照常返回错误由上层决定是否忽略。
func (s *PresenceService) UpdateTyping(roomID, userID uint64, isTyping bool) error {
	now := time.Now()
	row := &models.TypingIndicator{
		RoomID:      roomID,
		UserID:      userID,
		IsTyping:    isTyping,
		LastTypedAt: now,
	}
	err := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"is_typing":     isTyping,
			"last_typed_at": now,
			"updated_at":    now,
		}),
	}).Create(row).Error
	if err != nil {
		return err
	}

	s.notifyChange(cons.TypingChannel(roomID), cons.TableTypingIndicators, cons.OpUpdate, roomID)
	return nil
}

// FetchTyping 取房间里正在输入的人：只认 30 秒窗口内的记录。
// 崩掉的客户端留下的 true 标记自己过期，不需要显式清除。
func (s *PresenceService) FetchTyping(roomID uint64) ([]TypingIndicatorDTO, error) {
	cutoff := time.Now().Add(-models.TypingWindow)

	var rows []models.TypingIndicator
	err := s.DB.Preload("User").
		Where("room_id = ? AND is_typing = ? AND last_typed_at >= ?", roomID, true, cutoff).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]TypingIndicatorDTO, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		out = append(out, TypingIndicatorDTO{
			RoomID:      r.RoomID,
			UserID:      r.UserID,
			UserName:    r.User.DisplayName(),
			IsTyping:    r.IsTyping,
			LastTypedAt: r.LastTypedAt,
		})
	}
	return out, nil
}

// UpdatePresence 更新全局在线状态（每用户一行，只有本人写，天然无竞争）。
func (s *PresenceService) UpdatePresence(userID uint64, isOnline bool, status string) error {
	switch status {
	case models.PresenceOnline, models.PresenceAway, models.PresenceBusy, models.PresenceOffline:
	default:
		status = models.PresenceOnline
	}

	now := time.Now()
	row := &models.UserPresence{
		UserID:     userID,
		IsOnline:   isOnline,
		Status:     status,
		LastSeenAt: now,
	}
	err := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"is_online":    isOnline,
			"status":       status,
			"last_seen_at": now,
			"updated_at":   now,
		}),
	}).Create(row).Error
	if err != nil {
		return err
	}

	s.notifyChange(cons.PresenceChannel, cons.TableUserPresence, cons.OpUpdate, 0)
	return nil
}

// FetchPresence 取某房间活跃成员的在线状态：先拿成员 ID 集合，再按集合查状态。
func (s *PresenceService) FetchPresence(roomID uint64) ([]PresenceDTO, error) {
	var memberIDs []uint64
	err := s.DB.Model(&models.RoomMember{}).
		Where("room_id = ? AND is_active = ?", roomID, true).
		Pluck("user_id", &memberIDs).Error
	if err != nil {
		return nil, err
	}
	if len(memberIDs) == 0 {
		return []PresenceDTO{}, nil
	}

	var rows []models.UserPresence
	err = s.DB.Where("user_id IN ?", memberIDs).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]PresenceDTO, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		out = append(out, PresenceDTO{
			UserID:     r.UserID,
			IsOnline:   r.IsOnline,
			Status:     r.Status,
			LastSeenAt: r.LastSeenAt,
		})
	}
	return out, nil
}

// SweepStaleTyping 清掉长期没动静的输入指示器行。读取侧 30 秒窗口保证了
// 正确性，这里只是别让表无限长。返回删掉的行数。
func (s *PresenceService) SweepStaleTyping(retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = 10 * time.Minute
	}
	cutoff := time.Now().Add(-retention)
	res := s.DB.Where("last_typed_at < ?", cutoff).Delete(&models.TypingIndicator{})
	return res.RowsAffected, res.Error
}
