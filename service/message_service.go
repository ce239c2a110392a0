package service

import (
	"encoding/json"
	"errors"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lusotown/community-chat/cons"
	"github.com/lusotown/community-chat/models"
)

// SenderDTO 发送人信息（用于消息列表返回）
type SenderDTO struct {
	ID             uint64 `json:"id"`
	DisplayName    string `json:"display_name"`
	AvatarURL      string `json:"avatar_url,omitempty"`
	MembershipTier string `json:"membership_tier"`
}

// ReactionDTO 消息回应
type ReactionDTO struct {
	ID        uint64    `json:"id"`
	MessageID uint64    `json:"message_id"`
	UserID    uint64    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// Attachment 结构化附件引用（落库为 JSON）
type Attachment struct {
	ID       string `json:"id"`
	Type     string `json:"type"` // image / file / link
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Preview  string `json:"preview,omitempty"`
}

// MessageListItemDTO 消息列表项（带发送人与回应；不返回 Room，避免冗余）
type MessageListItemDTO struct {
	ID           uint64        `json:"id"`
	MessageUUID  string        `json:"message_uuid"`
	RoomID       uint64        `json:"room_id"`
	SenderID     uint64        `json:"sender_id"`
	Sender       *SenderDTO    `json:"sender,omitempty"`
	ReplyToMsgID *uint64       `json:"reply_to_msg_id,omitempty"`
	Type         string        `json:"type"`
	Content      string        `json:"content"`
	Mentions     []string      `json:"mentions,omitempty"`
	Attachments  []Attachment  `json:"attachments,omitempty"`
	Reactions    []ReactionDTO `json:"reactions"`
	IsEdited     bool          `json:"is_edited"`
	EditedAt     *time.Time    `json:"edited_at,omitempty"`
	IsPinned     bool          `json:"is_pinned"`
	PinnedBy     *uint64       `json:"pinned_by,omitempty"`
	PinnedAt     *time.Time    `json:"pinned_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func toSenderDTO(p *models.Profile) *SenderDTO {
	if p == nil || p.ID == 0 {
		return nil
	}
	return &SenderDTO{
		ID:             p.ID,
		DisplayName:    p.DisplayName(),
		AvatarURL:      p.AvatarURL,
		MembershipTier: p.MembershipTier,
	}
}

func toMessageListItemDTO(m *models.Message) *MessageListItemDTO {
	if m == nil {
		return nil
	}
	dto := &MessageListItemDTO{
		ID:           m.ID,
		MessageUUID:  m.MessageUUID,
		RoomID:       m.RoomID,
		SenderID:     m.SenderID,
		Sender:       toSenderDTO(&m.Sender),
		ReplyToMsgID: m.ReplyToMsgID,
		Type:         m.Type,
		Content:      m.Content,
		Reactions:    make([]ReactionDTO, 0, len(m.Reactions)),
		IsEdited:     m.IsEdited,
		EditedAt:     m.EditedAt,
		IsPinned:     m.IsPinned,
		PinnedBy:     m.PinnedBy,
		PinnedAt:     m.PinnedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if len(m.Mentions) > 0 {
		_ = json.Unmarshal(m.Mentions, &dto.Mentions)
	}
	if len(m.Attachments) > 0 {
		_ = json.Unmarshal(m.Attachments, &dto.Attachments)
	}
	for i := range m.Reactions {
		r := &m.Reactions[i]
		dto.Reactions = append(dto.Reactions, ReactionDTO{
			ID:        r.ID,
			MessageID: r.MessageID,
			UserID:    r.UserID,
			UserName:  r.User.DisplayName(),
			Emoji:     r.Emoji,
			CreatedAt: r.CreatedAt,
		})
	}
	return dto
}

func toMessageListItemDTOs(msgs []models.Message) []MessageListItemDTO {
	out := make([]MessageListItemDTO, 0, len(msgs))
	for i := range msgs {
		if dto := toMessageListItemDTO(&msgs[i]); dto != nil {
			out = append(out, *dto)
		}
	}
	return out
}

// mentionPattern @name 词元。用 \p{L}\p{N} 而不是 \w：ASCII \w 会把
// "joão" 切成 "jo"，对一个葡语社区来说不可接受。
var mentionPattern = regexp.MustCompile(`@([\p{L}\p{N}_]+)`)

// ExtractMentions 从消息内容里抽取 @name 列表
func ExtractMentions(content string) []string {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	mentions := make([]string, 0, len(matches))
	for _, m := range matches {
		mentions = append(mentions, m[1])
	}
	return mentions
}

type MessageService struct {
	*Service
	messageDAO *models.MessageDAO
}

func NewMessageService(s *Service) *MessageService {
	log.Println("NewMessageService")
	return &MessageService{Service: s, messageDAO: models.NewMessageDAO(s.DB)}
}

// GetRoomMessages 获取房间消息（游标分页）。
// 按创建时间倒序取 limit 条（before 非 nil 时 created_at < before），
// 再反转为时间正序返回。软删消息不出现在结果里。
func (s *MessageService) GetRoomMessages(roomID uint64, limit int, before *time.Time) ([]MessageListItemDTO, error) {
	if limit <= 0 {
		limit = 50
	}
	msgs, err := s.messageDAO.FindVisibleByRoom(roomID, limit, before)
	if err != nil {
		return nil, err
	}
	// 倒序查出来的，反转成 oldest-first
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return toMessageListItemDTOs(msgs), nil
}

// SendMessage 发送消息。发送者必须是房间活跃成员（否则 ErrNotAuthorized，
// 与房间不存在是两码事）。replyTo 不校验有效性。
func (s *MessageService) SendMessage(roomID, senderID uint64, content, msgType string, replyTo *uint64, attachments []Attachment) (*MessageListItemDTO, error) {
	ok, err := s.isActiveMember(roomID, senderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthorized
	}

	if msgType == "" {
		msgType = models.MessageTypeText
	}

	mentionsJSON, err := json.Marshal(ExtractMentions(content))
	if err != nil {
		return nil, err
	}
	for i := range attachments {
		if attachments[i].ID == "" {
			attachments[i].ID = uuid.New().String()
		}
	}
	attachmentsJSON, err := json.Marshal(attachments)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		MessageUUID:  uuid.New().String(),
		RoomID:       roomID,
		SenderID:     senderID,
		ReplyToMsgID: replyTo,
		Type:         msgType,
		Content:      strings.TrimSpace(content),
		Mentions:     datatypes.JSON(mentionsJSON),
		Attachments:  datatypes.JSON(attachmentsJSON),
	}
	if err := s.messageDAO.Create(msg); err != nil {
		return nil, err
	}

	// 刷新房间最后活跃时间（尽力而为）
	now := time.Now()
	if err := s.DB.Model(&models.Room{}).Where("id = ?", roomID).
		UpdateColumns(map[string]interface{}{"last_activity_at": now, "updated_at": now}).Error; err != nil {
		log.Printf("SendMessage touch room %d: %v", roomID, err)
	}

	s.notifyChange(cons.MessagesChannel(roomID), cons.TableMessages, cons.OpInsert, roomID)

	var sender models.Profile
	if err := s.DB.First(&sender, senderID).Error; err != nil {
		log.Printf("SendMessage load sender %d: %v", senderID, err)
	}
	msg.Sender = sender

	return toMessageListItemDTO(msg), nil
}

// EditMessage 编辑消息。作者校验直接编进 UPDATE 谓词（id + sender_id），
// 不做读后判，零行命中再区分是没这条消息还是不是作者。
func (s *MessageService) EditMessage(messageID, editorID uint64, content string) error {
	mentionsJSON, err := json.Marshal(ExtractMentions(content))
	if err != nil {
		return err
	}
	now := time.Now()

	res := s.DB.Model(&models.Message{}).
		Where("id = ? AND sender_id = ? AND is_deleted = ?", messageID, editorID, false).
		Updates(map[string]interface{}{
			"content":   strings.TrimSpace(content),
			"mentions":  datatypes.JSON(mentionsJSON),
			"is_edited": true,
			"edited_at": &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.classifyMiss(messageID)
	}

	if roomID, err := s.roomIDOf(messageID); err == nil {
		s.notifyChange(cons.MessagesChannel(roomID), cons.TableMessages, cons.OpUpdate, roomID)
	}
	return nil
}

// DeleteMessage 软删消息：打标记、盖时间戳、内容替换为占位符。
// 原文从此在本层不可恢复。同样靠谓词做作者校验。
func (s *MessageService) DeleteMessage(messageID, requesterID uint64) error {
	now := time.Now()
	res := s.DB.Model(&models.Message{}).
		Where("id = ? AND sender_id = ? AND is_deleted = ?", messageID, requesterID, false).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": &now,
			"content":    models.DeletedPlaceholder,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.classifyMiss(messageID)
	}

	if roomID, err := s.roomIDOf(messageID); err == nil {
		s.notifyChange(cons.MessagesChannel(roomID), cons.TableMessages, cons.OpDelete, roomID)
	}
	return nil
}

// AddReaction 添加回应。(message_id, user_id, emoji) 唯一键上
// OnConflict DoNothing，重复添加是无声的成功。
func (s *MessageService) AddReaction(messageID, userID uint64, emoji string) error {
	roomID, err := s.roomIDOf(messageID)
	if err != nil {
		return err
	}

	reaction := &models.MessageReaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
	}
	err = s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}, {Name: "emoji"}},
		DoNothing: true,
	}).Create(reaction).Error
	if err != nil {
		return err
	}

	s.notifyChange(cons.MessagesChannel(roomID), cons.TableMessageReactions, cons.OpInsert, roomID)
	return nil
}

// RemoveReaction 精确删除回应；删不存在的回应同样算成功。
func (s *MessageService) RemoveReaction(messageID, userID uint64, emoji string) error {
	roomID, err := s.roomIDOf(messageID)
	if err != nil {
		return err
	}

	err = s.DB.Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		Delete(&models.MessageReaction{}).Error
	if err != nil {
		return err
	}

	s.notifyChange(cons.MessagesChannel(roomID), cons.TableMessageReactions, cons.OpDelete, roomID)
	return nil
}

// PinMessage 置顶消息，只有房间的 moderator/admin 可以操作。
func (s *MessageService) PinMessage(messageID, actorID uint64) error {
	return s.setPinned(messageID, actorID, true)
}

// UnpinMessage 取消置顶
func (s *MessageService) UnpinMessage(messageID, actorID uint64) error {
	return s.setPinned(messageID, actorID, false)
}

func (s *MessageService) setPinned(messageID, actorID uint64, pinned bool) error {
	roomID, err := s.roomIDOf(messageID)
	if err != nil {
		return err
	}

	var count int64
	err = s.DB.Model(&models.RoomMember{}).
		Where("room_id = ? AND user_id = ? AND is_active = ? AND role IN ?",
			roomID, actorID, true, []string{models.RoleModerator, models.RoleAdmin}).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotAuthorized
	}

	updates := map[string]interface{}{
		"is_pinned": pinned,
		"pinned_by": nil,
		"pinned_at": nil,
	}
	if pinned {
		now := time.Now()
		updates["pinned_by"] = actorID
		updates["pinned_at"] = &now
	}
	err = s.DB.Model(&models.Message{}).
		Where("id = ? AND is_deleted = ?", messageID, false).
		Updates(updates).Error
	if err != nil {
		return err
	}

	s.notifyChange(cons.MessagesChannel(roomID), cons.TableMessages, cons.OpUpdate, roomID)
	return nil
}

func (s *MessageService) isActiveMember(roomID, userID uint64) (bool, error) {
	var count int64
	err := s.DB.Model(&models.RoomMember{}).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, userID, true).
		Count(&count).Error
	return count > 0, err
}

// roomIDOf 取消息所在房间（软删的消息也算存在，但不再接受变更操作的靠谓词挡）。
func (s *MessageService) roomIDOf(messageID uint64) (uint64, error) {
	var msg models.Message
	err := s.DB.Select("id, room_id").First(&msg, messageID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrMessageNotFound
		}
		return 0, err
	}
	return msg.RoomID, nil
}

// classifyMiss 谓词更新零行命中后的归因：消息不存在还是无权操作。
func (s *MessageService) classifyMiss(messageID uint64) error {
	var count int64
	if err := s.DB.Model(&models.Message{}).Where("id = ?", messageID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return ErrNotAuthorized
}
