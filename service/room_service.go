package service

import (
	"errors"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lusotown/community-chat/models"
)

type RoomService struct {
	*Service
}

func NewRoomService(s *Service) *RoomService {
	log.Println("NewRoomService")
	return &RoomService{Service: s}
}

// RoomDTO 房间列表返回结构
type RoomDTO struct {
	ID             uint64    `json:"id"`
	RoomAccount    string    `json:"room_account"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	IsPrivate      bool      `json:"is_private"`
	MaxMembers     *int      `json:"max_members,omitempty"`
	MemberCount    int       `json:"member_count"`
	CreatorID      uint64    `json:"creator_id"`
	Rules          string    `json:"rules,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	IsJoined       bool      `json:"is_joined"`
	LastActivityAt time.Time `json:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// RoomMemberDTO 房间成员（带资料投影）
type RoomMemberDTO struct {
	UserID         uint64    `json:"user_id"`
	DisplayName    string    `json:"display_name"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	MembershipTier string    `json:"membership_tier"`
	Role           string    `json:"role"`
	JoinedAt       time.Time `json:"joined_at"`
}

// RoomDetailDTO 房间详情：房间 + 活跃成员 + 版主列表
type RoomDetailDTO struct {
	RoomDTO
	Members    []RoomMemberDTO `json:"members"`
	Moderators []uint64        `json:"moderators"`
}

func toRoomDTO(r *models.Room, joined bool) RoomDTO {
	return RoomDTO{
		ID:             r.ID,
		RoomAccount:    r.RoomAccount,
		Name:           r.Name,
		Description:    r.Description,
		Category:       r.Category,
		IsPrivate:      r.IsPrivate,
		MaxMembers:     r.MaxMembers,
		MemberCount:    r.MemberCount,
		CreatorID:      r.CreatorID,
		Rules:          r.Rules,
		ImageURL:       r.ImageURL,
		IsJoined:       joined,
		LastActivityAt: r.LastActivityAt,
		CreatedAt:      r.CreatedAt,
	}
}

// ListRooms 列出所有活跃房间。userID > 0 时标记该用户已加入的房间，
// 排序：已加入在前，其余按最后活跃时间倒序。
func (s *RoomService) ListRooms(userID uint64) ([]RoomDTO, error) {
	var rooms []models.Room
	err := s.DB.Model(&models.Room{}).
		Where("is_active = ?", true).
		Order("last_activity_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return []RoomDTO{}, nil
	}

	joinedSet := make(map[uint64]struct{})
	if userID > 0 {
		var joinedIDs []uint64
		err := s.DB.Model(&models.RoomMember{}).
			Where("user_id = ? AND is_active = ?", userID, true).
			Pluck("room_id", &joinedIDs).Error
		if err != nil {
			return nil, err
		}
		for _, id := range joinedIDs {
			joinedSet[id] = struct{}{}
		}
	}

	dtos := make([]RoomDTO, len(rooms))
	for i := range rooms {
		_, joined := joinedSet[rooms[i].ID]
		dtos[i] = toRoomDTO(&rooms[i], joined)
	}

	sort.SliceStable(dtos, func(i, j int) bool {
		if dtos[i].IsJoined != dtos[j].IsJoined {
			return dtos[i].IsJoined
		}
		return dtos[i].LastActivityAt.After(dtos[j].LastActivityAt)
	})

	return dtos, nil
}

// GetRoom 房间详情：活跃成员带资料投影，版主列表从 role 算出。
// viewerID > 0 时顺带标记是否已加入。
func (s *RoomService) GetRoom(roomID, viewerID uint64) (*RoomDetailDTO, error) {
	var room models.Room
	err := s.DB.Preload("Members", "is_active = ?", true).
		Preload("Members.User").
		First(&room, roomID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	joined := false
	members := make([]RoomMemberDTO, 0, len(room.Members))
	moderators := make([]uint64, 0)
	for i := range room.Members {
		m := &room.Members[i]
		if viewerID > 0 && m.UserID == viewerID {
			joined = true
		}
		members = append(members, RoomMemberDTO{
			UserID:         m.UserID,
			DisplayName:    m.User.DisplayName(),
			AvatarURL:      m.User.AvatarURL,
			MembershipTier: m.User.MembershipTier,
			Role:           m.Role,
			JoinedAt:       m.JoinedAt,
		})
		if m.Role == models.RoleModerator || m.Role == models.RoleAdmin {
			moderators = append(moderators, m.UserID)
		}
	}

	return &RoomDetailDTO{
		RoomDTO:    toRoomDTO(&room, joined),
		Members:    members,
		Moderators: moderators,
	}, nil
}

// CreateRoomSpec 创建房间参数
type CreateRoomSpec struct {
	Name        string
	Description string
	Category    string
	IsPrivate   bool
	MaxMembers  *int
	Rules       string
	ImageURL    string
}

// CreateRoom 建房 + 创建者 admin 成员，同一事务完成，不会留下无主房间。
func (s *RoomService) CreateRoom(spec CreateRoomSpec, creatorID uint64) (*RoomDTO, error) {
	now := time.Now()
	room := &models.Room{
		RoomAccount:    uuid.New().String(),
		Name:           spec.Name,
		Description:    spec.Description,
		Category:       spec.Category,
		IsPrivate:      spec.IsPrivate,
		MaxMembers:     spec.MaxMembers,
		MemberCount:    1,
		CreatorID:      creatorID,
		IsActive:       true,
		Rules:          spec.Rules,
		ImageURL:       spec.ImageURL,
		LastActivityAt: now,
	}
	if room.Category == "" {
		room.Category = "General"
	}

	tx := s.DB.Begin()
	defer tx.Rollback()

	if err := tx.Create(room).Error; err != nil {
		return nil, err
	}
	member := &models.RoomMember{
		RoomID:   room.ID,
		UserID:   creatorID,
		Role:     models.RoleAdmin,
		IsActive: true,
		JoinedAt: now,
	}
	if err := tx.Create(member).Error; err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	dto := toRoomDTO(room, true)
	return &dto, nil
}

// JoinRoom 加入房间。前置检查顺序：房间存在且活跃 -> 未在房内 -> 有空位。
// 容量检查与计数自增合并成一条条件 UPDATE，并发加入只会有一个抢到最后的位置，
// 不会出现双双通过检查后把房间挤爆的情况。
// 计数策略：absent->active 和 inactive->active 都自增（leave 必减一，两边对称）。
func (s *RoomService) JoinRoom(roomID, userID uint64) error {
	var room models.Room
	err := s.DB.Select("id, is_active").First(&room, roomID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoomNotFound
		}
		return err
	}
	if !room.IsActive {
		return ErrRoomInactive
	}

	var existing models.RoomMember
	err = s.DB.Where("room_id = ? AND user_id = ?", roomID, userID).First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err == nil && existing.IsActive {
		return ErrAlreadyMember
	}

	now := time.Now()

	tx := s.DB.Begin()
	defer tx.Rollback()

	res := tx.Model(&models.Room{}).
		Where("id = ? AND is_active = ?", roomID, true).
		Where("max_members IS NULL OR member_count < max_members").
		UpdateColumn("member_count", gorm.Expr("member_count + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRoomFull
	}

	member := &models.RoomMember{
		RoomID:   roomID,
		UserID:   userID,
		Role:     models.RoleMember,
		IsActive: true,
		JoinedAt: now,
	}
	err = tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"is_active":  true,
			"role":       models.RoleMember,
			"joined_at":  now,
			"updated_at": now,
		}),
	}).Create(member).Error
	if err != nil {
		return err
	}

	return tx.Commit().Error
}

// LeaveRoom 退出房间：成员软删 + 计数减一（不减到负数），同一事务。
func (s *RoomService) LeaveRoom(roomID, userID uint64) error {
	var member models.RoomMember
	err := s.DB.Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, userID, true).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotMember
		}
		return err
	}

	tx := s.DB.Begin()
	defer tx.Rollback()

	err = tx.Model(&models.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("is_active", false).Error
	if err != nil {
		return err
	}

	err = tx.Model(&models.Room{}).
		Where("id = ? AND member_count > ?", roomID, 0).
		UpdateColumn("member_count", gorm.Expr("member_count - ?", 1)).Error
	if err != nil {
		return err
	}

	return tx.Commit().Error
}

// GetActiveMemberIDs 获取房间活跃成员的用户ID列表
func (s *RoomService) GetActiveMemberIDs(roomID uint64) ([]uint64, error) {
	var ids []uint64
	err := s.DB.Model(&models.RoomMember{}).
		Where("room_id = ? AND is_active = ?", roomID, true).
		Pluck("user_id", &ids).Error
	return ids, err
}

// IsActiveMember 检查用户是否是房间活跃成员
func (s *RoomService) IsActiveMember(roomID, userID uint64) (bool, error) {
	var count int64
	err := s.DB.Model(&models.RoomMember{}).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, userID, true).
		Count(&count).Error
	return count > 0, err
}
