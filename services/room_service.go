package services

import (
	"VoiceHub/models"
	"VoiceHub/redis"
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomInactive        = errors.New("room is not active")
	ErrAccessDenied        = errors.New("access denied")
	ErrParticipantNotFound = errors.New("participant not found")
)

type RoomService struct {
	db    *gorm.DB
	redis *redis.RedisClient // 可为 nil（测试环境），在线列表是尽力而为
}

func NewRoomService(db *gorm.DB, redisClient *redis.RedisClient) *RoomService {
	return &RoomService{db: db, redis: redisClient}
}

type CreateRoomInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxSpeakers int    `json:"max_speakers"`
}

func (s *RoomService) CreateRoom(input CreateRoomInput, user *models.User) (*models.Room, error) {
	if input.MaxSpeakers <= 0 {
		input.MaxSpeakers = 8
	}
	room := models.Room{
		Name:        input.Name,
		Description: input.Description,
		OwnerID:     user.ID,
		MaxSpeakers: input.MaxSpeakers,
		IsActive:    true,
	}
	// 房主同时落一条 room_admin 的参与记录
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return err
		}
		owner := models.Participant{
			RoomID: room.ID,
			UserID: user.ID,
			Role:   models.RoomRoleAdmin,
		}
		return tx.Create(&owner).Error
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *RoomService) ListRooms() ([]models.RoomWithUser, error) {
	var results []models.RoomWithUser
	err := s.db.Table("rooms").
		Select("rooms.*, users.username").
		Joins("LEFT JOIN users ON users.id = rooms.owner_id").
		Where("rooms.is_active = ?", true).
		Order("rooms.created_at DESC").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	if s.redis != nil {
		ctx := context.Background()
		for i := 0; i < len(results); i++ {
			users, redisErr := s.redis.GetOnlineUsers(ctx, results[i].ID)
			if redisErr != nil {
				continue
			}
			results[i].OnlineUsers = uint(len(users))
		}
	}
	return results, nil
}

func (s *RoomService) GetRoomByID(id uint) (models.RoomWithUser, error) {
	var result models.RoomWithUser
	err := s.db.Table("rooms").
		Select("rooms.*, users.username").
		Joins("LEFT JOIN users ON users.id = rooms.owner_id").
		Where("rooms.id = ?", id).
		Scan(&result).Error
	if err != nil {
		return result, err
	}
	if result.ID == 0 {
		return result, ErrRoomNotFound
	}
	return result, nil
}

// SetLive 开播/下播，仅房主
func (s *RoomService) SetLive(roomID uint, live bool, user *models.User) (*models.Room, error) {
	var room models.Room
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&room, roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
		if room.OwnerID != user.ID {
			return ErrAccessDenied
		}
		room.IsLive = live
		return tx.Model(&room).Update("is_live", live).Error
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// DeleteRoom 删除房间，仅房主。必须用事务，确保"先查后删"的原子性
func (s *RoomService) DeleteRoom(roomID uint, user *models.User) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.First(&room, roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
		if room.OwnerID != user.ID {
			return ErrAccessDenied
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.Participant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&room).Error
	})
}

// Join 加入房间。重复加入返回已有记录；房主加入拿 room_admin，其余 listener
func (s *RoomService) Join(roomID uint, user *models.User) (*models.Participant, error) {
	var participant models.Participant
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.First(&room, roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
		if !room.IsActive {
			return ErrRoomInactive
		}
		err := tx.Where("room_id = ? AND user_id = ?", roomID, user.ID).First(&participant).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		role := models.RoomRoleListener
		if room.OwnerID == user.ID {
			role = models.RoomRoleAdmin
		}
		participant = models.Participant{
			RoomID: roomID,
			UserID: user.ID,
			Role:   role,
		}
		return tx.Create(&participant).Error
	})
	if err != nil {
		return nil, err
	}
	s.trackPresence(roomID, user, true)
	return &participant, nil
}

// Leave 离开房间。持麦者离开要释放名额，计数下限 0 容忍漂移。
// 条件删除 + 受影响行数判断，避免"先查后删"在并发下重复扣减
func (s *RoomService) Leave(roomID uint, user *models.User) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		granted := tx.Where("room_id = ? AND user_id = ? AND mic_granted = ?", roomID, user.ID, true).
			Delete(&models.Participant{})
		if granted.Error != nil {
			return granted.Error
		}
		if granted.RowsAffected > 0 {
			return tx.Model(&models.Room{}).
				Where("id = ? AND current_speakers > 0", roomID).
				UpdateColumn("current_speakers", gorm.Expr("current_speakers - 1")).Error
		}
		listener := tx.Where("room_id = ? AND user_id = ?", roomID, user.ID).
			Delete(&models.Participant{})
		if listener.Error != nil {
			return listener.Error
		}
		if listener.RowsAffected == 0 {
			return ErrParticipantNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.trackPresence(roomID, user, false)
	return nil
}

func (s *RoomService) GetParticipant(roomID, userID uint) (*models.Participant, error) {
	var participant models.Participant
	err := s.db.Where("room_id = ? AND user_id = ?", roomID, userID).First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return &participant, nil
}

func (s *RoomService) ListParticipants(roomID uint) ([]models.ParticipantWithUser, error) {
	var results []models.ParticipantWithUser
	err := s.db.Table("participants").
		Select("participants.*, users.username").
		Joins("LEFT JOIN users ON users.id = participants.user_id").
		Where("participants.room_id = ?", roomID).
		Order("participants.created_at ASC").
		Scan(&results).Error
	return results, err
}

// SetHandRaised 举手/放下。授麦会顺带清掉举手标志，见 MicService
func (s *RoomService) SetHandRaised(roomID uint, user *models.User, raised bool) (*models.Participant, error) {
	participant, err := s.GetParticipant(roomID, user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(participant).Update("hand_raised", raised).Error; err != nil {
		return nil, err
	}
	participant.HandRaised = raised
	return participant, nil
}

func (s *RoomService) trackPresence(roomID uint, user *models.User, online bool) {
	if s.redis == nil {
		return
	}
	ctx := context.Background()
	if online {
		if err := s.redis.AddOnlineUser(ctx, roomID, user.ID, user.Username); err != nil {
			return
		}
	} else {
		_ = s.redis.RemoveOnlineUser(ctx, roomID, user.ID)
	}
}
