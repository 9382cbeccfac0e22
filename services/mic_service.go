package services

import (
	"VoiceHub/models"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotRoomAdmin      = errors.New("only a room admin can manage the mic")
	ErrMicAlreadyGranted = errors.New("mic already granted")
	ErrMicNotGranted     = errors.New("mic not granted")
	ErrRoomFull          = errors.New("speaker slots are full")
)

// MicService 管理谁可以上麦。只改权限状态，混音由外部音频服务负责
type MicService struct {
	db *gorm.DB
}

func NewMicService(db *gorm.DB) *MicService {
	return &MicService{db: db}
}

type MicState struct {
	Role            models.RoomRole `json:"role"`
	CurrentSpeakers int             `json:"current_speakers"`
	MaxSpeakers     int             `json:"max_speakers"`
}

// Grant 授麦。容量检查和计数自增必须是同一条条件 UPDATE：
// 先查再加两步走在并发授麦下会超出 max_speakers
func (s *MicService) Grant(roomID uint, actor *models.User, targetUserID uint) (*MicState, error) {
	var state MicState
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.requireRoomAdmin(tx, roomID, actor.ID); err != nil {
			return err
		}

		var target models.Participant
		if err := tx.Where("room_id = ? AND user_id = ?", roomID, targetUserID).
			First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrParticipantNotFound
			}
			return err
		}
		if target.MicGranted {
			return ErrMicAlreadyGranted
		}

		// 名额占用：条件自增，受影响 0 行即满员
		res := tx.Model(&models.Room{}).
			Where("id = ? AND current_speakers < max_speakers", roomID).
			UpdateColumn("current_speakers", gorm.Expr("current_speakers + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRoomFull
		}

		// 同一事务里翻转参与者状态，role 和 mic_granted 永远同步
		res = tx.Model(&models.Participant{}).
			Where("id = ? AND mic_granted = ?", target.ID, false).
			Updates(map[string]interface{}{
				"role":        models.RoomRoleSpeaker,
				"mic_granted": true,
				"hand_raised": false,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 另一个管理员抢先授了麦，回滚占用的名额
			return ErrMicAlreadyGranted
		}

		return s.loadState(tx, roomID, models.RoomRoleSpeaker, &state)
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Revoke 收麦，与 Grant 对称。计数下限 0，容忍历史漂移
func (s *MicService) Revoke(roomID uint, actor *models.User, targetUserID uint) (*MicState, error) {
	var state MicState
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.requireRoomAdmin(tx, roomID, actor.ID); err != nil {
			return err
		}

		var target models.Participant
		if err := tx.Where("room_id = ? AND user_id = ?", roomID, targetUserID).
			First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrParticipantNotFound
			}
			return err
		}
		if !target.MicGranted {
			return ErrMicNotGranted
		}

		res := tx.Model(&models.Participant{}).
			Where("id = ? AND mic_granted = ?", target.ID, true).
			Updates(map[string]interface{}{
				"role":        models.RoomRoleListener,
				"mic_granted": false,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrMicNotGranted
		}

		if err := tx.Model(&models.Room{}).
			Where("id = ? AND current_speakers > 0", roomID).
			UpdateColumn("current_speakers", gorm.Expr("current_speakers - 1")).Error; err != nil {
			return err
		}

		return s.loadState(tx, roomID, models.RoomRoleListener, &state)
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// RecountSpeakers 审计路径：从 participants 表重算计数，修正漂移。
// 缓存计数只是快路径优化，事实来源永远是参与者行
func (s *MicService) RecountSpeakers(roomID uint) (int, error) {
	var count int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.First(&room, roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
		var granted int64
		if err := tx.Model(&models.Participant{}).
			Where("room_id = ? AND mic_granted = ?", roomID, true).
			Count(&granted).Error; err != nil {
			return err
		}
		count = int(granted)
		return tx.Model(&models.Room{}).
			Where("id = ?", roomID).
			UpdateColumn("current_speakers", count).Error
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *MicService) requireRoomAdmin(tx *gorm.DB, roomID, userID uint) error {
	var actor models.Participant
	if err := tx.Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&actor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotRoomAdmin
		}
		return err
	}
	if actor.Role != models.RoomRoleAdmin {
		return ErrNotRoomAdmin
	}
	return nil
}

func (s *MicService) loadState(tx *gorm.DB, roomID uint, role models.RoomRole, state *MicState) error {
	var room models.Room
	if err := tx.First(&room, roomID).Error; err != nil {
		return err
	}
	state.Role = role
	state.CurrentSpeakers = room.CurrentSpeakers
	state.MaxSpeakers = room.MaxSpeakers
	return nil
}
