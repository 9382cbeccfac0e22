package services

import (
	"VoiceHub/events"
	"VoiceHub/models"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrGiftNotFound    = errors.New("gift not found in catalog")
	ErrGiftInactive    = errors.New("gift is not available")
	ErrRoomNotLive     = errors.New("room is not live")
	ErrHostNotFound    = errors.New("host not found")
	ErrSelfGift        = errors.New("cannot send a gift to yourself")
	ErrEmptyGiftPoints = errors.New("gift points must be positive")
)

// GiftService 礼物流水。送礼和上麦解耦，听众一样可以刷礼物
type GiftService struct {
	db       *gorm.DB
	producer *events.Producer // 可为 nil，事件丢失不影响流水落库
}

func NewGiftService(db *gorm.DB, producer *events.Producer) *GiftService {
	return &GiftService{db: db, producer: producer}
}

func (s *GiftService) ListCatalog() ([]models.GiftCatalogEntry, error) {
	var entries []models.GiftCatalogEntry
	err := s.db.Where("is_active = ?", true).Order("points ASC").Find(&entries).Error
	return entries, err
}

// CreateCatalogEntry 运营配置礼物，管理员接口
func (s *GiftService) CreateCatalogEntry(entry models.GiftCatalogEntry) (*models.GiftCatalogEntry, error) {
	if entry.Points <= 0 {
		return nil, ErrEmptyGiftPoints
	}
	entry.IsActive = true
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

type SendGiftInput struct {
	RoomID         uint   `json:"room_id"`
	ReceiverHostID uint   `json:"receiver_host_id"`
	GiftID         uint   `json:"gift_id"`
	Message        string `json:"message"`
}

// Send 落一条不可变流水。Points 在此刻从价目表拷贝，
// 之后运营改价不会回溯影响历史礼物
func (s *GiftService) Send(input SendGiftInput, sender *models.User) (*models.Gift, error) {
	var gift models.Gift
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.First(&room, input.RoomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
		if !room.IsActive {
			return ErrRoomInactive
		}
		if !room.IsLive {
			return ErrRoomNotLive
		}

		var entry models.GiftCatalogEntry
		if err := tx.First(&entry, input.GiftID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGiftNotFound
			}
			return err
		}
		if !entry.IsActive {
			return ErrGiftInactive
		}

		var host models.Host
		if err := tx.First(&host, input.ReceiverHostID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrHostNotFound
			}
			return err
		}
		if !host.IsActive {
			return ErrHostNotFound
		}
		if host.UserID == sender.ID {
			return ErrSelfGift
		}

		gift = models.Gift{
			ID:             uuid.NewString(),
			RoomID:         room.ID,
			SenderID:       sender.ID,
			ReceiverHostID: host.ID,
			CatalogEntryID: entry.ID,
			Points:         entry.Points,
			Message:        input.Message,
		}
		if err := tx.Create(&gift).Error; err != nil {
			return err
		}

		// 展示用计数，结算时会从 gifts 表重算，这里只是快路径
		return tx.Model(&models.Host{}).
			Where("id = ?", host.ID).
			UpdateColumn("monthly_gifts", gorm.Expr("monthly_gifts + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	if s.producer != nil {
		s.producer.PublishGiftSent(&gift)
	}
	return &gift, nil
}
