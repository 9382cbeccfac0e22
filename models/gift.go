package models

import "time"

// GiftCatalogEntry 礼物价目表，参考数据，运营改价不影响历史礼物
type GiftCatalogEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex"`
	Points    int64     `json:"points" gorm:"not null"`
	IconURL   string    `json:"icon_url"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Gift 礼物流水，只追加，结算以这张表为准。
// Points 在赠送时从价目表拷贝，之后改价不回溯
type Gift struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	RoomID         uint      `json:"room_id" gorm:"index"`
	SenderID       uint      `json:"sender_id" gorm:"index"`
	ReceiverHostID uint      `json:"receiver_host_id" gorm:"index:idx_gift_host_time"`
	CatalogEntryID uint      `json:"catalog_entry_id"`
	Points         int64     `json:"points" gorm:"not null"`
	Message        string    `json:"message" gorm:"size:255"`
	CreatedAt      time.Time `json:"created_at" gorm:"index:idx_gift_host_time"`
}
