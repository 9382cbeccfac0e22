package models

import "time"

// Host 主播档案。MonthlyGifts 只是展示用缓存，结算重算 gifts 表
type Host struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       uint      `json:"user_id" gorm:"uniqueIndex"`
	AgencyID     uint      `json:"agency_id" gorm:"index"`
	MonthlyGifts int64     `json:"monthly_gifts" gorm:"not null;default:0"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	User   *User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Agency *Agency `json:"agency,omitempty" gorm:"foreignKey:AgencyID"`
}

type Agency struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"uniqueIndex"`
	OwnerID     uint      `json:"owner_id" gorm:"index"`
	PayoutSplit float64   `json:"payout_split" gorm:"not null;default:0"` // 公会抽成百分比 0-100
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
