package models

import "time"

// MonthlyEarnings (host_id, month_year) 每主播每月一行。
// IsFinalized 一旦置位整行冻结
type MonthlyEarnings struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	HostID        uint      `json:"host_id" gorm:"uniqueIndex:idx_host_month;not null"`
	MonthYear     string    `json:"month_year" gorm:"uniqueIndex:idx_host_month;size:7;not null"` // "2025-07"
	TotalGifts    int64     `json:"total_gifts"`
	TotalPoints   int64     `json:"total_points"`
	TotalCurrency float64   `json:"total_currency"`
	AgencyShare   float64   `json:"agency_share"`
	HostShare     float64   `json:"host_share"`
	IsFinalized   bool      `json:"is_finalized" gorm:"default:false;index"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MonthPhase 月份结算状态机：open -> closing -> finalized
type MonthPhase string

const (
	MonthOpen      MonthPhase = "open"
	MonthClosing   MonthPhase = "closing"
	MonthFinalized MonthPhase = "finalized"
)

// MonthStatus 每月一行，显式记录结算推进到哪一步，
// 避免从零散的 is_finalized 标志位反推月份状态
type MonthStatus struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	MonthYear string     `json:"month_year" gorm:"uniqueIndex;size:7;not null"`
	Phase     MonthPhase `json:"phase" gorm:"size:16;not null;default:'open'"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutProcessing PayoutStatus = "processing"
	PayoutPaid       PayoutStatus = "paid"
)

type BeneficiaryType string

const (
	BeneficiaryHost   BeneficiaryType = "host"
	BeneficiaryAgency BeneficiaryType = "agency"
)

// Payout 支付义务，只由 finalize / repair 创建，执行转账不在本系统
type Payout struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	EarningsID      uint            `json:"earnings_id" gorm:"uniqueIndex:idx_earnings_beneficiary;not null"`
	BeneficiaryType BeneficiaryType `json:"beneficiary_type" gorm:"uniqueIndex:idx_earnings_beneficiary;size:8;not null"`
	BeneficiaryID   uint            `json:"beneficiary_id" gorm:"index;not null"`
	Amount          float64         `json:"amount" gorm:"not null"`
	Status          PayoutStatus    `json:"status" gorm:"size:16;not null;default:'pending'"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
