package services

import (
	"VoiceHub/config"
	"VoiceHub/events"
	"VoiceHub/models"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidMonth     = errors.New("month must be formatted as YYYY-MM")
	ErrMonthFinalized   = errors.New("month is already finalized")
	ErrNothingToClose   = errors.New("no active hosts to close")
	ErrInvalidRateValue = errors.New("points_per_currency override must be > 0")
)

// ClosingService 月度结算：把当月礼物流水聚合成每主播的收益行。
// 纯重算，未冻结的月份可以反复执行
type ClosingService struct {
	db       *gorm.DB
	economy  config.EconomyConfig
	producer *events.Producer
}

func NewClosingService(db *gorm.DB, economy config.EconomyConfig, producer *events.Producer) *ClosingService {
	return &ClosingService{db: db, economy: economy, producer: producer}
}

type CloseResult struct {
	MonthYear       string                   `json:"month_year"`
	HostsProcessed  int                      `json:"hosts_processed"`
	HostsFailed     []uint                   `json:"hosts_failed"`
	MonthlyEarnings []models.MonthlyEarnings `json:"monthly_earnings"`
}

// MonthWindow 自然月窗口：当月 1 号零点（含）到次月 1 号零点（不含）。
// 半开区间对 28/29/30/31 天的月份都成立
func MonthWindow(monthYear string) (time.Time, time.Time, error) {
	t, err := time.Parse("2006-01", monthYear)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidMonth
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

// Close 对每个在册主播独立结算。单个主播失败只记录并继续，
// 调用方拿到失败清单后重跑即可；跨主播没有原子性要求
func (s *ClosingService) Close(monthYear string, pointsPerCurrencyOverride *float64) (*CloseResult, error) {
	start, end, err := MonthWindow(monthYear)
	if err != nil {
		return nil, err
	}

	rate := s.economy.PointsPerCurrency
	if pointsPerCurrencyOverride != nil {
		if *pointsPerCurrencyOverride <= 0 {
			return nil, ErrInvalidRateValue
		}
		rate = *pointsPerCurrencyOverride
	}

	if err := s.guardMonthOpen(monthYear); err != nil {
		return nil, err
	}

	var hosts []models.Host
	if err := s.db.Where("is_active = ?", true).Find(&hosts).Error; err != nil {
		return nil, fmt.Errorf("load hosts: %w", err)
	}
	if len(hosts) == 0 {
		return nil, ErrNothingToClose
	}

	result := &CloseResult{MonthYear: monthYear, HostsFailed: []uint{}}
	for i := range hosts {
		earnings, hostErr := s.closeHost(&hosts[i], monthYear, start, end, rate)
		if hostErr != nil {
			log.Printf("close-month %s: host %d failed: %v", monthYear, hosts[i].ID, hostErr)
			result.HostsFailed = append(result.HostsFailed, hosts[i].ID)
			continue
		}
		result.HostsProcessed++
		result.MonthlyEarnings = append(result.MonthlyEarnings, *earnings)
	}

	if result.HostsProcessed > 0 {
		if err := s.markClosing(monthYear); err != nil {
			log.Printf("close-month %s: month status update failed: %v", monthYear, err)
		}
		if s.producer != nil {
			s.producer.PublishMonthClosed(monthYear, result.HostsProcessed)
		}
	}
	return result, nil
}

// closeHost 单主播一个事务：读流水、算分成、写收益行、清缓存计数
func (s *ClosingService) closeHost(host *models.Host, monthYear string, start, end time.Time, rate float64) (*models.MonthlyEarnings, error) {
	var earnings models.MonthlyEarnings
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 无公会的主播不抽成，全额归主播；公会行缺失才退回默认抽成。
		// 抽走的每一份都必须在 finalize 时对应一条支付义务
		var agency models.Agency
		split := 0.0
		if host.AgencyID != 0 {
			split = s.economy.DefaultAgencySplit
			if err := tx.First(&agency, host.AgencyID).Error; err == nil {
				split = agency.PayoutSplit
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		type tally struct {
			Count  int64
			Points int64
		}
		var t tally
		if err := tx.Model(&models.Gift{}).
			Select("COUNT(*) AS count, COALESCE(SUM(points), 0) AS points").
			Where("receiver_host_id = ? AND created_at >= ? AND created_at < ?", host.ID, start, end).
			Scan(&t).Error; err != nil {
			return err
		}

		currency := float64(t.Points) / rate
		agencyShare := currency * (split / 100)
		hostShare := currency - agencyShare

		earnings = models.MonthlyEarnings{
			HostID:        host.ID,
			MonthYear:     monthYear,
			TotalGifts:    t.Count,
			TotalPoints:   t.Points,
			TotalCurrency: currency,
			AgencyShare:   agencyShare,
			HostShare:     hostShare,
		}
		// 重跑直接覆盖未冻结的行
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "host_id"}, {Name: "month_year"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_gifts", "total_points", "total_currency",
				"agency_share", "host_share", "updated_at",
			}),
		}).Create(&earnings).Error; err != nil {
			return err
		}

		// 缓存计数清零。不是事实来源，丢了也能重算
		return tx.Model(&models.Host{}).
			Where("id = ?", host.ID).
			UpdateColumn("monthly_gifts", 0).Error
	})
	if err != nil {
		return nil, err
	}
	return &earnings, nil
}

// guardMonthOpen 状态机挡板：月份一旦 finalized 或已有冻结行就拒绝重算
func (s *ClosingService) guardMonthOpen(monthYear string) error {
	var status models.MonthStatus
	err := s.db.Where("month_year = ?", monthYear).First(&status).Error
	if err == nil && status.Phase == models.MonthFinalized {
		return ErrMonthFinalized
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("load month status: %w", err)
	}

	var finalized int64
	if err := s.db.Model(&models.MonthlyEarnings{}).
		Where("month_year = ? AND is_finalized = ?", monthYear, true).
		Count(&finalized).Error; err != nil {
		return fmt.Errorf("check finalized rows: %w", err)
	}
	if finalized > 0 {
		return ErrMonthFinalized
	}
	return nil
}

func (s *ClosingService) markClosing(monthYear string) error {
	status := models.MonthStatus{MonthYear: monthYear, Phase: models.MonthClosing}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "month_year"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"phase": models.MonthClosing}),
	}).Create(&status).Error
}
