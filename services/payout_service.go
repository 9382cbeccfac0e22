package services

import (
	"VoiceHub/events"
	"VoiceHub/models"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNothingToFinalize = errors.New("no earnings to finalize for this month")

// PayoutService 冻结月份收益并产出支付义务。
// 冻结标志翻转和支付行生成是两个独立关注点：
// 前者必须全有或全无，后者逐行容错、可修复
type PayoutService struct {
	db       *gorm.DB
	producer *events.Producer
}

func NewPayoutService(db *gorm.DB, producer *events.Producer) *PayoutService {
	return &PayoutService{db: db, producer: producer}
}

type FinalizeResult struct {
	MonthYear          string `json:"month_year"`
	EarningsFinalized  int    `json:"earnings_finalized"`
	PayoutsCreated     int    `json:"payouts_created"`
	PayoutFailures     int    `json:"payout_failures"`
	FailedEarningsRows []uint `json:"failed_earnings_rows,omitempty"`
}

// Finalize 每月一次。标志翻转是一个原子批量事务——这里失败整个调用失败；
// 崩在"已冻结、支付行未建"之间时，重试会报无可冻结，由 Repair 补发
func (s *PayoutService) Finalize(monthYear string) (*FinalizeResult, error) {
	if _, _, err := MonthWindow(monthYear); err != nil {
		return nil, err
	}

	var rows []models.MonthlyEarnings
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("month_year = ? AND is_finalized = ?", monthYear, false).
			Find(&rows).Error; err != nil {
			return fmt.Errorf("load earnings: %w", err)
		}
		if len(rows) == 0 {
			// 二次调用合法地报告无事可做，也覆盖"已全部冻结"
			return ErrNothingToFinalize
		}
		if err := tx.Model(&models.MonthlyEarnings{}).
			Where("month_year = ? AND is_finalized = ?", monthYear, false).
			Update("is_finalized", true).Error; err != nil {
			return fmt.Errorf("finalize earnings: %w", err)
		}
		status := models.MonthStatus{MonthYear: monthYear, Phase: models.MonthFinalized}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "month_year"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"phase": models.MonthFinalized}),
		}).Create(&status).Error
	})
	if err != nil {
		return nil, err
	}

	result := &FinalizeResult{MonthYear: monthYear, EarningsFinalized: len(rows)}
	for i := range rows {
		created, emitErr := s.emitPayouts(&rows[i])
		if emitErr != nil {
			// 冻结不回滚，记下失败行，走 Repair 补发
			log.Printf("finalize %s: payout emission for earnings %d failed: %v", monthYear, rows[i].ID, emitErr)
			result.PayoutFailures++
			result.FailedEarningsRows = append(result.FailedEarningsRows, rows[i].ID)
			continue
		}
		result.PayoutsCreated += created
	}
	return result, nil
}

// Repair 显式、可审计的补发：给"已冻结但缺支付行"的收益行补建支付义务。
// 不会计算新的收益，也不会重复建行（唯一索引兜底）
func (s *PayoutService) Repair(monthYear string) (*FinalizeResult, error) {
	if _, _, err := MonthWindow(monthYear); err != nil {
		return nil, err
	}
	var rows []models.MonthlyEarnings
	if err := s.db.Where("month_year = ? AND is_finalized = ?", monthYear, true).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load finalized earnings: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNothingToFinalize
	}
	result := &FinalizeResult{MonthYear: monthYear}
	for i := range rows {
		created, emitErr := s.emitPayouts(&rows[i])
		if emitErr != nil {
			log.Printf("repair %s: earnings %d failed: %v", monthYear, rows[i].ID, emitErr)
			result.PayoutFailures++
			result.FailedEarningsRows = append(result.FailedEarningsRows, rows[i].ID)
			continue
		}
		result.PayoutsCreated += created
	}
	return result, nil
}

// emitPayouts 每行最多两条：主播份额、公会份额，零额不建行。
// OnConflict DoNothing 让补发天然幂等
func (s *PayoutService) emitPayouts(earnings *models.MonthlyEarnings) (int, error) {
	var host models.Host
	if err := s.db.First(&host, earnings.HostID).Error; err != nil {
		return 0, fmt.Errorf("load host %d: %w", earnings.HostID, err)
	}

	created := 0
	if earnings.HostShare > 0 {
		n, err := s.createPayout(models.Payout{
			EarningsID:      earnings.ID,
			BeneficiaryType: models.BeneficiaryHost,
			BeneficiaryID:   host.ID,
			Amount:          earnings.HostShare,
			Status:          models.PayoutPending,
		})
		if err != nil {
			return created, err
		}
		created += n
	}
	if earnings.AgencyShare > 0 && host.AgencyID != 0 {
		n, err := s.createPayout(models.Payout{
			EarningsID:      earnings.ID,
			BeneficiaryType: models.BeneficiaryAgency,
			BeneficiaryID:   host.AgencyID,
			Amount:          earnings.AgencyShare,
			Status:          models.PayoutPending,
		})
		if err != nil {
			return created, err
		}
		created += n
	}
	return created, nil
}

func (s *PayoutService) createPayout(payout models.Payout) (int, error) {
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "earnings_id"}, {Name: "beneficiary_type"}},
		DoNothing: true,
	}).Create(&payout)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, nil
	}
	if s.producer != nil {
		s.producer.PublishPayoutCreated(&payout)
	}
	return 1, nil
}

// ListPending 角色过滤的待付清单，命中的行推进到 processing。
// 管理员看全部，公会主看自家公会，主播看自己。
// 查询和推进必须在同一事务：并发调用各自拿到不相交的行
func (s *PayoutService) ListPending(monthYear string, caller *models.User) ([]models.Payout, error) {
	if _, _, err := MonthWindow(monthYear); err != nil {
		return nil, err
	}

	payouts := []models.Payout{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&models.Payout{}).
			Joins("JOIN monthly_earnings ON monthly_earnings.id = payouts.earnings_id").
			Where("monthly_earnings.month_year = ? AND payouts.status = ?", monthYear, models.PayoutPending)

		switch {
		case caller.IsAdmin():
			// no extra filter
		default:
			var host models.Host
			hostErr := tx.Where("user_id = ?", caller.ID).First(&host).Error
			var agencyIDs []uint
			if err := tx.Model(&models.Agency{}).
				Where("owner_id = ?", caller.ID).
				Pluck("id", &agencyIDs).Error; err != nil {
				return err
			}
			switch {
			case hostErr == nil && len(agencyIDs) > 0:
				query = query.Where(
					"(payouts.beneficiary_type = ? AND payouts.beneficiary_id = ?) OR (payouts.beneficiary_type = ? AND payouts.beneficiary_id IN ?)",
					models.BeneficiaryHost, host.ID, models.BeneficiaryAgency, agencyIDs)
			case hostErr == nil:
				query = query.Where("payouts.beneficiary_type = ? AND payouts.beneficiary_id = ?",
					models.BeneficiaryHost, host.ID)
			case len(agencyIDs) > 0:
				query = query.Where("payouts.beneficiary_type = ? AND payouts.beneficiary_id IN ?",
					models.BeneficiaryAgency, agencyIDs)
			default:
				return nil
			}
		}

		if err := query.Find(&payouts).Error; err != nil {
			return err
		}
		if len(payouts) == 0 {
			return nil
		}

		ids := make([]uint, 0, len(payouts))
		for i := range payouts {
			ids = append(ids, payouts[i].ID)
		}
		if err := tx.Model(&models.Payout{}).
			Where("id IN ? AND status = ?", ids, models.PayoutPending).
			Update("status", models.PayoutProcessing).Error; err != nil {
			return err
		}
		for i := range payouts {
			payouts[i].Status = models.PayoutProcessing
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payouts, nil
}
