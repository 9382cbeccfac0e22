package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"VoiceHub/models"

	"gorm.io/gorm"
)

func finalizedFixture(t *testing.T) (*gorm.DB, *models.Host, *PayoutService) {
	db, host := closingFixture(t)
	insertGift(t, db, host.ID, 100, time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC))

	closing := NewClosingService(db, testEconomy, nil)
	if _, err := closing.Close("2025-07", nil); err != nil {
		t.Fatalf("close: %v", err)
	}
	return db, host, NewPayoutService(db, nil)
}

func TestFinalizeCreatesPayouts(t *testing.T) {
	db, host, svc := finalizedFixture(t)

	result, err := svc.Finalize("2025-07")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if result.EarningsFinalized != 1 {
		t.Fatalf("earnings_finalized = %d, want 1", result.EarningsFinalized)
	}
	// 主播 7 + 公会 3，两条 pending
	if result.PayoutsCreated != 2 {
		t.Fatalf("payouts_created = %d, want 2", result.PayoutsCreated)
	}

	var payouts []models.Payout
	if err := db.Order("beneficiary_type").Find(&payouts).Error; err != nil {
		t.Fatalf("load payouts: %v", err)
	}
	if len(payouts) != 2 {
		t.Fatalf("payout rows = %d, want 2", len(payouts))
	}
	for _, p := range payouts {
		if p.Status != models.PayoutPending {
			t.Fatalf("payout %d status = %s, want pending", p.ID, p.Status)
		}
	}
	if payouts[0].BeneficiaryType != models.BeneficiaryAgency || payouts[0].Amount != 3 {
		t.Fatalf("agency payout wrong: %+v", payouts[0])
	}
	if payouts[1].BeneficiaryType != models.BeneficiaryHost || payouts[1].Amount != 7 {
		t.Fatalf("host payout wrong: %+v", payouts[1])
	}

	var e models.MonthlyEarnings
	if err := db.Where("host_id = ? AND month_year = ?", host.ID, "2025-07").First(&e).Error; err != nil {
		t.Fatalf("load earnings: %v", err)
	}
	if !e.IsFinalized {
		t.Fatal("earnings row not finalized")
	}

	var status models.MonthStatus
	if err := db.Where("month_year = ?", "2025-07").First(&status).Error; err != nil {
		t.Fatalf("load month status: %v", err)
	}
	if status.Phase != models.MonthFinalized {
		t.Fatalf("phase = %s, want finalized", status.Phase)
	}
}

func TestFinalizeIsOneShot(t *testing.T) {
	db, _, svc := finalizedFixture(t)

	if _, err := svc.Finalize("2025-07"); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	// 二次调用合法地报"无可冻结"，且不产生重复支付行
	if _, err := svc.Finalize("2025-07"); !errors.Is(err, ErrNothingToFinalize) {
		t.Fatalf("expected ErrNothingToFinalize, got %v", err)
	}

	var count int64
	if err := db.Model(&models.Payout{}).Count(&count).Error; err != nil {
		t.Fatalf("count payouts: %v", err)
	}
	if count != 2 {
		t.Fatalf("payout rows = %d after double finalize, want 2", count)
	}
}

func TestFinalizeEmptyMonth(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPayoutService(db, nil)
	if _, err := svc.Finalize("2025-07"); !errors.Is(err, ErrNothingToFinalize) {
		t.Fatalf("expected ErrNothingToFinalize, got %v", err)
	}
	if _, err := svc.Finalize("bogus"); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestRepairReemitsMissingPayouts(t *testing.T) {
	db, _, svc := finalizedFixture(t)
	if _, err := svc.Finalize("2025-07"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// 模拟"冻结成功、支付行丢了"的崩溃现场
	if err := db.Where("beneficiary_type = ?", models.BeneficiaryAgency).
		Delete(&models.Payout{}).Error; err != nil {
		t.Fatalf("drop agency payout: %v", err)
	}

	result, err := svc.Repair("2025-07")
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	// 只补缺失的那条，已有的不重复
	if result.PayoutsCreated != 1 {
		t.Fatalf("payouts_created = %d on repair, want 1", result.PayoutsCreated)
	}

	var count int64
	if err := db.Model(&models.Payout{}).Count(&count).Error; err != nil {
		t.Fatalf("count payouts: %v", err)
	}
	if count != 2 {
		t.Fatalf("payout rows = %d after repair, want 2", count)
	}

	// 再修一次：没有缺口，零新增
	result, err = svc.Repair("2025-07")
	if err != nil {
		t.Fatalf("second repair: %v", err)
	}
	if result.PayoutsCreated != 0 {
		t.Fatalf("payouts_created = %d on idle repair, want 0", result.PayoutsCreated)
	}
}

// 并发领取：每条支付行只能被一个调用方拿到
func TestListPendingConcurrentCallers(t *testing.T) {
	db, _, svc := finalizedFixture(t)
	if _, err := svc.Finalize("2025-07"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	admin := createUser(t, db, "admin", models.UserRoleAdmin)

	results := make([][]models.Payout, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.ListPending("2025-07", admin)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	seen := map[uint]int{}
	total := 0
	for _, rows := range results {
		for _, p := range rows {
			seen[p.ID]++
			total++
		}
	}
	if total != 2 {
		t.Fatalf("payouts delivered %d times across callers, want 2", total)
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("payout %d delivered to %d callers", id, n)
		}
	}
}

func TestListPendingRoleFiltering(t *testing.T) {
	db, host, svc := finalizedFixture(t)
	if _, err := svc.Finalize("2025-07"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	admin := createUser(t, db, "admin", models.UserRoleAdmin)
	var hostUser models.User
	if err := db.First(&hostUser, host.UserID).Error; err != nil {
		t.Fatalf("load host user: %v", err)
	}
	var agency models.Agency
	if err := db.First(&agency, host.AgencyID).Error; err != nil {
		t.Fatalf("load agency: %v", err)
	}
	var agencyOwner models.User
	if err := db.First(&agencyOwner, agency.OwnerID).Error; err != nil {
		t.Fatalf("load agency owner: %v", err)
	}
	outsider := createUser(t, db, "outsider", models.UserRoleUser)

	// 局外人什么都看不到
	payouts, err := svc.ListPending("2025-07", outsider)
	if err != nil {
		t.Fatalf("list as outsider: %v", err)
	}
	if len(payouts) != 0 {
		t.Fatalf("outsider sees %d payouts", len(payouts))
	}

	// 主播只看到自己的份额，且行推进到 processing
	payouts, err = svc.ListPending("2025-07", &hostUser)
	if err != nil {
		t.Fatalf("list as host: %v", err)
	}
	if len(payouts) != 1 || payouts[0].BeneficiaryType != models.BeneficiaryHost {
		t.Fatalf("host listing wrong: %+v", payouts)
	}
	if payouts[0].Status != models.PayoutProcessing {
		t.Fatalf("payout not moved to processing: %s", payouts[0].Status)
	}

	// 公会主看到公会份额
	payouts, err = svc.ListPending("2025-07", &agencyOwner)
	if err != nil {
		t.Fatalf("list as agency owner: %v", err)
	}
	if len(payouts) != 1 || payouts[0].BeneficiaryType != models.BeneficiaryAgency {
		t.Fatalf("agency listing wrong: %+v", payouts)
	}

	// 管理员兜底看全部——此时已全部 processing，pending 清单为空
	payouts, err = svc.ListPending("2025-07", admin)
	if err != nil {
		t.Fatalf("list as admin: %v", err)
	}
	if len(payouts) != 0 {
		t.Fatalf("admin sees %d pending after all moved to processing", len(payouts))
	}
}
