package services

import (
	"errors"
	"math"
	"testing"
	"time"

	"VoiceHub/config"
	"VoiceHub/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var testEconomy = config.EconomyConfig{PointsPerCurrency: 10, DefaultAgencySplit: 20}

func insertGift(t *testing.T, db *gorm.DB, hostID uint, points int64, at time.Time) {
	t.Helper()
	gift := models.Gift{
		ID:             uuid.NewString(),
		RoomID:         1,
		SenderID:       1,
		ReceiverHostID: hostID,
		CatalogEntryID: 1,
		Points:         points,
		CreatedAt:      at,
	}
	if err := db.Create(&gift).Error; err != nil {
		t.Fatalf("insert gift: %v", err)
	}
}

func closingFixture(t *testing.T) (*gorm.DB, *models.Host) {
	db := setupTestDB(t)
	hostUser := createUser(t, db, "hostess", models.UserRoleHost)
	agencyOwner := createUser(t, db, "boss", models.UserRoleUser)
	agency := createAgency(t, db, agencyOwner, 30)
	host := createHost(t, db, hostUser, agency.ID)
	return db, host
}

func TestMonthWindow(t *testing.T) {
	start, end, err := MonthWindow("2025-02")
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if !start.Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v", start)
	}
	// 半开区间：2 月最后一天全天在窗口内，3 月 1 日零点不在
	if !end.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end = %v", end)
	}

	if _, _, err := MonthWindow("2025/02"); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestCloseComputesSplit(t *testing.T) {
	db, host := closingFixture(t)
	mid := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	for _, points := range []int64{50, 30, 20} {
		insertGift(t, db, host.ID, points, mid)
	}
	// 窗口之外的流水不参与
	insertGift(t, db, host.ID, 500, time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC))
	insertGift(t, db, host.ID, 500, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	svc := NewClosingService(db, testEconomy, nil)
	result, err := svc.Close("2025-07", nil)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if result.HostsProcessed != 1 || len(result.MonthlyEarnings) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	e := result.MonthlyEarnings[0]
	if e.TotalGifts != 3 || e.TotalPoints != 100 {
		t.Fatalf("totals = %d gifts / %d points", e.TotalGifts, e.TotalPoints)
	}
	if e.TotalCurrency != 10 {
		t.Fatalf("total_currency = %v, want 10", e.TotalCurrency)
	}
	if e.AgencyShare != 3 || e.HostShare != 7 {
		t.Fatalf("split = agency %v / host %v, want 3/7", e.AgencyShare, e.HostShare)
	}
	if math.Abs(e.HostShare+e.AgencyShare-e.TotalCurrency) > 1e-9 {
		t.Fatalf("shares do not sum to total: %v + %v != %v", e.HostShare, e.AgencyShare, e.TotalCurrency)
	}

	// 缓存计数结算后清零
	var h models.Host
	if err := db.First(&h, host.ID).Error; err != nil {
		t.Fatalf("reload host: %v", err)
	}
	if h.MonthlyGifts != 0 {
		t.Fatalf("monthly_gifts = %d after close, want 0", h.MonthlyGifts)
	}

	var status models.MonthStatus
	if err := db.Where("month_year = ?", "2025-07").First(&status).Error; err != nil {
		t.Fatalf("load month status: %v", err)
	}
	if status.Phase != models.MonthClosing {
		t.Fatalf("phase = %s, want closing", status.Phase)
	}
}

func TestCloseIsRerunSafe(t *testing.T) {
	db, host := closingFixture(t)
	mid := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	insertGift(t, db, host.ID, 80, mid)

	svc := NewClosingService(db, testEconomy, nil)
	first, err := svc.Close("2025-07", nil)
	if err != nil {
		t.Fatalf("first close: %v", err)
	}
	second, err := svc.Close("2025-07", nil)
	if err != nil {
		t.Fatalf("second close: %v", err)
	}

	if first.MonthlyEarnings[0].TotalPoints != second.MonthlyEarnings[0].TotalPoints ||
		first.MonthlyEarnings[0].HostShare != second.MonthlyEarnings[0].HostShare {
		t.Fatalf("rerun changed totals: %+v vs %+v", first.MonthlyEarnings[0], second.MonthlyEarnings[0])
	}

	// 重跑不翻倍：每 (host, month) 只有一行
	var count int64
	if err := db.Model(&models.MonthlyEarnings{}).
		Where("month_year = ?", "2025-07").Count(&count).Error; err != nil {
		t.Fatalf("count earnings: %v", err)
	}
	if count != 1 {
		t.Fatalf("earnings rows = %d, want 1", count)
	}
}

func TestCloseUsesRateOverride(t *testing.T) {
	db, host := closingFixture(t)
	insertGift(t, db, host.ID, 100, time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC))

	svc := NewClosingService(db, testEconomy, nil)
	override := 20.0
	result, err := svc.Close("2025-07", &override)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if result.MonthlyEarnings[0].TotalCurrency != 5 {
		t.Fatalf("total_currency = %v with override 20, want 5", result.MonthlyEarnings[0].TotalCurrency)
	}

	bad := -1.0
	if _, err := svc.Close("2025-07", &bad); !errors.Is(err, ErrInvalidRateValue) {
		t.Fatalf("expected ErrInvalidRateValue, got %v", err)
	}
}

func TestCloseBlockedOnceFinalized(t *testing.T) {
	db, host := closingFixture(t)
	insertGift(t, db, host.ID, 40, time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC))

	closing := NewClosingService(db, testEconomy, nil)
	if _, err := closing.Close("2025-07", nil); err != nil {
		t.Fatalf("close: %v", err)
	}
	payout := NewPayoutService(db, nil)
	if _, err := payout.Finalize("2025-07"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if _, err := closing.Close("2025-07", nil); !errors.Is(err, ErrMonthFinalized) {
		t.Fatalf("expected ErrMonthFinalized, got %v", err)
	}
}

func TestCloseAgencylessHostKeepsFullShare(t *testing.T) {
	db := setupTestDB(t)
	hostUser := createUser(t, db, "solo", models.UserRoleHost)
	host := createHost(t, db, hostUser, 0)
	insertGift(t, db, host.ID, 100, time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC))

	svc := NewClosingService(db, testEconomy, nil)
	result, err := svc.Close("2025-07", nil)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	e := result.MonthlyEarnings[0]
	// 无公会不抽成
	if e.AgencyShare != 0 || e.HostShare != 10 {
		t.Fatalf("split = agency %v / host %v, want 0/10", e.AgencyShare, e.HostShare)
	}

	// 冻结后支付义务必须覆盖全部份额，一分钱都不能凭空消失
	payout := NewPayoutService(db, nil)
	fr, err := payout.Finalize("2025-07")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if fr.PayoutsCreated != 1 {
		t.Fatalf("payouts_created = %d, want 1", fr.PayoutsCreated)
	}
	var payouts []models.Payout
	if err := db.Find(&payouts).Error; err != nil {
		t.Fatalf("load payouts: %v", err)
	}
	var sum float64
	for _, p := range payouts {
		sum += p.Amount
	}
	if math.Abs(sum-e.TotalCurrency) > 1e-9 {
		t.Fatalf("payout amounts sum to %v, want %v", sum, e.TotalCurrency)
	}
}

func TestCloseFallsBackToDefaultSplitWhenAgencyMissing(t *testing.T) {
	db := setupTestDB(t)
	hostUser := createUser(t, db, "orphan", models.UserRoleHost)
	host := createHost(t, db, hostUser, 9999)
	insertGift(t, db, host.ID, 100, time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC))

	svc := NewClosingService(db, testEconomy, nil)
	result, err := svc.Close("2025-07", nil)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	e := result.MonthlyEarnings[0]
	// default_agency_split = 20
	if e.AgencyShare != 2 || e.HostShare != 8 {
		t.Fatalf("split = agency %v / host %v, want 2/8", e.AgencyShare, e.HostShare)
	}
}
