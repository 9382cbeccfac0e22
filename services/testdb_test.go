package services

import (
	"fmt"
	"testing"

	"VoiceHub/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	// 单连接串行化事务，并发测试不会碰到 SQLITE_LOCKED
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := models.AutoMigrateAll(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Email:    username + "@test.local",
		Username: username,
		Password: "x",
		Role:     role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

// createRoom 建房并给房主落 room_admin 参与记录
func createRoom(t *testing.T, db *gorm.DB, owner *models.User, maxSpeakers int) *models.Room {
	t.Helper()
	room := &models.Room{
		Name:        "room-" + owner.Username,
		OwnerID:     owner.ID,
		MaxSpeakers: maxSpeakers,
		IsActive:    true,
		IsLive:      true,
	}
	if err := db.Create(room).Error; err != nil {
		t.Fatalf("create room: %v", err)
	}
	admin := &models.Participant{RoomID: room.ID, UserID: owner.ID, Role: models.RoomRoleAdmin}
	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("create owner participant: %v", err)
	}
	return room
}

func joinAsListener(t *testing.T, db *gorm.DB, room *models.Room, user *models.User) *models.Participant {
	t.Helper()
	p := &models.Participant{RoomID: room.ID, UserID: user.ID, Role: models.RoomRoleListener}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create participant: %v", err)
	}
	return p
}

func createAgency(t *testing.T, db *gorm.DB, owner *models.User, split float64) *models.Agency {
	t.Helper()
	agency := &models.Agency{Name: "agency-" + owner.Username, OwnerID: owner.ID, PayoutSplit: split}
	if err := db.Create(agency).Error; err != nil {
		t.Fatalf("create agency: %v", err)
	}
	return agency
}

func createHost(t *testing.T, db *gorm.DB, user *models.User, agencyID uint) *models.Host {
	t.Helper()
	host := &models.Host{UserID: user.ID, AgencyID: agencyID, IsActive: true}
	if err := db.Create(host).Error; err != nil {
		t.Fatalf("create host: %v", err)
	}
	return host
}

func reloadRoom(t *testing.T, db *gorm.DB, id uint) *models.Room {
	t.Helper()
	var room models.Room
	if err := db.First(&room, id).Error; err != nil {
		t.Fatalf("reload room: %v", err)
	}
	return &room
}

func reloadParticipant(t *testing.T, db *gorm.DB, roomID, userID uint) *models.Participant {
	t.Helper()
	var p models.Participant
	if err := db.Where("room_id = ? AND user_id = ?", roomID, userID).First(&p).Error; err != nil {
		t.Fatalf("reload participant: %v", err)
	}
	return &p
}
