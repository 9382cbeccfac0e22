package models

import "time"

type Room struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	OwnerID         uint      `json:"owner_id" gorm:"index"`
	MaxSpeakers     int       `json:"max_speakers" gorm:"not null;default:8"`
	CurrentSpeakers int       `json:"current_speakers" gorm:"not null;default:0"` // 缓存计数，审计以 participants 表为准
	IsLive          bool      `json:"is_live" gorm:"default:false"`
	IsActive        bool      `json:"is_active" gorm:"default:true"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type RoomWithUser struct {
	Room
	OwnerName   string `json:"owner_name" gorm:"column:username"` // 明确告诉 GORM 映射 username 列
	OnlineUsers uint   `json:"online_users"`
}

// RoomRole 房间内角色，封闭枚举，非法值不可表示
type RoomRole string

const (
	RoomRoleAdmin    RoomRole = "room_admin"
	RoomRoleSpeaker  RoomRole = "speaker"
	RoomRoleListener RoomRole = "listener"
)

// Participant (room_id, user_id) 唯一。只有 mic 服务会改 Role/MicGranted，
// 不变式：Role == speaker 当且仅当 MicGranted == true
type Participant struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	RoomID     uint      `json:"room_id" gorm:"uniqueIndex:idx_room_user;not null"`
	UserID     uint      `json:"user_id" gorm:"uniqueIndex:idx_room_user;not null"`
	Role       RoomRole  `json:"role" gorm:"size:16;not null;default:'listener'"`
	MicGranted bool      `json:"mic_granted" gorm:"default:false"`
	HandRaised bool      `json:"hand_raised" gorm:"default:false"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ParticipantWithUser struct {
	Participant
	Username string `json:"username" gorm:"column:username"`
}
