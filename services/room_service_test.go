package services

import (
	"errors"
	"testing"

	"VoiceHub/models"
)

func TestJoinAndLeave(t *testing.T) {
	db := setupTestDB(t)
	owner := createUser(t, db, "owner", models.UserRoleUser)
	visitor := createUser(t, db, "visitor", models.UserRoleUser)
	svc := NewRoomService(db, nil)

	room, err := svc.CreateRoom(CreateRoomInput{Name: "talk", MaxSpeakers: 4}, owner)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	// 房主建房时就有 room_admin 记录，重复加入拿回同一条
	p, err := svc.Join(room.ID, owner)
	if err != nil {
		t.Fatalf("owner join: %v", err)
	}
	if p.Role != models.RoomRoleAdmin {
		t.Fatalf("owner role = %s, want room_admin", p.Role)
	}

	p, err = svc.Join(room.ID, visitor)
	if err != nil {
		t.Fatalf("visitor join: %v", err)
	}
	if p.Role != models.RoomRoleListener {
		t.Fatalf("visitor role = %s, want listener", p.Role)
	}

	if err := svc.Leave(room.ID, visitor); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if err := svc.Leave(room.ID, visitor); !errors.Is(err, ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}
}

func TestLeaveReleasesSpeakerSlot(t *testing.T) {
	db := setupTestDB(t)
	owner := createUser(t, db, "owner", models.UserRoleUser)
	speaker := createUser(t, db, "speaker", models.UserRoleUser)
	room := createRoom(t, db, owner, 2)
	joinAsListener(t, db, room, speaker)

	mic := NewMicService(db)
	if _, err := mic.Grant(room.ID, owner, speaker.ID); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if got := reloadRoom(t, db, room.ID).CurrentSpeakers; got != 1 {
		t.Fatalf("current_speakers = %d, want 1", got)
	}

	svc := NewRoomService(db, nil)
	if err := svc.Leave(room.ID, speaker); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if got := reloadRoom(t, db, room.ID).CurrentSpeakers; got != 0 {
		t.Fatalf("current_speakers = %d after speaker left, want 0", got)
	}
}

func TestSetHandRaised(t *testing.T) {
	db := setupTestDB(t)
	owner := createUser(t, db, "owner", models.UserRoleUser)
	listener := createUser(t, db, "listener", models.UserRoleUser)
	room := createRoom(t, db, owner, 2)
	joinAsListener(t, db, room, listener)

	svc := NewRoomService(db, nil)
	p, err := svc.SetHandRaised(room.ID, listener, true)
	if err != nil {
		t.Fatalf("raise hand: %v", err)
	}
	if !p.HandRaised {
		t.Fatal("hand_raised not set")
	}

	// 授麦要清掉举手标志
	mic := NewMicService(db)
	if _, err := mic.Grant(room.ID, owner, listener.ID); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if reloadParticipant(t, db, room.ID, listener.ID).HandRaised {
		t.Fatal("grant must clear hand_raised")
	}
}

func TestDeleteRoomOwnership(t *testing.T) {
	db := setupTestDB(t)
	owner := createUser(t, db, "owner", models.UserRoleUser)
	other := createUser(t, db, "other", models.UserRoleUser)
	room := createRoom(t, db, owner, 2)

	svc := NewRoomService(db, nil)
	if err := svc.DeleteRoom(room.ID, other); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if err := svc.DeleteRoom(room.ID, owner); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteRoom(room.ID, owner); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}
