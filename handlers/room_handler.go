package handlers

import (
	"VoiceHub/models"
	"VoiceHub/services"
	"VoiceHub/ws"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type RoomHandler struct {
	roomService *services.RoomService
	hub         *ws.RoomManager
}

func NewRoomHandler(roomService *services.RoomService, hub *ws.RoomManager) *RoomHandler {
	return &RoomHandler{roomService: roomService, hub: hub}
}

func (h *RoomHandler) CreateRoom(c echo.Context) error {
	user := c.Get("user").(*models.User)
	var input services.CreateRoomInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if input.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "room name is required"})
	}
	room, err := h.roomService.CreateRoom(input, user)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create room"})
	}
	return c.JSON(http.StatusCreated, room)
}

// ListRooms 获取所有房间
func (h *RoomHandler) ListRooms(c echo.Context) error {
	rooms, err := h.roomService.ListRooms()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch rooms"})
	}
	return c.JSON(http.StatusOK, rooms)
}

// GetRoom 获取单个房间
func (h *RoomHandler) GetRoom(c echo.Context) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid room ID"})
	}
	room, err := h.roomService.GetRoomByID(roomID)
	if err != nil {
		switch err {
		case services.ErrRoomNotFound:
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch room"})
		}
	}
	return c.JSON(http.StatusOK, room)
}

// SetLive 开播/下播，仅房主
func (h *RoomHandler) SetLive(c echo.Context) error {
	user := c.Get("user").(*models.User)
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid room ID"})
	}
	var req struct {
		IsLive bool `json:"is_live"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	room, err := h.roomService.SetLive(roomID, req.IsLive, user)
	if err != nil {
		switch err {
		case services.ErrRoomNotFound:
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		case services.ErrAccessDenied:
			return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to update room"})
		}
	}
	return c.JSON(http.StatusOK, room)
}

// DeleteRoom 删除房间
func (h *RoomHandler) DeleteRoom(c echo.Context) error {
	user := c.Get("user").(*models.User)
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid room ID"})
	}
	if err := h.roomService.DeleteRoom(roomID, user); err != nil {
		switch err {
		case services.ErrRoomNotFound:
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		case services.ErrAccessDenied:
			return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete room"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "room deleted"})
}

// JoinRoom 加入房间，落参与者记录
func (h *RoomHandler) JoinRoom(c echo.Context) error {
	user := c.Get("user").(*models.User)
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid room ID"})
	}
	participant, err := h.roomService.Join(roomID, user)
	if err != nil {
		switch err {
		case services.ErrRoomNotFound:
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		case services.ErrRoomInactive:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to join room"})
		}
	}
	h.hub.Publish(roomID, ws.EventUserJoined, map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
	})
	return c.JSON(http.StatusOK, participant)
}

// LeaveRoom 离开房间，参与记录销毁
func (h *RoomHandler) LeaveRoom(c echo.Context) error {
	user := c.Get("user").(*models.User)
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid room ID"})
	}
	if err := h.roomService.Leave(roomID, user); err != nil {
		switch err {
		case services.ErrParticipantNotFound:
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to leave room"})
		}
	}
	h.hub.Publish(roomID, ws.EventUserLeft, map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
	})
	return c.JSON(http.StatusOK, map[string]string{"message": "left room"})
}

func (h *RoomHandler) ListParticipants(c echo.Context) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid room ID"})
	}
	participants, err := h.roomService.ListParticipants(roomID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch participants"})
	}
	return c.JSON(http.StatusOK, participants)
}

// RaiseHand / LowerHand 举手排麦
func (h *RoomHandler) RaiseHand(c echo.Context) error {
	return h.setHand(c, true)
}

func (h *RoomHandler) LowerHand(c echo.Context) error {
	return h.setHand(c, false)
}

func (h *RoomHandler) setHand(c echo.Context, raised bool) error {
	user := c.Get("user").(*models.User)
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid room ID"})
	}
	participant, err := h.roomService.SetHandRaised(roomID, user, raised)
	if err != nil {
		switch err {
		case services.ErrParticipantNotFound:
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to update hand state"})
		}
	}
	if raised {
		h.hub.Publish(roomID, ws.EventHandRaised, map[string]interface{}{
			"user_id":  user.ID,
			"username": user.Username,
		})
	}
	return c.JSON(http.StatusOK, participant)
}

// parseIDParam HTTP 职责：转换 param string 为 uint
func parseIDParam(c echo.Context, name string) (uint, error) {
	id64, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id64), nil
}
