package handlers

import (
	"VoiceHub/models"
	"VoiceHub/services"
	"VoiceHub/ws"
	"net/http"

	"github.com/labstack/echo/v4"
)

type MicHandler struct {
	micService *services.MicService
	hub        *ws.RoomManager
}

func NewMicHandler(micService *services.MicService, hub *ws.RoomManager) *MicHandler {
	return &MicHandler{micService: micService, hub: hub}
}

type micRequest struct {
	TargetUserID uint `json:"target_user_id"`
}

// GrantMic 授麦。冲突类错误（已授麦、满员）返回 409，
// 调用方不能把重复授麦当成幂等成功
func (h *MicHandler) GrantMic(c echo.Context) error {
	user := c.Get("user").(*models.User)
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid room ID"})
	}
	var req micRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	state, err := h.micService.Grant(roomID, user, req.TargetUserID)
	if err != nil {
		switch err {
		case services.ErrNotRoomAdmin:
			return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
		case services.ErrParticipantNotFound:
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		case services.ErrMicAlreadyGranted:
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		case services.ErrRoomFull:
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to grant mic"})
		}
	}

	h.hub.Publish(roomID, ws.EventMicGranted, map[string]interface{}{
		"target_user_id":   req.TargetUserID,
		"current_speakers": state.CurrentSpeakers,
		"max_speakers":     state.MaxSpeakers,
	})
	return c.JSON(http.StatusOK, state)
}

// RevokeMic 收麦，与授麦对称
func (h *MicHandler) RevokeMic(c echo.Context) error {
	user := c.Get("user").(*models.User)
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid room ID"})
	}
	var req micRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	state, err := h.micService.Revoke(roomID, user, req.TargetUserID)
	if err != nil {
		switch err {
		case services.ErrNotRoomAdmin:
			return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
		case services.ErrParticipantNotFound:
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		case services.ErrMicNotGranted:
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to revoke mic"})
		}
	}

	h.hub.Publish(roomID, ws.EventMicRevoked, map[string]interface{}{
		"target_user_id":   req.TargetUserID,
		"current_speakers": state.CurrentSpeakers,
		"max_speakers":     state.MaxSpeakers,
	})
	return c.JSON(http.StatusOK, state)
}

// RecountSpeakers 管理员审计：从参与者表重算麦位计数
func (h *MicHandler) RecountSpeakers(c echo.Context) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid room ID"})
	}
	count, err := h.micService.RecountSpeakers(roomID)
	if err != nil {
		switch err {
		case services.ErrRoomNotFound:
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to recount speakers"})
		}
	}
	return c.JSON(http.StatusOK, map[string]int{"current_speakers": count})
}
