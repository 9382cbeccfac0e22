package handlers

import (
	"VoiceHub/models"
	"VoiceHub/services"
	"VoiceHub/ws"
	"net/http"

	"github.com/labstack/echo/v4"
)

type GiftHandler struct {
	giftService *services.GiftService
	hub         *ws.RoomManager
}

func NewGiftHandler(giftService *services.GiftService, hub *ws.RoomManager) *GiftHandler {
	return &GiftHandler{giftService: giftService, hub: hub}
}

func (h *GiftHandler) ListCatalog(c echo.Context) error {
	entries, err := h.giftService.ListCatalog()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch gift catalog"})
	}
	return c.JSON(http.StatusOK, entries)
}

// CreateCatalogEntry 运营配置礼物，管理员路由
func (h *GiftHandler) CreateCatalogEntry(c echo.Context) error {
	var entry models.GiftCatalogEntry
	if err := c.Bind(&entry); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	created, err := h.giftService.CreateCatalogEntry(entry)
	if err != nil {
		switch err {
		case services.ErrEmptyGiftPoints:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create gift"})
		}
	}
	return c.JSON(http.StatusCreated, created)
}

// SendGift 送礼。与上麦无关，听众也能刷
func (h *GiftHandler) SendGift(c echo.Context) error {
	user := c.Get("user").(*models.User)
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid room ID"})
	}
	var input services.SendGiftInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	input.RoomID = roomID

	gift, err := h.giftService.Send(input, user)
	if err != nil {
		switch err {
		case services.ErrRoomNotFound, services.ErrGiftNotFound, services.ErrHostNotFound:
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		case services.ErrRoomInactive, services.ErrRoomNotLive, services.ErrGiftInactive, services.ErrSelfGift:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to send gift"})
		}
	}

	h.hub.Publish(roomID, ws.EventGiftSent, map[string]interface{}{
		"gift_id":          gift.ID,
		"sender_id":        gift.SenderID,
		"receiver_host_id": gift.ReceiverHostID,
		"points":           gift.Points,
		"message":          gift.Message,
	})
	return c.JSON(http.StatusCreated, map[string]interface{}{"gift": gift})
}
