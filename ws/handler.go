package ws

import (
	"VoiceHub/models"
	"VoiceHub/services"
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Handler 房间事件流的 WebSocket 入口。只读订阅：
// 客户端不通过这条连接发起任何变更，上麦/送礼走 REST
type Handler struct {
	manager     *RoomManager
	roomService *services.RoomService
}

func NewHandler(manager *RoomManager, roomService *services.RoomService) *Handler {
	return &Handler{manager: manager, roomService: roomService}
}

func (h *Handler) HandleWebSocket(c echo.Context) error {
	user := c.Get("user").(*models.User)
	roomID := c.Param("id")

	// 必须先是房间参与者才能订阅事件流
	id, err := parseRoomID(roomID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid room ID"})
	}
	if _, err := h.roomService.GetParticipant(id, user.ID); err != nil {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "join the room first"})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	room := h.manager.GetOrCreateRoom(roomID)
	ctx, cancel := context.WithCancel(room.ctx)
	client := &EventClient{
		ID:       uuid.NewString(),
		UserID:   user.ID,
		Username: user.Username,
		Conn:     conn,
		Room:     room,
		Send:     make(chan map[string]interface{}, 256),
		ctx:      ctx,
		cancel:   cancel,
	}
	room.Register <- client

	go h.writePump(client)
	go h.readPump(client)

	return nil
}

// readPump 只处理控制帧，业务数据一律忽略
func (h *Handler) readPump(client *EventClient) {
	defer func() {
		client.Room.Unregister <- client
		client.cancel()
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(512)
	_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: read error for client %s: %v", client.ID, err)
			}
			return
		}
	}
}

func (h *Handler) writePump(client *EventClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case <-client.ctx.Done():
			return

		case event, ok := <-client.Send:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func parseRoomID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	return uint(id), err
}
