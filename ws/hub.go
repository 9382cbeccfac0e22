package ws

import (
	"context"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
)

// 房间事件类型
const (
	EventUserJoined = "user_joined"
	EventUserLeft   = "user_left"
	EventHandRaised = "hand_raised"
	EventMicGranted = "mic_granted"
	EventMicRevoked = "mic_revoked"
	EventGiftSent   = "gift_sent"
)

// EventClient 代表一个订阅房间事件的 WebSocket 连接
type EventClient struct {
	ID       string                      // 客户端唯一标识（UUID）
	UserID   uint                        // 用户数据库ID
	Username string                      // 用户名
	Conn     *websocket.Conn             // WebSocket连接
	Room     *EventRoom                  // 所属房间
	Send     chan map[string]interface{} // 发送队列（缓冲256条）
	ctx      context.Context
	cancel   context.CancelFunc
}

// EventRoom 管理一个房间内的所有订阅连接和事件分发
type EventRoom struct {
	ID         string
	Clients    map[string]*EventClient
	mu         sync.RWMutex
	Broadcast  chan map[string]interface{} // 广播通道（缓冲256条）
	Register   chan *EventClient           // 注册通道（缓冲16个）
	Unregister chan *EventClient           // 注销通道（缓冲16个）
	ctx        context.Context
	cancel     context.CancelFunc
}

// RoomManager 所有房间事件流的管理器
type RoomManager struct {
	rooms map[string]*EventRoom
	mu    sync.RWMutex
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms: make(map[string]*EventRoom),
	}
}

func (m *RoomManager) GetOrCreateRoom(roomID string) *EventRoom {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room, exists := m.rooms[roomID]; exists {
		return room
	}

	ctx, cancel := context.WithCancel(context.Background())
	room := &EventRoom{
		ID:         roomID,
		Clients:    make(map[string]*EventClient),
		Broadcast:  make(chan map[string]interface{}, 256),
		Register:   make(chan *EventClient, 16),
		Unregister: make(chan *EventClient, 16),
		ctx:        ctx,
		cancel:     cancel,
	}
	m.rooms[roomID] = room

	go room.run()

	return room
}

// Publish 业务 handler 往房间事件流里丢一条事件。
// 房间没人订阅就直接丢弃，事件流是纯展示通道
func (m *RoomManager) Publish(roomID uint, eventType string, payload map[string]interface{}) {
	key := strconv.FormatUint(uint64(roomID), 10)
	m.mu.RLock()
	room, exists := m.rooms[key]
	m.mu.RUnlock()
	if !exists {
		return
	}
	event := map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	}
	select {
	case room.Broadcast <- event:
	default:
		// 广播通道满了就丢，慢消费者不能拖垮业务请求
	}
}

func (room *EventRoom) run() {
	for {
		select {
		case <-room.ctx.Done():
			return

		case client := <-room.Register:
			room.mu.Lock()
			room.Clients[client.ID] = client
			room.mu.Unlock()

		case client := <-room.Unregister:
			room.mu.Lock()
			if _, ok := room.Clients[client.ID]; ok {
				delete(room.Clients, client.ID)
				close(client.Send)
			}
			room.mu.Unlock()

		case event := <-room.Broadcast:
			room.mu.RLock()
			for _, client := range room.Clients {
				select {
				case client.Send <- event:
				default:
					// 发送队列满，跳过这个客户端
				}
			}
			room.mu.RUnlock()
		}
	}
}
