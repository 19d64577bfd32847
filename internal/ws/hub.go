package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/report-moderation/internal/goroutine"
	"github.com/ignatzorin/report-moderation/internal/logger"
)

// Hub управляет всеми WebSocket клиентами. Hub только доставляет сообщения
// подключённым клиентам; сохранением уведомлений занимается диспетчер.
type Hub struct {
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	count      chan countRequest
	ctx        context.Context
}

type message struct {
	userID  uuid.UUID
	payload []byte
}

type countRequest struct {
	userID uuid.UUID
	reply  chan int
}

// NewHub создаёт новый хаб. Хаб работает, пока не отменён ctx.
func NewHub(ctx context.Context) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 32),
		count:      make(chan countRequest),
		ctx:        ctx,
	}
}

// Run запускает главный цикл хаба. Состояние клиентов принадлежит только этому циклу.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			for _, clients := range h.clients {
				for client := range clients {
					close(client.send)
				}
			}
			h.clients = make(map[uuid.UUID]map[*Client]struct{})
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.userID, msg.payload)
		case req := <-h.count:
			req.reply <- len(h.clients[req.userID])
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// ConnectedClients возвращает число открытых соединений пользователя.
func (h *Hub) ConnectedClients(userID uuid.UUID) int {
	reply := make(chan int, 1)
	select {
	case h.count <- countRequest{userID: userID, reply: reply}:
		return <-reply
	case <-h.ctx.Done():
		return 0
	}
}

// BroadcastToUser отправляет сообщение всем соединениям пользователя.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	// Сообщение для клиента строго следует контракту WebSocket API:
	// поле "type" содержит имя события, "data" — полезную нагрузку.
	payload := map[string]any{
		"type": event,
		"data": data,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}

	select {
	case h.broadcast <- message{userID: userID, payload: raw}:
		return nil
	case <-h.ctx.Done():
		return fmt.Errorf("ws: хаб остановлен: %w", h.ctx.Err())
	}
}

func (h *Hub) addClient(client *Client) {
	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	if clients, ok := h.clients[client.userID]; ok {
		if _, ok := clients[client]; !ok {
			return
		}
		delete(clients, client)
		close(client.send)
		if len(clients) == 0 {
			delete(h.clients, client.userID)
		}
	}
}

func (h *Hub) send(userID uuid.UUID, payload []byte) {
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			// Медленный клиент: отключаем его, не блокируя цикл хаба.
			logger.Component("ws").WithField("user_id", userID).Warn("client send buffer full, closing connection")
			c := client
			goroutine.SafeGo(c.Close)
		}
	}
}
