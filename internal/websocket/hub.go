// Package websocket доставляет события подключённым пользователям: новые
// сообщения, отметки о прочтении, статус онлайн.
package websocket

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/thereayou/messagely/internal/logging"
	"github.com/thereayou/messagely/internal/models"
)

// EventType тип события
type EventType string

const (
	TypePing  EventType = "ping"
	TypePong  EventType = "pong"
	TypeError EventType = "error"

	TypeMessage     EventType = "message"
	TypeMessageRead EventType = "message_read"

	TypeUserOnline  EventType = "user_online"
	TypeUserOffline EventType = "user_offline"
)

// Event конверт для всего, что пишется в сокет или читается из него
type Event struct {
	Type      EventType       `json:"type"`
	Username  string          `json:"username,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type Client struct {
	ID       uuid.UUID
	Username string
	Conn     *websocket.Conn
	Send     chan []byte
	Hub      *Hub
}

// Hub хранит активные соединения по username. У пользователя их может быть несколько.
type Hub struct {
	clients     map[uuid.UUID]*Client
	userClients map[string]map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	log    logging.Logger
}

func NewHub(log logging.Logger) *Hub {
	if log == nil {
		log = logging.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[string]map[uuid.UUID]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		ctx:         ctx,
		cancel:      cancel,
		log:         log.With("module", "hub"),
	}
}

// Run обрабатывает регистрации до вызова Stop
func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.ping()
		}
	}
}

// Stop останавливает Run и закрывает все соединения
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return
	}
	h.stopped = true

	for id, client := range h.clients {
		close(client.Send)
		_ = client.Conn.Close()
		delete(h.clients, id)
	}
	h.userClients = make(map[string]map[uuid.UUID]*Client)
}

func (h *Hub) Register(client *Client) error {
	if h.ctx.Err() != nil {
		return ErrHubStopped
	}
	select {
	case h.register <- client:
		return nil
	case <-h.ctx.Done():
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		close(client.Send)
		return
	}

	h.clients[client.ID] = client

	first := false
	if _, ok := h.userClients[client.Username]; !ok {
		h.userClients[client.Username] = make(map[uuid.UUID]*Client)
		first = true
	}
	h.userClients[client.Username][client.ID] = client

	h.log.Debug(h.ctx, "client registered", "client_id", client.ID.String(), "username", client.Username)

	if first {
		h.notifyUserStatus(client.Username, TypeUserOnline)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	if userClients, ok := h.userClients[client.Username]; ok {
		delete(userClients, client.ID)
		if len(userClients) == 0 {
			delete(h.userClients, client.Username)
			h.notifyUserStatus(client.Username, TypeUserOffline)
		}
	}

	delete(h.clients, client.ID)
	close(client.Send)

	h.log.Debug(h.ctx, "client unregistered", "client_id", client.ID.String(), "username", client.Username)
}

// SendToUser ставит кадр в очередь каждого соединения пользователя.
// При переполненной очереди кадр отбрасывается.
func (h *Hub) SendToUser(username string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.userClients[username] {
		select {
		case client.Send <- message:
		default:
			h.log.Warn(h.ctx, "client send queue full", "client_id", client.ID.String(), "username", username)
		}
	}
}

// NotifyMessage уведомляет получателя о новом сообщении
func (h *Hub) NotifyMessage(username string, msg models.ReceivedMessage) {
	h.sendEvent(username, TypeMessage, msg)
}

// NotifyRead уведомляет отправителя, что сообщение прочитано
func (h *Hub) NotifyRead(username string, receipt models.ReadReceipt) {
	h.sendEvent(username, TypeMessageRead, receipt)
}

func (h *Hub) sendEvent(username string, typ EventType, payload any) {
	data, err := encodeEvent(typ, "", payload)
	if err != nil {
		h.log.Error(h.ctx, "encode event", "type", string(typ), "error", err)
		return
	}
	h.SendToUser(username, data)
}

// IsOnline проверяет, есть ли у пользователя хотя бы одно соединение
func (h *Hub) IsOnline(username string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[username]) > 0
}

// OnlineUsers возвращает отсортированный список пользователей онлайн
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.userClients))
	for username := range h.userClients {
		users = append(users, username)
	}
	sort.Strings(users)
	return users
}

// notifyUserStatus вызывается под h.mu
func (h *Hub) notifyUserStatus(username string, status EventType) {
	data, err := encodeEvent(status, username, nil)
	if err != nil {
		return
	}
	for _, client := range h.clients {
		if client.Username == username {
			continue
		}
		select {
		case client.Send <- data:
		default:
		}
	}
}

func (h *Hub) ping() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := encodeEvent(TypePing, "", nil)
	if err != nil {
		return
	}
	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
		}
	}
}

func encodeEvent(typ EventType, username string, payload any) ([]byte, error) {
	ev := Event{Type: typ, Username: username, Timestamp: time.Now().UTC()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		ev.Data = raw
	}
	return json.Marshal(ev)
}
