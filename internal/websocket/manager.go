// Package websocket fans note changes out to each user's open connections.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"notes-server/internal/logger"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

type Config struct {
	MaxConnPerUser int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
}

type Manager struct {
	clients      map[string]*Client
	userIndex    map[string]map[string]bool
	clientsMutex sync.RWMutex

	register   chan *Client
	unregister chan *Client
	incoming   chan *ClientMessage
	done       chan struct{}
	stopOnce   sync.Once

	cfg Config
	log *logger.Logger
}

func NewManager(cfg Config, log *logger.Logger) *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		userIndex:  make(map[string]map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		incoming:   make(chan *ClientMessage),
		done:       make(chan struct{}),
		cfg:        cfg,
		log:        log,
	}
}

// Run serves registrations and inbound messages until ctx is cancelled, then
// closes every connection.
func (m *Manager) Run(ctx context.Context) {
	defer m.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-m.register:
			m.registerClient(client)

		case client := <-m.unregister:
			m.unregisterClient(client)

		case msg := <-m.incoming:
			m.processMessage(msg)
		}
	}
}

func (m *Manager) Register(client *Client) {
	select {
	case m.register <- client:
	case <-m.done:
		client.Conn.Close()
	}
}

func (m *Manager) Unregister(client *Client) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}

func (m *Manager) dispatch(msg *ClientMessage) bool {
	select {
	case m.incoming <- msg:
		return true
	case <-m.done:
		return false
	}
}

func (m *Manager) shutdown() {
	m.stopOnce.Do(func() {
		close(m.done)

		m.clientsMutex.Lock()
		defer m.clientsMutex.Unlock()

		for id, client := range m.clients {
			close(client.Send)
			delete(m.clients, id)
		}
		m.userIndex = make(map[string]map[string]bool)
	})
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if m.userIndex[client.UserID] == nil {
		m.userIndex[client.UserID] = make(map[string]bool)
	}

	if m.cfg.MaxConnPerUser > 0 && len(m.userIndex[client.UserID]) >= m.cfg.MaxConnPerUser {
		m.log.Warn("max connections reached", "user_id", client.UserID)
		close(client.Send)
		return
	}

	m.clients[client.ID] = client
	m.userIndex[client.UserID][client.ID] = true

	m.log.Info("client registered", "client_id", client.ID, "user_id", client.UserID, "device_id", client.DeviceID)
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		delete(m.userIndex[client.UserID], client.ID)

		if len(m.userIndex[client.UserID]) == 0 {
			delete(m.userIndex, client.UserID)
		}

		close(client.Send)
		m.log.Info("client unregistered", "client_id", client.ID)
	}
}

// processMessage answers pings. Clients are listeners; anything else is
// rejected with an error message.
func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		m.log.Debug("failed to unmarshal message", "client_id", clientMsg.Client.ID, "error", err)
		m.reply(clientMsg.Client, TypeError, &ErrorPayload{Message: "invalid message"})
		return
	}

	switch msg.Type {
	case TypePing:
		m.reply(clientMsg.Client, TypePong, nil)
	default:
		m.log.Debug("unknown message type", "client_id", clientMsg.Client.ID, "type", msg.Type)
		m.reply(clientMsg.Client, TypeError, &ErrorPayload{Message: "unsupported message type"})
	}
}

func (m *Manager) reply(client *Client, msgType MessageType, payload interface{}) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		m.log.Error("failed to build reply", "error", err)
		return
	}
	if err := m.SendToClient(client.ID, msg); err != nil {
		m.log.Error("failed to send reply", "client_id", client.ID, "error", err)
	}
}

// BroadcastToUser queues message on every connection of userID whose device
// differs from excludeDeviceID. An empty excludeDeviceID reaches all of them.
// Connections with a full buffer are dropped.
func (m *Manager) BroadcastToUser(userID string, message *Message, excludeDeviceID string) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	var slow []*Client

	m.clientsMutex.RLock()
	for clientID := range m.userIndex[userID] {
		client := m.clients[clientID]
		if excludeDeviceID != "" && client.DeviceID == excludeDeviceID {
			continue
		}

		select {
		case client.Send <- messageBytes:
		default:
			slow = append(slow, client)
		}
	}
	m.clientsMutex.RUnlock()

	for _, client := range slow {
		m.log.Warn("send buffer full, closing connection", "client_id", client.ID)
		go m.Unregister(client)
	}

	return nil
}

func (m *Manager) SendToClient(clientID string, message *Message) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	client, exists := m.clients[clientID]
	if !exists {
		return nil
	}

	select {
	case client.Send <- messageBytes:
	default:
		m.log.Warn("send buffer full", "client_id", clientID)
	}

	return nil
}

func (m *Manager) UserConnections(userID string) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	return len(m.userIndex[userID])
}
