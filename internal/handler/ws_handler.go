package handler

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"

	"notes-server/internal/logger"
	"notes-server/internal/middleware"
	"notes-server/internal/websocket"
)

const defaultDevice = "default"

type WebSocketHandler struct {
	manager  *websocket.Manager
	upgrader ws.Upgrader
	log      *logger.Logger
}

// NewWebSocketHandler serves the note event stream. It runs behind the gate,
// so the caller's identity is already in the request context.
func NewWebSocketHandler(manager *websocket.Manager, readBuffer, writeBuffer int, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		log:     log,
		upgrader: ws.Upgrader{
			ReadBufferSize:  readBuffer,
			WriteBufferSize: writeBuffer,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	deviceID := strings.TrimSpace(r.Header.Get(middleware.DeviceIDHeader))
	if deviceID == "" {
		deviceID = r.URL.Query().Get("device_id")
	}
	if deviceID == "" {
		deviceID = defaultDevice
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("failed to upgrade connection", "user_id", userID, "error", err)
		return
	}

	client := websocket.NewClient(uuid.New().String(), userID, deviceID, conn, h.manager)
	h.manager.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
