package service

import (
	"notes-server/internal/domain"
	"notes-server/internal/logger"
	"notes-server/internal/websocket"
)

// Broadcaster delivers a message to every connection of a user except those
// opened by excludeDeviceID.
type Broadcaster interface {
	BroadcastToUser(userID string, message *websocket.Message, excludeDeviceID string) error
}

// SyncService pushes note changes to the owner's other devices.
type SyncService struct {
	hub Broadcaster
	log *logger.Logger
}

func NewSyncService(hub Broadcaster, log *logger.Logger) *SyncService {
	return &SyncService{
		hub: hub,
		log: log,
	}
}

func (s *SyncService) NoteCreated(userID, deviceID string, note *domain.Note) {
	s.broadcast(userID, deviceID, websocket.TypeNoteCreated, &websocket.NotePayload{Note: note, DeviceID: deviceID})
}

func (s *SyncService) NoteUpdated(userID, deviceID string, note *domain.Note) {
	s.broadcast(userID, deviceID, websocket.TypeNoteUpdated, &websocket.NotePayload{Note: note, DeviceID: deviceID})
}

func (s *SyncService) NoteDeleted(userID, deviceID string, note *domain.Note) {
	s.broadcast(userID, deviceID, websocket.TypeNoteDeleted, &websocket.NoteDeletedPayload{NoteID: note.ID, DeviceID: deviceID})
}

func (s *SyncService) broadcast(userID, deviceID string, msgType websocket.MessageType, payload interface{}) {
	msg, err := websocket.NewMessage(msgType, payload)
	if err != nil {
		s.log.Error("failed to build sync message", "type", msgType, "error", err)
		return
	}

	if err := s.hub.BroadcastToUser(userID, msg, deviceID); err != nil {
		s.log.Warn("failed to broadcast note change", "type", msgType, "user_id", userID, "error", err)
	}
}
