package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomLog is one entry in a room's activity feed: system notices,
// game events, chat messages, and shop purchases.
type RoomLog struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"` // "system", "game", "chat", "shop"
	Message    string    `json:"message"`
	Timestamp  int64     `json:"timestamp"`
	PlayerID   uuid.UUID `json:"playerId,omitempty"`
	PlayerName string    `json:"playerName,omitempty"`
}

// NewRoomLog builds a log entry stamped with the current time.
func NewRoomLog(logType, message string) RoomLog {
	return RoomLog{
		ID:        uuid.New(),
		Type:      logType,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewPlayerLog builds a log entry attributed to a player.
func NewPlayerLog(logType, message string, playerID uuid.UUID, playerName string) RoomLog {
	entry := NewRoomLog(logType, message)
	entry.PlayerID = playerID
	entry.PlayerName = playerName
	return entry
}
