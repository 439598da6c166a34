// internal/handlers/room.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tbaudier/barjack/internal/database"
	"github.com/tbaudier/barjack/internal/models"
	"github.com/tbaudier/barjack/internal/room"
)

// CreateRoomHandler creates a room with the caller as host and sole
// player.
func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := EnsureEphemeralUser(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	rm := room.NewRoom(userID, UsernameFor(r.Context(), userID))
	rm.OnRoundResolved = s.persistRound
	s.Rooms.AddRoom(rm)

	s.Logger.Infof("room %s (%s) created by %s", rm.ID, rm.Code, userID)
	writeJSON(w, http.StatusCreated, rm.StatePayload())
}

type joinRoomRequest struct {
	Code string `json:"code"`
}

// JoinRoomHandler adds the caller to a room looked up by join code.
func (s *Server) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := EnsureEphemeralUser(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	rm, ok := s.Rooms.FindByCode(req.Code)
	if !ok {
		writeError(w, models.NewNotFound("no room with that code"))
		return
	}
	if err := rm.Join(userID, UsernameFor(r.Context(), userID)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rm.StatePayload())
}

// LeaveRoomHandler removes the caller from the room.
func (s *Server) LeaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	userID, rm, ok := s.resolveRoomRequest(w, r)
	if !ok {
		return
	}
	rm.Leave(userID)
	w.WriteHeader(http.StatusOK)
}

// GetRoomHandler returns the room snapshot; the path carries the room
// id.
func (s *Server) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/room/")
	roomID, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}
	rm, ok := s.Rooms.GetRoom(roomID)
	if !ok {
		writeError(w, models.NewNotFound("room not found"))
		return
	}
	writeJSON(w, http.StatusOK, rm.StatePayload())
}

type readyRequest struct {
	RoomID uuid.UUID `json:"roomId"`
	Ready  bool      `json:"ready"`
}

// ReadyHandler toggles the caller's readiness.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := EnsureEphemeralUser(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}
	var req readyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	rm, ok := s.Rooms.GetRoom(req.RoomID)
	if !ok {
		writeError(w, models.NewNotFound("room not found"))
		return
	}
	if err := rm.SetReady(userID, req.Ready); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type autoJoinRequest struct {
	RoomID   uuid.UUID `json:"roomId"`
	AutoJoin bool      `json:"autoJoin"`
}

// AutoJoinHandler toggles the caller's participation in the next
// round.
func (s *Server) AutoJoinHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := EnsureEphemeralUser(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}
	var req autoJoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	rm, ok := s.Rooms.GetRoom(req.RoomID)
	if !ok {
		writeError(w, models.NewNotFound("room not found"))
		return
	}
	if err := rm.SetAutoJoin(userID, req.AutoJoin); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// resolveRoomRequest authenticates the caller and decodes a body with
// a roomId field.
func (s *Server) resolveRoomRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, *room.Room, bool) {
	userID, err := EnsureEphemeralUser(w, r)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return uuid.Nil, nil, false
	}
	var req struct {
		RoomID uuid.UUID `json:"roomId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return uuid.Nil, nil, false
	}
	rm, ok := s.Rooms.GetRoom(req.RoomID)
	if !ok {
		writeError(w, models.NewNotFound("room not found"))
		return uuid.Nil, nil, false
	}
	return userID, rm, true
}

// persistRound is the room's post-resolution hook. Persistence
// failures are logged, never surfaced to players.
func (s *Server) persistRound(result room.RoundResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := database.InsertRoundHistory(ctx, result); err != nil {
		s.Logger.Warnf("failed to persist round for room %s: %v", result.RoomID, err)
	}
}
