// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/tbaudier/barjack/internal/cache"
	"github.com/tbaudier/barjack/internal/middleware"
	"github.com/tbaudier/barjack/internal/room"
)

// RoomWSHandler upgrades /ws/{roomID} requests and binds the caller's
// connection to the room. The read pump routes every inbound event to
// a room operation; the room broadcasts its own state changes.
func (s *Server) RoomWSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/ws/"), "/")
		if len(pathParts) < 1 || pathParts[0] == "" {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}
		roomID, err := uuid.Parse(pathParts[0])
		if err != nil {
			http.Error(w, "invalid room id", http.StatusBadRequest)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"barjack"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			s.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "barjack" {
			c.Close(BadSubprotocolError, "client must speak the barjack subprotocol")
			return
		}

		userID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			s.Logger.Warnf("user authentication failed for room %s: %v", roomID, err)
			c.Close(websocket.StatusPolicyViolation, "authentication failed")
			return
		}

		rm, exists := s.Rooms.GetRoom(roomID)
		if !exists {
			c.Close(InvalidRoomIDError, "room does not exist")
			return
		}

		username := UsernameFor(r.Context(), userID)
		if err := rm.Join(userID, username); err != nil {
			c.Close(websocket.StatusPolicyViolation, err.Error())
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		conn := &room.Connection{
			ID:       uuid.NewString(),
			UserID:   userID,
			Username: username,
			Cancel:   cancel,
			OutChan:  make(chan map[string]interface{}, 32),
		}
		rm.AddConnection(conn)
		conn.Write(map[string]interface{}{
			"type": "room:state",
			"room": rm.StatePayload(),
		})

		middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path)

		go s.writePump(ctx, c, conn)
		readErr := s.readPump(ctx, c, rm, conn)

		middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, readErr)
		rm.HandleDisconnect(userID, conn.ID)
	}
}

// readPump handles incoming messages until the connection closes,
// returning the error that ended the read loop, if any.
func (s *Server) readPump(ctx context.Context, c *websocket.Conn, rm *room.Room, conn *room.Connection) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway ||
				strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		var packet map[string]interface{}
		if err := json.Unmarshal(msg, &packet); err != nil {
			s.Logger.Warnf("room %s: invalid json from user %v: %v", rm.ID, conn.UserID, err)
			conn.WriteError("room:error", "invalid JSON")
			continue
		}

		if closing := s.handleRoomMessage(packet, rm, conn); closing {
			return nil
		}
	}
}

// handleRoomMessage routes one inbound event. Returns true when the
// connection should close.
func (s *Server) handleRoomMessage(packet map[string]interface{}, rm *room.Room, conn *room.Connection) bool {
	eventType, _ := packet["type"].(string)
	userID := conn.UserID

	var err error
	switch eventType {
	case "room:join":
		err = rm.Join(userID, conn.Username)

	case "room:leave":
		rm.Leave(userID)
		return true

	case "room:chat":
		message, _ := packet["message"].(string)
		err = rm.Chat(userID, message)

	case "room:update-settings":
		settings, ok := packet["settings"].(map[string]interface{})
		if !ok {
			conn.WriteError("room:error", "invalid payload for room:update-settings")
			return false
		}
		err = rm.UpdateSettings(userID, settings)

	case "room:add-test-player":
		err = rm.AddBot(userID)

	case "room:remove-test-player":
		botID, parseErr := packetUUID(packet, "playerId")
		if parseErr != nil {
			conn.WriteError("room:error", "invalid playerId")
			return false
		}
		err = rm.RemoveBot(userID, botID)

	case "game:start":
		err = rm.StartGame(userID)
		s.publishAction(rm, userID, eventType, packet, err)

	case "game:action":
		action, _ := packet["action"].(string)
		wantsHidden := false
		if options, ok := packet["options"].(map[string]interface{}); ok {
			wantsHidden, _ = options["hidden"].(bool)
		}
		err = rm.PlayerAction(userID, action, wantsHidden)
		s.publishAction(rm, userID, "game:"+action, packet, err)

	case "player:reveal-hidden":
		err = rm.RevealHidden(userID)
		s.publishAction(rm, userID, eventType, packet, err)

	case "bank:draw":
		err = rm.BankDraw(userID)
		s.publishAction(rm, userID, eventType, packet, err)

	case "bank:denounce":
		targetID, parseErr := packetUUID(packet, "playerId")
		if parseErr != nil {
			conn.WriteError("bank:error", "invalid playerId")
			return false
		}
		err = rm.BankDenounce(userID, targetID)
		s.publishAction(rm, userID, eventType, packet, err)

	case "bank:end-turn":
		err = rm.BankEndTurn(userID)
		s.publishAction(rm, userID, eventType, packet, err)

	case "game:resolve-round":
		err = rm.ResolveRound(userID)
		s.publishAction(rm, userID, eventType, packet, err)

	case "game:end":
		rm.EndGame()
		s.publishAction(rm, userID, eventType, packet, nil)

	case "game:replay":
		err = rm.Replay(userID)
		s.publishAction(rm, userID, eventType, packet, err)

	case "game:leave":
		err = rm.LeaveGame(userID)

	case "shop:buy":
		itemID, _ := packet["itemId"].(string)
		targetID, parseErr := packetUUID(packet, "targetUserId")
		if parseErr != nil {
			conn.WriteError("shop:error", "invalid targetUserId")
			return false
		}
		err = rm.BuyItem(userID, itemID, targetID)
		s.publishAction(rm, userID, eventType, packet, err)

	case "shop:dose-choice":
		cardIndex, ok := packetInt(packet, "cardIndex")
		if !ok {
			conn.WriteError("shop:error", "invalid cardIndex")
			return false
		}
		err = rm.DoseChoice(userID, cardIndex)
		s.publishAction(rm, userID, eventType, packet, err)

	case "debug:give-points":
		if os.Getenv("ENABLE_DEBUG_COMMANDS") != "true" {
			conn.WriteError("debug:error", "debug commands are disabled")
			return false
		}
		points, ok := packetInt(packet, "points")
		if !ok {
			conn.WriteError("debug:error", "invalid points")
			return false
		}
		err = rm.GivePoints(userID, points)

	default:
		s.Logger.Warnf("room %s: unknown event %q from user %v", rm.ID, eventType, userID)
		conn.WriteError("room:error", "unknown event type: "+eventType)
		return false
	}

	if err != nil {
		conn.WriteError(errorEventFor(eventType), err.Error())
	}
	return false
}

// errorEventFor maps an inbound event to its namespaced error event.
func errorEventFor(eventType string) string {
	if idx := strings.Index(eventType, ":"); idx > 0 {
		return eventType[:idx] + ":error"
	}
	return "room:error"
}

// publishAction pushes a successful game action onto the Redis log
// queue without blocking the player's request.
func (s *Server) publishAction(rm *room.Room, actorID uuid.UUID, actionType string, payload map[string]interface{}, actionErr error) {
	if actionErr != nil || cache.Rdb == nil {
		return
	}
	record := cache.ActionRecord{
		RoomID:        rm.ID,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	rm.Mu.Lock()
	if rm.Game != nil {
		record.GameID = rm.Game.ID
	}
	rm.Mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cache.PublishAction(ctx, record); err != nil {
			s.Logger.Debugf("failed to publish action %s: %v", actionType, err)
		}
	}()
}

func packetUUID(packet map[string]interface{}, key string) (uuid.UUID, error) {
	raw, _ := packet[key].(string)
	if raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}

func packetInt(packet map[string]interface{}, key string) (int, bool) {
	f, ok := packet[key].(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// writePump drains the connection's outbound channel onto the socket
// and keeps the connection alive with periodic pings.
func (s *Server) writePump(ctx context.Context, c *websocket.Conn, conn *room.Connection) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer c.Close(websocket.StatusGoingAway, "write pump stopping")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.Logger.Warnf("failed to marshal outgoing msg for user %v: %v", conn.UserID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.Logger.Warnf("failed to write to websocket for user %v: %v", conn.UserID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				s.Logger.Warnf("failed to ping user %v: %v", conn.UserID, err)
				return
			}
		}
	}
}
