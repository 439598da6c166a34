// internal/room/room.go
package room

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tbaudier/barjack/internal/game"
	"github.com/tbaudier/barjack/internal/models"
)

// RoomState is the room lifecycle phase.
type RoomState string

const (
	RoomWaiting RoomState = "WAITING"
	RoomPlaying RoomState = "PLAYING"
)

const (
	maxPlayers        = 8
	maxLogEntries     = 100
	maxChatLength     = 200
	evictionDelay     = 60 * time.Second
	autoReplaySeconds = 3
)

// Timer keys for the per-room scheduler.
const (
	timerBot        = "bot"
	timerAutoReplay = "auto-replay"
	timerTurn       = "turn"
)

// RoundResult is the post-resolution snapshot handed to the
// persistence hook.
type RoundResult struct {
	RoomID     uuid.UUID
	RoomCode   string
	HostID     uuid.UUID
	Settings   models.RoomSettings
	Players    []PlayerResult
	FinishedAt time.Time
}

// PlayerResult is one participant's outcome within a RoundResult.
type PlayerResult struct {
	ID       uuid.UUID
	Username string
	Kind     models.ParticipantKind
	IsDealer bool
	State    models.PlayerState
	Points   int
}

// Connection is a single user's live websocket presence in the room.
type Connection struct {
	ID       string
	UserID   uuid.UUID
	Username string
	Cancel   func()
	OutChan  chan map[string]interface{}
}

// Write pushes a message onto the user's OutChan non-blockingly.
func (conn *Connection) Write(msg map[string]interface{}) {
	select {
	case conn.OutChan <- msg:
	default:
		msgType, _ := msg["type"].(string)
		log.Printf("room connection for user %s full or closed, dropped message type %q", conn.UserID, msgType)
	}
}

// WriteError unicasts a typed error event to this connection.
func (conn *Connection) WriteError(eventType, msg string) {
	conn.Write(map[string]interface{}{
		"type":    eventType,
		"message": msg,
	})
}

// Room is a session of players plus an optional in-flight round. The
// mutex guards everything below it; the room is the single writer for
// its game, and all timer callbacks re-validate state under the lock
// before touching anything.
type Room struct {
	ID          uuid.UUID
	Code        string
	HostID      uuid.UUID
	State       RoomState
	Players     []*models.Player
	DealerIndex int
	Settings    models.RoomSettings
	Logs        []models.RoomLog
	Game        *game.Game
	CreatedAt   time.Time

	Connections map[uuid.UUID]*Connection

	// OnEmpty is called after the last player leaves so the store can
	// drop the room.
	OnEmpty func(roomID uuid.UUID)

	// OnRoundResolved receives the round snapshot for async
	// persistence. Never called while the room lock is held.
	OnRoundResolved func(RoundResult)

	Mu    sync.Mutex
	sched *Scheduler
}

// RoomCode derives the six-character join code from a room id: the
// last six hex digits of the UUID, uppercased.
func RoomCode(id uuid.UUID) string {
	clean := strings.ReplaceAll(id.String(), "-", "")
	return strings.ToUpper(clean[len(clean)-6:])
}

// NewRoom creates a waiting room with the host as its only player and
// default settings.
func NewRoom(hostID uuid.UUID, hostName string) *Room {
	id := uuid.New()
	r := &Room{
		ID:          id,
		Code:        RoomCode(id),
		HostID:      hostID,
		State:       RoomWaiting,
		Settings:    models.DefaultRoomSettings(game.AllShopItemIDs()),
		Connections: make(map[uuid.UUID]*Connection),
		CreatedAt:   time.Now(),
		sched:       NewScheduler(),
	}
	r.Players = []*models.Player{newHumanPlayer(hostID, hostName)}
	r.Logs = append(r.Logs, models.NewRoomLog("system", fmt.Sprintf("Room created by %s", hostName)))
	return r
}

func newHumanPlayer(id uuid.UUID, username string) *models.Player {
	return &models.Player{
		ID:       id,
		Username: username,
		Kind:     models.KindHuman,
		State:    models.StateWaiting,
	}
}

// PlayerByID finds a room player. Assumes the lock is held.
func (r *Room) PlayerByID(id uuid.UUID) *models.Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// appendLogUnsafe adds a log entry, evicting the oldest past the cap.
func (r *Room) appendLogUnsafe(entry models.RoomLog) {
	r.Logs = append(r.Logs, entry)
	if len(r.Logs) > maxLogEntries {
		r.Logs = r.Logs[len(r.Logs)-maxLogEntries:]
	}
}

// Join adds the user as a player, or re-binds an existing player on
// rejoin. Joining is only possible while the room is waiting, except
// for players reconnecting mid-round.
func (r *Room) Join(userID uuid.UUID, username string) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if existing := r.PlayerByID(userID); existing != nil {
		// rejoin path, cancel any pending eviction
		r.sched.Cancel(evictKey(userID))
		if existing.State == models.StateDisconnected {
			existing.State = models.StateWaiting
		}
		r.broadcastRoomStateUnsafe()
		return nil
	}

	if r.State != RoomWaiting {
		return models.NewInvalidState("game already started")
	}
	if len(r.Players) >= maxPlayers {
		return models.NewConflict("room is full")
	}

	r.Players = append(r.Players, newHumanPlayer(userID, username))
	r.appendLogUnsafe(models.NewRoomLog("system", fmt.Sprintf("%s joined the room", username)))
	r.broadcastRoomStateUnsafe()
	return nil
}

// Leave removes the player entirely. The last player out deletes the
// room; a departing host hands off to the next player.
func (r *Room) Leave(userID uuid.UUID) {
	r.Mu.Lock()

	idx := -1
	for i, p := range r.Players {
		if p.ID == userID {
			idx = i
			break
		}
	}
	if idx == -1 {
		r.Mu.Unlock()
		return
	}
	leaving := r.Players[idx]
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	r.removeFromGameUnsafe(userID)

	if len(r.Players) == 0 {
		onEmpty := r.OnEmpty
		r.Mu.Unlock()
		if onEmpty != nil {
			onEmpty(r.ID)
		}
		return
	}

	if r.HostID == userID {
		r.HostID = r.Players[0].ID
		r.broadcastUnsafe(map[string]interface{}{
			"type":      "room:host-changed",
			"newHostId": r.HostID.String(),
		})
	}

	r.appendLogUnsafe(models.NewRoomLog("system", fmt.Sprintf("%s left the room", leaving.Username)))
	r.broadcastRoomStateUnsafe()
	r.Mu.Unlock()
}

// removeFromGameUnsafe drops a departing player from the in-flight
// round, keeping the turn pointer coherent. A departing bank ends the
// round entirely.
func (r *Room) removeFromGameUnsafe(userID uuid.UUID) {
	g := r.Game
	if g == nil {
		return
	}

	if g.Bank.ID == userID {
		r.endGameUnsafe()
		r.broadcastUnsafe(map[string]interface{}{"type": "game:ended"})
		return
	}

	for i, p := range g.Players {
		if p.ID == userID {
			g.Players = append(g.Players[:i], g.Players[i+1:]...)
			if g.CurrentPlayerIndex > i {
				g.CurrentPlayerIndex--
			}
			if g.State == game.StatePlayerTurns && g.CurrentPlayerIndex >= len(g.Players) {
				g.State = game.StateBankTurn
				g.Bank.State = models.StatePlaying
			}
			// The armed timer belonged to the leaver's seat; the
			// successor gets a fresh clock.
			r.sched.Cancel(timerTurn)
			r.scheduleTurnTimerUnsafe()
			r.broadcastGameStateUnsafe()
			r.maybeScheduleBotUnsafe()
			return
		}
	}
}

// LeaveGame withdraws the player from the current round while keeping
// them in the room as a spectator.
func (r *Room) LeaveGame(userID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Game == nil {
		return models.NewInvalidState("no round in progress")
	}
	p := r.PlayerByID(userID)
	if p == nil {
		return models.NewNotFound("player not found")
	}
	r.removeFromGameUnsafe(userID)
	if r.Game != nil {
		p.Hand = nil
		p.State = models.StateWaiting
		p.ClearAllEffectFlags()
	}
	r.broadcastRoomStateUnsafe()
	return nil
}

// SetReady toggles readiness, only while the room is waiting.
func (r *Room) SetReady(userID uuid.UUID, ready bool) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.State != RoomWaiting {
		return models.NewInvalidState("the game has already started")
	}
	p := r.PlayerByID(userID)
	if p == nil {
		return models.NewNotFound("player not found")
	}
	p.Ready = ready
	if ready {
		p.State = models.StateReady
	} else {
		p.State = models.StateWaiting
	}
	r.broadcastRoomStateUnsafe()
	return nil
}

// SetAutoJoin toggles automatic participation in the next round.
func (r *Room) SetAutoJoin(userID uuid.UUID, autoJoin bool) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p := r.PlayerByID(userID)
	if p == nil {
		return models.NewNotFound("player not found")
	}
	p.AutoJoinNext = autoJoin
	r.broadcastRoomStateUnsafe()
	return nil
}

// Chat appends a trimmed chat message to the log and broadcasts it.
func (r *Room) Chat(userID uuid.UUID, message string) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p := r.PlayerByID(userID)
	if p == nil {
		return models.NewNotFound("player not found")
	}
	trimmed := strings.TrimSpace(message)
	if runes := []rune(trimmed); len(runes) > maxChatLength {
		trimmed = string(runes[:maxChatLength])
	}
	if trimmed == "" {
		return nil
	}

	entry := models.NewPlayerLog("chat", trimmed, p.ID, p.Username)
	r.appendLogUnsafe(entry)
	r.broadcastUnsafe(map[string]interface{}{
		"type": "room:chat-message",
		"log":  entry,
	})
	r.broadcastRoomStateUnsafe()
	return nil
}

// UpdateSettings applies a partial settings payload, host only.
func (r *Room) UpdateSettings(userID uuid.UUID, settings map[string]interface{}) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.HostID != userID {
		return models.NewForbidden("only the host can change the settings")
	}
	updated := r.Settings
	if err := updated.Update(settings); err != nil {
		return models.NewInvalidState(err.Error())
	}
	r.Settings = updated

	r.appendLogUnsafe(models.NewRoomLog("system", "Room settings were updated"))
	r.broadcastUnsafe(map[string]interface{}{
		"type":     "room:settings-updated",
		"settings": r.Settings,
	})
	r.broadcastRoomStateUnsafe()
	return nil
}

// AddBot adds a server-driven player, host only. Bots are always
// ready.
func (r *Room) AddBot(userID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.HostID != userID {
		return models.NewForbidden("only the host can add bots")
	}
	if r.State != RoomWaiting {
		return models.NewInvalidState("the game has already started")
	}
	if len(r.Players) >= maxPlayers {
		return models.NewConflict("room is full")
	}

	bot := &models.Player{
		ID:       uuid.New(),
		Username: fmt.Sprintf("Bot %d", r.botCountUnsafe()+1),
		Kind:     models.KindBot,
		State:    models.StateReady,
		Ready:    true,
	}
	r.Players = append(r.Players, bot)
	r.appendLogUnsafe(models.NewRoomLog("system", fmt.Sprintf("%s joined the room", bot.Username)))
	r.broadcastRoomStateUnsafe()
	return nil
}

func (r *Room) botCountUnsafe() int {
	n := 0
	for _, p := range r.Players {
		if p.IsBot() {
			n++
		}
	}
	return n
}

// RemoveBot removes a bot player, host only.
func (r *Room) RemoveBot(userID, botID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.HostID != userID {
		return models.NewForbidden("only the host can remove bots")
	}
	for i, p := range r.Players {
		if p.ID == botID {
			if !p.IsBot() {
				return models.NewInvalidState("player is not a bot")
			}
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			r.removeFromGameUnsafe(botID)
			r.broadcastRoomStateUnsafe()
			return nil
		}
	}
	return models.NewNotFound("bot not found")
}

// StartGame begins a round, host only, at least two players. The
// dealer seat picks the bank; everyone else plays against it.
func (r *Room) StartGame(userID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.HostID != userID {
		return models.NewForbidden("only the host can start the game")
	}
	if len(r.Players) < 2 {
		return models.NewInvalidState("at least 2 players are needed to start")
	}
	if r.Game != nil {
		return models.NewConflict("a round is already in progress")
	}

	if err := r.startRoundUnsafe(); err != nil {
		return err
	}
	r.broadcastUnsafe(map[string]interface{}{
		"type":     "game:started",
		"redirect": "/game",
	})
	r.broadcastGameStateUnsafe()
	r.broadcastRoomStateUnsafe()
	r.maybeScheduleBotUnsafe()
	return nil
}

// startRoundUnsafe resets hands, elects the dealer, deals, and starts
// the first turn.
func (r *Room) startRoundUnsafe() error {
	r.DealerIndex = r.DealerIndex % len(r.Players)
	for _, p := range r.Players {
		p.ResetForRound()
	}

	dealer := r.Players[r.DealerIndex]
	dealer.IsDealer = true
	dealer.State = models.StateWaiting

	gamePlayers := make([]*models.Player, 0, len(r.Players)-1)
	for _, p := range r.Players {
		if p.ID != dealer.ID {
			gamePlayers = append(gamePlayers, p)
		}
	}

	g := game.NewGame(r.ID, gamePlayers, dealer, &r.Settings)
	if err := g.Deal(); err != nil {
		return err
	}
	r.Game = g
	r.State = RoomPlaying
	r.scheduleTurnTimerUnsafe()
	return nil
}

// EndGame tears down the current round and returns the room to the
// lobby. Bots stay ready; humans re-ready per their auto-join flag.
func (r *Room) EndGame() {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.endGameUnsafe()
	r.broadcastRoomStateUnsafe()
	r.broadcastUnsafe(map[string]interface{}{"type": "game:ended"})
}

func (r *Room) endGameUnsafe() {
	for _, p := range r.Players {
		p.Hand = nil
		p.IsDealer = false
		if p.IsBot() {
			p.State = models.StateReady
			p.Ready = true
		} else if p.AutoJoinNext {
			p.State = models.StateReady
			p.Ready = true
		} else {
			p.State = models.StateWaiting
			p.Ready = false
		}
		p.ClearAllEffectFlags()
	}
	r.Game = nil
	r.State = RoomWaiting
	r.sched.Cancel(timerBot)
	r.sched.Cancel(timerAutoReplay)
	r.sched.Cancel(timerTurn)
}

// Replay restarts a round immediately. Allowed for the current bank,
// the host, or anyone when the bank is a bot. Players are ready if
// they are bots, have auto-join on, or initiated the replay; with
// fewer than two ready the replay aborts and the room reverts to
// waiting.
func (r *Room) Replay(initiatorID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	isHost := r.HostID == initiatorID
	isBank := r.Game != nil && r.Game.Bank.ID == initiatorID
	bankIsBot := r.Game != nil && r.Game.Bank.IsBot()
	if !isHost && !isBank && !bankIsBot {
		return models.NewForbidden("only the bank or the host can replay")
	}

	ready := 0
	for _, p := range r.Players {
		p.Hand = nil
		if p.IsBot() || p.AutoJoinNext || p.ID == initiatorID {
			p.State = models.StateReady
			p.Ready = true
			ready++
		} else {
			p.State = models.StateWaiting
			p.Ready = false
		}
		p.ClearAllEffectFlags()
	}

	if ready < 2 {
		r.State = RoomWaiting
		r.Game = nil
		r.broadcastRoomStateUnsafe()
		return models.NewInvalidState("not enough players with auto-join enabled (minimum 2)")
	}

	r.Game = nil
	if err := r.startRoundUnsafe(); err != nil {
		return err
	}
	r.broadcastGameStateUnsafe()
	r.broadcastRoomStateUnsafe()
	r.maybeScheduleBotUnsafe()
	return nil
}

// PlayerAction applies a hit or stand from the current player.
func (r *Room) PlayerAction(userID uuid.UUID, action string, wantsHidden bool) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Game == nil {
		return models.NewInvalidState("no round in progress")
	}

	var err error
	switch action {
	case "hit":
		err = r.Game.HandleHit(userID, wantsHidden)
	case "stand":
		err = r.Game.HandleStand(userID)
	default:
		return models.NewInvalidState("unknown action")
	}
	if err != nil {
		return err
	}

	r.broadcastGameStateUnsafe()
	r.scheduleTurnTimerUnsafe()
	r.maybeScheduleBotUnsafe()
	return nil
}

// RevealHidden flips the caller's concealed cards face up.
func (r *Room) RevealHidden(userID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Game == nil {
		return models.NewInvalidState("no round in progress")
	}
	revealed, err := r.Game.RevealHidden(userID)
	if err != nil {
		return err
	}
	if revealed {
		r.broadcastGameStateUnsafe()
	}
	return nil
}

// BankDraw draws a card for the bank.
func (r *Room) BankDraw(userID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Game == nil {
		return models.NewInvalidState("no round in progress")
	}
	if err := r.Game.BankDraw(userID); err != nil {
		return err
	}
	r.broadcastGameStateUnsafe()
	return nil
}

// BankDenounce settles one player against the bank.
func (r *Room) BankDenounce(userID, targetID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Game == nil {
		return models.NewInvalidState("no round in progress")
	}
	if err := r.Game.BankDenounce(userID, targetID); err != nil {
		return err
	}
	r.broadcastGameStateUnsafe()
	return nil
}

// BankEndTurn closes the bank phase.
func (r *Room) BankEndTurn(userID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Game == nil {
		return models.NewInvalidState("no round in progress")
	}
	if err := r.Game.BankEndTurn(userID); err != nil {
		return err
	}
	r.broadcastGameStateUnsafe()
	return nil
}

// ResolveRound settles the open hands, rotates the dealer seat, and
// kicks off auto-replay when every player opted in. Allowed for the
// bank, or anyone when the bank is a bot.
func (r *Room) ResolveRound(userID uuid.UUID) error {
	r.Mu.Lock()

	g := r.Game
	if g == nil {
		r.Mu.Unlock()
		return models.NewInvalidState("no round in progress")
	}
	if g.Bank.ID != userID && !g.Bank.IsBot() {
		r.Mu.Unlock()
		return models.NewForbidden("only the bank can resolve the round")
	}
	if err := g.Resolve(); err != nil {
		r.Mu.Unlock()
		return err
	}

	r.DealerIndex = (r.DealerIndex + 1) % len(r.Players)

	r.broadcastGameStateUnsafe()
	r.broadcastRoomStateUnsafe()

	result := r.roundResultUnsafe()
	onResolved := r.OnRoundResolved

	allAutoJoin := len(r.Players) >= 2
	for _, p := range r.Players {
		if !p.IsBot() && !p.AutoJoinNext {
			allAutoJoin = false
			break
		}
	}
	if allAutoJoin {
		r.startAutoReplayCountdownUnsafe(autoReplaySeconds, g.ID)
	}
	r.Mu.Unlock()

	if onResolved != nil {
		go onResolved(result)
	}
	return nil
}

func (r *Room) roundResultUnsafe() RoundResult {
	result := RoundResult{
		RoomID:     r.ID,
		RoomCode:   r.Code,
		HostID:     r.HostID,
		Settings:   r.Settings,
		FinishedAt: time.Now(),
	}
	for _, p := range r.Players {
		result.Players = append(result.Players, PlayerResult{
			ID:       p.ID,
			Username: p.Username,
			Kind:     p.Kind,
			IsDealer: p.IsDealer,
			State:    p.State,
			Points:   p.Points,
		})
	}
	return result
}

// startAutoReplayCountdownUnsafe broadcasts a per-second countdown and
// restarts the round when it reaches zero. Each tick re-checks that
// the resolved round is still the current one; any state change in
// between makes the countdown a no-op.
func (r *Room) startAutoReplayCountdownUnsafe(countdown int, resolvedGameID uuid.UUID) {
	r.broadcastUnsafe(map[string]interface{}{
		"type":      "game:auto-replay-countdown",
		"countdown": countdown,
	})

	r.sched.After(timerAutoReplay, time.Second, func() {
		r.Mu.Lock()
		defer r.Mu.Unlock()

		if r.Game == nil || r.Game.ID != resolvedGameID || r.Game.State != game.StateFinished {
			return
		}

		if countdown-1 > 0 {
			r.startAutoReplayCountdownUnsafe(countdown-1, resolvedGameID)
			return
		}

		r.broadcastUnsafe(map[string]interface{}{
			"type":      "game:auto-replay-countdown",
			"countdown": nil,
		})

		for _, p := range r.Players {
			p.Hand = nil
			p.State = models.StateReady
			p.Ready = true
			p.ClearAllEffectFlags()
		}
		r.Game = nil
		if err := r.startRoundUnsafe(); err != nil {
			log.Printf("room %s: auto-replay start failed: %v", r.ID, err)
			r.State = RoomWaiting
			r.broadcastRoomStateUnsafe()
			return
		}
		r.broadcastGameStateUnsafe()
		r.broadcastRoomStateUnsafe()
		r.maybeScheduleBotUnsafe()
	})
}

// BuyItem executes a shop purchase, logs it, and broadcasts the
// receipt alongside fresh snapshots.
func (r *Room) BuyItem(buyerID uuid.UUID, itemID string, targetID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Game == nil {
		return models.NewInvalidState("no round in progress")
	}

	result, err := r.Game.Purchase(buyerID, itemID, targetID)
	if err != nil {
		return err
	}

	logMessage := fmt.Sprintf("%s used %q", result.Buyer.Username, result.Item.Name)
	if result.Item.TargetType == game.TargetPlayer || result.Item.TargetType == game.TargetBank {
		logMessage = fmt.Sprintf("%s used %q on %s", result.Buyer.Username, result.Item.Name, result.Target.Username)
	}
	r.appendLogUnsafe(models.NewPlayerLog("shop", logMessage, result.Buyer.ID, result.Buyer.Username))
	if result.EffectMessage != "" {
		r.appendLogUnsafe(models.NewRoomLog("game", result.EffectMessage))
	}

	purchased := map[string]interface{}{
		"type":          "shop:purchased",
		"buyerId":       result.Buyer.ID.String(),
		"buyerName":     result.Buyer.Username,
		"itemId":        result.Item.ID,
		"itemName":      result.Item.Name,
		"effectMessage": result.EffectMessage,
	}
	if result.Target != nil {
		purchased["targetUserId"] = result.Target.ID.String()
		purchased["targetName"] = result.Target.Username
	}
	r.broadcastUnsafe(purchased)
	r.broadcastGameStateUnsafe()
	r.broadcastRoomStateUnsafe()
	return nil
}

// DoseChoice completes a pending dose-au-choix pick.
func (r *Room) DoseChoice(userID uuid.UUID, cardIndex int) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Game == nil {
		return models.NewInvalidState("no round in progress")
	}
	if err := r.Game.ChooseDoseCard(userID, cardIndex); err != nil {
		return err
	}

	if p := r.PlayerByID(userID); p != nil {
		r.appendLogUnsafe(models.NewRoomLog("game", fmt.Sprintf("%s picked a card (Dose au choix)", p.Username)))
	}
	r.broadcastGameStateUnsafe()
	r.broadcastRoomStateUnsafe()
	return nil
}

// GivePoints credits session points, a debug escape hatch gated by
// the handlers.
func (r *Room) GivePoints(userID uuid.UUID, points int) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p := r.PlayerByID(userID)
	if p == nil {
		return models.NewNotFound("player not found")
	}
	p.Points += points
	if r.Game != nil {
		r.broadcastGameStateUnsafe()
	}
	r.broadcastRoomStateUnsafe()
	return nil
}

// AddConnection registers a live websocket session for the user,
// replacing any previous one and cancelling a pending eviction.
func (r *Room) AddConnection(conn *Connection) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	// cancelling the old session stops both its pumps; the channel is
	// left open so a stale handler can never hit a closed channel
	if old, ok := r.Connections[conn.UserID]; ok && old != conn && old.Cancel != nil {
		old.Cancel()
	}
	r.Connections[conn.UserID] = conn
	r.sched.Cancel(evictKey(conn.UserID))

	if p := r.PlayerByID(conn.UserID); p != nil {
		p.ConnectionID = conn.ID
		if p.State == models.StateDisconnected {
			p.State = models.StateWaiting
		}
	}
}

// HandleDisconnect marks the player disconnected and, when no round
// is active, schedules their eviction. A stale connection instance is
// ignored so a fast reconnect is not clobbered by the old session's
// teardown.
func (r *Room) HandleDisconnect(userID uuid.UUID, connID string) {
	r.Mu.Lock()

	conn, ok := r.Connections[userID]
	if ok && conn.ID == connID {
		delete(r.Connections, userID)
		if conn.Cancel != nil {
			conn.Cancel()
		}
	}

	p := r.PlayerByID(userID)
	if p == nil || p.ConnectionID != connID {
		r.Mu.Unlock()
		return
	}
	p.ConnectionID = ""
	p.State = models.StateDisconnected

	r.broadcastUnsafe(map[string]interface{}{
		"type":   "room:player-disconnected",
		"userId": userID.String(),
	})
	r.broadcastRoomStateUnsafe()

	if r.HostID == userID {
		for _, candidate := range r.Players {
			if candidate.State != models.StateDisconnected {
				r.HostID = candidate.ID
				r.broadcastUnsafe(map[string]interface{}{
					"type":      "room:host-changed",
					"newHostId": r.HostID.String(),
				})
				break
			}
		}
	}

	roundActive := r.Game != nil && r.Game.State != game.StateFinished
	if !roundActive {
		r.sched.After(evictKey(userID), evictionDelay, func() {
			r.evictIfStillDisconnected(userID)
		})
	}
	r.Mu.Unlock()
}

func evictKey(userID uuid.UUID) string {
	return "evict:" + userID.String()
}

// evictIfStillDisconnected removes a player whose grace period ran
// out. Re-checks under the lock; a reconnect in the meantime wins.
func (r *Room) evictIfStillDisconnected(userID uuid.UUID) {
	r.Mu.Lock()

	p := r.PlayerByID(userID)
	if p == nil || p.State != models.StateDisconnected {
		r.Mu.Unlock()
		return
	}

	r.broadcastUnsafe(map[string]interface{}{
		"type":   "room:player-ejected",
		"userId": userID.String(),
	})
	r.Mu.Unlock()

	r.Leave(userID)
}

// maybeScheduleBotUnsafe schedules the next bot step when the actor
// on turn is server-driven. Requires the lock.
func (r *Room) maybeScheduleBotUnsafe() {
	g := r.Game
	if g == nil {
		return
	}
	gameID := g.ID

	if g.State == game.StatePlayerTurns {
		if current := g.CurrentPlayer(); current != nil && current.IsBot() {
			r.sched.After(timerBot, game.BotDelay(), func() {
				r.botPlayerStep(gameID)
			})
		}
		return
	}
	if g.State == game.StateBankTurn && g.Bank.IsBot() {
		r.sched.After(timerBot, game.BotDelay(), func() {
			r.botBankStep(gameID)
		})
	}
}

// botPlayerStep runs one decision for the bot whose turn it is, then
// reschedules itself while bots remain on turn.
func (r *Room) botPlayerStep(gameID uuid.UUID) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	g := r.Game
	if g == nil || g.ID != gameID || g.State != game.StatePlayerTurns {
		return
	}
	p := g.CurrentPlayer()
	if p == nil || !p.IsBot() {
		return
	}

	// a frozen bot cannot wait for a denounce that may never come
	p.FrozenHand = false

	stand := func() {
		if err := g.HandleStand(p.ID); err != nil {
			g.ForceStand()
		}
	}

	total := p.Total()
	switch {
	case total > 21:
		stand()
	case game.ShouldBotHit(p, g.BankVisibleCard()):
		wantsHidden := game.ShouldBotHitHidden(p)
		if err := g.HandleHit(p.ID, wantsHidden); err != nil {
			stand()
		}
	default:
		stand()
	}

	r.broadcastGameStateUnsafe()
	r.scheduleTurnTimerUnsafe()
	r.maybeScheduleBotUnsafe()
}

// botBankStep runs one bank-bot decision: settle a forced denounce
// first, then draw toward 17, then denounce by heuristic, then end
// the turn.
func (r *Room) botBankStep(gameID uuid.UUID) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	g := r.Game
	if g == nil || g.ID != gameID || g.State != game.StateBankTurn {
		return
	}
	bank := g.Bank
	if !bank.IsBot() {
		return
	}

	if g.ForceDenounceAtStart {
		if !g.BankHasDrawn {
			// a denounce needs at least one bank card on the table
			if err := g.BankDraw(bank.ID); err != nil {
				g.ForceDenounceAtStart = false
			}
			r.broadcastGameStateUnsafe()
			r.maybeScheduleBotUnsafe()
			return
		}
		if target := g.FindAnyPlayerToDenounce(); target != nil {
			_ = g.BankDenounce(bank.ID, target.ID)
		}
		// the obligation is consumed even when no denounce landed
		g.ForceDenounceAtStart = false
		r.broadcastGameStateUnsafe()
		r.maybeScheduleBotUnsafe()
		return
	}

	if bank.Total() > 21 {
		_ = g.BankEndTurn(bank.ID)
		r.broadcastGameStateUnsafe()
		return
	}

	if bank.Total() < 17 && !g.AllPlayersResolved() {
		if err := g.BankDraw(bank.ID); err == nil {
			r.broadcastGameStateUnsafe()
			r.maybeScheduleBotUnsafe()
			return
		}
		// deck exhausted, fall through to denouncing
	}

	if g.BankHasDrawn {
		if target := g.FindPlayerToDenounce(); target != nil {
			_ = g.BankDenounce(bank.ID, target.ID)
			r.broadcastGameStateUnsafe()
			r.maybeScheduleBotUnsafe()
			return
		}
	}

	_ = g.BankEndTurn(bank.ID)
	r.broadcastGameStateUnsafe()
}

// scheduleTurnTimerUnsafe arms the per-turn countdown when the room
// enforces one. The callback re-checks that the same player is still
// on turn in the same round before forcing a stand.
func (r *Room) scheduleTurnTimerUnsafe() {
	g := r.Game
	if g == nil || r.Settings.TurnTimeLimit <= 0 {
		return
	}
	if g.State != game.StatePlayerTurns {
		r.sched.Cancel(timerTurn)
		return
	}
	current := g.CurrentPlayer()
	if current == nil || current.IsBot() {
		return
	}

	gameID := g.ID
	turnIndex := g.CurrentPlayerIndex
	r.sched.After(timerTurn, time.Duration(r.Settings.TurnTimeLimit)*time.Second, func() {
		r.Mu.Lock()
		defer r.Mu.Unlock()

		g := r.Game
		if g == nil || g.ID != gameID || g.State != game.StatePlayerTurns || g.CurrentPlayerIndex != turnIndex {
			return
		}
		g.ForceStand()
		r.broadcastGameStateUnsafe()
		r.scheduleTurnTimerUnsafe()
		r.maybeScheduleBotUnsafe()
	})
}

// broadcastUnsafe sends msg to every live connection. Writes are
// non-blocking, so holding the lock is safe.
func (r *Room) broadcastUnsafe(msg map[string]interface{}) {
	for _, conn := range r.Connections {
		conn.Write(msg)
	}
}

// Unicast sends msg to one user's connection, if connected.
func (r *Room) Unicast(userID uuid.UUID, msg map[string]interface{}) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if conn, ok := r.Connections[userID]; ok {
		conn.Write(msg)
	}
}

// StatePayloadUnsafe builds the full room snapshot. Requires the lock.
func (r *Room) StatePayloadUnsafe() map[string]interface{} {
	payload := map[string]interface{}{
		"id":          r.ID.String(),
		"code":        r.Code,
		"hostId":      r.HostID.String(),
		"state":       r.State,
		"players":     r.Players,
		"dealerIndex": r.DealerIndex,
		"settings":    r.Settings,
		"logs":        r.Logs,
		"createdAt":   r.CreatedAt.UnixMilli(),
	}
	if r.Game != nil {
		payload["currentGame"] = r.Game.StatePayload()
	}
	return payload
}

// StatePayload builds the room snapshot, acquiring the lock.
func (r *Room) StatePayload() map[string]interface{} {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.StatePayloadUnsafe()
}

func (r *Room) broadcastRoomStateUnsafe() {
	r.broadcastUnsafe(map[string]interface{}{
		"type": "room:state",
		"room": r.StatePayloadUnsafe(),
	})
}

func (r *Room) broadcastGameStateUnsafe() {
	if r.Game == nil {
		return
	}
	r.broadcastUnsafe(map[string]interface{}{
		"type": "game:state",
		"game": r.Game.StatePayload(),
	})
}
