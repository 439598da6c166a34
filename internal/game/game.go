// internal/game/game.go
package game

import (
	"github.com/google/uuid"
	"github.com/tbaudier/barjack/internal/models"
)

// GameState is the round phase.
type GameState string

const (
	StateDealing     GameState = "DEALING"
	StatePlayerTurns GameState = "PLAYER_TURNS"
	StateBankTurn    GameState = "BANK_TURN"
	StateResolution  GameState = "RESOLUTION"
	StateFinished    GameState = "FINISHED"
)

// DoseChoice is a pending two-card pick created by the dose-au-choix
// shop item. While set, the buyer can take no other game action.
type DoseChoice struct {
	UserID uuid.UUID      `json:"userId"`
	Cards  []*models.Card `json:"cards"`
}

// Game is one blackjack round. Players and Bank point into the owning
// room's player list, so points and effect flags have a single source
// of truth. Every method assumes the room lock is held; the room is
// the sole writer of its game.
type Game struct {
	ID     uuid.UUID
	RoomID uuid.UUID
	State  GameState

	Players []*models.Player
	Bank    *models.Player
	Deck    []*models.Card

	CurrentPlayerIndex   int
	BankHasDrawn         bool
	ForceDenounceAtStart bool
	PendingDoseChoice    *DoseChoice

	Settings *models.RoomSettings
}

// NewGame creates a round in the dealing phase. The dealer pointer
// must not appear in players.
func NewGame(roomID uuid.UUID, players []*models.Player, bank *models.Player, settings *models.RoomSettings) *Game {
	return &Game{
		ID:       uuid.New(),
		RoomID:   roomID,
		State:    StateDealing,
		Players:  players,
		Bank:     bank,
		Deck:     NewDeck(),
		Settings: settings,
	}
}

// Deal distributes the opening cards: one face up to each player and
// the bank, then one face down to each player. Players enter PLAYING,
// the bank waits, and the first player's turn begins.
func (g *Game) Deal() error {
	if g.State != StateDealing {
		return models.NewInvalidState("the round has already been dealt")
	}
	for _, p := range g.Players {
		if _, err := g.drawCardUnsafe(p, false); err != nil {
			return err
		}
	}
	if _, err := g.drawCardUnsafe(g.Bank, false); err != nil {
		return err
	}
	for _, p := range g.Players {
		if _, err := g.drawCardUnsafe(p, true); err != nil {
			return err
		}
	}

	for _, p := range g.Players {
		p.State = models.StatePlaying
	}
	g.Bank.State = models.StateWaiting
	g.State = StatePlayerTurns
	g.CurrentPlayerIndex = 0
	return nil
}

// CurrentPlayer returns the player whose turn it is, or nil outside
// the player-turns phase.
func (g *Game) CurrentPlayer() *models.Player {
	if g.State != StatePlayerTurns || g.CurrentPlayerIndex >= len(g.Players) {
		return nil
	}
	return g.Players[g.CurrentPlayerIndex]
}

// PlayerByID finds a non-bank player by id.
func (g *Game) PlayerByID(id uuid.UUID) *models.Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// ParticipantByID finds a player or the bank by id.
func (g *Game) ParticipantByID(id uuid.UUID) *models.Player {
	if g.Bank != nil && g.Bank.ID == id {
		return g.Bank
	}
	return g.PlayerByID(id)
}

// checkTurn validates that userID may take a player action right now.
func (g *Game) checkTurn(userID uuid.UUID) (*models.Player, error) {
	current := g.CurrentPlayer()
	if current == nil {
		return nil, models.NewInvalidState("players cannot act in this phase")
	}
	if current.ID != userID {
		return nil, models.NewForbidden("it is not your turn")
	}
	if current.FrozenHand {
		return nil, models.NewInvalidState("your hand is frozen until the bank denounces you")
	}
	if g.PendingDoseChoice != nil && g.PendingDoseChoice.UserID == userID {
		return nil, models.NewInvalidState("you must pick a card first")
	}
	return current, nil
}

// HandleHit draws a card for the current player. Force-draw shop
// effects override the requested facing and are consumed here. A hand
// holds at most one concealed card, so requesting a hidden draw first
// reveals any concealed card already held. Drawing never busts the
// player automatically; concealed totals stay open until a denounce
// or the resolution pass.
func (g *Game) HandleHit(userID uuid.UUID, wantsHidden bool) error {
	p, err := g.checkTurn(userID)
	if err != nil {
		return err
	}

	if p.ForceVisibleDraw {
		wantsHidden = false
		p.ForceVisibleDraw = false
	}
	if p.ForceHiddenDraw {
		wantsHidden = true
		p.ForceHiddenDraw = false
	}

	if wantsHidden && models.HasHiddenCard(p.Hand) {
		models.RevealHand(p.Hand)
	}

	_, err = g.drawCardUnsafe(p, wantsHidden)
	return err
}

// HandleStand ends the current player's turn. A pending forced
// visible draw blocks standing unless this is the last player before
// the bank, in which case the effect is consumed instead.
func (g *Game) HandleStand(userID uuid.UUID) error {
	p, err := g.checkTurn(userID)
	if err != nil {
		return err
	}

	isLastPlayer := g.CurrentPlayerIndex == len(g.Players)-1
	if p.ForceVisibleDraw && !isLastPlayer {
		return models.NewInvalidState("you must draw a visible card before standing")
	}
	p.ForceVisibleDraw = false

	p.State = models.StateStand
	g.advanceTurn()
	return nil
}

// ForceStand stands the current player regardless of effect flags,
// used when a turn timer expires or a stuck bot must move on.
func (g *Game) ForceStand() {
	current := g.CurrentPlayer()
	if current == nil {
		return
	}
	current.ForceVisibleDraw = false
	current.State = models.StateStand
	g.advanceTurn()
}

// advanceTurn moves to the next player, entering the bank phase after
// the last one.
func (g *Game) advanceTurn() {
	g.CurrentPlayerIndex++
	if g.CurrentPlayerIndex >= len(g.Players) {
		g.State = StateBankTurn
		g.Bank.State = models.StatePlaying
	}
}

// RevealHidden flips all of the calling player's concealed cards face
// up. Allowed at any time during a round.
func (g *Game) RevealHidden(userID uuid.UUID) (bool, error) {
	p := g.PlayerByID(userID)
	if p == nil {
		return false, models.NewNotFound("player is not in this round")
	}
	return models.RevealHand(p.Hand), nil
}

// BankDraw draws one face-up card for the bank. Going over 21 busts
// the bank and moves the round straight to resolution.
func (g *Game) BankDraw(actorID uuid.UUID) error {
	if g.Bank.ID != actorID {
		return models.NewForbidden("only the bank can draw")
	}
	if g.State != StateBankTurn {
		return models.NewInvalidState("it is not the bank's turn")
	}

	if _, err := g.drawCardUnsafe(g.Bank, false); err != nil {
		return err
	}
	g.BankHasDrawn = true

	if g.Bank.Total() > 21 {
		g.Bank.State = models.StateBust
		g.State = StateResolution
	}
	return nil
}

// BankDenounce reveals a player's hand and settles it against the
// bank: a natural blackjack wins unless the bank also holds one (the
// tie goes to the bank), totals over 21 or at most the bank's bust,
// anything above the bank's total wins. Denouncing unfreezes a frozen
// hand and consumes a pending dernier-appel obligation. Settling the
// last open player ends the bank turn automatically.
func (g *Game) BankDenounce(actorID, targetID uuid.UUID) error {
	if g.Bank.ID != actorID {
		return models.NewForbidden("only the bank can denounce")
	}
	if g.State != StateBankTurn {
		return models.NewInvalidState("it is not the bank's turn")
	}
	if !g.BankHasDrawn {
		return models.NewInvalidState("the bank must draw at least one card before denouncing")
	}

	player := g.PlayerByID(targetID)
	if player == nil {
		return models.NewNotFound("player not found")
	}
	if player.State == models.StateBust || player.State == models.StateWin {
		return models.NewConflict("player has already been denounced")
	}

	models.RevealHand(player.Hand)
	player.FrozenHand = false
	g.ForceDenounceAtStart = false

	bankTotal := g.Bank.Total()
	playerTotal := player.Total()

	switch {
	case models.IsBlackjack(player.Hand):
		if models.IsBlackjack(g.Bank.Hand) {
			player.State = models.StateBust
		} else {
			player.State = models.StateWin
		}
	case playerTotal > 21:
		player.State = models.StateBust
	case playerTotal <= bankTotal:
		player.State = models.StateBust
	default:
		player.State = models.StateWin
	}

	if g.AllPlayersResolved() {
		g.endBankTurn()
	}
	return nil
}

// AllPlayersResolved reports whether every player has been settled by
// a denounce.
func (g *Game) AllPlayersResolved() bool {
	for _, p := range g.Players {
		if p.State != models.StateBust && p.State != models.StateWin {
			return false
		}
	}
	return true
}

// BankEndTurn closes the bank phase. It is blocked while a
// dernier-appel denounce is still owed.
func (g *Game) BankEndTurn(actorID uuid.UUID) error {
	if g.Bank.ID != actorID {
		return models.NewForbidden("only the bank can end its turn")
	}
	if g.State != StateBankTurn {
		return models.NewInvalidState("it is not the bank's turn")
	}
	if g.ForceDenounceAtStart {
		return models.NewInvalidState("you must denounce a player first")
	}
	g.endBankTurn()
	return nil
}

// endBankTurn moves to resolution. Players not already busted are put
// back in PLAYING so the resolution pass scores them.
func (g *Game) endBankTurn() {
	g.State = StateResolution
	for _, p := range g.Players {
		if p.State != models.StateBust {
			p.State = models.StatePlaying
		}
	}
	g.Bank.State = models.StateStand
}

// Resolve settles every open hand against the bank and awards points.
// A total over 21 loses even when the bank busted. The bank earns its
// per-loser award for each busted player. The round then finishes.
func (g *Game) Resolve() error {
	if g.State != StateResolution {
		return models.NewInvalidState("the round is not ready to resolve")
	}

	bankTotal := g.Bank.Total()
	bankHasBlackjack := models.IsBlackjack(g.Bank.Hand)

	for _, p := range g.Players {
		if p.State == models.StateBust || p.State == models.StateWin {
			continue
		}

		models.RevealHand(p.Hand)
		playerTotal := p.Total()

		switch {
		case playerTotal > 21:
			p.State = models.StateBust
		case models.IsBlackjack(p.Hand) && !bankHasBlackjack:
			p.State = models.StateWin
			p.Points += g.Settings.WinPoints
		case bankTotal > 21:
			p.State = models.StateWin
			p.Points += g.Settings.WinPoints
		case playerTotal > bankTotal:
			p.State = models.StateWin
			p.Points += g.Settings.WinPoints
		default:
			p.State = models.StateBust
		}
	}

	losers := 0
	for _, p := range g.Players {
		if p.State == models.StateBust {
			losers++
		}
	}
	g.Bank.Points += losers * g.Settings.BankWinPoints

	g.State = StateFinished
	return nil
}

// StatePayload builds the broadcast snapshot of the round. The deck
// itself is never serialized, only its size.
func (g *Game) StatePayload() map[string]interface{} {
	payload := map[string]interface{}{
		"id":                 g.ID.String(),
		"state":              g.State,
		"players":            g.Players,
		"bank":               g.Bank,
		"deckSize":           len(g.Deck),
		"currentPlayerIndex": g.CurrentPlayerIndex,
		"bankHasDrawn":       g.BankHasDrawn,
	}
	if g.PendingDoseChoice != nil {
		payload["pendingDoseChoice"] = g.PendingDoseChoice
	}
	if g.ForceDenounceAtStart {
		payload["forceDenounceAtStart"] = true
	}
	return payload
}
