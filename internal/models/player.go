package models

import (
	"github.com/google/uuid"
)

// ParticipantKind distinguishes human players from server-driven bots.
type ParticipantKind string

const (
	KindHuman ParticipantKind = "human"
	KindBot   ParticipantKind = "bot"
)

// PlayerState tracks a player's position in the room/round lifecycle.
type PlayerState string

const (
	StateDisconnected PlayerState = "DISCONNECTED"
	StateWaiting      PlayerState = "WAITING"
	StateReady        PlayerState = "READY"
	StatePlaying      PlayerState = "PLAYING"
	StateStand        PlayerState = "STAND"
	StateBust         PlayerState = "BUST"
	StateWin          PlayerState = "WIN"
)

// Purchase records one shop transaction for a player's session history.
type Purchase struct {
	ItemID       string    `json:"itemId"`
	TargetUserID uuid.UUID `json:"targetUserId,omitempty"`
	Timestamp    int64     `json:"timestamp"`
}

// Player is a participant in a room. The room owns the canonical
// instance; an active game references the same pointers, so session
// points and effect flags never need reconciling between the two.
type Player struct {
	ID       uuid.UUID       `json:"id"`
	Username string          `json:"username"`
	Kind     ParticipantKind `json:"kind"`

	State        PlayerState `json:"state"`
	Ready        bool        `json:"ready"`
	IsDealer     bool        `json:"isDealer"`
	Hand         []*Card     `json:"hand"`
	Points       int         `json:"sessionPoints"`
	AutoJoinNext bool        `json:"autoJoinNext"`
	Purchases    []Purchase  `json:"purchases"`

	// ConnectionID identifies the live websocket session, empty when
	// disconnected. Stale connection instances compare against it.
	ConnectionID string `json:"-"`

	// Shop effect flags. ImmuneToForceDraw is consumed by the next
	// hostile force-draw effect; the others are consumed by the actions
	// they constrain and cleared at round boundaries.
	ImmuneToForceDraw bool `json:"immuneToForceDraw,omitempty"`
	ForceVisibleDraw  bool `json:"forceVisibleDraw,omitempty"`
	ForceHiddenDraw   bool `json:"forceHiddenDraw,omitempty"`
	FrozenHand        bool `json:"frozenHand,omitempty"`
}

// IsBot reports whether the participant is server-driven.
func (p *Player) IsBot() bool {
	return p.Kind == KindBot
}

// Total is the player's current blackjack hand total.
func (p *Player) Total() int {
	return HandTotal(p.Hand)
}

// ResetForRound clears per-round state ahead of a new deal.
func (p *Player) ResetForRound() {
	p.Hand = nil
	p.IsDealer = false
	p.State = StatePlaying
}

// ClearEffectFlags drops the per-round shop effects. Immunity is
// excluded: it self-consumes and survives until used.
func (p *Player) ClearEffectFlags() {
	p.ForceVisibleDraw = false
	p.ForceHiddenDraw = false
	p.FrozenHand = false
}

// ClearAllEffectFlags also drops immunity, used at game-end resets.
func (p *Player) ClearAllEffectFlags() {
	p.ClearEffectFlags()
	p.ImmuneToForceDraw = false
}
