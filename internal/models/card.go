// internal/models/card.go
package models

import "encoding/json"

// Suits enumerates the four card suits in deck build order.
var Suits = []string{"hearts", "diamonds", "clubs", "spades"}

// Card is a single playing card. Value runs 1 (ace) through 13 (king).
// Hidden cards belong to a hand face down; their value and suit are
// withheld from every client snapshot until revealed.
type Card struct {
	Value  int    `json:"value"`
	Suit   string `json:"suit"`
	Hidden bool   `json:"hidden"`
}

// Score returns the card's blackjack value. Face cards count 10, the
// ace counts 1 here; soft-ace promotion happens in HandTotal.
func (c *Card) Score() int {
	if c.Value > 10 {
		return 10
	}
	return c.Value
}

// MarshalJSON hides the value and suit of face-down cards so a single
// snapshot can be broadcast to all clients.
func (c *Card) MarshalJSON() ([]byte, error) {
	if c.Hidden {
		return json.Marshal(map[string]interface{}{"hidden": true})
	}
	return json.Marshal(map[string]interface{}{
		"value":  c.Value,
		"suit":   c.Suit,
		"hidden": false,
	})
}

// HandTotal computes the blackjack total of a hand. Each ace first
// counts 11, then drops to 1 while the total exceeds 21.
func HandTotal(hand []*Card) int {
	total := 0
	aces := 0
	for _, c := range hand {
		if c.Value == 1 {
			aces++
			total += 11
		} else {
			total += c.Score()
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// VisibleTotal computes the total of the face-up cards only.
func VisibleTotal(hand []*Card) int {
	visible := make([]*Card, 0, len(hand))
	for _, c := range hand {
		if !c.Hidden {
			visible = append(visible, c)
		}
	}
	return HandTotal(visible)
}

// IsBlackjack reports a natural: exactly two cards totaling 21.
func IsBlackjack(hand []*Card) bool {
	return len(hand) == 2 && HandTotal(hand) == 21
}

// HasHiddenCard reports whether any card in the hand is face down.
func HasHiddenCard(hand []*Card) bool {
	for _, c := range hand {
		if c.Hidden {
			return true
		}
	}
	return false
}

// RevealHand flips every card in the hand face up and reports whether
// anything changed.
func RevealHand(hand []*Card) bool {
	revealed := false
	for _, c := range hand {
		if c.Hidden {
			c.Hidden = false
			revealed = true
		}
	}
	return revealed
}
