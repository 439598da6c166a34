// internal/game/deck.go
package game

import (
	"math/rand"
	"time"

	"github.com/tbaudier/barjack/internal/models"
)

// NewDeck builds and shuffles a standard 52-card deck. Cards are drawn
// by popping from the end of the slice.
func NewDeck() []*models.Card {
	deck := make([]*models.Card, 0, 52)
	for _, suit := range models.Suits {
		for value := 1; value <= 13; value++ {
			deck = append(deck, &models.Card{Value: value, Suit: suit, Hidden: false})
		}
	}

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	r.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

// drawCardUnsafe pops the top card into the player's hand with the
// requested facing. Requires the room lock.
func (g *Game) drawCardUnsafe(p *models.Player, hidden bool) (*models.Card, error) {
	if len(g.Deck) == 0 {
		return nil, models.NewResourceExhausted("the deck is empty")
	}
	card := g.Deck[len(g.Deck)-1]
	g.Deck = g.Deck[:len(g.Deck)-1]
	card.Hidden = hidden
	p.Hand = append(p.Hand, card)
	return card, nil
}
