// internal/game/deck_test.go
package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbaudier/barjack/internal/models"
)

func TestNewDeckComposition(t *testing.T) {
	deck := NewDeck()
	require.Len(t, deck, 52)

	counts := make(map[string]int)
	for _, c := range deck {
		assert.False(t, c.Hidden, "fresh deck cards must not be concealed")
		assert.GreaterOrEqual(t, c.Value, 1)
		assert.LessOrEqual(t, c.Value, 13)
		counts[string(c.Suit)]++
	}
	require.Len(t, counts, 4)
	for suit, n := range counts {
		assert.Equal(t, 13, n, "suit %s", suit)
	}
}

func TestDrawTakesTopOfDeck(t *testing.T) {
	p := &models.Player{ID: uuid.New(), Username: "p"}
	g := &Game{
		Deck: []*models.Card{
			{Value: 2, Suit: "hearts"},
			{Value: 9, Suit: "spades"},
		},
	}

	c, err := g.drawCardUnsafe(p, true)
	require.NoError(t, err)
	assert.Equal(t, 9, c.Value, "draw must take the last deck card")
	assert.True(t, c.Hidden)
	assert.Len(t, g.Deck, 1)
	assert.Len(t, p.Hand, 1)
}

func TestDrawFromEmptyDeck(t *testing.T) {
	p := &models.Player{ID: uuid.New(), Username: "p"}
	g := &Game{}

	_, err := g.drawCardUnsafe(p, false)
	require.Error(t, err)
	assert.Equal(t, models.ErrResourceExhausted, models.KindOf(err))
	assert.Empty(t, p.Hand)
}
