// internal/game/bot.go
package game

import (
	"math/rand"
	"time"

	"github.com/tbaudier/barjack/internal/models"
)

// Bot decision logic. These are pure reads over the game so the room
// can schedule the actual actions; randomized delays between bot steps
// come from BotDelay.

const (
	botDelayMin = time.Second
	botDelayMax = 2 * time.Second
)

// BotDelay returns a randomized pause between bot actions.
func BotDelay() time.Duration {
	return botDelayMin + time.Duration(rand.Int63n(int64(botDelayMax-botDelayMin)))
}

// BankVisibleCard returns the bank's first face-up card, or nil.
func (g *Game) BankVisibleCard() *models.Card {
	for _, c := range g.Bank.Hand {
		if !c.Hidden {
			return c
		}
	}
	return nil
}

// ShouldBotHit decides a player bot's hit/stand: always hit at 11 or
// below, always stand at 17 or above, and in between hit only when
// the bank's visible card is threatening (an ace or 7 plus).
func ShouldBotHit(p *models.Player, bankVisible *models.Card) bool {
	total := p.Total()
	if total <= 11 {
		return true
	}
	if total >= 17 {
		return false
	}
	if bankVisible != nil {
		bankValue := bankVisible.Score()
		if bankVisible.Value == 1 {
			bankValue = 11
		}
		if bankValue >= 7 {
			return true
		}
	}
	return false
}

// ShouldBotHitHidden decides whether a bot's next draw should be face
// down: only when it holds no concealed card yet and its total leaves
// room for a mystery card.
func ShouldBotHitHidden(p *models.Player) bool {
	if models.HasHiddenCard(p.Hand) {
		return false
	}
	return p.Total() <= 14
}

// ShouldBankDenounce decides whether a bank bot denounces the given
// player: always when the visible total cannot beat the bank, 70% of
// the time when a high visible total hints at a concealed bust, and
// always when a strong bank faces a barely-better visible total.
func (g *Game) ShouldBankDenounce(p *models.Player) bool {
	bankTotal := g.Bank.Total()
	visibleTotal := models.VisibleTotal(p.Hand)

	if p.State == models.StateBust || p.State == models.StateWin {
		return false
	}

	if visibleTotal <= bankTotal {
		return true
	}
	if visibleTotal >= 16 {
		return rand.Float64() > 0.3
	}
	if bankTotal >= 18 && visibleTotal <= bankTotal+2 {
		return true
	}
	return false
}

// FindPlayerToDenounce picks the first still-concealed player the
// denounce heuristic wants settled.
func (g *Game) FindPlayerToDenounce() *models.Player {
	for _, p := range g.Players {
		if models.HasHiddenCard(p.Hand) && g.ShouldBankDenounce(p) {
			return p
		}
	}
	return nil
}

// FindAnyPlayerToDenounce picks any unresolved player, used when a
// dernier-appel forces a denounce regardless of strategy.
func (g *Game) FindAnyPlayerToDenounce() *models.Player {
	for _, p := range g.Players {
		if p.State != models.StateBust && p.State != models.StateWin {
			return p
		}
	}
	return nil
}
