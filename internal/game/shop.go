// internal/game/shop.go
package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tbaudier/barjack/internal/models"
)

// TargetType describes who a shop item applies to.
type TargetType string

const (
	TargetNone   TargetType = "NONE"
	TargetSelf   TargetType = "SELF"
	TargetPlayer TargetType = "PLAYER"
	TargetBank   TargetType = "BANK"
)

// ShopItem is a purchasable drinking-game effect.
type ShopItem struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Cost        int        `json:"cost"`
	Description string     `json:"description"`
	TargetType  TargetType `json:"targetType"`
	Category    string     `json:"category"` // "BONUS" or "MALUS"
}

// ShopItems is the full catalog. Rooms restrict it through their
// enabledShopItems setting.
var ShopItems = []ShopItem{
	{
		ID:          "vision-alteree",
		Name:        "Vision altérée",
		Cost:        15,
		Description: "Reveals how many players are currently over 21, hidden cards included.",
		TargetType:  TargetNone,
		Category:    "BONUS",
	},
	{
		ID:          "pause-lucide",
		Name:        "Pause lucide",
		Cost:        20,
		Description: "Ignore the next effect that would force you to draw.",
		TargetType:  TargetSelf,
		Category:    "BONUS",
	},
	{
		ID:          "dose-au-choix",
		Name:        "Dose au choix",
		Cost:        25,
		Description: "Draw two visible cards and keep the one of your choice.",
		TargetType:  TargetSelf,
		Category:    "BONUS",
	},
	{
		ID:          "a-la-tienne",
		Name:        "À la tienne",
		Cost:        20,
		Description: "The target must draw face up on their next draw, standing is impossible.",
		TargetType:  TargetPlayer,
		Category:    "MALUS",
	},
	{
		ID:          "encore-un",
		Name:        "Encore un",
		Cost:        25,
		Description: "Flips one of the target's visible cards face down and forces a hidden draw.",
		TargetType:  TargetPlayer,
		Category:    "MALUS",
	},
	{
		ID:          "double-pioche",
		Name:        "Double pioche",
		Cost:        30,
		Description: "Two visible cards are drawn automatically for the target.",
		TargetType:  TargetPlayer,
		Category:    "MALUS",
	},
	{
		ID:          "main-figee",
		Name:        "Main figée",
		Cost:        35,
		Description: "Freezes the target's hand until the bank denounces them.",
		TargetType:  TargetPlayer,
		Category:    "MALUS",
	},
	{
		ID:          "dernier-appel",
		Name:        "Dernier appel",
		Cost:        30,
		Description: "Forces the bank to denounce a player at the start of its turn.",
		TargetType:  TargetBank,
		Category:    "MALUS",
	},
}

// ShopItemByID looks up a catalog item.
func ShopItemByID(id string) *ShopItem {
	for i := range ShopItems {
		if ShopItems[i].ID == id {
			return &ShopItems[i]
		}
	}
	return nil
}

// AllShopItemIDs returns the catalog ids in order.
func AllShopItemIDs() []string {
	ids := make([]string, len(ShopItems))
	for i, item := range ShopItems {
		ids[i] = item.ID
	}
	return ids
}

// PurchaseResult reports a completed shop transaction for broadcast
// and room logging.
type PurchaseResult struct {
	Item          *ShopItem
	Buyer         *models.Player
	Target        *models.Player
	EffectMessage string
}

// Purchase validates and executes a shop buy in one step. All checks
// run before any state changes, so a returned error means neither
// points nor effects moved. PLAYER items cannot target the buyer or
// the bank.
func (g *Game) Purchase(buyerID uuid.UUID, itemID string, targetID uuid.UUID) (*PurchaseResult, error) {
	buyer := g.ParticipantByID(buyerID)
	if buyer == nil {
		return nil, models.NewNotFound("player not found")
	}

	item := ShopItemByID(itemID)
	if item == nil {
		return nil, models.NewNotFound("shop item not found")
	}
	if !g.Settings.ItemEnabled(itemID) {
		return nil, models.NewInvalidState("this item is disabled for this game")
	}
	if buyer.Points < item.Cost {
		return nil, models.NewInvalidState("not enough points")
	}

	var target *models.Player
	switch item.TargetType {
	case TargetPlayer:
		if targetID == uuid.Nil {
			return nil, models.NewInvalidState("a target is required")
		}
		target = g.PlayerByID(targetID)
		if target == nil {
			return nil, models.NewNotFound("target not found")
		}
		if target.ID == buyerID {
			return nil, models.NewInvalidState("you cannot target yourself with a malus")
		}
	case TargetBank:
		target = g.Bank
	case TargetSelf:
		target = buyer
	}

	// dose-au-choix needs two cards available before points are taken
	if itemID == "dose-au-choix" && len(g.Deck) < 2 {
		return nil, models.NewResourceExhausted("not enough cards left in the deck")
	}

	buyer.Points -= item.Cost

	var effect string
	switch itemID {
	case "vision-alteree":
		effect = g.applyVisionAlteree()
	case "pause-lucide":
		effect = applyPauseLucide(buyer)
	case "dose-au-choix":
		effect = g.applyDoseAuChoix(buyer)
	case "a-la-tienne":
		effect = applyALaTienne(target)
	case "encore-un":
		effect = applyEncoreUn(target)
	case "double-pioche":
		effect = g.applyDoublePioche(target)
	case "main-figee":
		effect = applyMainFigee(target)
	case "dernier-appel":
		effect = g.applyDernierAppel()
	}

	buyer.Purchases = append(buyer.Purchases, models.Purchase{
		ItemID:       itemID,
		TargetUserID: targetID,
		Timestamp:    time.Now().UnixMilli(),
	})

	return &PurchaseResult{Item: item, Buyer: buyer, Target: target, EffectMessage: effect}, nil
}

// applyVisionAlteree counts players holding more than 21, including
// concealed cards, without revealing anything.
func (g *Game) applyVisionAlteree() string {
	bustCount := 0
	for _, p := range g.Players {
		if p.Total() > 21 {
			bustCount++
		}
	}
	return fmt.Sprintf("Vision altérée: %d player(s) are over 21", bustCount)
}

func applyPauseLucide(buyer *models.Player) string {
	buyer.ImmuneToForceDraw = true
	return fmt.Sprintf("%s is protected against the next forced draw", buyer.Username)
}

// applyDoseAuChoix pops two cards face up and parks them on the game
// until the buyer picks one with ChooseDoseCard.
func (g *Game) applyDoseAuChoix(buyer *models.Player) string {
	first := g.Deck[len(g.Deck)-1]
	second := g.Deck[len(g.Deck)-2]
	g.Deck = g.Deck[:len(g.Deck)-2]
	first.Hidden = false
	second.Hidden = false

	g.PendingDoseChoice = &DoseChoice{
		UserID: buyer.ID,
		Cards:  []*models.Card{first, second},
	}
	return fmt.Sprintf("%s must pick one of two cards", buyer.Username)
}

func applyALaTienne(target *models.Player) string {
	if target.ImmuneToForceDraw {
		target.ImmuneToForceDraw = false
		return fmt.Sprintf("%s was protected and ignores À la tienne", target.Username)
	}
	target.ForceVisibleDraw = true
	return fmt.Sprintf("%s must draw face up on their next draw, standing is impossible", target.Username)
}

func applyEncoreUn(target *models.Player) string {
	if target.ImmuneToForceDraw {
		target.ImmuneToForceDraw = false
		return fmt.Sprintf("%s was protected and ignores Encore un", target.Username)
	}
	for _, c := range target.Hand {
		if !c.Hidden {
			c.Hidden = true
			break
		}
	}
	target.ForceHiddenDraw = true
	return fmt.Sprintf("one of %s's cards is flipped face down and they must draw hidden", target.Username)
}

func (g *Game) applyDoublePioche(target *models.Player) string {
	if target.ImmuneToForceDraw {
		target.ImmuneToForceDraw = false
		return fmt.Sprintf("%s was protected and ignores Double pioche", target.Username)
	}
	if _, err := g.drawCardUnsafe(target, false); err != nil {
		return "not enough cards left for the double draw"
	}
	if _, err := g.drawCardUnsafe(target, false); err != nil {
		return "not enough cards left for the double draw"
	}
	return fmt.Sprintf("%s drew 2 visible cards", target.Username)
}

// main-figee is not a force-draw effect, so immunity does not block it.
func applyMainFigee(target *models.Player) string {
	target.FrozenHand = true
	return fmt.Sprintf("%s's hand is frozen until the bank denounces them", target.Username)
}

func (g *Game) applyDernierAppel() string {
	g.ForceDenounceAtStart = true
	return "the bank must denounce a player at the start of its turn"
}

// ChooseDoseCard completes a pending dose-au-choix: the picked card
// joins the buyer's hand face up and the other goes back on top of
// the deck.
func (g *Game) ChooseDoseCard(userID uuid.UUID, cardIndex int) error {
	if g.PendingDoseChoice == nil || g.PendingDoseChoice.UserID != userID {
		return models.NewInvalidState("no card choice is pending")
	}
	if cardIndex < 0 || cardIndex >= len(g.PendingDoseChoice.Cards) {
		return models.NewInvalidState("invalid card index")
	}
	player := g.PlayerByID(userID)
	if player == nil {
		return models.NewNotFound("player not found")
	}

	chosen := g.PendingDoseChoice.Cards[cardIndex]
	chosen.Hidden = false
	player.Hand = append(player.Hand, chosen)

	other := g.PendingDoseChoice.Cards[1-cardIndex]
	g.Deck = append(g.Deck, other)

	g.PendingDoseChoice = nil
	return nil
}

// ClearEffectFlags resets the round-scoped effect state on the game.
// Player immunity is excluded; it self-consumes.
func (g *Game) ClearEffectFlags() {
	g.ForceDenounceAtStart = false
	g.PendingDoseChoice = nil
}
