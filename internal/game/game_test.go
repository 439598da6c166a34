// internal/game/game_test.go
package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbaudier/barjack/internal/models"
)

func testPlayer(name string) *models.Player {
	return &models.Player{
		ID:       uuid.New(),
		Username: name,
		Kind:     models.KindHuman,
		State:    models.StateReady,
	}
}

func visible(value int) *models.Card {
	return &models.Card{Value: value, Suit: "hearts"}
}

func concealed(value int) *models.Card {
	return &models.Card{Value: value, Suit: "spades", Hidden: true}
}

// setupTestGame deals a round with numPlayers players plus a bank.
func setupTestGame(t *testing.T, numPlayers int) (*Game, []*models.Player, *models.Player) {
	t.Helper()

	players := make([]*models.Player, numPlayers)
	for i := range players {
		players[i] = testPlayer("player")
	}
	bank := testPlayer("bank")
	bank.IsDealer = true

	settings := models.DefaultRoomSettings(AllShopItemIDs())
	g := NewGame(uuid.New(), players, bank, &settings)
	require.NoError(t, g.Deal())
	return g, players, bank
}

// setHand replaces a participant's hand outright.
func setHand(p *models.Player, cards ...*models.Card) {
	p.Hand = cards
}

func TestDealOpeningHands(t *testing.T) {
	g, players, bank := setupTestGame(t, 3)

	for _, p := range players {
		require.Len(t, p.Hand, 2)
		assert.False(t, p.Hand[0].Hidden, "first card is dealt face up")
		assert.True(t, p.Hand[1].Hidden, "second card is dealt face down")
		assert.Equal(t, models.StatePlaying, p.State)
	}
	require.Len(t, bank.Hand, 1)
	assert.False(t, bank.Hand[0].Hidden)
	assert.Equal(t, models.StateWaiting, bank.State)

	assert.Equal(t, StatePlayerTurns, g.State)
	assert.Equal(t, 0, g.CurrentPlayerIndex)
	assert.Len(t, g.Deck, 52-(2*3+1))
}

func TestDealTwiceFails(t *testing.T) {
	g, _, _ := setupTestGame(t, 2)
	err := g.Deal()
	require.Error(t, err)
	assert.Equal(t, models.ErrInvalidState, models.KindOf(err))
}

func TestHitNeverAutoBusts(t *testing.T) {
	g, players, _ := setupTestGame(t, 2)
	p := players[0]
	setHand(p, visible(10), visible(10))
	g.Deck = append(g.Deck, visible(10))

	require.NoError(t, g.HandleHit(p.ID, false))
	assert.Equal(t, 30, p.Total())
	assert.Equal(t, models.StatePlaying, p.State, "a busted hand stays open until denounced or resolved")
	assert.Equal(t, 0, g.CurrentPlayerIndex, "busting does not pass the turn")
}

func TestHitOutOfTurn(t *testing.T) {
	g, players, _ := setupTestGame(t, 2)
	err := g.HandleHit(players[1].ID, false)
	require.Error(t, err)
	assert.Equal(t, models.ErrForbidden, models.KindOf(err))
}

func TestHiddenDrawRevealsPreviousConcealedCard(t *testing.T) {
	g, players, _ := setupTestGame(t, 2)
	p := players[0]
	setHand(p, visible(5), concealed(8))
	g.Deck = append(g.Deck, visible(3))

	require.NoError(t, g.HandleHit(p.ID, true))

	require.Len(t, p.Hand, 3)
	assert.False(t, p.Hand[1].Hidden, "the old concealed card is revealed first")
	assert.True(t, p.Hand[2].Hidden, "the new draw is the only concealed card")

	hiddenCount := 0
	for _, c := range p.Hand {
		if c.Hidden {
			hiddenCount++
		}
	}
	assert.Equal(t, 1, hiddenCount)
}

func TestStandAdvancesToBankTurn(t *testing.T) {
	g, players, bank := setupTestGame(t, 2)

	require.NoError(t, g.HandleStand(players[0].ID))
	assert.Equal(t, models.StateStand, players[0].State)
	assert.Equal(t, 1, g.CurrentPlayerIndex)
	assert.Equal(t, StatePlayerTurns, g.State)

	require.NoError(t, g.HandleStand(players[1].ID))
	assert.Equal(t, StateBankTurn, g.State)
	assert.Equal(t, models.StatePlaying, bank.State)
}

func TestForcedVisibleDrawBlocksStand(t *testing.T) {
	g, players, _ := setupTestGame(t, 2)
	players[0].ForceVisibleDraw = true

	err := g.HandleStand(players[0].ID)
	require.Error(t, err)
	assert.Equal(t, models.ErrInvalidState, models.KindOf(err))
	assert.True(t, players[0].ForceVisibleDraw, "the effect is not consumed by a refused stand")
}

func TestForcedVisibleDrawConsumedForLastPlayer(t *testing.T) {
	g, players, _ := setupTestGame(t, 2)
	require.NoError(t, g.HandleStand(players[0].ID))

	players[1].ForceVisibleDraw = true
	require.NoError(t, g.HandleStand(players[1].ID), "the last player may stand, consuming the effect")
	assert.False(t, players[1].ForceVisibleDraw)
	assert.Equal(t, StateBankTurn, g.State)
}

func TestFrozenHandBlocksActions(t *testing.T) {
	g, players, _ := setupTestGame(t, 2)
	players[0].FrozenHand = true

	require.Error(t, g.HandleHit(players[0].ID, false))
	require.Error(t, g.HandleStand(players[0].ID))
}

func TestForceStandIgnoresEffectFlags(t *testing.T) {
	g, players, _ := setupTestGame(t, 2)
	players[0].ForceVisibleDraw = true
	players[0].FrozenHand = true

	g.ForceStand()
	assert.Equal(t, models.StateStand, players[0].State)
	assert.False(t, players[0].ForceVisibleDraw)
	assert.Equal(t, 1, g.CurrentPlayerIndex)
}

// toBankTurn stands every player to hand the round to the bank.
func toBankTurn(t *testing.T, g *Game, players []*models.Player) {
	t.Helper()
	for _, p := range players {
		require.NoError(t, g.HandleStand(p.ID))
	}
	require.Equal(t, StateBankTurn, g.State)
}

func TestBankDrawBustEndsBankTurn(t *testing.T) {
	g, players, bank := setupTestGame(t, 2)
	toBankTurn(t, g, players)

	setHand(bank, visible(10), visible(10))
	g.Deck = append(g.Deck, visible(5))

	require.NoError(t, g.BankDraw(bank.ID))
	assert.True(t, g.BankHasDrawn)
	assert.Equal(t, models.StateBust, bank.State)
	assert.Equal(t, StateResolution, g.State)
}

func TestBankDenounceRequiresADraw(t *testing.T) {
	g, players, bank := setupTestGame(t, 2)
	toBankTurn(t, g, players)

	err := g.BankDenounce(bank.ID, players[0].ID)
	require.Error(t, err)
	assert.Equal(t, models.ErrInvalidState, models.KindOf(err))
}

// bankReadyToDenounce moves to the bank turn and gives the bank the
// given total via a drawn card.
func bankReadyToDenounce(t *testing.T, g *Game, players []*models.Player, bank *models.Player, bankCards ...*models.Card) {
	t.Helper()
	toBankTurn(t, g, players)
	setHand(bank, bankCards[:len(bankCards)-1]...)
	g.Deck = append(g.Deck, bankCards[len(bankCards)-1])
	require.NoError(t, g.BankDraw(bank.ID))
}

func TestDenounceBelowBankBusts(t *testing.T) {
	g, players, bank := setupTestGame(t, 2)
	setHand(players[0], visible(9), concealed(8)) // 17
	bankReadyToDenounce(t, g, players, bank, visible(10), visible(8)) // 18

	require.NoError(t, g.BankDenounce(bank.ID, players[0].ID))
	assert.Equal(t, models.StateBust, players[0].State)
	assert.False(t, players[0].Hand[1].Hidden, "denouncing reveals the hand")
}

func TestDenounceEqualTotalGoesToBank(t *testing.T) {
	g, players, bank := setupTestGame(t, 2)
	setHand(players[0], visible(10), concealed(8)) // 18
	bankReadyToDenounce(t, g, players, bank, visible(10), visible(8)) // 18

	require.NoError(t, g.BankDenounce(bank.ID, players[0].ID))
	assert.Equal(t, models.StateBust, players[0].State)
}

func TestDenounceAboveBankWins(t *testing.T) {
	g, players, bank := setupTestGame(t, 2)
	setHand(players[0], visible(10), concealed(10)) // 20
	bankReadyToDenounce(t, g, players, bank, visible(10), visible(8)) // 18

	require.NoError(t, g.BankDenounce(bank.ID, players[0].ID))
	assert.Equal(t, models.StateWin, players[0].State)
}

func TestDenounceOver21Busts(t *testing.T) {
	g, players, bank := setupTestGame(t, 2)
	setHand(players[0], visible(10), visible(9), concealed(5)) // 24
	bankReadyToDenounce(t, g, players, bank, visible(10), visible(6)) // 16

	require.NoError(t, g.BankDenounce(bank.ID, players[0].ID))
	assert.Equal(t, models.StateBust, players[0].State)
}

func TestDenounceBlackjackWins(t *testing.T) {
	g, players, bank := setupTestGame(t, 2)
	setHand(players[0], visible(1), concealed(13)) // blackjack
	bankReadyToDenounce(t, g, players, bank, visible(10), visible(11)) // 20

	require.NoError(t, g.BankDenounce(bank.ID, players[0].ID))
	assert.Equal(t, models.StateWin, players[0].State)
}

func TestDenounceBlackjackTieGoesToBank(t *testing.T) {
	g, players, bank := setupTestGame(t, 2)
	setHand(players[0], visible(1), concealed(13))
	bankReadyToDenounce(t, g, players, bank, visible(1), visible(12)) // bank blackjack too

	require.NoError(t, g.BankDenounce(bank.ID, players[0].ID))
	assert.Equal(t, models.StateBust, players[0].State)
}

func TestDenounceTwiceConflicts(t *testing.T) {
	g, players, bank := setupTestGame(t, 2)
	setHand(players[0], visible(9), concealed(8))
	bankReadyToDenounce(t, g, players, bank, visible(10), visible(8))

	require.NoError(t, g.BankDenounce(bank.ID, players[0].ID))
	err := g.BankDenounce(bank.ID, players[0].ID)
	require.Error(t, err)
	assert.Equal(t, models.ErrConflict, models.KindOf(err))
}

func TestDenounceUnfreezesHand(t *testing.T) {
	g, players, bank := setupTestGame(t, 2)
	setHand(players[0], visible(9), concealed(8))
	players[0].FrozenHand = true
	bankReadyToDenounce(t, g, players, bank, visible(10), visible(8))

	require.NoError(t, g.BankDenounce(bank.ID, players[0].ID))
	assert.False(t, players[0].FrozenHand)
}

func TestDenouncingEveryoneEndsBankTurn(t *testing.T) {
	g, players, bank := setupTestGame(t, 2)
	setHand(players[0], visible(9), concealed(8))
	setHand(players[1], visible(9), concealed(7))
	bankReadyToDenounce(t, g, players, bank, visible(10), visible(8))

	require.NoError(t, g.BankDenounce(bank.ID, players[0].ID))
	assert.Equal(t, StateBankTurn, g.State)

	require.NoError(t, g.BankDenounce(bank.ID, players[1].ID))
	assert.Equal(t, StateResolution, g.State)
	assert.Equal(t, models.StateStand, bank.State)
}

func TestBankEndTurnBlockedByForcedDenounce(t *testing.T) {
	g, players, bank := setupTestGame(t, 2)
	toBankTurn(t, g, players)
	g.ForceDenounceAtStart = true

	err := g.BankEndTurn(bank.ID)
	require.Error(t, err)
	assert.Equal(t, models.ErrInvalidState, models.KindOf(err))
}

func TestResolveScoring(t *testing.T) {
	g, players, bank := setupTestGame(t, 3)
	toBankTurn(t, g, players)

	setHand(bank, visible(10), visible(8)) // 18
	setHand(players[0], visible(10), concealed(10)) // 20 beats 18
	setHand(players[1], visible(10), concealed(7))  // 17 loses
	setHand(players[2], visible(10), visible(9), concealed(5)) // 24 busts
	require.NoError(t, g.BankEndTurn(bank.ID))

	require.NoError(t, g.Resolve())
	assert.Equal(t, StateFinished, g.State)

	assert.Equal(t, models.StateWin, players[0].State)
	assert.Equal(t, g.Settings.WinPoints, players[0].Points)
	assert.Equal(t, models.StateBust, players[1].State)
	assert.Equal(t, models.StateBust, players[2].State)
	assert.False(t, players[0].Hand[1].Hidden, "resolution reveals every hand")

	assert.Equal(t, 2*g.Settings.BankWinPoints, bank.Points)
}

func TestResolveBustLosesEvenAgainstBustedBank(t *testing.T) {
	g, players, bank := setupTestGame(t, 2)
	toBankTurn(t, g, players)

	setHand(bank, visible(10), visible(10), visible(5)) // 25, busted
	setHand(players[0], visible(10), visible(9), concealed(3)) // 22
	setHand(players[1], visible(10), concealed(2)) // 12 beats a busted bank
	require.NoError(t, g.BankEndTurn(bank.ID))

	require.NoError(t, g.Resolve())
	assert.Equal(t, models.StateBust, players[0].State)
	assert.Equal(t, models.StateWin, players[1].State)
}

func TestResolveOnlyFromResolution(t *testing.T) {
	g, _, _ := setupTestGame(t, 2)
	err := g.Resolve()
	require.Error(t, err)
	assert.Equal(t, models.ErrInvalidState, models.KindOf(err))
}

func TestResolveKeepsDenouncedStates(t *testing.T) {
	g, players, bank := setupTestGame(t, 2)
	setHand(players[0], visible(10), concealed(10)) // 20
	setHand(players[1], visible(9), concealed(8))   // 17
	bankReadyToDenounce(t, g, players, bank, visible(10), visible(8)) // 18

	// denounced winner keeps WIN through resolution and earns points
	require.NoError(t, g.BankDenounce(bank.ID, players[0].ID))
	require.NoError(t, g.BankDenounce(bank.ID, players[1].ID))
	require.Equal(t, StateResolution, g.State)

	require.NoError(t, g.Resolve())
	assert.Equal(t, models.StateWin, players[0].State)
	assert.Equal(t, g.Settings.WinPoints, players[0].Points)
	assert.Equal(t, models.StateBust, players[1].State)
}
