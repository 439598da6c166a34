package models

import (
	"encoding/json"
	"testing"
)

func card(value int) *Card {
	return &Card{Value: value, Suit: "hearts"}
}

func hiddenCard(value int) *Card {
	return &Card{Value: value, Suit: "spades", Hidden: true}
}

func TestCardScore(t *testing.T) {
	if got := card(1).Score(); got != 1 {
		t.Errorf("ace should score 1 before softening, got %d", got)
	}
	for v := 11; v <= 13; v++ {
		if got := card(v).Score(); got != 10 {
			t.Errorf("face card %d should score 10, got %d", v, got)
		}
	}
	if got := card(7).Score(); got != 7 {
		t.Errorf("seven should score 7, got %d", got)
	}
}

func TestHandTotalSoftensAces(t *testing.T) {
	cases := []struct {
		hand []*Card
		want int
	}{
		{[]*Card{card(1), card(13)}, 21}, // ace counts 11
		{[]*Card{card(1), card(1)}, 12},  // only one ace stays high
		{[]*Card{card(1), card(9), card(5)}, 15},
		{[]*Card{card(10), card(9), card(5)}, 24},
		{nil, 0},
	}
	for i, c := range cases {
		if got := HandTotal(c.hand); got != c.want {
			t.Errorf("case %d: expected %d, got %d", i, c.want, got)
		}
	}
}

func TestVisibleTotalIgnoresHiddenCards(t *testing.T) {
	hand := []*Card{card(10), hiddenCard(9)}
	if got := VisibleTotal(hand); got != 10 {
		t.Errorf("expected visible total 10, got %d", got)
	}
	if got := HandTotal(hand); got != 19 {
		t.Errorf("expected full total 19, got %d", got)
	}
}

func TestIsBlackjack(t *testing.T) {
	if !IsBlackjack([]*Card{card(1), card(12)}) {
		t.Error("ace plus queen should be blackjack")
	}
	if IsBlackjack([]*Card{card(7), card(7), card(7)}) {
		t.Error("21 with three cards is not blackjack")
	}
	if IsBlackjack([]*Card{card(10), card(10)}) {
		t.Error("20 is not blackjack")
	}
}

func TestHiddenCardMarshalRevealsNothing(t *testing.T) {
	data, err := json.Marshal(hiddenCard(13))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, leaked := decoded["value"]; leaked {
		t.Error("hidden card leaked its value")
	}
	if _, leaked := decoded["suit"]; leaked {
		t.Error("hidden card leaked its suit")
	}
	if hidden, _ := decoded["hidden"].(bool); !hidden {
		t.Error("hidden card should serialize hidden=true")
	}
}

func TestRevealHand(t *testing.T) {
	hand := []*Card{card(5), hiddenCard(8)}
	if !RevealHand(hand) {
		t.Error("revealing a concealed card should report a change")
	}
	if HasHiddenCard(hand) {
		t.Error("no card should stay hidden after reveal")
	}
	if RevealHand(hand) {
		t.Error("revealing an open hand should report no change")
	}
}
