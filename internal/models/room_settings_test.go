package models

import "testing"

func TestDefaultRoomSettings(t *testing.T) {
	items := []string{"a", "b", "c"}
	s := DefaultRoomSettings(items)

	if s.WinPoints != 50 || s.BankWinPoints != 10 {
		t.Errorf("unexpected point defaults: win=%d bank=%d", s.WinPoints, s.BankWinPoints)
	}
	if s.TurnTimeLimit != 0 {
		t.Errorf("turn timer should be disabled by default, got %d", s.TurnTimeLimit)
	}
	if !s.AutoRevealCards {
		t.Error("auto reveal should default to true")
	}
	for _, id := range items {
		if !s.ItemEnabled(id) {
			t.Errorf("item %q should be enabled by default", id)
		}
	}
	if s.ItemEnabled("unknown") {
		t.Error("unknown item should not be enabled")
	}
}

func TestSettingsUpdatePartial(t *testing.T) {
	s := DefaultRoomSettings([]string{"a", "b"})

	err := s.Update(map[string]interface{}{
		"winPoints":        float64(100),
		"enabledShopItems": []interface{}{"b"},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if s.WinPoints != 100 {
		t.Errorf("winPoints should be 100, got %d", s.WinPoints)
	}
	if s.BankWinPoints != 10 {
		t.Errorf("untouched bankWinPoints should stay 10, got %d", s.BankWinPoints)
	}
	if s.ItemEnabled("a") || !s.ItemEnabled("b") {
		t.Errorf("shop item list not replaced: %v", s.EnabledShopItems)
	}
}

func TestSettingsUpdateRejectsBadTypes(t *testing.T) {
	s := DefaultRoomSettings(nil)
	if err := s.Update(map[string]interface{}{"winPoints": "many"}); err == nil {
		t.Error("string winPoints should be rejected")
	}
	if err := s.Update(map[string]interface{}{"winPoints": float64(-5)}); err == nil {
		t.Error("negative winPoints should be rejected")
	}
	if err := s.Update(map[string]interface{}{"autoRevealCards": "yes"}); err == nil {
		t.Error("string autoRevealCards should be rejected")
	}
	if err := s.Update(map[string]interface{}{"enabledShopItems": "a,b"}); err == nil {
		t.Error("non-list enabledShopItems should be rejected")
	}
	if s.WinPoints != 50 || !s.AutoRevealCards {
		t.Errorf("rejected updates must not touch the settings: win=%d autoReveal=%v",
			s.WinPoints, s.AutoRevealCards)
	}
}
