// internal/models/room_settings.go
package models

import "fmt"

// RoomSettings are the host-tunable parameters of a room. The shop
// item list holds item ids; disabled items cannot be purchased.
type RoomSettings struct {
	WinPoints        int      `json:"winPoints"`        // points awarded to a winning player at resolution
	BankWinPoints    int      `json:"bankWinPoints"`    // points the bank earns per busted player
	TurnTimeLimit    int      `json:"turnTimeLimit"`    // seconds per player turn, 0 disables the timer
	AutoRevealCards  bool     `json:"autoRevealCards"`  // reveal remaining hidden cards at resolution
	EnabledShopItems []string `json:"enabledShopItems"` // purchasable shop item ids
}

// DefaultRoomSettings returns the settings applied to new rooms, with
// every shop item enabled.
func DefaultRoomSettings(allShopItemIDs []string) RoomSettings {
	enabled := make([]string, len(allShopItemIDs))
	copy(enabled, allShopItemIDs)
	return RoomSettings{
		WinPoints:        50,
		BankWinPoints:    10,
		TurnTimeLimit:    0,
		AutoRevealCards:  true,
		EnabledShopItems: enabled,
	}
}

// ItemEnabled reports whether the given shop item id may be purchased.
func (s *RoomSettings) ItemEnabled(itemID string) bool {
	for _, id := range s.EnabledShopItems {
		if id == itemID {
			return true
		}
	}
	return false
}

// Update applies a partial settings payload. Fields absent from the
// map keep their previous values.
func (s *RoomSettings) Update(newSettings map[string]interface{}) error {
	assignBool := func(field *bool, key string) error {
		if val, exists := newSettings[key]; exists && val != nil {
			b, isBool := val.(bool)
			if !isBool {
				return fmt.Errorf("invalid type for %s", key)
			}
			*field = b
		}
		return nil
	}

	assignInt := func(field *int, key string, minVal int) error {
		if val, exists := newSettings[key]; exists && val != nil {
			var intVal int
			switch v := val.(type) {
			case float64:
				// JSON numbers decode as float64
				intVal = int(v)
			case int:
				intVal = v
			default:
				return fmt.Errorf("invalid type for %s", key)
			}
			if intVal < minVal {
				return fmt.Errorf("%s must be at least %d", key, minVal)
			}
			*field = intVal
		}
		return nil
	}

	if err := assignInt(&s.WinPoints, "winPoints", 0); err != nil {
		return err
	}
	if err := assignInt(&s.BankWinPoints, "bankWinPoints", 0); err != nil {
		return err
	}
	if err := assignInt(&s.TurnTimeLimit, "turnTimeLimit", 0); err != nil {
		return err
	}
	if err := assignBool(&s.AutoRevealCards, "autoRevealCards"); err != nil {
		return err
	}

	if val, exists := newSettings["enabledShopItems"]; exists && val != nil {
		raw, isSlice := val.([]interface{})
		if !isSlice {
			return fmt.Errorf("invalid type for enabledShopItems")
		}
		ids := make([]string, 0, len(raw))
		for _, v := range raw {
			id, isStr := v.(string)
			if !isStr {
				return fmt.Errorf("invalid shop item id in enabledShopItems")
			}
			ids = append(ids, id)
		}
		s.EnabledShopItems = ids
	}

	return nil
}
