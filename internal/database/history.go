package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tbaudier/barjack/internal/models"
	"github.com/tbaudier/barjack/internal/room"
)

// InsertRoundHistory records a resolved round and bumps the per-user
// aggregate stats in the same transaction. A nil pool is a no-op so
// the server can run without persistence.
func InsertRoundHistory(ctx context.Context, result room.RoundResult) error {
	if DB == nil {
		return nil
	}

	config, err := json.Marshal(result.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal room settings: %w", err)
	}
	outcome, err := json.Marshal(result.Players)
	if err != nil {
		return fmt.Errorf("failed to marshal round outcome: %w", err)
	}

	insertHistory := `
	INSERT INTO room_history (room_id, room_code, host_id, finished_at, config, result)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	upsertStats := `
	INSERT INTO player_stats (user_id, games_played, games_won, games_lost)
	VALUES ($1, 1, $2, $3)
	ON CONFLICT (user_id) DO UPDATE
	SET games_played = player_stats.games_played + 1,
	    games_won = player_stats.games_won + $2,
	    games_lost = player_stats.games_lost + $3
	`

	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertHistory,
			result.RoomID, result.RoomCode, result.HostID,
			result.FinishedAt, config, outcome,
		); err != nil {
			return err
		}
		for _, p := range result.Players {
			if p.Kind == models.KindBot {
				continue
			}
			won, lost := 0, 0
			switch p.State {
			case models.StateWin:
				won = 1
			case models.StateBust:
				lost = 1
			}
			if _, err := tx.Exec(ctx, upsertStats, p.ID, won, lost); err != nil {
				return err
			}
		}
		return nil
	})
}
