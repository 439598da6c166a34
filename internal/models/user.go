package models

import "github.com/google/uuid"

type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`

	IsEphemeral bool `json:"is_ephemeral"`
	IsAdmin     bool `json:"is_admin"`

	GamesPlayed int `json:"games_played"`
	GamesWon    int `json:"games_won"`
	GamesLost   int `json:"games_lost"`
}
