// internal/handlers/api_server.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/tbaudier/barjack/internal/models"
	"github.com/tbaudier/barjack/internal/room"
)

// Server bundles the shared state every HTTP and WS handler needs.
type Server struct {
	Rooms  *room.Store
	Logger *logrus.Logger
}

func NewServer(logger *logrus.Logger) *Server {
	return &Server{
		Rooms:  room.NewStore(),
		Logger: logger,
	}
}

// writeJSON writes v as a JSON response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error onto an HTTP status and a JSON body.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, models.HTTPStatus(err), map[string]interface{}{
		"error": err.Error(),
		"kind":  models.KindOf(err),
	})
}
