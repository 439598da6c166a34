// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/tbaudier/barjack/internal/auth"
	"github.com/tbaudier/barjack/internal/cache"
	"github.com/tbaudier/barjack/internal/database"
	"github.com/tbaudier/barjack/internal/handlers"
	"github.com/tbaudier/barjack/internal/middleware"
)

func main() {
	privPath := os.Getenv("AUTH_PRIVATE_KEY_PATH")
	pubPath := os.Getenv("AUTH_PUBLIC_KEY_PATH")
	if privPath != "" && pubPath != "" {
		if err := auth.InitFromPath(privPath, pubPath); err != nil {
			log.Fatalf("failed to load auth keys: %v", err)
		}
	} else {
		auth.Init()
	}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if os.Getenv("PG_HOST") != "" {
		database.ConnectDB()
	} else {
		logger.Warn("PG_HOST not set, running without round history persistence")
	}
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, action log disabled: %v", err)
		cache.Rdb = nil
	}

	srv := handlers.NewServer(logger)

	mux := http.NewServeMux()

	// user endpoints
	mux.HandleFunc("/user/create", handlers.CreateUserHandler)
	mux.HandleFunc("/user/login", handlers.LoginHandler)

	// room endpoints
	mux.Handle("/room/create", middleware.LogMiddleware(logger)(http.HandlerFunc(srv.CreateRoomHandler)))
	mux.Handle("/room/join", middleware.LogMiddleware(logger)(http.HandlerFunc(srv.JoinRoomHandler)))
	mux.Handle("/room/leave", middleware.LogMiddleware(logger)(http.HandlerFunc(srv.LeaveRoomHandler)))
	mux.Handle("/room/ready", middleware.LogMiddleware(logger)(http.HandlerFunc(srv.ReadyHandler)))
	mux.Handle("/room/auto-join", middleware.LogMiddleware(logger)(http.HandlerFunc(srv.AutoJoinHandler)))
	mux.Handle("/room/", middleware.LogMiddleware(logger)(http.HandlerFunc(srv.GetRoomHandler)))

	// room websocket
	mux.Handle("/ws/", middleware.LogMiddleware(logger)(srv.RoomWSHandler()))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
