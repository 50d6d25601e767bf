package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ugaemi/hangout-server/internal/bot"
	"github.com/ugaemi/hangout-server/internal/config"
	"github.com/ugaemi/hangout-server/internal/game"
	"github.com/ugaemi/hangout-server/internal/handler"
	"github.com/ugaemi/hangout-server/internal/session"
	"github.com/ugaemi/hangout-server/internal/store"
	"github.com/ugaemi/hangout-server/internal/whiteboard"
	"github.com/ugaemi/hangout-server/internal/world"
	"github.com/ugaemi/hangout-server/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // single public room, any origin may join
	},
}

// server wires the realtime core to HTTP.
type server struct {
	hub   *ws.Hub
	world *world.Store
	board *whiteboard.Board
}

// newServer builds the realtime core. strokes may be nil.
func newServer(ctx context.Context, cfg *config.Config, strokes store.StrokeStore) (*server, error) {
	entities := world.NewStore(game.DefaultWorld())
	sessions := session.NewRegistry(entities)

	var persist whiteboard.Persister
	if strokes != nil {
		persist = strokes
	}
	board := whiteboard.New(cfg.WhiteboardCap, persist)
	if err := board.Restore(ctx); err != nil {
		return nil, fmt.Errorf("restore whiteboard: %w", err)
	}

	bots := bot.NewRunner(entities, sessions)
	bots.Spawn(bot.SpawnConfig{
		Wanderers: cfg.BotWanderers,
		Pairs:     cfg.BotPairs,
		Name:      cfg.BotName,
		SoundFile: cfg.BotSoundFile,
		Image:     cfg.BotImage,
	}, time.Now(), rand.New(rand.NewSource(time.Now().UnixNano())))

	router := handler.NewRouter(entities, sessions, board, bots, handler.Options{
		MaxImageBytes: cfg.MaxImageBytes,
		IdleTimeout:   cfg.IdleTimeout,
	})

	hub := ws.NewHub()
	hub.TickInterval = cfg.BotTickInterval
	hub.OnConnect = router.HandleConnect
	hub.OnMessage = router.HandleMessage
	hub.OnDisconnect = router.HandleDisconnect
	hub.OnTick = router.Tick

	return &server{hub: hub, world: entities, board: board}, nil
}

func (s *server) routes(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

type healthResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
	Players int    `json:"players"`
	Bots    int    `json:"bots"`
	Strokes int    `json:"strokes"`
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	players, bots := s.world.Counts()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(healthResponse{
		Status:  "ok",
		Clients: s.hub.ClientCount(),
		Players: players,
		Bots:    bots,
		Strokes: s.board.Len(),
	})
}

func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	client := ws.NewClient(s.hub.NextClientID(), s.hub, conn)
	if !s.hub.Join(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
