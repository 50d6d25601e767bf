package handler

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ugaemi/hangout-server/internal/bot"
	"github.com/ugaemi/hangout-server/internal/game"
	"github.com/ugaemi/hangout-server/internal/session"
	"github.com/ugaemi/hangout-server/internal/whiteboard"
	"github.com/ugaemi/hangout-server/internal/world"
	"github.com/ugaemi/hangout-server/internal/ws"
)

// Options tunes the dispatcher.
type Options struct {
	// MaxImageBytes caps custom avatar images. Larger images are dropped.
	MaxImageBytes int
	// IdleTimeout disconnects silent clients. Zero disables the sweep.
	IdleTimeout time.Duration
}

// Router dispatches incoming messages to the appropriate handler. All of its
// methods are expected to run on the hub goroutine.
type Router struct {
	store    *world.Store
	sessions *session.Registry
	board    *whiteboard.Board
	bots     *bot.Runner
	opts     Options

	now func() time.Time
}

// NewRouter creates a new message router. bots may be nil.
func NewRouter(store *world.Store, sessions *session.Registry, board *whiteboard.Board, bots *bot.Runner, opts Options) *Router {
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = game.DefaultMaxImageBytes
	}
	return &Router{
		store:    store,
		sessions: sessions,
		board:    board,
		bots:     bots,
		opts:     opts,
		now:      time.Now,
	}
}

// HandleConnect creates the client's player, sends the world snapshot and
// the whiteboard log, then announces the newcomer to everyone.
func (r *Router) HandleConnect(client *ws.Client) {
	e := r.sessions.Connect(client, r.now())

	initMsg, err := ws.NewMessage(ws.TypeInit, ws.InitPayload{
		ID:        e.ID,
		Players:   r.store.Snapshot(),
		WorldSize: r.store.World().Size(),
	})
	if err != nil {
		slog.Error("failed to build init", "client", client.ID, "error", err)
		return
	}
	client.SendMessage(initMsg)

	strokes := r.board.Strokes()
	boardMsg, err := ws.NewMessage(ws.TypeWhiteboardInit, strokes)
	if err != nil {
		slog.Error("failed to build whiteboard-init", "client", client.ID, "error", err)
	} else {
		client.SendMessage(boardMsg)
	}

	joined, err := ws.NewMessage(ws.TypePlayerJoined, e)
	if err != nil {
		slog.Error("failed to build playerJoined", "player", e.ID, "error", err)
		return
	}
	r.sessions.Broadcast(joined)
}

// HandleDisconnect removes the client's player and tells the others. It is
// safe to call more than once for the same client.
func (r *Router) HandleDisconnect(client *ws.Client) {
	id, ok := r.sessions.Disconnect(client)
	if !ok {
		return
	}
	left, err := ws.NewMessage(ws.TypePlayerLeft, ws.IDPayload{ID: id})
	if err != nil {
		slog.Error("failed to build playerLeft", "player", id, "error", err)
		return
	}
	r.sessions.BroadcastExcept(left, client)
}

// HandleMessage parses and routes an incoming client message. Malformed or
// unknown messages are logged and dropped; nothing is sent back.
func (r *Router) HandleMessage(cm *ws.ClientMessage) {
	var msg ws.Message
	if err := json.Unmarshal(cm.Data, &msg); err != nil {
		slog.Warn("invalid message format", "client", cm.Client.ID, "error", err)
		return
	}

	r.sessions.Touch(cm.Client, r.now())

	switch msg.Type {
	// Presence
	case ws.TypeMove:
		r.handleMove(cm.Client, msg)
	case ws.TypeSpeaking:
		r.handleSpeaking(cm.Client, msg)
	case ws.TypeCustomize:
		r.handleCustomize(cm.Client, msg)
	case ws.TypePlayerEmote:
		r.handleEmote(cm.Client, msg)

	// Signaling relay
	case ws.TypeWebRTCOffer, ws.TypeWebRTCAnswer, ws.TypeWebRTCICECandidate:
		r.handleSignal(cm.Client, msg)

	// Whiteboard
	case ws.TypeWhiteboardDraw:
		r.handleDraw(cm.Client, msg)
	case ws.TypeWhiteboardClear:
		r.handleClear(cm.Client)

	default:
		slog.Warn("unknown message type", "type", msg.Type, "client", cm.Client.ID)
	}
}

// Tick advances the bots and reaps idle clients.
func (r *Router) Tick(now time.Time) {
	if r.bots != nil {
		r.bots.Tick(now)
	}
	for _, client := range r.sessions.Idle(now, r.opts.IdleTimeout) {
		slog.Info("disconnecting idle client", "client", client.ID)
		r.HandleDisconnect(client)
		client.Close()
	}
}
