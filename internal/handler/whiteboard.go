package handler

import (
	"log/slog"

	"github.com/ugaemi/hangout-server/internal/ws"
)

// handleDraw appends an opaque stroke and relays it verbatim. Persistence
// happens off the dispatch goroutine.
func (r *Router) handleDraw(client *ws.Client, msg ws.Message) {
	if len(msg.Data) == 0 {
		slog.Warn("empty whiteboard stroke", "client", client.ID)
		return
	}

	r.board.Draw(msg.Data)
	r.sessions.BroadcastExcept(msg, client)
}

func (r *Router) handleClear(client *ws.Client) {
	r.board.Clear()

	slog.Info("whiteboard cleared", "client", client.ID)
	cleared, err := ws.NewMessage(ws.TypeWhiteboardClear, nil)
	if err != nil {
		slog.Error("failed to build whiteboard-clear", "client", client.ID, "error", err)
		return
	}
	r.sessions.BroadcastExcept(cleared, client)
}
