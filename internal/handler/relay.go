package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/ugaemi/hangout-server/internal/ws"
)

// handleSignal forwards a WebRTC signaling message to its target. The sender
// is identified by the id bound to its connection, never by the payload.
func (r *Router) handleSignal(client *ws.Client, msg ws.Message) {
	var req map[string]json.RawMessage
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		slog.Warn("invalid signaling data", "type", msg.Type, "client", client.ID, "error", err)
		return
	}

	var to string
	if err := json.Unmarshal(req["to"], &to); err != nil || to == "" {
		slog.Warn("signaling message without target", "type", msg.Type, "client", client.ID)
		return
	}
	from, ok := r.sessions.EntityID(client)
	if !ok {
		return
	}

	field := ws.SignalFields[msg.Type]
	out, err := ws.NewMessage(msg.Type, map[string]json.RawMessage{
		field:  req[field],
		"from": mustQuote(from),
	})
	if err != nil {
		slog.Warn("failed to build signaling relay", "type", msg.Type, "error", err)
		return
	}

	if !r.sessions.SendTo(to, out) {
		slog.Debug("signaling target not found", "type", msg.Type, "from", from, "to", to)
	}
}

func mustQuote(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}
