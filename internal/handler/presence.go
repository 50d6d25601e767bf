package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/ugaemi/hangout-server/internal/game"
	"github.com/ugaemi/hangout-server/internal/ws"
)

// handleMove stores the reported position and relays it to everyone else.
// Client-reported movement is trusted apart from the world bounds and the
// velocity cap; the relayed values are the stored ones.
func (r *Router) handleMove(client *ws.Client, msg ws.Message) {
	var req ws.MovePayload
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		slog.Warn("invalid move data", "client", client.ID, "error", err)
		return
	}

	w := r.store.World()
	_, ok := r.store.Update(req.ID, func(e *game.Entity) {
		e.SetPosition(w, req.X, req.Y)
		req.X, req.Y = e.X, e.Y

		vx, vy := e.VelocityX, e.VelocityY
		if req.VelocityX != nil {
			vx = *req.VelocityX
		}
		if req.VelocityY != nil {
			vy = *req.VelocityY
		}
		game.SetVelocity(e, vx, vy)
		if req.VelocityX != nil {
			capped := e.VelocityX
			req.VelocityX = &capped
		}
		if req.VelocityY != nil {
			capped := e.VelocityY
			req.VelocityY = &capped
		}
	})
	if !ok {
		slog.Debug("move for unknown entity", "client", client.ID, "player", req.ID)
		return
	}

	moved, err := ws.NewMessage(ws.TypePlayerMoved, req)
	if err != nil {
		slog.Error("failed to build playerMoved", "player", req.ID, "error", err)
		return
	}
	r.sessions.BroadcastExcept(moved, client)
}

func (r *Router) handleSpeaking(client *ws.Client, msg ws.Message) {
	var req ws.SpeakingPayload
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		slog.Warn("invalid speaking data", "client", client.ID, "error", err)
		return
	}

	now := r.now()
	_, ok := r.store.Update(req.ID, func(e *game.Entity) {
		e.IsSpeaking = req.IsSpeaking
		e.LastSpeakingChange = now
	})
	if !ok {
		return
	}

	speaking, err := ws.NewMessage(ws.TypePlayerSpeaking, ws.SpeakingPayload{ID: req.ID, IsSpeaking: req.IsSpeaking})
	if err != nil {
		slog.Error("failed to build playerSpeaking", "player", req.ID, "error", err)
		return
	}
	r.sessions.BroadcastExcept(speaking, client)
}

// handleCustomize applies a partial appearance update and echoes the full
// result to every client including the sender.
func (r *Router) handleCustomize(client *ws.Client, msg ws.Message) {
	var req ws.CustomizeRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		slog.Warn("invalid customize data", "client", client.ID, "error", err)
		return
	}

	var dropped bool
	e, ok := r.store.Update(req.ID, func(e *game.Entity) {
		dropped = e.Customize(req.Customization(), r.opts.MaxImageBytes)
	})
	if !ok {
		slog.Debug("customize for unknown entity", "client", client.ID, "player", req.ID)
		return
	}
	if dropped {
		slog.Warn("custom image exceeds limit, keeping previous",
			"player", req.ID, "limit", r.opts.MaxImageBytes)
	}

	slog.Info("player customized", "player", e.ID, "name", e.Name, "color", e.Color, "hasImage", e.CustomImage != nil)

	customized, err := ws.NewMessage(ws.TypePlayerCustomized, ws.NewCustomizedPayload(e))
	if err != nil {
		slog.Error("failed to build playerCustomized", "player", e.ID, "error", err)
		return
	}
	r.sessions.Broadcast(customized)
}

func (r *Router) handleEmote(client *ws.Client, msg ws.Message) {
	var req ws.EmotePayload
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		slog.Warn("invalid emote data", "client", client.ID, "error", err)
		return
	}
	emote, err := ws.NewMessage(ws.TypePlayerEmote, req)
	if err != nil {
		slog.Error("failed to build playerEmote", "player", req.ID, "error", err)
		return
	}
	r.sessions.BroadcastExcept(emote, client)
}
