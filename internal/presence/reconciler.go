// Package presence mirrors the server's entity state on the client side and
// derives what only the client cares about: local movement prediction,
// proximity voice gain and bot clip alignment.
package presence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ugaemi/hangout-server/internal/game"
	"github.com/ugaemi/hangout-server/internal/whiteboard"
	"github.com/ugaemi/hangout-server/internal/ws"
)

// EmoteTTL is how long a received emote stays visible.
const EmoteTTL = 2 * time.Second

// PeerReleaser frees per-peer resources (audio pipeline, peer connection)
// when an entity leaves.
type PeerReleaser func(id string)

// Input is the local player's held directions for one frame.
type Input struct {
	Up, Down, Left, Right bool
}

func (in Input) active() bool {
	return in.Up || in.Down || in.Left || in.Right
}

type shownEmote struct {
	ws.EmotePayload
	at time.Time
}

// View is a consistent copy of the mirror for one render frame.
type View struct {
	SelfID   string
	Entities map[string]*game.Entity
	Region   string
	Emotes   map[string]ws.EmotePayload
	Strokes  int
}

// Reconciler is the client's mirror of the world. Network messages and the
// render loop may run on different goroutines.
type Reconciler struct {
	world    game.World
	selfID   string
	entities map[string]*game.Entity
	muted    map[string]bool
	emotes   map[string]shownEmote
	board    *whiteboard.Board
	release  PeerReleaser
	now      func() time.Time

	mu sync.RWMutex
}

// NewReconciler creates an empty mirror. release may be nil.
func NewReconciler(release PeerReleaser) *Reconciler {
	return &Reconciler{
		world:    game.DefaultWorld(),
		entities: make(map[string]*game.Entity),
		muted:    make(map[string]bool),
		emotes:   make(map[string]shownEmote),
		board:    whiteboard.New(whiteboard.DefaultCap, nil),
		release:  release,
		now:      time.Now,
	}
}

// Apply folds one server message into the mirror. Event types the mirror
// does not track are ignored.
func (r *Reconciler) Apply(msg ws.Message) error {
	switch msg.Type {
	case ws.TypeInit:
		var p ws.InitPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		r.applyInit(p)

	case ws.TypePlayerJoined:
		var e game.Entity
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		r.mu.Lock()
		// The local entity is owned by prediction after spawn.
		if _, exists := r.entities[e.ID]; !exists || e.ID != r.selfID {
			r.entities[e.ID] = &e
		}
		r.mu.Unlock()

	case ws.TypePlayerLeft, ws.TypePlayerDisconnect:
		var p ws.IDPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		r.remove(p.ID)

	case ws.TypePlayerMoved:
		var p ws.MovePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		r.mu.Lock()
		if e, ok := r.entities[p.ID]; ok && p.ID != r.selfID {
			e.X, e.Y = p.X, p.Y
			if p.VelocityX != nil {
				e.VelocityX = *p.VelocityX
			}
			if p.VelocityY != nil {
				e.VelocityY = *p.VelocityY
			}
		}
		r.mu.Unlock()

	case ws.TypePlayerSpeaking:
		var p ws.SpeakingPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		r.mu.Lock()
		if e, ok := r.entities[p.ID]; ok {
			e.IsSpeaking = p.IsSpeaking
			if p.Timestamp != 0 {
				e.AudioStartTime = p.Timestamp
			}
		}
		r.mu.Unlock()

	case ws.TypePlayerCustomized:
		var p ws.CustomizedPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		r.mu.Lock()
		if e, ok := r.entities[p.ID]; ok {
			e.Name, e.Color, e.CustomImage = p.Name, p.Color, p.CustomImage
		}
		r.mu.Unlock()

	case ws.TypePlayerEmote:
		var p ws.EmotePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		r.mu.Lock()
		r.emotes[p.ID] = shownEmote{EmotePayload: p, at: r.now()}
		r.mu.Unlock()

	case ws.TypeWhiteboardInit:
		var strokes []json.RawMessage
		if err := json.Unmarshal(msg.Data, &strokes); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		r.board.Clear()
		for _, s := range strokes {
			r.board.Draw(s)
		}

	case ws.TypeWhiteboardDraw:
		r.board.Draw(msg.Data)

	case ws.TypeWhiteboardClear:
		r.board.Clear()

	default:
		slog.Debug("ignoring message", "type", msg.Type)
	}
	return nil
}

func (r *Reconciler) applyInit(p ws.InitPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.WorldSize.Width > 0 && p.WorldSize.Height > 0 {
		r.world = game.NewWorld(p.WorldSize.Width, p.WorldSize.Height)
	}
	r.selfID = p.ID
	r.entities = make(map[string]*game.Entity, len(p.Players))
	for id, e := range p.Players {
		if e != nil {
			r.entities[id] = e
		}
	}
}

func (r *Reconciler) remove(id string) {
	r.mu.Lock()
	_, ok := r.entities[id]
	delete(r.entities, id)
	delete(r.emotes, id)
	delete(r.muted, id)
	r.mu.Unlock()

	if ok && r.release != nil {
		r.release(id)
	}
}

// SelfID returns the local player's id, empty before init.
func (r *Reconciler) SelfID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selfID
}

// Entity returns a copy of one mirrored entity.
func (r *Reconciler) Entity(id string) (*game.Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[id]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Step predicts the local player's movement for one frame using the same
// model as the server and returns the move to report. ok is false when
// nothing moved or the local player is unknown.
func (r *Reconciler) Step(in Input) (ws.MovePayload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	self, ok := r.entities[r.selfID]
	if !ok {
		return ws.MovePayload{}, false
	}

	var ax, ay float64
	if in.Up {
		ay -= game.Acceleration
	}
	if in.Down {
		ay += game.Acceleration
	}
	if in.Left {
		ax -= game.Acceleration
	}
	if in.Right {
		ax += game.Acceleration
	}
	game.ApplyMovement(self, r.world, ax, ay)

	if !in.active() && self.VelocityX == 0 && self.VelocityY == 0 {
		return ws.MovePayload{}, false
	}
	return ws.NewMovedPayload(self), true
}

// SetMuted overrides a peer's gain to zero without tearing anything down.
func (r *Reconciler) SetMuted(id string, muted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if muted {
		r.muted[id] = true
	} else {
		delete(r.muted, id)
	}
}

// Gains returns the voice gain of every other entity relative to the local
// player.
func (r *Reconciler) Gains() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	self, ok := r.entities[r.selfID]
	if !ok {
		return nil
	}
	gains := make(map[string]float64, len(r.entities)-1)
	for id, e := range r.entities {
		if id == r.selfID {
			continue
		}
		if r.muted[id] {
			gains[id] = 0
			continue
		}
		gains[id] = Gain(game.DistanceBetween(self, e))
	}
	return gains
}

// Region returns the name of the region the local player is in.
func (r *Reconciler) Region() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.regionLocked()
}

func (r *Reconciler) regionLocked() string {
	self, ok := r.entities[r.selfID]
	if !ok {
		return ""
	}
	region, ok := r.world.RegionAt(self.X, self.Y)
	if !ok {
		return ""
	}
	return region.Name
}

// Snapshot returns a deep copy for one render frame. Emotes older than
// EmoteTTL are left out.
func (r *Reconciler) Snapshot() View {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()

	v := View{
		SelfID:   r.selfID,
		Entities: make(map[string]*game.Entity, len(r.entities)),
		Region:   r.regionLocked(),
		Emotes:   make(map[string]ws.EmotePayload, len(r.emotes)),
		Strokes:  r.board.Len(),
	}
	for id, e := range r.entities {
		v.Entities[id] = e.Clone()
	}
	for id, e := range r.emotes {
		if now.Sub(e.at) < EmoteTTL {
			v.Emotes[id] = e.EmotePayload
		}
	}
	return v
}
