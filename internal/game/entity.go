package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Entity is a movable actor tracked by the server: a connected player or a bot.
type Entity struct {
	ID          string  `json:"id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	VelocityX   float64 `json:"velocityX"`
	VelocityY   float64 `json:"velocityY"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	CustomImage *string `json:"customImage"`
	IsSpeaking  bool    `json:"isSpeaking"`

	// AudioStartTime is the unix millisecond timestamp at which the bot clip
	// started playing. Clients derive their playback offset from it.
	AudioStartTime int64  `json:"audioStartTime,omitempty"`
	IsBot          bool   `json:"isBot,omitempty"`
	BotSoundFile   string `json:"botSoundFile,omitempty"`
	PairedID       string `json:"pairedId,omitempty"`

	LastSpeakingChange time.Time `json:"-"`
}

// NewPlayer creates a player entity at a random position inside the world.
func NewPlayer(w World, name string) *Entity {
	x, y := w.RandomPosition()
	return &Entity{
		ID:    uuid.New().String(),
		X:     x,
		Y:     y,
		Name:  name,
		Color: RandomColor(),
	}
}

// NewBot creates a bot entity that is speaking from the moment it exists.
func NewBot(w World, name, soundFile string, now time.Time) *Entity {
	x, y := w.RandomPosition()
	e := &Entity{
		ID:           "bot-" + uuid.New().String(),
		X:            x,
		Y:            y,
		Name:         name,
		Color:        DefaultBotColor,
		IsBot:        true,
		BotSoundFile: soundFile,
	}
	e.StartSpeaking(now)
	return e
}

// RandomColor returns a random "#rrggbb" color.
func RandomColor() string {
	return fmt.Sprintf("#%06x", rand.Intn(0x1000000))
}

// StartSpeaking marks the entity as speaking and restarts its audio clock.
func (e *Entity) StartSpeaking(now time.Time) {
	e.IsSpeaking = true
	e.LastSpeakingChange = now
	e.AudioStartTime = now.UnixMilli()
}

// SetPosition stores a reported position. It is only clamped to the world;
// plausibility of the jump is not checked.
func (e *Entity) SetPosition(w World, x, y float64) {
	e.X, e.Y = w.ClampPosition(finite(x), finite(y))
}

// HasSoundAsset reports whether the entity carries its own clip. In a pair
// only the holder of the clip leads.
func (e *Entity) HasSoundAsset() bool {
	return e.BotSoundFile != ""
}

// Clone returns a copy that shares no mutable state with e.
func (e *Entity) Clone() *Entity {
	c := *e
	if e.CustomImage != nil {
		img := *e.CustomImage
		c.CustomImage = &img
	}
	return &c
}
