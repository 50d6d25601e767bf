package ws

import (
	"encoding/json"

	"github.com/ugaemi/hangout-server/internal/game"
)

// InitPayload seeds a freshly connected client.
type InitPayload struct {
	ID        string                  `json:"id"`
	Players   map[string]*game.Entity `json:"players"`
	WorldSize game.Size               `json:"worldSize"`
}

// IDPayload carries only an entity id (playerLeft).
type IDPayload struct {
	ID string `json:"id"`
}

// MovePayload is used both for the client's move and the relayed playerMoved.
// Velocity is optional on the wire.
type MovePayload struct {
	ID        string   `json:"id"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	VelocityX *float64 `json:"velocityX,omitempty"`
	VelocityY *float64 `json:"velocityY,omitempty"`
}

// SpeakingPayload is used for speaking and playerSpeaking. Timestamp is only
// set for bots and drives client playback offsets.
type SpeakingPayload struct {
	ID         string `json:"id"`
	IsSpeaking bool   `json:"isSpeaking"`
	Timestamp  int64  `json:"timestamp,omitempty"`
}

// CustomizeRequest is a partial appearance update. CustomImage is kept raw
// so an absent field can be told apart from an explicit null.
type CustomizeRequest struct {
	ID          string          `json:"id"`
	Name        string          `json:"name,omitempty"`
	Color       string          `json:"color,omitempty"`
	CustomImage json.RawMessage `json:"customImage,omitempty"`
}

// CustomizedPayload is the full appearance after an update.
type CustomizedPayload struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	CustomImage *string `json:"customImage"`
}

// EmotePayload is relayed verbatim to other clients.
type EmotePayload struct {
	ID     string `json:"id"`
	Emote  string `json:"emote,omitempty"`
	Symbol string `json:"symbol"`
}

// Signaling field names per relay event.
var SignalFields = map[string]string{
	TypeWebRTCOffer:        "offer",
	TypeWebRTCAnswer:       "answer",
	TypeWebRTCICECandidate: "candidate",
}

// NewMovedPayload builds a playerMoved payload from an entity.
func NewMovedPayload(e *game.Entity) MovePayload {
	vx, vy := e.VelocityX, e.VelocityY
	return MovePayload{ID: e.ID, X: e.X, Y: e.Y, VelocityX: &vx, VelocityY: &vy}
}

// NewCustomizedPayload builds a playerCustomized payload from an entity.
func NewCustomizedPayload(e *game.Entity) CustomizedPayload {
	return CustomizedPayload{ID: e.ID, Name: e.Name, Color: e.Color, CustomImage: e.CustomImage}
}

// Customization converts the request into an entity update. A customImage
// that is neither a string nor null is ignored.
func (r CustomizeRequest) Customization() game.Customization {
	c := game.Customization{Name: r.Name, Color: r.Color}
	if len(r.CustomImage) == 0 {
		return c
	}
	if string(r.CustomImage) == "null" {
		c.SetImage = true
		return c
	}
	var img string
	if err := json.Unmarshal(r.CustomImage, &img); err != nil {
		return c
	}
	c.SetImage = true
	c.Image = &img
	return c
}
