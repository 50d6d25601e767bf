package ws

import "encoding/json"

// Message represents a WebSocket message with type-based routing.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message types - Session (server -> client)
const (
	TypeInit           = "init"
	TypeWhiteboardInit = "whiteboard-init"
	TypePlayerJoined   = "playerJoined"
	TypePlayerLeft     = "playerLeft"
	// TypePlayerDisconnect is accepted by clients as an alias of playerLeft.
	TypePlayerDisconnect = "playerDisconnect"
)

// Message types - Presence
const (
	TypeMove             = "move"
	TypePlayerMoved      = "playerMoved"
	TypeSpeaking         = "speaking"
	TypePlayerSpeaking   = "playerSpeaking"
	TypeCustomize        = "customize"
	TypePlayerCustomized = "playerCustomized"
)

// Message types - Signaling relay
const (
	TypeWebRTCOffer        = "webrtc-offer"
	TypeWebRTCAnswer       = "webrtc-answer"
	TypeWebRTCICECandidate = "webrtc-ice-candidate"
)

// Message types - Whiteboard and emotes
const (
	TypeWhiteboardDraw  = "whiteboard-draw"
	TypeWhiteboardClear = "whiteboard-clear"
	TypePlayerEmote     = "player-emote"
)

// NewMessage creates a Message with a typed payload. A nil payload yields a
// message with no data.
func NewMessage(msgType string, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: msgType}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Data: data}, nil
}

// Encode marshals a Message into a wire frame.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}
