package handler

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ugaemi/hangout-server/internal/bot"
	"github.com/ugaemi/hangout-server/internal/game"
	"github.com/ugaemi/hangout-server/internal/session"
	"github.com/ugaemi/hangout-server/internal/whiteboard"
	"github.com/ugaemi/hangout-server/internal/world"
	"github.com/ugaemi/hangout-server/internal/ws"
)

type testEnv struct {
	router   *Router
	store    *world.Store
	sessions *session.Registry
	board    *whiteboard.Board
}

func setupRouterTest(opts Options) *testEnv {
	store := world.NewStore(game.DefaultWorld())
	sessions := session.NewRegistry(store)
	board := whiteboard.New(100, nil)
	return &testEnv{
		router:   NewRouter(store, sessions, board, nil, opts),
		store:    store,
		sessions: sessions,
		board:    board,
	}
}

// newTestClient creates a client whose outbound frames stay in its buffer.
func newTestClient(id string) *ws.Client {
	return &ws.Client{
		ID:   id,
		Send: make(chan []byte, 256),
	}
}

func drainMessages(client *ws.Client) []ws.Message {
	var msgs []ws.Message
	for {
		select {
		case data := <-client.Send:
			var msg ws.Message
			if err := json.Unmarshal(data, &msg); err == nil {
				msgs = append(msgs, msg)
			}
		default:
			return msgs
		}
	}
}

func findMessageByType(msgs []ws.Message, msgType string) *ws.Message {
	for i := range msgs {
		if msgs[i].Type == msgType {
			return &msgs[i]
		}
	}
	return nil
}

// connect attaches a client and discards its handshake frames.
func (env *testEnv) connect(t *testing.T, id string) (*ws.Client, string) {
	t.Helper()
	c := newTestClient(id)
	env.router.HandleConnect(c)
	pid, ok := env.sessions.EntityID(c)
	require.True(t, ok)
	return c, pid
}

func send(t *testing.T, r *Router, c *ws.Client, msgType string, payload any) {
	t.Helper()
	msg, err := ws.NewMessage(msgType, payload)
	require.NoError(t, err)
	data, err := msg.Encode()
	require.NoError(t, err)
	r.HandleMessage(&ws.ClientMessage{Client: c, Data: data})
}

func TestHandleConnect_SendsSnapshotThenAnnounces(t *testing.T) {
	env := setupRouterTest(Options{})
	a, aID := env.connect(t, "a")
	drainMessages(a)

	b := newTestClient("b")
	env.router.HandleConnect(b)

	msgs := drainMessages(b)
	require.Len(t, msgs, 3)
	assert.Equal(t, ws.TypeInit, msgs[0].Type)
	assert.Equal(t, ws.TypeWhiteboardInit, msgs[1].Type)
	assert.Equal(t, ws.TypePlayerJoined, msgs[2].Type)

	var snapshot ws.InitPayload
	require.NoError(t, json.Unmarshal(msgs[0].Data, &snapshot))
	assert.Len(t, snapshot.Players, 2)
	assert.Contains(t, snapshot.Players, aID)
	assert.Contains(t, snapshot.Players, snapshot.ID)
	assert.Equal(t, float64(game.WorldWidth), snapshot.WorldSize.Width)
	assert.JSONEq(t, `[]`, string(msgs[1].Data))

	joined := findMessageByType(drainMessages(a), ws.TypePlayerJoined)
	require.NotNil(t, joined)
	var e game.Entity
	require.NoError(t, json.Unmarshal(joined.Data, &e))
	assert.Equal(t, snapshot.ID, e.ID)
	assert.Equal(t, "Player 2", e.Name)
}

func TestHandleMove_RelayedToOthersOnly(t *testing.T) {
	env := setupRouterTest(Options{})
	a, aID := env.connect(t, "a")
	b, _ := env.connect(t, "b")
	drainMessages(a)
	drainMessages(b)

	send(t, env.router, a, ws.TypeMove, map[string]any{"id": aID, "x": 120.0, "y": 340.0})

	assert.Empty(t, drainMessages(a), "mover gets no echo")
	moved := findMessageByType(drainMessages(b), ws.TypePlayerMoved)
	require.NotNil(t, moved)
	assert.JSONEq(t, `{"id":"`+aID+`","x":120,"y":340}`, string(moved.Data))

	e, _ := env.store.Get(aID)
	assert.Equal(t, 120.0, e.X)
	assert.Equal(t, 340.0, e.Y)
}

func TestHandleMove_StoresVelocity(t *testing.T) {
	env := setupRouterTest(Options{})
	a, aID := env.connect(t, "a")

	send(t, env.router, a, ws.TypeMove, map[string]any{"id": aID, "x": 10.0, "y": 20.0, "velocityX": 2.5, "velocityY": -1.0})

	e, _ := env.store.Get(aID)
	assert.Equal(t, 2.5, e.VelocityX)
	assert.Equal(t, -1.0, e.VelocityY)
}

func TestHandleMove_CapsVelocity(t *testing.T) {
	env := setupRouterTest(Options{})
	a, aID := env.connect(t, "a")
	b, _ := env.connect(t, "b")
	drainMessages(b)

	send(t, env.router, a, ws.TypeMove, map[string]any{"id": aID, "x": 120.0, "y": 80.0, "velocityX": 500.0, "velocityY": -1e9})

	e, _ := env.store.Get(aID)
	assert.Equal(t, game.MaxVelocity, e.VelocityX)
	assert.Equal(t, -game.MaxVelocity, e.VelocityY)

	moved := findMessageByType(drainMessages(b), ws.TypePlayerMoved)
	require.NotNil(t, moved)
	var payload ws.MovePayload
	require.NoError(t, json.Unmarshal(moved.Data, &payload))
	require.NotNil(t, payload.VelocityX)
	require.NotNil(t, payload.VelocityY)
	assert.Equal(t, game.MaxVelocity, *payload.VelocityX)
	assert.Equal(t, -game.MaxVelocity, *payload.VelocityY)

	late := newTestClient("late")
	env.router.HandleConnect(late)
	initMsg := findMessageByType(drainMessages(late), ws.TypeInit)
	require.NotNil(t, initMsg)
	var snapshot ws.InitPayload
	require.NoError(t, json.Unmarshal(initMsg.Data, &snapshot))
	assert.Equal(t, game.MaxVelocity, snapshot.Players[aID].VelocityX)
}

func TestHandleMove_ClampsToWorld(t *testing.T) {
	env := setupRouterTest(Options{})
	a, aID := env.connect(t, "a")
	b, _ := env.connect(t, "b")
	drainMessages(b)

	send(t, env.router, a, ws.TypeMove, map[string]any{"id": aID, "x": -500.0, "y": 20000.0})

	e, _ := env.store.Get(aID)
	assert.Equal(t, game.EntityRadius, e.X)
	assert.Equal(t, game.WorldHeight-game.EntityRadius, e.Y)

	moved := findMessageByType(drainMessages(b), ws.TypePlayerMoved)
	require.NotNil(t, moved)
	var payload ws.MovePayload
	require.NoError(t, json.Unmarshal(moved.Data, &payload))
	assert.Equal(t, e.X, payload.X)
	assert.Equal(t, e.Y, payload.Y)
}

func TestHandleMove_DroppedInputs(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown entity", `{"id":"ghost","x":1,"y":2}`},
		{"malformed payload", `"not an object"`},
		{"wrong field type", `{"id":"x","x":"far"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupRouterTest(Options{})
			a, _ := env.connect(t, "a")
			b, _ := env.connect(t, "b")
			drainMessages(a)
			drainMessages(b)

			frame := `{"type":"move","data":` + tt.data + `}`
			env.router.HandleMessage(&ws.ClientMessage{Client: a, Data: []byte(frame)})

			assert.Empty(t, drainMessages(a), "no error frames are sent")
			assert.Empty(t, drainMessages(b))
		})
	}
}

func TestHandleMessage_InvalidFrameAndUnknownType(t *testing.T) {
	env := setupRouterTest(Options{})
	a, _ := env.connect(t, "a")
	drainMessages(a)

	env.router.HandleMessage(&ws.ClientMessage{Client: a, Data: []byte("not json")})
	send(t, env.router, a, "teleport", map[string]any{"x": 1})

	assert.Empty(t, drainMessages(a))
	assert.Equal(t, 1, env.store.Len())
}

func TestHandleSpeaking(t *testing.T) {
	env := setupRouterTest(Options{})
	a, aID := env.connect(t, "a")
	b, _ := env.connect(t, "b")
	drainMessages(a)
	drainMessages(b)

	send(t, env.router, a, ws.TypeSpeaking, ws.SpeakingPayload{ID: aID, IsSpeaking: true})

	assert.Empty(t, drainMessages(a))
	msg := findMessageByType(drainMessages(b), ws.TypePlayerSpeaking)
	require.NotNil(t, msg)
	assert.JSONEq(t, `{"id":"`+aID+`","isSpeaking":true}`, string(msg.Data))

	e, _ := env.store.Get(aID)
	assert.True(t, e.IsSpeaking)
}

func TestHandleCustomize_EchoedToEveryone(t *testing.T) {
	env := setupRouterTest(Options{})
	a, aID := env.connect(t, "a")
	b, _ := env.connect(t, "b")
	drainMessages(a)
	drainMessages(b)

	send(t, env.router, a, ws.TypeCustomize, map[string]any{"id": aID, "name": "Mina", "color": "#00FF00"})

	for _, c := range []*ws.Client{a, b} {
		msg := findMessageByType(drainMessages(c), ws.TypePlayerCustomized)
		require.NotNil(t, msg, c.ID)
		var got ws.CustomizedPayload
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, aID, got.ID)
		assert.Equal(t, "Mina", got.Name)
		assert.Equal(t, "#00FF00", got.Color)
		assert.Nil(t, got.CustomImage)
	}
}

func TestHandleCustomize_OversizedImageKeepsPrevious(t *testing.T) {
	env := setupRouterTest(Options{MaxImageBytes: 1_000_000})
	a, aID := env.connect(t, "a")

	send(t, env.router, a, ws.TypeCustomize, map[string]any{"id": aID, "customImage": "data:image/png;base64,AAAA"})
	drainMessages(a)

	huge := strings.Repeat("A", 2_000_000)
	send(t, env.router, a, ws.TypeCustomize, map[string]any{"id": aID, "name": "Big", "customImage": huge})

	msg := findMessageByType(drainMessages(a), ws.TypePlayerCustomized)
	require.NotNil(t, msg)
	var got ws.CustomizedPayload
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "Big", got.Name, "other fields still apply")
	require.NotNil(t, got.CustomImage)
	assert.Equal(t, "data:image/png;base64,AAAA", *got.CustomImage)
}

func TestHandleCustomize_NullClearsImage(t *testing.T) {
	env := setupRouterTest(Options{})
	a, aID := env.connect(t, "a")

	send(t, env.router, a, ws.TypeCustomize, map[string]any{"id": aID, "customImage": "img"})
	send(t, env.router, a, ws.TypeCustomize, map[string]any{"id": aID, "customImage": nil})

	e, _ := env.store.Get(aID)
	assert.Nil(t, e.CustomImage)
}

func TestHandleDisconnect_AnnouncedExactlyOnce(t *testing.T) {
	env := setupRouterTest(Options{})
	a, aID := env.connect(t, "a")
	b, _ := env.connect(t, "b")
	drainMessages(b)

	env.router.HandleDisconnect(a)
	env.router.HandleDisconnect(a)

	msgs := drainMessages(b)
	require.Len(t, msgs, 1)
	assert.Equal(t, ws.TypePlayerLeft, msgs[0].Type)
	assert.JSONEq(t, `{"id":"`+aID+`"}`, string(msgs[0].Data))

	_, exists := env.store.Get(aID)
	assert.False(t, exists)
}

func TestHandleSignal_RelaysWithBoundSender(t *testing.T) {
	env := setupRouterTest(Options{})
	a, aID := env.connect(t, "a")
	b, bID := env.connect(t, "b")
	c, _ := env.connect(t, "c")
	drainMessages(a)
	drainMessages(b)
	drainMessages(c)

	send(t, env.router, a, ws.TypeWebRTCOffer, map[string]any{
		"to":    bID,
		"from":  "spoofed",
		"offer": map[string]any{"type": "offer", "sdp": "v=0"},
	})

	msgs := drainMessages(b)
	require.Len(t, msgs, 1)
	assert.Equal(t, ws.TypeWebRTCOffer, msgs[0].Type)
	assert.JSONEq(t, `{"offer":{"type":"offer","sdp":"v=0"},"from":"`+aID+`"}`, string(msgs[0].Data))
	assert.Empty(t, drainMessages(a))
	assert.Empty(t, drainMessages(c))
}

func TestHandleSignal_FieldPerEvent(t *testing.T) {
	tests := []struct {
		msgType string
		field   string
	}{
		{ws.TypeWebRTCAnswer, "answer"},
		{ws.TypeWebRTCICECandidate, "candidate"},
	}

	for _, tt := range tests {
		t.Run(tt.msgType, func(t *testing.T) {
			env := setupRouterTest(Options{})
			a, _ := env.connect(t, "a")
			b, bID := env.connect(t, "b")
			drainMessages(b)

			send(t, env.router, a, tt.msgType, map[string]any{"to": bID, tt.field: "payload"})

			msg := findMessageByType(drainMessages(b), tt.msgType)
			require.NotNil(t, msg)
			var got map[string]any
			require.NoError(t, json.Unmarshal(msg.Data, &got))
			assert.Equal(t, "payload", got[tt.field])
		})
	}
}

func TestHandleSignal_UnknownTargetDropped(t *testing.T) {
	env := setupRouterTest(Options{})
	a, _ := env.connect(t, "a")
	b, _ := env.connect(t, "b")
	drainMessages(a)
	drainMessages(b)

	send(t, env.router, a, ws.TypeWebRTCOffer, map[string]any{"to": "nobody", "offer": "x"})

	assert.Empty(t, drainMessages(a))
	assert.Empty(t, drainMessages(b))
}

func TestWhiteboard_DrawRelayedAndReplayed(t *testing.T) {
	env := setupRouterTest(Options{})
	a, _ := env.connect(t, "a")
	b, _ := env.connect(t, "b")
	drainMessages(a)
	drainMessages(b)

	stroke := map[string]any{"x0": 1, "y0": 2, "x1": 3, "y1": 4, "color": "#000", "width": 2}
	send(t, env.router, a, ws.TypeWhiteboardDraw, stroke)

	assert.Empty(t, drainMessages(a))
	drawn := findMessageByType(drainMessages(b), ws.TypeWhiteboardDraw)
	require.NotNil(t, drawn)
	assert.JSONEq(t, `{"x0":1,"y0":2,"x1":3,"y1":4,"color":"#000","width":2}`, string(drawn.Data))

	late := newTestClient("late")
	env.router.HandleConnect(late)
	replay := findMessageByType(drainMessages(late), ws.TypeWhiteboardInit)
	require.NotNil(t, replay)
	assert.JSONEq(t, `[{"x0":1,"y0":2,"x1":3,"y1":4,"color":"#000","width":2}]`, string(replay.Data))
}

func TestWhiteboard_Clear(t *testing.T) {
	env := setupRouterTest(Options{})
	a, _ := env.connect(t, "a")
	b, _ := env.connect(t, "b")
	send(t, env.router, a, ws.TypeWhiteboardDraw, map[string]any{"x0": 1})
	drainMessages(a)
	drainMessages(b)

	send(t, env.router, a, ws.TypeWhiteboardClear, nil)

	assert.Empty(t, drainMessages(a))
	cleared := findMessageByType(drainMessages(b), ws.TypeWhiteboardClear)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Data)
	assert.Equal(t, 0, env.board.Len())
}

// stalledStore never completes a write before its context expires.
type stalledStore struct{}

func (stalledStore) Append(ctx context.Context, _ json.RawMessage, _ int) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalledStore) Clear(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalledStore) Load(context.Context, int) ([]json.RawMessage, error) {
	return nil, nil
}

func TestWhiteboard_SlowPersistenceDoesNotBlockDispatch(t *testing.T) {
	store := world.NewStore(game.DefaultWorld())
	sessions := session.NewRegistry(store)
	board := whiteboard.New(100, stalledStore{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go board.Run(ctx)

	env := &testEnv{
		router:   NewRouter(store, sessions, board, nil, Options{}),
		store:    store,
		sessions: sessions,
		board:    board,
	}
	a, aID := env.connect(t, "a")
	b, _ := env.connect(t, "b")
	drainMessages(b)

	start := time.Now()
	for i := 0; i < 3; i++ {
		send(t, env.router, a, ws.TypeWhiteboardDraw, map[string]any{"n": i})
	}
	send(t, env.router, a, ws.TypeWhiteboardClear, nil)
	send(t, env.router, a, ws.TypeMove, map[string]any{"id": aID, "x": 50.0, "y": 60.0})
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	msgs := drainMessages(b)
	assert.NotNil(t, findMessageByType(msgs, ws.TypeWhiteboardDraw))
	assert.NotNil(t, findMessageByType(msgs, ws.TypeWhiteboardClear))
	assert.NotNil(t, findMessageByType(msgs, ws.TypePlayerMoved))
}

func TestHandleEmote_RelayedToOthers(t *testing.T) {
	env := setupRouterTest(Options{})
	a, aID := env.connect(t, "a")
	b, _ := env.connect(t, "b")
	drainMessages(a)
	drainMessages(b)

	send(t, env.router, a, ws.TypePlayerEmote, ws.EmotePayload{ID: aID, Emote: "wave", Symbol: "👋"})

	assert.Empty(t, drainMessages(a))
	msg := findMessageByType(drainMessages(b), ws.TypePlayerEmote)
	require.NotNil(t, msg)
	var got ws.EmotePayload
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "👋", got.Symbol)
}

func TestTick_ReapsIdleClients(t *testing.T) {
	env := setupRouterTest(Options{IdleTimeout: time.Minute})
	start := time.Now()
	env.router.now = func() time.Time { return start }

	_, quietID := env.connect(t, "quiet")
	chatty, chattyID := env.connect(t, "chatty")
	drainMessages(chatty)

	env.router.now = func() time.Time { return start.Add(50 * time.Second) }
	send(t, env.router, chatty, ws.TypeMove, map[string]any{"id": chattyID, "x": 1.0, "y": 1.0})

	env.router.Tick(start.Add(70 * time.Second))

	_, exists := env.store.Get(quietID)
	assert.False(t, exists)
	_, exists = env.store.Get(chattyID)
	assert.True(t, exists)

	left := findMessageByType(drainMessages(chatty), ws.TypePlayerLeft)
	require.NotNil(t, left)
	assert.JSONEq(t, `{"id":"`+quietID+`"}`, string(left.Data))
}

func TestTick_BroadcastsBotMovement(t *testing.T) {
	store := world.NewStore(game.DefaultWorld())
	sessions := session.NewRegistry(store)
	runner := bot.NewRunner(store, sessions)
	runner.Spawn(bot.SpawnConfig{Wanderers: 1, Name: "Bot", SoundFile: "clip.mp3"}, time.Now(), rand.New(rand.NewSource(1)))
	router := NewRouter(store, sessions, whiteboard.New(10, nil), runner, Options{})

	c := newTestClient("a")
	router.HandleConnect(c)

	var snapshot ws.InitPayload
	initMsg := findMessageByType(drainMessages(c), ws.TypeInit)
	require.NotNil(t, initMsg)
	require.NoError(t, json.Unmarshal(initMsg.Data, &snapshot))
	assert.Len(t, snapshot.Players, 2, "snapshot includes the bot")

	router.Tick(time.Now())

	moved := findMessageByType(drainMessages(c), ws.TypePlayerMoved)
	require.NotNil(t, moved)
	var payload ws.MovePayload
	require.NoError(t, json.Unmarshal(moved.Data, &payload))
	assert.True(t, strings.HasPrefix(payload.ID, "bot-"))
}
