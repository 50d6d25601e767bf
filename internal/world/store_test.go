package world

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ugaemi/hangout-server/internal/game"
)

func TestSpawnPlayer_AssignsDefaultNames(t *testing.T) {
	s := NewStore(game.DefaultWorld())

	p1 := s.SpawnPlayer()
	p2 := s.SpawnPlayer()

	assert.Equal(t, "Player 1", p1.Name)
	assert.Equal(t, "Player 2", p2.Name)
	assert.NotEqual(t, p1.ID, p2.ID)
	assert.Equal(t, 2, s.Len())
}

func TestAdd_RejectsDuplicateID(t *testing.T) {
	s := NewStore(game.DefaultWorld())

	assert.True(t, s.Add(&game.Entity{ID: "p1"}))
	assert.False(t, s.Add(&game.Entity{ID: "p1"}))
	assert.Equal(t, 1, s.Len())
}

func TestRemove(t *testing.T) {
	s := NewStore(game.DefaultWorld())
	s.Add(&game.Entity{ID: "p1"})

	assert.True(t, s.Remove("p1"))
	assert.False(t, s.Remove("p1"), "second remove is a no-op")

	_, ok := s.Get("p1")
	assert.False(t, ok)
}

func TestGet_ReturnsCopy(t *testing.T) {
	s := NewStore(game.DefaultWorld())
	s.Add(&game.Entity{ID: "p1", X: 100})

	e, ok := s.Get("p1")
	require.True(t, ok)
	e.X = 999

	again, _ := s.Get("p1")
	assert.Equal(t, 100.0, again.X)
}

func TestUpdate(t *testing.T) {
	s := NewStore(game.DefaultWorld())
	s.Add(&game.Entity{ID: "p1"})

	updated, ok := s.Update("p1", func(e *game.Entity) { e.SetPosition(s.World(), 120, 80) })
	require.True(t, ok)
	assert.Equal(t, 120.0, updated.X)
	assert.Equal(t, 80.0, updated.Y)

	_, ok = s.Update("missing", func(e *game.Entity) { t.Fatal("must not run") })
	assert.False(t, ok)
}

func TestCounts(t *testing.T) {
	s := NewStore(game.DefaultWorld())
	s.SpawnPlayer()
	s.Add(game.NewBot(s.World(), "Bot", "clip.mp3", time.Now()))

	players, bots := s.Counts()
	assert.Equal(t, 1, players)
	assert.Equal(t, 1, bots)
}

func TestStore_ConcurrentSpawnAndRemove(t *testing.T) {
	s := NewStore(game.DefaultWorld())

	var wg sync.WaitGroup
	ids := make(chan string, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- s.SpawnPlayer().ID
		}()
	}
	wg.Wait()
	close(ids)
	assert.Equal(t, 100, s.Len())

	for id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			s.Remove(id)
			s.Snapshot()
		}(id)
	}
	wg.Wait()
	assert.Equal(t, 0, s.Len())
}
