// Command probe is a headless hangout client. It joins a server, mirrors the
// world through the presence reconciler and walks around, logging what a
// browser would render: region, nearby voices and bot clip offsets.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/ugaemi/hangout-server/internal/presence"
	"github.com/ugaemi/hangout-server/internal/ws"
)

type options struct {
	url      string
	duration time.Duration
	frame    time.Duration
	report   time.Duration
	clip     time.Duration
}

func main() {
	var opts options
	pflag.StringVar(&opts.url, "url", "ws://localhost:3000/ws", "server websocket URL")
	pflag.DurationVar(&opts.duration, "duration", 30*time.Second, "how long to stay connected")
	pflag.DurationVar(&opts.frame, "frame", 16*time.Millisecond, "prediction frame interval")
	pflag.DurationVar(&opts.report, "report", 2*time.Second, "status log interval")
	pflag.DurationVar(&opts.clip, "clip", 30*time.Second, "bot clip length used for offsets")
	pflag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, opts.duration)
	defer cancel()

	if err := run(ctx, opts); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		slog.Error("probe failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, opts.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", opts.url, err)
	}
	defer conn.Close()

	// The mixer belongs to the walk loop; departures are handed over.
	left := make(chan string, 64)
	rec := presence.NewReconciler(func(id string) {
		slog.Info("peer left", "peer", id)
		select {
		case left <- id:
		default:
		}
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		conn.Close()
		return ctx.Err()
	})
	g.Go(func() error {
		for {
			var msg ws.Message
			if err := conn.ReadJSON(&msg); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("read: %w", err)
			}
			if err := rec.Apply(msg); err != nil {
				slog.Warn("dropping server message", "type", msg.Type, "error", err)
			}
		}
	})
	g.Go(func() error {
		return walk(ctx, conn, rec, left, opts)
	})
	return g.Wait()
}

// walk drives local prediction with a wandering input and reports state.
func walk(ctx context.Context, conn *websocket.Conn, rec *presence.Reconciler, left <-chan string, opts options) error {
	mixer := presence.NewMixer()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	frame := time.NewTicker(opts.frame)
	defer frame.Stop()
	report := time.NewTicker(opts.report)
	defer report.Stop()

	var in presence.Input
	playing := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case id := <-left:
			mixer.Release(id)
			delete(playing, id)

		case now := <-frame.C:
			if rng.Intn(60) == 0 {
				in = presence.Input{
					Up:    rng.Intn(2) == 0,
					Down:  rng.Intn(3) == 0,
					Left:  rng.Intn(2) == 0,
					Right: rng.Intn(3) == 0,
				}
			}
			move, ok := rec.Step(in)
			if ok {
				msg, err := ws.NewMessage(ws.TypeMove, move)
				if err != nil {
					return err
				}
				if err := conn.WriteJSON(msg); err != nil {
					return fmt.Errorf("write move: %w", err)
				}
			}
			mixer.Update(rec.Gains(), now)

		case now := <-report.C:
			logStatus(ctx, rec, mixer, playing, now, opts.clip)
		}
	}
}

func logStatus(ctx context.Context, rec *presence.Reconciler, mixer *presence.Mixer, playing map[string]bool, now time.Time, clip time.Duration) {
	view := rec.Snapshot()
	self, ok := view.Entities[view.SelfID]
	if !ok {
		return
	}
	slog.Info("status",
		"self", view.SelfID,
		"x", int(self.X), "y", int(self.Y),
		"region", view.Region,
		"entities", len(view.Entities),
		"strokes", view.Strokes)

	for id, e := range view.Entities {
		level := mixer.Level(id, now)
		if id == view.SelfID || level == 0 {
			continue
		}
		attrs := []any{"peer", id, "name", e.Name, "gain", fmt.Sprintf("%.2f", level)}
		if e.HasSoundAsset() && e.IsSpeaking && e.AudioStartTime != 0 {
			offset := presence.PlaybackOffset(now, e.AudioStartTime, clip)
			attrs = append(attrs, "clipOffset", offset)
			if !playing[id] {
				if err := presence.PlayWithRetry(ctx, logSink{bot: id, clip: e.BotSoundFile}, offset); err != nil {
					slog.Warn("bot playback failed", "bot", id, "error", err)
				} else {
					playing[id] = true
				}
			}
		}
		slog.Info("audible", attrs...)
	}
}

// logSink stands in for an audio element.
type logSink struct {
	bot  string
	clip string
}

func (s logSink) Play(_ context.Context, offset time.Duration) error {
	slog.Info("bot clip playing", "bot", s.bot, "clip", s.clip, "offset", offset)
	return nil
}
