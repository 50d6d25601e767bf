package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrPlaybackRejected is returned by a Sink that refused to start, for
// example because the user has not interacted with the page yet.
var ErrPlaybackRejected = errors.New("presence: playback rejected")

const (
	playbackRetryDelay  = time.Second
	playbackMaxAttempts = 3
)

// Sink plays a looping clip from an offset.
type Sink interface {
	Play(ctx context.Context, offset time.Duration) error
}

// PlaybackOffset returns where in a looping clip playback should start so
// every client hears the same phase: (now - start) mod clip.
func PlaybackOffset(now time.Time, audioStartMillis int64, clip time.Duration) time.Duration {
	if clip <= 0 {
		return 0
	}
	elapsed := now.Sub(time.UnixMilli(audioStartMillis))
	offset := elapsed % clip
	if offset < 0 {
		offset += clip
	}
	return offset
}

// PlayWithRetry starts playback and retries rejected attempts after a fixed
// delay. Any other sink error stops immediately.
func PlayWithRetry(ctx context.Context, sink Sink, offset time.Duration) error {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(playbackRetryDelay), playbackMaxAttempts-1),
		ctx,
	)

	op := func() error {
		err := sink.Play(ctx, offset)
		if err == nil || errors.Is(err, ErrPlaybackRejected) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		slog.Debug("playback rejected, retrying", "error", err, "wait", wait)
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return fmt.Errorf("play at %s: %w", offset, err)
	}
	return nil
}
