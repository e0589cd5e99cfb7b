package services

import (
	"context"
	"fmt"
	"iter"
	"time"
)

const (
	DefaultRevealDuration = 20 * time.Second
	DefaultRevealCeiling  = 0.65 // just below the neck
	DefaultFrameInterval  = 16 * time.Millisecond
)

// RevealClock maps elapsed time to partial reveal progress. It never
// reaches 1.0 on its own; the remainder is reserved for when the real
// result arrives.
type RevealClock struct {
	duration      time.Duration
	ceiling       float64
	frameInterval time.Duration
	now           func() time.Time
}

func NewRevealClock(duration time.Duration, ceiling float64, frameInterval time.Duration) (*RevealClock, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("reveal duration must be positive, got %s", duration)
	}
	if ceiling <= 0 || ceiling >= 1 {
		return nil, fmt.Errorf("reveal ceiling must be in (0, 1), got %v", ceiling)
	}
	if frameInterval <= 0 {
		frameInterval = DefaultFrameInterval
	}

	return &RevealClock{
		duration:      duration,
		ceiling:       ceiling,
		frameInterval: frameInterval,
		now:           time.Now,
	}, nil
}

func DefaultRevealClock() *RevealClock {
	clock, _ := NewRevealClock(DefaultRevealDuration, DefaultRevealCeiling, DefaultFrameInterval)
	return clock
}

func (c *RevealClock) Ceiling() float64 {
	return c.ceiling
}

func (c *RevealClock) Duration() time.Duration {
	return c.duration
}

func (c *RevealClock) ProgressAt(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	ratio := float64(elapsed) / float64(c.duration)
	if ratio >= 1 {
		return c.ceiling
	}
	return ratio * c.ceiling
}

// Frames yields one progress value per animation frame, starting at 0 and
// ending after the ceiling is yielded or ctx is done. Each iteration of
// the sequence starts a fresh clock.
func (c *RevealClock) Frames(ctx context.Context) iter.Seq[float64] {
	return func(yield func(float64) bool) {
		start := c.now()
		if !yield(0) {
			return
		}

		ticker := time.NewTicker(c.frameInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				progress := c.ProgressAt(c.now().Sub(start))
				if !yield(progress) {
					return
				}
				if progress >= c.ceiling {
					return
				}
			}
		}
	}
}
