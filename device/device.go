// Package device declares the ports the decision engine uses to observe and
// act on the game screen. Implementations live elsewhere (the ipc bridge,
// test fakes); the engine never touches pixels itself.
package device

import (
	"context"
	"time"

	"github.com/nstehr/trackside/trackside-core/model"
)

// MatchOptions tune a single template match. Tries is the perception layer's
// own retry budget for one capture and is unrelated to the engine's
// find-and-act attempts.
type MatchOptions struct {
	Tries         int
	MinConfidence float64
	Region        model.Rect
}

// Perception finds pre-registered template images and reads text.
type Perception interface {
	FindMatch(ctx context.Context, template string, opts MatchOptions) (model.MatchResult, error)
	FindAllMatches(ctx context.Context, template string, region model.Rect) ([]model.Location, error)
	ReadText(ctx context.Context, region model.Rect) (text string, confidence float64, err error)
}

// Actuation performs gestures. Wait blocks for the full duration.
type Actuation interface {
	Tap(ctx context.Context, x, y float64) error
	Wait(d time.Duration)
}

// Device is both ports, which is what a connected phone provides.
type Device interface {
	Perception
	Actuation
}
