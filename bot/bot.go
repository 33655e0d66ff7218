// Package bot wraps the device ports with the handful of interaction
// primitives every handler is written in terms of.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nstehr/trackside/trackside-core/device"
	"github.com/nstehr/trackside/trackside-core/model"
)

// ErrCandidateOutOfRange means an enumeration returned fewer matches than a
// handler's layout assumption requires. It is never recovered locally.
var ErrCandidateOutOfRange = errors.New("candidate index out of range")

// Observer receives find-and-act outcomes. The metrics collector implements it.
type Observer interface {
	ObserveFindAndAct(template string, attempts int, hit bool)
}

// Options configure a Bot. Zero values are replaced by the defaults below.
type Options struct {
	DefaultTries    int
	WaitBetween     time.Duration
	TapSettle       time.Duration
	MinConfidence   float64
	PerceptionTries int
	ScreenWidth     int
	ScreenHeight    int
	Observer        Observer
	Logger          *slog.Logger
}

const (
	defaultTries         = 3
	defaultWaitBetween   = 500 * time.Millisecond
	defaultTapSettle     = 200 * time.Millisecond
	defaultMinConfidence = 0.8
	defaultScreenWidth   = 1080
	defaultScreenHeight  = 1920
)

// Bot is the engine's only handle on the device. It is not safe for
// concurrent use; ticks are serialized by the run loop.
type Bot struct {
	dev  device.Device
	opts Options
	log  *slog.Logger
}

func New(dev device.Device, opts Options) *Bot {
	if opts.DefaultTries <= 0 {
		opts.DefaultTries = defaultTries
	}
	if opts.WaitBetween <= 0 {
		opts.WaitBetween = defaultWaitBetween
	}
	if opts.TapSettle < 0 {
		opts.TapSettle = 0
	} else if opts.TapSettle == 0 {
		opts.TapSettle = defaultTapSettle
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = defaultMinConfidence
	}
	if opts.PerceptionTries <= 0 {
		opts.PerceptionTries = 1
	}
	if opts.ScreenWidth <= 0 {
		opts.ScreenWidth = defaultScreenWidth
	}
	if opts.ScreenHeight <= 0 {
		opts.ScreenHeight = defaultScreenHeight
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Bot{dev: dev, opts: opts, log: log}
}

// ActOption customises a single FindAndAct or Found call.
type ActOption func(*actConfig)

type actConfig struct {
	waitBetween   time.Duration
	region        model.Rect
	minConfidence float64
}

// InRegion restricts matching to r.
func InRegion(r model.Rect) ActOption {
	return func(c *actConfig) { c.region = r }
}

// WaitBetween overrides the pause after a missed attempt.
func WaitBetween(d time.Duration) ActOption {
	return func(c *actConfig) { c.waitBetween = d }
}

// MinConfidence overrides the similarity floor for this call.
func MinConfidence(v float64) ActOption {
	return func(c *actConfig) { c.minConfidence = v }
}

func (b *Bot) actConfig(opts []ActOption) actConfig {
	c := actConfig{waitBetween: b.opts.WaitBetween, minConfidence: b.opts.MinConfidence}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// FindAndAct looks for template up to tries times and taps the first hit.
// It performs at most tries perception calls and at most one tap, and waits
// between misses but not after the last one.
func (b *Bot) FindAndAct(ctx context.Context, template string, tries int, opts ...ActOption) (bool, error) {
	if tries < 1 {
		tries = 1
	}
	c := b.actConfig(opts)
	matchOpts := device.MatchOptions{
		Tries:         b.opts.PerceptionTries,
		MinConfidence: c.minConfidence,
		Region:        c.region,
	}

	for attempt := 1; attempt <= tries; attempt++ {
		res, err := b.dev.FindMatch(ctx, template, matchOpts)
		if err != nil {
			return false, fmt.Errorf("find %s: %w", template, err)
		}
		if res.Found {
			b.log.Debug("found and tapping", "template", template, "attempt", attempt, "confidence", res.Confidence)
			b.observe(template, attempt, true)
			if err := b.TapLocation(ctx, res.Location); err != nil {
				return false, fmt.Errorf("tap %s: %w", template, err)
			}
			return true, nil
		}
		if attempt < tries {
			b.dev.Wait(c.waitBetween)
		}
	}

	b.log.Debug("template not found", "template", template, "tries", tries)
	b.observe(template, tries, false)
	return false, nil
}

// Tap is FindAndAct with the default try budget.
func (b *Bot) Tap(ctx context.Context, template string, opts ...ActOption) (bool, error) {
	return b.FindAndAct(ctx, template, b.opts.DefaultTries, opts...)
}

// Found probes for template without acting. tries is handed to the
// perception layer as its own capture retry budget.
func (b *Bot) Found(ctx context.Context, template string, tries int, opts ...ActOption) (bool, error) {
	if tries < 1 {
		tries = 1
	}
	c := b.actConfig(opts)
	res, err := b.dev.FindMatch(ctx, template, device.MatchOptions{
		Tries:         tries,
		MinConfidence: c.minConfidence,
		Region:        c.region,
	})
	if err != nil {
		return false, fmt.Errorf("find %s: %w", template, err)
	}
	return res.Found, nil
}

// FindAll enumerates every match of template in presentation order
// (top-to-bottom as the device reports them).
func (b *Bot) FindAll(ctx context.Context, template string, region model.Rect) ([]model.Location, error) {
	locs, err := b.dev.FindAllMatches(ctx, template, region)
	if err != nil {
		return nil, fmt.Errorf("find all %s: %w", template, err)
	}
	return locs, nil
}

// Count is len(FindAll). Used for prediction icons.
func (b *Bot) Count(ctx context.Context, template string, region model.Rect) (int, error) {
	locs, err := b.FindAll(ctx, template, region)
	if err != nil {
		return 0, err
	}
	return len(locs), nil
}

// TapLocation taps loc and lets the game settle.
func (b *Bot) TapLocation(ctx context.Context, loc model.Location) error {
	if err := b.dev.Tap(ctx, loc.X, loc.Y); err != nil {
		return err
	}
	if b.opts.TapSettle > 0 {
		b.dev.Wait(b.opts.TapSettle)
	}
	return nil
}

// TapNth taps the index-th location of locs, failing with
// ErrCandidateOutOfRange when the enumeration is too short.
func (b *Bot) TapNth(ctx context.Context, locs []model.Location, index int, what string) error {
	loc, err := Pick(locs, index, what)
	if err != nil {
		return err
	}
	return b.TapLocation(ctx, loc)
}

// Pick returns locs[index] or a wrapped ErrCandidateOutOfRange.
func Pick(locs []model.Location, index int, what string) (model.Location, error) {
	if index < 0 || index >= len(locs) {
		return model.Location{}, fmt.Errorf("%s #%d of %d: %w", what, index+1, len(locs), ErrCandidateOutOfRange)
	}
	return locs[index], nil
}

// Wait pauses for seconds to let animations or network calls finish.
func (b *Bot) Wait(seconds float64) {
	b.dev.Wait(time.Duration(seconds * float64(time.Second)))
}

// ReadText reads text from region.
func (b *Bot) ReadText(ctx context.Context, region model.Rect) (string, float64, error) {
	return b.dev.ReadText(ctx, region)
}

func (b *Bot) Logger() *slog.Logger { return b.log }

// TopHalf, BottomHalf and Middle mirror the regions the templates were
// captured against.
func (b *Bot) TopHalf() model.Rect {
	return model.Rect{X: 0, Y: 0, Width: b.opts.ScreenWidth, Height: b.opts.ScreenHeight / 2}
}

func (b *Bot) BottomHalf() model.Rect {
	return model.Rect{X: 0, Y: b.opts.ScreenHeight / 2, Width: b.opts.ScreenWidth, Height: b.opts.ScreenHeight - b.opts.ScreenHeight/2}
}

func (b *Bot) Middle() model.Rect {
	return model.Rect{X: 0, Y: b.opts.ScreenHeight / 3, Width: b.opts.ScreenWidth, Height: b.opts.ScreenHeight / 3}
}

func (b *Bot) observe(template string, attempts int, hit bool) {
	if b.opts.Observer != nil {
		b.opts.Observer.ObserveFindAndAct(template, attempts, hit)
	}
}
