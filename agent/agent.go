// Package agent runs a campaign session: one tick at a time until the
// caller stops it or a tick fails.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nstehr/trackside/trackside-core/campaign"
)

// ErrStopped is returned when the run was stopped between ticks.
var ErrStopped = errors.New("run stopped")

const tracerName = "github.com/nstehr/trackside/trackside-core/agent"

// Tick outcomes reported to the Observer.
const (
	OutcomeHandled = "handled"
	OutcomeIdle    = "idle"
	OutcomeError   = "error"
)

// Observer records tick timing and outcomes.
type Observer interface {
	ObserveTick(campaign string, outcome string, d time.Duration)
}

// Sleeper pauses the run between idle ticks.
type Sleeper interface {
	Wait(seconds float64)
}

type Options struct {
	// IdleWait is slept after a tick in which nothing was handled.
	IdleWait float64
	// MaxTicks ends the run after that many ticks. Zero means no limit.
	MaxTicks int
	Sink     EventSink
	Observer Observer
	Tracer   trace.Tracer
	Logger   *slog.Logger
}

// Session owns the decision-making for a single run.
type Session struct {
	RunID string

	dispatcher *campaign.Dispatcher
	sleeper    Sleeper
	opts       Options
	log        *slog.Logger
	tag        string

	ticks int
	prev  *campaign.State
}

func New(d *campaign.Dispatcher, sleeper Sleeper, opts Options) *Session {
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	if opts.Sink == nil {
		opts.Sink = LogSink{Logger: opts.Logger}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	runID := uuid.NewString()
	tag := string(d.Campaign().Tag())
	return &Session{
		RunID:      runID,
		dispatcher: d,
		sleeper:    sleeper,
		opts:       opts,
		log:        log.With("run", runID, "campaign", tag),
		tag:        tag,
	}
}

// Ticks returns how many ticks have run.
func (s *Session) Ticks() int { return s.ticks }

// Run ticks until ctx is cancelled, MaxTicks is reached or a tick fails.
// Cancellation is checked only between ticks; a tick in progress always
// runs to completion. A stop returns ErrStopped. A failed tick stops the
// run and returns its error.
func (s *Session) Run(ctx context.Context) error {
	s.log.Info("run started")
	s.emit(ctx, EventRunStarted, s.tag)
	s.prev = s.state()

	for {
		if ctx.Err() != nil {
			s.stop(ErrStopped.Error())
			return ErrStopped
		}
		if s.opts.MaxTicks > 0 && s.ticks >= s.opts.MaxTicks {
			s.stop("tick limit reached")
			return nil
		}

		stage, err := s.Tick(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				s.stop(ErrStopped.Error())
				return ErrStopped
			}
			s.log.Error("tick failed, stopping run", "tick", s.ticks, "stage", string(stage), "error", err)
			s.stop(err.Error())
			return fmt.Errorf("tick %d: %w", s.ticks, err)
		}
		if stage == campaign.StageNone && s.opts.IdleWait > 0 {
			s.sleeper.Wait(s.opts.IdleWait)
		}
	}
}

// Tick runs one dispatcher pass inside a trace span and reports any
// campaign state changes as events.
func (s *Session) Tick(ctx context.Context) (campaign.Stage, error) {
	s.ticks++
	ctx, span := s.opts.Tracer.Start(ctx, "agent.tick", trace.WithAttributes(
		attribute.String("run.id", s.RunID),
		attribute.String("campaign", s.tag),
		attribute.Int("tick", s.ticks),
	))
	defer span.End()

	start := time.Now()
	stage, err := s.dispatcher.Tick(ctx)
	elapsed := time.Since(start)

	outcome := OutcomeHandled
	switch {
	case err != nil:
		outcome = OutcomeError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case stage == campaign.StageNone:
		outcome = OutcomeIdle
	}
	span.SetAttributes(attribute.String("stage", string(stage)), attribute.String("outcome", outcome))
	if s.opts.Observer != nil {
		s.opts.Observer.ObserveTick(s.tag, outcome, elapsed)
	}

	cur := s.state()
	if cur != nil {
		for _, e := range detectEvents(s.ticks, *cur, s.prev) {
			s.log.Info("campaign event", "kind", string(e.Kind), "detail", e.Detail)
			s.send(ctx, e)
		}
		s.prev = cur
	}
	return stage, err
}

func (s *Session) state() *campaign.State {
	r, ok := s.dispatcher.Campaign().(campaign.StateReporter)
	if !ok {
		return nil
	}
	st := r.State()
	return &st
}

func (s *Session) stop(reason string) {
	s.log.Info("run stopped", "reason", reason, "ticks", s.ticks)
	// The run context may already be cancelled.
	s.emit(context.Background(), EventRunStopped, reason)
}

func (s *Session) emit(ctx context.Context, kind EventKind, detail string) {
	s.send(ctx, Event{Kind: kind, Tick: s.ticks, Detail: detail})
}

func (s *Session) send(ctx context.Context, e Event) {
	e.RunID = s.RunID
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if err := s.opts.Sink.Emit(ctx, e); err != nil {
		s.log.Warn("failed to send run event", "kind", string(e.Kind), "error", err)
	}
}
