package campaign

import (
	"context"
	"log/slog"

	"github.com/nstehr/trackside/trackside-core/bot"
	"github.com/nstehr/trackside/trackside-core/model"
)

// TutorialState is the lifecycle of a one-shot tutorial prompt. Both
// terminal states are permanent for the run.
type TutorialState int

const (
	TutorialPending TutorialState = iota
	TutorialDismissed
	TutorialExhausted
)

func (s TutorialState) String() string {
	switch s {
	case TutorialPending:
		return "pending"
	case TutorialDismissed:
		return "dismissed"
	case TutorialExhausted:
		return "exhausted"
	}
	return "unknown"
}

// TutorialGate intercepts training events until the scenario tutorial has
// been dismissed or the probe budget runs out.
type TutorialGate struct {
	Header string
	Tries  int
	Region model.Rect
	// Option is the zero-based training option that dismisses the tutorial.
	Option int

	bot      *bot.Bot
	log      *slog.Logger
	state    TutorialState
	attempts int
}

func NewTutorialGate(b *bot.Bot, header string, attempts, tries int, region model.Rect) *TutorialGate {
	g := &TutorialGate{
		Header:   header,
		Tries:    tries,
		Region:   region,
		Option:   1,
		bot:      b,
		log:      b.Logger(),
		attempts: attempts,
	}
	if attempts <= 0 {
		g.state = TutorialExhausted
	}
	return g
}

func (g *TutorialGate) State() TutorialState   { return g.state }
func (g *TutorialGate) AttemptsRemaining() int { return g.attempts }

// Handle probes for the tutorial header while the gate is pending. A hit
// taps the dismiss option and consumes the tick; a miss spends one attempt
// and runs next. Once the gate is terminal it only runs next.
func (g *TutorialGate) Handle(ctx context.Context, next Step) (bool, error) {
	if g.state != TutorialPending {
		return next(ctx)
	}

	found, err := g.bot.Found(ctx, g.Header, g.Tries, bot.InRegion(g.Region))
	if err != nil {
		return false, err
	}
	if !found {
		g.attempts--
		if g.attempts <= 0 {
			g.state = TutorialExhausted
			g.log.Info("tutorial not seen, no longer checking", "header", g.Header)
		}
		return next(ctx)
	}

	g.log.Info("dismissing tutorial", "header", g.Header)
	options, err := g.bot.FindAll(ctx, bot.TemplateTrainingEventActive, model.Rect{})
	if err != nil {
		return false, err
	}
	// Dismissed even if the tap below fails.
	g.state = TutorialDismissed
	g.attempts = 0
	if err := g.bot.TapNth(ctx, options, g.Option, "tutorial option"); err != nil {
		return false, err
	}
	return true, nil
}
