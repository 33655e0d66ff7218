package racing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nstehr/trackside/trackside-core/bot"
	"github.com/nstehr/trackside/trackside-core/model"
)

// PlanSource returns the user's racing plan, ordered by priority.
type PlanSource interface {
	PlannedRaces(ctx context.Context) ([]model.PlannedRace, error)
}

// Catalog looks races up by name.
type Catalog interface {
	RacesByName(ctx context.Context, names []string) (map[string]model.Race, error)
}

// Trainee reports live career state the device reads off the screen.
type Trainee interface {
	CurrentTurn(ctx context.Context) (int, error)
	Aptitudes(ctx context.Context) (model.Aptitudes, error)
}

// DecisionObserver is told about every scheduler decision.
type DecisionObserver interface {
	ObserveDecision(d Decision)
}

// HandlerOptions wire the optional racing-plan path. Without Plans the
// handler only runs mandatory races and, if RaceWithoutPlan is set, every
// extra race offered.
type HandlerOptions struct {
	Plans           PlanSource
	Catalog         Catalog
	Trainee         Trainee
	Config          Config
	Filter          *Filter
	RaceWithoutPlan bool
	Observer        DecisionObserver
	Logger          *slog.Logger
}

// Handler is the non-campaign race logic every campaign falls back to.
type Handler struct {
	bot    *bot.Bot
	runner *Runner
	opts   HandlerOptions
	log    *slog.Logger
}

func NewHandler(b *bot.Bot, runner *Runner, opts HandlerOptions) *Handler {
	log := opts.Logger
	if log == nil {
		log = b.Logger()
	}
	return &Handler{bot: b, runner: runner, opts: opts, log: log}
}

// HandleRaceEvents runs a mandatory race if one is pending, otherwise asks
// the racing plan whether to enter the extra race on offer. It reports
// whether a race was run.
func (h *Handler) HandleRaceEvents(ctx context.Context) (bool, error) {
	mandatory, err := h.bot.Found(ctx, bot.TemplateRaceSelectMandatory, 1)
	if err != nil {
		return false, err
	}
	if mandatory {
		h.log.Info("mandatory race detected")
		return h.runner.Enter(ctx, bot.TemplateRaceSelectMandatory)
	}

	extra, err := h.bot.Found(ctx, bot.TemplateRaceSelectExtra, 1)
	if err != nil || !extra {
		return false, err
	}

	plan, err := h.plan(ctx)
	if err != nil {
		return false, err
	}
	if len(plan) == 0 {
		if !h.opts.RaceWithoutPlan {
			return false, nil
		}
		return h.runner.Enter(ctx, bot.TemplateRaceSelectExtra)
	}

	d, err := h.decide(ctx, plan)
	if err != nil {
		return false, err
	}
	if h.opts.Observer != nil {
		h.opts.Observer.ObserveDecision(d)
	}
	if d.Action != RaceNow {
		return false, nil
	}
	h.log.Info("racing planned race", "race", d.Race.Race.Name, "score", d.Score)
	return h.enterNamed(ctx, d.Race.Race.Name)
}

// enterNamed opens the extra race list, taps the row showing name and runs
// it. When no row shows name it backs out and reports false.
func (h *Handler) enterNamed(ctx context.Context, name string) (bool, error) {
	opened, err := h.runner.Open(ctx, bot.TemplateRaceSelectExtra)
	if err != nil || !opened {
		return false, err
	}
	row, found, err := h.locateRace(ctx, name)
	if err != nil {
		return false, err
	}
	if !found {
		h.log.Warn("planned race not in the race list", "race", name)
		if _, err := h.bot.FindAndAct(ctx, bot.TemplateBack, 3); err != nil {
			return false, err
		}
		return false, nil
	}
	if err := h.bot.TapLocation(ctx, row); err != nil {
		return false, fmt.Errorf("tap race %q: %w", name, err)
	}
	return h.runner.Confirm(ctx)
}

func (h *Handler) plan(ctx context.Context) ([]model.PlannedRace, error) {
	if h.opts.Plans == nil {
		return nil, nil
	}
	plan, err := h.opts.Plans.PlannedRaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("load racing plan: %w", err)
	}
	return plan, nil
}

func (h *Handler) decide(ctx context.Context, plan []model.PlannedRace) (Decision, error) {
	if h.opts.Catalog == nil || h.opts.Trainee == nil {
		return Decision{}, fmt.Errorf("racing plan needs a catalog and trainee source")
	}
	turn, err := h.opts.Trainee.CurrentTurn(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("read current turn: %w", err)
	}
	apt, err := h.opts.Trainee.Aptitudes(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("read aptitudes: %w", err)
	}

	names := make([]string, 0, len(plan))
	for _, p := range plan {
		names = append(names, p.RaceName)
	}
	catalog, err := h.opts.Catalog.RacesByName(ctx, names)
	if err != nil {
		return Decision{}, fmt.Errorf("look up planned races: %w", err)
	}

	s := NewScheduler(h.opts.Config, Scorer{Aptitudes: apt}, h.opts.Filter, h.log)
	return s.Decide(plan, catalog, turn)
}
