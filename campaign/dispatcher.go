package campaign

import (
	"context"
	"fmt"
	"log/slog"
)

// Stage names one step of a tick.
type Stage string

const (
	StageNone          Stage = ""
	StageConditions    Stage = "campaign_conditions"
	StageRaceEvents    Stage = "race_events"
	StageTrainingEvent Stage = "training_event"
)

// StageObserver is told which stage consumed each tick.
type StageObserver interface {
	ObserveStage(campaign Tag, stage Stage)
}

// Dispatcher routes each tick to the active campaign's stage hooks, falling
// back to the defaults where the campaign has no override.
type Dispatcher struct {
	campaign Campaign
	defaults *Defaults
	observer StageObserver
	log      *slog.Logger
}

func NewDispatcher(c Campaign, defaults *Defaults, observer StageObserver, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		campaign: c,
		defaults: defaults,
		observer: observer,
		log:      log.With("campaign", string(c.Tag())),
	}
}

func (d *Dispatcher) Campaign() Campaign { return d.campaign }

func (d *Dispatcher) CheckCampaignSpecificConditions(ctx context.Context) (bool, error) {
	return Compose(d.campaign.Overrides().Conditions, d.defaults.Conditions)(ctx)
}

func (d *Dispatcher) HandleRaceEvents(ctx context.Context) (bool, error) {
	return Compose(d.campaign.Overrides().RaceEvents, d.defaults.RaceEvents)(ctx)
}

func (d *Dispatcher) HandleTrainingEvent(ctx context.Context) (bool, error) {
	return Compose(d.campaign.Overrides().TrainingEvent, d.defaults.TrainingEvent)(ctx)
}

// Tick runs the stages in order and stops at the first that consumes the
// tick. It returns StageNone when nothing on screen needed handling.
func (d *Dispatcher) Tick(ctx context.Context) (Stage, error) {
	stages := []struct {
		stage Stage
		run   Step
	}{
		{StageConditions, d.CheckCampaignSpecificConditions},
		{StageRaceEvents, d.HandleRaceEvents},
		{StageTrainingEvent, d.HandleTrainingEvent},
	}
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return StageNone, err
		}
		consumed, err := s.run(ctx)
		if err != nil {
			return s.stage, fmt.Errorf("%s: %w", s.stage, err)
		}
		if consumed {
			d.log.Debug("tick handled", "stage", string(s.stage))
			d.observe(s.stage)
			return s.stage, nil
		}
	}
	d.observe(StageNone)
	return StageNone, nil
}

func (d *Dispatcher) observe(stage Stage) {
	if d.observer != nil {
		d.observer.ObserveStage(d.campaign.Tag(), stage)
	}
}
