package campaign

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nstehr/trackside/trackside-core/bot"
	"github.com/nstehr/trackside/trackside-core/model"
)

// TrainingChooser picks which active training-event option to take.
// It returns an index into options.
type TrainingChooser interface {
	ChooseTrainingOption(ctx context.Context, options []model.Location) (int, error)
}

// RaceHandler is the campaign-independent race logic.
type RaceHandler interface {
	HandleRaceEvents(ctx context.Context) (bool, error)
}

// FirstOption always takes the top option.
type FirstOption struct{}

func (FirstOption) ChooseTrainingOption(context.Context, []model.Location) (int, error) {
	return 0, nil
}

// Defaults are the stage implementations every variant falls back to.
type Defaults struct {
	bot     *bot.Bot
	chooser TrainingChooser
	races   RaceHandler
	log     *slog.Logger
}

func NewDefaults(b *bot.Bot, chooser TrainingChooser, races RaceHandler) *Defaults {
	if chooser == nil {
		chooser = FirstOption{}
	}
	return &Defaults{bot: b, chooser: chooser, races: races, log: b.Logger()}
}

// Conditions has nothing campaign-specific to check.
func (d *Defaults) Conditions(context.Context) (bool, error) {
	return false, nil
}

// RaceEvents hands over to the shared race handler.
func (d *Defaults) RaceEvents(ctx context.Context) (bool, error) {
	if d.races == nil {
		return false, nil
	}
	return d.races.HandleRaceEvents(ctx)
}

// TrainingEvent lets the chooser pick among the active options, if a
// training event prompt is on screen.
func (d *Defaults) TrainingEvent(ctx context.Context) (bool, error) {
	options, err := d.bot.FindAll(ctx, bot.TemplateTrainingEventActive, model.Rect{})
	if err != nil {
		return false, err
	}
	if len(options) == 0 {
		return false, nil
	}
	idx, err := d.chooser.ChooseTrainingOption(ctx, options)
	if err != nil {
		return false, fmt.Errorf("choose training option: %w", err)
	}
	d.log.Info("training event option chosen", "option", idx+1, "of", len(options))
	if err := d.bot.TapNth(ctx, options, idx, "training event option"); err != nil {
		return false, err
	}
	return true, nil
}

// trainingEventActive reports whether a training event prompt is showing.
func trainingEventActive(ctx context.Context, b *bot.Bot) (bool, error) {
	options, err := b.FindAll(ctx, bot.TemplateTrainingEventActive, model.Rect{})
	if err != nil {
		return false, err
	}
	return len(options) > 0, nil
}
