package racing

import (
	"context"

	"github.com/nstehr/trackside/trackside-core/bot"
)

// Runner drives the screens from "run race" to the results.
type Runner struct {
	bot *bot.Bot
}

func NewRunner(b *bot.Bot) *Runner {
	return &Runner{bot: b}
}

// Run taps start, skips the race animation and clears both result screens.
// It returns false when start never appeared.
func (r *Runner) Run(ctx context.Context, start string) (bool, error) {
	ok, err := r.bot.FindAndAct(ctx, start, 30)
	if err != nil || !ok {
		return false, err
	}
	r.bot.Wait(1)
	if _, err := r.bot.FindAndAct(ctx, bot.TemplateRaceSkipManual, 30); err != nil {
		return false, err
	}
	r.bot.Wait(3)
	if _, err := r.bot.FindAndAct(ctx, bot.TemplateRaceEnd, 30); err != nil {
		return false, err
	}
	r.bot.Wait(1)
	if _, err := r.bot.FindAndAct(ctx, bot.TemplateRaceEnd, 30); err != nil {
		return false, err
	}
	return true, nil
}

// Enter opens a race from the main screen through its confirmation
// screens and runs it.
func (r *Runner) Enter(ctx context.Context, entry string) (bool, error) {
	ok, err := r.Open(ctx, entry)
	if err != nil || !ok {
		return false, err
	}
	return r.Confirm(ctx)
}

// Open taps entry and waits for the race list behind it.
func (r *Runner) Open(ctx context.Context, entry string) (bool, error) {
	ok, err := r.bot.Tap(ctx, entry)
	if err != nil || !ok {
		return false, err
	}
	r.bot.Wait(1)
	return true, nil
}

// Confirm clears both confirmation screens for the highlighted race and
// runs it.
func (r *Runner) Confirm(ctx context.Context) (bool, error) {
	for i := 0; i < 2; i++ {
		if _, err := r.bot.FindAndAct(ctx, bot.TemplateRaceConfirm, 5); err != nil {
			return false, err
		}
	}
	r.bot.Wait(2)
	return r.Run(ctx, bot.TemplateRaceManual)
}
