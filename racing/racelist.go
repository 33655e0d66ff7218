package racing

import (
	"context"
	"fmt"
	"strings"

	"github.com/nstehr/trackside/trackside-core/bot"
	"github.com/nstehr/trackside/trackside-core/model"
)

// The race name sits above and to the left of each row's prediction icon.
const (
	raceNameOffsetX = -455
	raceNameOffsetY = -105
	raceNameWidth   = 585
	raceNameHeight  = 45
)

// raceNameRegion is the box holding the name of the race whose prediction
// icon is at row.
func raceNameRegion(row model.Location) model.Rect {
	return model.Rect{
		X:      max(int(row.X)+raceNameOffsetX, 0),
		Y:      max(int(row.Y)+raceNameOffsetY, 0),
		Width:  raceNameWidth,
		Height: raceNameHeight,
	}
}

// sameRaceName compares names ignoring case and runs of whitespace.
func sameRaceName(read, want string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(read), " "), strings.Join(strings.Fields(want), " "))
}

// locateRace reads the name beside every listed race and returns the row
// showing name.
func (h *Handler) locateRace(ctx context.Context, name string) (model.Location, bool, error) {
	rows, err := h.bot.FindAll(ctx, bot.TemplateRaceExtraPrediction, model.Rect{})
	if err != nil {
		return model.Location{}, false, err
	}
	for i, row := range rows {
		text, confidence, err := h.bot.ReadText(ctx, raceNameRegion(row))
		if err != nil {
			return model.Location{}, false, fmt.Errorf("read race name in row %d: %w", i, err)
		}
		h.log.Debug("race list row", "row", i, "name", text, "confidence", confidence)
		if sameRaceName(text, name) {
			return row, true, nil
		}
	}
	return model.Location{}, false, nil
}
