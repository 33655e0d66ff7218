package campaign

import (
	"context"
	"errors"
	"testing"

	"github.com/nstehr/trackside/trackside-core/bot"
	"github.com/nstehr/trackside/trackside-core/device/devicetest"
	"github.com/nstehr/trackside/trackside-core/model"
)

var testSelectionTemplates = SelectionTemplates{
	Final:      bot.TemplateAoHaruFinalRace,
	Option:     bot.TemplateAoHaruRaceOption,
	Select:     bot.TemplateAoHaruSelectRace,
	Cancel:     bot.TemplateCancel,
	Prediction: bot.TemplateRaceDoubleCircle,
}

// circles returns n prediction icon locations.
func circles(n int) []model.Location {
	out := make([]model.Location, n)
	for i := range out {
		out[i] = model.Location{X: float64(100 * (i + 1)), Y: 900}
	}
	return out
}

func selectionDevice(counts []int) *devicetest.Fake {
	dev := devicetest.New()
	dev.ShowAll(bot.TemplateAoHaruRaceOption, devicetest.Locs(540, 700, 540, 1000, 540, 1300))
	dev.Show(bot.TemplateAoHaruSelectRace, model.Location{X: 540, Y: 1600})
	dev.Show(bot.TemplateCancel, model.Location{X: 300, Y: 1600})
	for _, c := range counts {
		dev.QueueAll(bot.TemplateRaceDoubleCircle, circles(c))
	}
	return dev
}

func TestRaceSelectorTiers(t *testing.T) {
	tests := []struct {
		name      string
		policy    SelectionPolicy
		counts    []int
		wantTier  SelectionTier
		wantIndex int
		wantCount int
	}{
		{"first option good", DefaultSelectionPolicy(), []int{3}, TierPrimary, 0, 3},
		{"first good option wins", DefaultSelectionPolicy(), []int{1, 4, 5}, TierPrimary, 1, 4},
		{"secondary re-inspection", DefaultSelectionPolicy(), []int{0, 1, 2, 3}, TierSecondary, 1, 3},
		{"default", DefaultSelectionPolicy(), []int{0, 1, 2, 2}, TierDefault, 1, 0},
		{
			"scan limit",
			SelectionPolicy{RequiredDoubleCircles: 3, PrimaryScanLimit: 1, FallbackIndex: 1, DefaultIndex: 1},
			[]int{0, 5},
			TierSecondary, 1, 5,
		},
		{
			"configured default",
			SelectionPolicy{RequiredDoubleCircles: 3, PrimaryScanLimit: 1, FallbackIndex: 1, DefaultIndex: 2},
			[]int{0, 0},
			TierDefault, 2, 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := selectionDevice(tt.counts)
			s := NewRaceSelector(testDeps(dev).Bot, testSelectionTemplates, tt.policy)

			got, err := s.Select(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if got.Tier != tt.wantTier || got.Index != tt.wantIndex || got.DoubleCircles != tt.wantCount {
				t.Errorf("Select() = %+v, want tier %v index %d circles %d", got, tt.wantTier, tt.wantIndex, tt.wantCount)
			}
		})
	}
}

func TestRaceSelectorDeterministic(t *testing.T) {
	counts := []int{2, 0, 5}
	var first Selection
	for run := 0; run < 3; run++ {
		dev := selectionDevice(counts)
		got, err := NewRaceSelector(testDeps(dev).Bot, testSelectionTemplates, DefaultSelectionPolicy()).Select(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if run == 0 {
			first = got
			continue
		}
		if got != first {
			t.Errorf("run %d: Select() = %+v, want %+v", run, got, first)
		}
	}
	if first.Index != 2 {
		t.Errorf("Select().Index = %d, want 2", first.Index)
	}
}

func TestRaceSelectorFinal(t *testing.T) {
	dev := selectionDevice(nil)
	dev.Show(bot.TemplateAoHaruFinalRace, model.Location{X: 540, Y: 900})
	got, err := NewRaceSelector(testDeps(dev).Bot, testSelectionTemplates, DefaultSelectionPolicy()).Select(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got.Tier != TierFinal {
		t.Errorf("tier = %v, want final", got.Tier)
	}
	if n := dev.AllCalls[bot.TemplateAoHaruRaceOption]; n != 0 {
		t.Errorf("option enumerations = %d, want 0", n)
	}
}

func TestRaceSelectorNoOptions(t *testing.T) {
	dev := devicetest.New()
	_, err := NewRaceSelector(testDeps(dev).Bot, testSelectionTemplates, DefaultSelectionPolicy()).Select(context.Background())
	if !errors.Is(err, bot.ErrCandidateOutOfRange) {
		t.Errorf("Select() error = %v, want ErrCandidateOutOfRange", err)
	}
}

func TestRaceSelectorDefaultOutOfRange(t *testing.T) {
	dev := devicetest.New()
	dev.ShowAll(bot.TemplateAoHaruRaceOption, devicetest.Locs(540, 700))
	dev.Show(bot.TemplateAoHaruSelectRace, model.Location{X: 540, Y: 1600})
	dev.Show(bot.TemplateCancel, model.Location{X: 300, Y: 1600})

	_, err := NewRaceSelector(testDeps(dev).Bot, testSelectionTemplates, DefaultSelectionPolicy()).Select(context.Background())
	if !errors.Is(err, bot.ErrCandidateOutOfRange) {
		t.Errorf("Select() error = %v, want ErrCandidateOutOfRange", err)
	}
}
