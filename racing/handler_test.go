package racing

import (
	"context"
	"testing"

	"github.com/nstehr/trackside/trackside-core/bot"
	"github.com/nstehr/trackside/trackside-core/device/devicetest"
	"github.com/nstehr/trackside/trackside-core/model"
)

type stubPlans []model.PlannedRace

func (s stubPlans) PlannedRaces(context.Context) ([]model.PlannedRace, error) { return s, nil }

type stubCatalog map[string]model.Race

func (s stubCatalog) RacesByName(_ context.Context, names []string) (map[string]model.Race, error) {
	out := make(map[string]model.Race)
	for _, n := range names {
		if r, ok := s[n]; ok {
			out[n] = r
		}
	}
	return out, nil
}

type stubTrainee struct {
	turn int
	apt  model.Aptitudes
}

func (s stubTrainee) CurrentTurn(context.Context) (int, error)           { return s.turn, nil }
func (s stubTrainee) Aptitudes(context.Context) (model.Aptitudes, error) { return s.apt, nil }

type decisionLog []Decision

func (d *decisionLog) ObserveDecision(dec Decision) { *d = append(*d, dec) }

func newHandler(dev *devicetest.Fake, opts HandlerOptions) *Handler {
	b := bot.New(dev, bot.Options{TapSettle: -1})
	return NewHandler(b, NewRunner(b), opts)
}

func showRaceFlow(dev *devicetest.Fake) {
	dev.Show(bot.TemplateRaceConfirm, model.Location{X: 500, Y: 1500})
	dev.Show(bot.TemplateRaceManual, model.Location{X: 500, Y: 1600})
	dev.Show(bot.TemplateRaceSkipManual, model.Location{X: 500, Y: 1700})
	dev.Show(bot.TemplateRaceEnd, model.Location{X: 500, Y: 1800})
}

func TestHandlerNothingOnScreen(t *testing.T) {
	dev := devicetest.New()
	h := newHandler(dev, HandlerOptions{})
	raced, err := h.HandleRaceEvents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if raced || len(dev.Taps) != 0 {
		t.Errorf("raced=%v taps=%d, want no action", raced, len(dev.Taps))
	}
}

func TestHandlerMandatoryRace(t *testing.T) {
	dev := devicetest.New()
	dev.Show(bot.TemplateRaceSelectMandatory, model.Location{X: 100, Y: 100})
	showRaceFlow(dev)
	h := newHandler(dev, HandlerOptions{})

	raced, err := h.HandleRaceEvents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !raced {
		t.Error("expected mandatory race to be run")
	}
	if dev.Taps[0] != (model.Location{X: 100, Y: 100}) {
		t.Errorf("first tap = %+v, want mandatory race button", dev.Taps[0])
	}
}

func TestHandlerExtraRaceWithoutPlan(t *testing.T) {
	dev := devicetest.New()
	dev.Show(bot.TemplateRaceSelectExtra, model.Location{X: 200, Y: 200})
	showRaceFlow(dev)

	h := newHandler(dev, HandlerOptions{})
	raced, _ := h.HandleRaceEvents(context.Background())
	if raced {
		t.Error("extra race should be skipped when racing without a plan is disabled")
	}

	h = newHandler(dev, HandlerOptions{RaceWithoutPlan: true})
	raced, err := h.HandleRaceEvents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !raced {
		t.Error("extra race should run when racing without a plan is enabled")
	}
}

func TestHandlerFollowsPlan(t *testing.T) {
	catalog := stubCatalog(catalogFixture())
	plan := stubPlans{
		{RaceName: "Satsuki Sho", Priority: 1, TurnNumber: 31},
	}
	cfg := Config{LookAheadDays: 3, MinimumQualityThreshold: 50, TimeDecayFactor: 0.9, ImprovementThreshold: 20}

	tests := []struct {
		turn      int
		wantRaced bool
		want      Action
	}{
		{31, true, RaceNow},
		{29, false, Wait},
	}
	for _, tc := range tests {
		dev := devicetest.New()
		dev.Show(bot.TemplateRaceSelectExtra, model.Location{X: 200, Y: 200})
		dev.ShowAll(bot.TemplateRaceExtraPrediction, devicetest.Locs(600, 700))
		dev.SetText("Satsuki Sho")
		showRaceFlow(dev)
		var decisions decisionLog
		h := newHandler(dev, HandlerOptions{
			Plans:    plan,
			Catalog:  catalog,
			Trainee:  stubTrainee{turn: tc.turn, apt: goodAptitudes()},
			Config:   cfg,
			Observer: &decisions,
		})

		raced, err := h.HandleRaceEvents(context.Background())
		if err != nil {
			t.Fatalf("turn %d: %v", tc.turn, err)
		}
		if raced != tc.wantRaced {
			t.Errorf("turn %d: raced = %v, want %v", tc.turn, raced, tc.wantRaced)
		}
		if len(decisions) != 1 || decisions[0].Action != tc.want {
			t.Errorf("turn %d: decisions = %+v, want one %v", tc.turn, decisions, tc.want)
		}
		if !tc.wantRaced && len(dev.Taps) != 0 {
			t.Errorf("turn %d: taps = %d on wait, want 0", tc.turn, len(dev.Taps))
		}
	}
}

func sameTurnPlan() (stubPlans, stubCatalog) {
	catalog := stubCatalog(catalogFixture())
	catalog["Oka Sho"] = model.Race{Name: "Oka Sho", Grade: model.GradeG1, Terrain: model.Turf, Distance: model.Mile, Fans: 20000, TurnNumber: 31}
	plan := stubPlans{
		{RaceName: "Oka Sho", Priority: 1, TurnNumber: 31},
		{RaceName: "Satsuki Sho", Priority: 2, TurnNumber: 31},
	}
	return plan, catalog
}

func TestHandlerTapsChosenRaceRow(t *testing.T) {
	plan, catalog := sameTurnPlan()
	dev := devicetest.New()
	dev.Show(bot.TemplateRaceSelectExtra, model.Location{X: 200, Y: 200})
	dev.ShowAll(bot.TemplateRaceExtraPrediction, devicetest.Locs(600, 700, 600, 900))
	dev.QueueText("Oka Sho", " satsuki  sho ")
	showRaceFlow(dev)

	var decisions decisionLog
	h := newHandler(dev, HandlerOptions{
		Plans:    plan,
		Catalog:  catalog,
		Trainee:  stubTrainee{turn: 31, apt: goodAptitudes()},
		Config:   Config{LookAheadDays: 3, MinimumQualityThreshold: 50, TimeDecayFactor: 0.9, ImprovementThreshold: 20},
		Observer: &decisions,
	})

	raced, err := h.HandleRaceEvents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !raced {
		t.Fatal("expected the chosen race to be run")
	}
	if got := decisions[0].Race.Race.Name; got != "Satsuki Sho" {
		t.Fatalf("chosen race = %q, want Satsuki Sho", got)
	}
	if len(dev.Taps) < 2 {
		t.Fatalf("taps = %+v, want entry then race row", dev.Taps)
	}
	if dev.Taps[1] != (model.Location{X: 600, Y: 900}) {
		t.Errorf("race row tap = %+v, want the Satsuki Sho row at (600, 900)", dev.Taps[1])
	}
	wantRegions := []model.Rect{
		{X: 145, Y: 595, Width: 585, Height: 45},
		{X: 145, Y: 795, Width: 585, Height: 45},
	}
	if len(dev.TextReads) != len(wantRegions) {
		t.Fatalf("text reads = %+v, want %+v", dev.TextReads, wantRegions)
	}
	for i, want := range wantRegions {
		if dev.TextReads[i] != want {
			t.Errorf("text read %d = %+v, want %+v", i, dev.TextReads[i], want)
		}
	}
}

func TestHandlerPlannedRaceNotListed(t *testing.T) {
	plan, catalog := sameTurnPlan()
	dev := devicetest.New()
	dev.Show(bot.TemplateRaceSelectExtra, model.Location{X: 200, Y: 200})
	dev.Show(bot.TemplateBack, model.Location{X: 50, Y: 1850})
	dev.ShowAll(bot.TemplateRaceExtraPrediction, devicetest.Locs(600, 700, 600, 900))
	dev.QueueText("Oka Sho", "Hanshin Juvenile Fillies")
	showRaceFlow(dev)

	h := newHandler(dev, HandlerOptions{
		Plans:   plan,
		Catalog: catalog,
		Trainee: stubTrainee{turn: 31, apt: goodAptitudes()},
		Config:  Config{LookAheadDays: 3, MinimumQualityThreshold: 50, TimeDecayFactor: 0.9, ImprovementThreshold: 20},
	})

	raced, err := h.HandleRaceEvents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if raced {
		t.Error("race should not run when the chosen race is not listed")
	}
	want := []model.Location{{X: 200, Y: 200}, {X: 50, Y: 1850}}
	if len(dev.Taps) != len(want) {
		t.Fatalf("taps = %+v, want entry then back %+v", dev.Taps, want)
	}
	for i := range want {
		if dev.Taps[i] != want[i] {
			t.Errorf("tap %d = %+v, want %+v", i, dev.Taps[i], want[i])
		}
	}
	if got := dev.FindCalls[bot.TemplateRaceConfirm]; got != 0 {
		t.Errorf("confirm probes = %d, want 0", got)
	}
}

func TestSameRaceName(t *testing.T) {
	tests := []struct {
		read, want string
		match      bool
	}{
		{"Satsuki Sho", "Satsuki Sho", true},
		{"  satsuki   SHO\n", "Satsuki Sho", true},
		{"Oka Sho", "Satsuki Sho", false},
		{"", "Satsuki Sho", false},
	}
	for _, tc := range tests {
		if got := sameRaceName(tc.read, tc.want); got != tc.match {
			t.Errorf("sameRaceName(%q, %q) = %v, want %v", tc.read, tc.want, got, tc.match)
		}
	}
}

func TestRaceNameRegionClampsToScreen(t *testing.T) {
	got := raceNameRegion(model.Location{X: 100, Y: 50})
	want := model.Rect{X: 0, Y: 0, Width: 585, Height: 45}
	if got != want {
		t.Errorf("raceNameRegion = %+v, want %+v", got, want)
	}
}

func TestRunnerMissingStart(t *testing.T) {
	dev := devicetest.New()
	r := NewRunner(bot.New(dev, bot.Options{TapSettle: -1}))
	ok, err := r.Run(context.Background(), bot.TemplateRaceManual)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("Run should report false when the start button never appears")
	}
	if got := dev.FindCalls[bot.TemplateRaceManual]; got != 30 {
		t.Errorf("start probes = %d, want 30", got)
	}
}
