// Package devicetest provides a scripted in-memory device for engine tests.
package devicetest

import (
	"context"
	"time"

	"github.com/nstehr/trackside/trackside-core/device"
	"github.com/nstehr/trackside/trackside-core/model"
)

// Fake answers perception calls from per-template scripts and records
// every call it receives.
//
// Lookup order for FindMatch: queued results for the template (consumed one
// per call), then templates marked visible with Show, then a miss.
// FindAllMatches works the same way with QueueAll, then ShowAll, then Show.
type Fake struct {
	queued    map[string][]model.MatchResult
	queuedAll map[string][][]model.Location
	visible   map[string]model.Location
	listed    map[string][]model.Location
	errs      map[string]error
	text      string
	texts     []string

	// OnTap runs after every tap so tests can change what is on screen.
	OnTap func(loc model.Location)

	FindCalls map[string]int
	AllCalls  map[string]int
	Taps      []model.Location
	Waits     []time.Duration
	TextReads []model.Rect
	Log       []string // template names in call order, taps as "tap"
}

var _ device.Device = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		queued:    make(map[string][]model.MatchResult),
		queuedAll: make(map[string][][]model.Location),
		visible:   make(map[string]model.Location),
		listed:    make(map[string][]model.Location),
		errs:      make(map[string]error),
		FindCalls: make(map[string]int),
		AllCalls:  make(map[string]int),
	}
}

// Show makes template visible at loc until Hide is called.
func (f *Fake) Show(template string, loc model.Location) {
	f.visible[template] = loc
}

func (f *Fake) Hide(template string) {
	delete(f.visible, template)
	delete(f.listed, template)
}

// ShowAll makes FindAllMatches on template return locs until Hide is
// called. FindMatch reports the first of them.
func (f *Fake) ShowAll(template string, locs []model.Location) {
	f.listed[template] = locs
	if len(locs) > 0 {
		f.visible[template] = locs[0]
	}
}

// Queue scripts the next FindMatch results for template.
func (f *Fake) Queue(template string, results ...model.MatchResult) {
	f.queued[template] = append(f.queued[template], results...)
}

// QueueAll scripts the next FindAllMatches results for template.
func (f *Fake) QueueAll(template string, lists ...[]model.Location) {
	f.queuedAll[template] = append(f.queuedAll[template], lists...)
}

// Fail makes every perception call on template return err.
func (f *Fake) Fail(template string, err error) {
	f.errs[template] = err
}

// SetText is what ReadText returns once queued texts run out.
func (f *Fake) SetText(text string) {
	f.text = text
}

// QueueText scripts the next ReadText results, one per call.
func (f *Fake) QueueText(texts ...string) {
	f.texts = append(f.texts, texts...)
}

func (f *Fake) FindMatch(_ context.Context, template string, _ device.MatchOptions) (model.MatchResult, error) {
	f.FindCalls[template]++
	f.Log = append(f.Log, template)
	if err := f.errs[template]; err != nil {
		return model.MatchResult{}, err
	}
	if q := f.queued[template]; len(q) > 0 {
		f.queued[template] = q[1:]
		return q[0], nil
	}
	if loc, ok := f.visible[template]; ok {
		return model.MatchResult{Found: true, Location: loc, Confidence: 0.95}, nil
	}
	return model.MatchResult{}, nil
}

func (f *Fake) FindAllMatches(_ context.Context, template string, _ model.Rect) ([]model.Location, error) {
	f.AllCalls[template]++
	f.Log = append(f.Log, template)
	if err := f.errs[template]; err != nil {
		return nil, err
	}
	if q := f.queuedAll[template]; len(q) > 0 {
		f.queuedAll[template] = q[1:]
		return q[0], nil
	}
	if locs, ok := f.listed[template]; ok {
		return locs, nil
	}
	if loc, ok := f.visible[template]; ok {
		return []model.Location{loc}, nil
	}
	return nil, nil
}

func (f *Fake) ReadText(_ context.Context, region model.Rect) (string, float64, error) {
	f.TextReads = append(f.TextReads, region)
	if len(f.texts) > 0 {
		text := f.texts[0]
		f.texts = f.texts[1:]
		return text, 1, nil
	}
	return f.text, 1, nil
}

func (f *Fake) Tap(_ context.Context, x, y float64) error {
	loc := model.Location{X: x, Y: y}
	f.Taps = append(f.Taps, loc)
	f.Log = append(f.Log, "tap")
	if f.OnTap != nil {
		f.OnTap(loc)
	}
	return nil
}

func (f *Fake) Wait(d time.Duration) {
	f.Waits = append(f.Waits, d)
}

// Found is a convenience for scripting a hit at (x, y).
func Found(x, y float64) model.MatchResult {
	return model.MatchResult{Found: true, Location: model.Location{X: x, Y: y}, Confidence: 0.9}
}

// Miss is a convenience for scripting a miss.
func Miss() model.MatchResult {
	return model.MatchResult{}
}

// Locs builds a location list from x,y pairs.
func Locs(xy ...float64) []model.Location {
	out := make([]model.Location, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, model.Location{X: xy[i], Y: xy[i+1]})
	}
	return out
}
