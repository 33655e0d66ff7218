package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nstehr/trackside/trackside-core/campaign"
)

// EventKind identifies a run event worth surfacing to the user.
type EventKind string

const (
	EventRunStarted        EventKind = "run_started"
	EventRunStopped        EventKind = "run_stopped"
	EventTutorialDismissed EventKind = "tutorial_dismissed"
	EventTutorialExhausted EventKind = "tutorial_exhausted"
	EventFirstTeamRace     EventKind = "first_team_race"
	EventFinalsReached     EventKind = "finals_reached"
	EventOpponentOverride  EventKind = "opponent_override"
)

// Event is a notable change in a run. Most are found by diffing the
// campaign state before and after a tick.
type Event struct {
	Kind   EventKind `json:"kind"`
	RunID  string    `json:"runId"`
	Tick   int       `json:"tick"`
	Detail string    `json:"detail"`
	At     time.Time `json:"at"`
}

// EventSink receives run events. Delivery is best effort.
type EventSink interface {
	Emit(ctx context.Context, e Event) error
}

// LogSink writes events to a logger. Used when no device is listening.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Emit(_ context.Context, e Event) error {
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Info("run event", "kind", string(e.Kind), "run", e.RunID, "tick", e.Tick, "detail", e.Detail)
	return nil
}

// detectEvents compares the campaign state after a tick against the state
// before it. Returns nil if prev is nil (first tick).
func detectEvents(tick int, cur campaign.State, prev *campaign.State) []Event {
	if prev == nil {
		return nil
	}
	var events []Event
	add := func(kind EventKind, detail string) {
		events = append(events, Event{Kind: kind, Tick: tick, Detail: detail})
	}

	if cur.HasTutorial && prev.Tutorial == campaign.TutorialPending && cur.Tutorial != campaign.TutorialPending {
		switch cur.Tutorial {
		case campaign.TutorialDismissed:
			add(EventTutorialDismissed, "Tutorial detected and dismissed")
		case campaign.TutorialExhausted:
			add(EventTutorialExhausted, "Tutorial not seen, no longer checking")
		}
	}

	if prev.FirstRacePending && !cur.FirstRacePending {
		add(EventFirstTeamRace, "Initial team race handled")
	}

	if !prev.Finals && cur.Finals {
		add(EventFinalsReached, "Final race detected")
	}

	if !prev.Override && cur.Override {
		add(EventOpponentOverride, fmt.Sprintf("No opponent had enough double circles; taking opponent #%d", cur.Opponent+1))
	}

	return events
}
