package racing

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/nstehr/trackside/trackside-core/model"
)

// Action is the scheduler's verdict for the current turn.
type Action int

const (
	Wait Action = iota
	RaceNow
)

func (a Action) String() string {
	if a == RaceNow {
		return "race_now"
	}
	return "wait"
}

// Config holds the opportunity-cost knobs. Scores are on the 0-100 scale.
type Config struct {
	LookAheadDays           int
	MinimumQualityThreshold float64
	TimeDecayFactor         float64
	ImprovementThreshold    float64
}

// Upcoming is a planned race inside the lookahead window.
type Upcoming struct {
	ScoredRace
	DaysAhead int
}

// Discounted is the score decayed exponentially by the days of delay.
func (u Upcoming) Discounted(decay float64) float64 {
	return u.Score * math.Pow(decay, float64(u.DaysAhead))
}

// Decision is the result of one evaluation. Exactly one Action is set;
// Race is non-nil only for RaceNow.
type Decision struct {
	Action Action
	Race   *ScoredRace
	// Score is the current race's score, zero when nothing is on offer today.
	Score float64
	// DiscountedFutureScore is the best discounted upcoming score, nil when
	// the window is empty.
	DiscountedFutureScore *float64
	BestFuture            *Upcoming
	// NextRaceTurn is the turn of the best upcoming race when waiting for it.
	NextRaceTurn int
	Reason       string
}

// Idle reports a Wait with nothing to wait for.
func (d Decision) Idle() bool {
	return d.Action == Wait && d.BestFuture == nil && d.Race == nil
}

// Evaluate is the opportunity-cost rule:
//
//  1. no race today: wait (for the best upcoming one, or idle)
//  2. today's score below the quality threshold with an upcoming race: wait
//  3. best discounted upcoming score beats today's by the improvement threshold: wait
//  4. otherwise race now
func Evaluate(cfg Config, current *ScoredRace, upcoming []Upcoming) Decision {
	var d Decision

	for i := range upcoming {
		u := upcoming[i]
		disc := u.Discounted(cfg.TimeDecayFactor)
		if d.DiscountedFutureScore == nil || disc > *d.DiscountedFutureScore {
			d.DiscountedFutureScore = &disc
			d.BestFuture = &u
		}
	}
	if d.BestFuture != nil {
		d.NextRaceTurn = d.BestFuture.Race.TurnNumber
	}

	if current == nil {
		d.Action = Wait
		if d.BestFuture != nil {
			d.Reason = fmt.Sprintf("no planned race this turn; best upcoming is %q on turn %d", d.BestFuture.Race.Name, d.NextRaceTurn)
		} else {
			d.Reason = "no planned race this turn or in the lookahead window"
		}
		return d
	}

	d.Score = current.Score
	if current.Score < cfg.MinimumQualityThreshold && d.BestFuture != nil {
		d.Action = Wait
		d.Reason = fmt.Sprintf("current race quality too low (%.2f < %.2f)", current.Score, cfg.MinimumQualityThreshold)
		return d
	}

	if d.DiscountedFutureScore != nil {
		improvement := *d.DiscountedFutureScore - current.Score
		if improvement >= cfg.ImprovementThreshold {
			d.Action = Wait
			d.Reason = fmt.Sprintf("worth waiting for %q (+%.2f points >= %.2f)", d.BestFuture.Race.Name, improvement, cfg.ImprovementThreshold)
			return d
		}
	}

	d.Action = RaceNow
	d.Race = current
	d.NextRaceTurn = 0
	if current.Score < cfg.MinimumQualityThreshold {
		d.Reason = fmt.Sprintf("current race %q is below quality (%.2f < %.2f) but nothing is planned after it", current.Race.Name, current.Score, cfg.MinimumQualityThreshold)
	} else {
		d.Reason = fmt.Sprintf("current race %q is good enough (%.2f >= %.2f)", current.Race.Name, current.Score, cfg.MinimumQualityThreshold)
	}
	return d
}

// Scheduler evaluates a racing plan against the race catalog.
type Scheduler struct {
	cfg    Config
	scorer Scorer
	filter *Filter
	log    *slog.Logger
}

func NewScheduler(cfg Config, scorer Scorer, filter *Filter, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{cfg: cfg, scorer: scorer, filter: filter, log: log}
}

// Decide scores the planned races at currentTurn and inside
// (currentTurn, currentTurn+LookAheadDays] and applies Evaluate. Entries the
// catalog does not know or the filter rejects are skipped. Among several
// races on the current turn the best score wins, earlier priority breaking ties.
func (s *Scheduler) Decide(plan []model.PlannedRace, catalog map[string]model.Race, currentTurn int) (Decision, error) {
	ordered := make([]model.PlannedRace, len(plan))
	copy(ordered, plan)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })

	var current *ScoredRace
	var upcoming []Upcoming
	for _, p := range ordered {
		days := p.TurnNumber - currentTurn
		if days < 0 || days > s.cfg.LookAheadDays {
			continue
		}
		race, ok := catalog[p.RaceName]
		if !ok {
			s.log.Warn("planned race not in catalog", "race", p.RaceName, "turn", p.TurnNumber)
			continue
		}
		// The plan's turn wins over the catalog's so a user can pin a
		// race that runs in several years.
		race.TurnNumber = p.TurnNumber
		pass, err := s.filter.Match(race)
		if err != nil {
			return Decision{}, err
		}
		if !pass {
			s.log.Debug("planned race filtered out", "race", race.Name, "filter", s.filter.String())
			continue
		}

		scored := s.scorer.Score(race)
		if days == 0 {
			if current == nil || scored.Score > current.Score {
				current = &scored
			}
			continue
		}
		upcoming = append(upcoming, Upcoming{ScoredRace: scored, DaysAhead: days})
	}

	d := Evaluate(s.cfg, current, upcoming)
	s.log.Info("racing plan evaluated",
		"turn", currentTurn,
		"action", d.Action.String(),
		"score", d.Score,
		"upcoming", len(upcoming),
		"nextRaceTurn", d.NextRaceTurn,
		"reason", d.Reason,
	)
	return d, nil
}
