// Package racing scores races, decides whether to race now or wait for a
// planned race, and runs the race screens.
package racing

import (
	"math"

	"github.com/nstehr/trackside/trackside-core/model"
)

// maxFans is the fan count that maps to a full fan score.
const maxFans = 30000.0

var gradeScores = map[model.Grade]float64{
	model.GradeG1: 75,
	model.GradeG2: 50,
	model.GradeG3: 25,
}

// ScoredRace is a race with its quality score and the factors behind it.
// Score is always within [0, 100].
type ScoredRace struct {
	Race          model.Race
	Score         float64
	FansScore     float64
	GradeScore    float64
	AptitudeBonus float64
}

// Scorer rates races for a trainee.
type Scorer struct {
	Aptitudes model.Aptitudes
}

// Score averages three factors: fans normalised to 0-100, a grade weight,
// and a 100-point bonus when both terrain and distance aptitudes are B or
// better. Each factor is monotonic in its input.
func (s Scorer) Score(race model.Race) ScoredRace {
	fans := clamp(float64(race.Fans)/maxFans*100, 0, 100)
	grade := gradeScores[race.Grade]

	apt := 0.0
	if s.Aptitudes.ForTerrain(race.Terrain) >= model.AptitudeB &&
		s.Aptitudes.ForDistance(race.Distance) >= model.AptitudeB {
		apt = 100
	}

	return ScoredRace{
		Race:          race,
		Score:         (fans + grade + apt) / 3,
		FansScore:     fans,
		GradeScore:    grade,
		AptitudeBonus: apt,
	}
}

func clamp(v, min, max float64) float64 {
	return math.Max(min, math.Min(max, v))
}
