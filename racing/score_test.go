package racing

import (
	"testing"

	"github.com/nstehr/trackside/trackside-core/model"
)

func TestScore(t *testing.T) {
	s := Scorer{Aptitudes: goodAptitudes()}
	tests := []struct {
		name string
		race model.Race
		want float64
	}{
		{"g1 full fans matched", model.Race{Grade: model.GradeG1, Fans: 30000, Terrain: model.Turf, Distance: model.Medium}, (100 + 75 + 100) / 3.0},
		{"g2 half fans matched", model.Race{Grade: model.GradeG2, Fans: 15000, Terrain: model.Turf, Distance: model.Mile}, (50 + 50 + 100) / 3.0},
		{"g3 unmatched terrain", model.Race{Grade: model.GradeG3, Fans: 0, Terrain: model.Dirt, Distance: model.Medium}, 25 / 3.0},
		{"op no bonus", model.Race{Grade: model.GradeOP, Fans: 3000, Terrain: model.Turf, Distance: model.Long}, 10 / 3.0},
	}
	for _, tc := range tests {
		got := s.Score(tc.race).Score
		if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("%s: Score = %f, want %f", tc.name, got, tc.want)
		}
	}
}

func TestScoreBounded(t *testing.T) {
	s := Scorer{Aptitudes: goodAptitudes()}
	got := s.Score(model.Race{Grade: model.GradeG1, Fans: 1_000_000, Terrain: model.Turf, Distance: model.Medium})
	if got.Score > 100 {
		t.Errorf("Score = %f, want <= 100", got.Score)
	}
	if got.FansScore != 100 {
		t.Errorf("FansScore = %f, want clamped 100", got.FansScore)
	}
	got = s.Score(model.Race{Fans: -5})
	if got.Score < 0 {
		t.Errorf("Score = %f, want >= 0", got.Score)
	}
}

func TestScoreMonotonicInFans(t *testing.T) {
	s := Scorer{}
	prev := -1.0
	for fans := 0; fans <= 40000; fans += 5000 {
		got := s.Score(model.Race{Grade: model.GradeG2, Fans: fans}).Score
		if got < prev {
			t.Errorf("score dropped from %f to %f at %d fans", prev, got, fans)
		}
		prev = got
	}
}
