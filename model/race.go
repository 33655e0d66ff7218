package model

import (
	"fmt"
	"strings"
)

// Grade is a race's class. Only G1-G3 contribute to the quality score.
type Grade string

const (
	GradeG1     Grade = "G1"
	GradeG2     Grade = "G2"
	GradeG3     Grade = "G3"
	GradeOP     Grade = "OP"
	GradePreOP  Grade = "PRE_OP"
	GradeDebut  Grade = "DEBUT"
	GradeMaiden Grade = "MAIDEN"
)

// ParseGrade normalises the scraper's spelling ("Pre-Op") to ours.
func ParseGrade(s string) (Grade, error) {
	g := strings.ToUpper(strings.TrimSpace(s))
	g = strings.ReplaceAll(g, "-", "_")
	switch Grade(g) {
	case GradeG1, GradeG2, GradeG3, GradeOP, GradePreOP, GradeDebut, GradeMaiden:
		return Grade(g), nil
	}
	return "", fmt.Errorf("unknown grade %q", s)
}

// Race is one entry of the static race catalog.
type Race struct {
	Name       string   `json:"name"`
	Date       string   `json:"date"`
	Grade      Grade    `json:"grade"`
	Terrain    Terrain  `json:"terrain"`
	Distance   Distance `json:"distanceType"`
	Fans       int      `json:"fans"`
	TurnNumber int      `json:"turnNumber"`
}

// PlannedRace is one user-authored racing plan entry, ordered by Priority.
type PlannedRace struct {
	RaceName   string `json:"raceName"   yaml:"raceName"`
	Date       string `json:"date"       yaml:"date"`
	Priority   int    `json:"priority"   yaml:"priority"`
	TurnNumber int    `json:"turnNumber" yaml:"turnNumber"`
}

// RaceCandidate is a catalog race paired with the live double-circle
// prediction count read off the screen. The count is never carried over
// from a previous tick.
type RaceCandidate struct {
	Race
	DoublePredictions int
}
