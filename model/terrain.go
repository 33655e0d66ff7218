package model

import (
	"fmt"
	"strings"
)

// Terrain is the track surface a race is run on.
type Terrain string

const (
	Turf Terrain = "Turf"
	Dirt Terrain = "Dirt"
)

// Distance is the distance category of a race.
type Distance string

const (
	Sprint Distance = "Sprint"
	Mile   Distance = "Mile"
	Medium Distance = "Medium"
	Long   Distance = "Long"
)

// ParseTerrain accepts any casing.
func ParseTerrain(s string) (Terrain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "turf":
		return Turf, nil
	case "dirt":
		return Dirt, nil
	}
	return "", fmt.Errorf("unknown terrain %q", s)
}

// ParseDistance accepts any casing. The race data scraper calls sprints
// "Short", so that spelling is accepted too.
func ParseDistance(s string) (Distance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sprint", "short":
		return Sprint, nil
	case "mile":
		return Mile, nil
	case "medium":
		return Medium, nil
	case "long":
		return Long, nil
	}
	return "", fmt.Errorf("unknown distance %q", s)
}

// Aptitude is the trainee's letter grade for a terrain or distance.
// Higher values are better: G < F < ... < A < S.
type Aptitude int

const (
	AptitudeG Aptitude = iota
	AptitudeF
	AptitudeE
	AptitudeD
	AptitudeC
	AptitudeB
	AptitudeA
	AptitudeS
)

var aptitudeLetters = []string{"G", "F", "E", "D", "C", "B", "A", "S"}

func (a Aptitude) String() string {
	if a < AptitudeG || a > AptitudeS {
		return "?"
	}
	return aptitudeLetters[a]
}

// ParseAptitude converts a single letter into an Aptitude.
func ParseAptitude(s string) (Aptitude, error) {
	letter := strings.ToUpper(strings.TrimSpace(s))
	for i, l := range aptitudeLetters {
		if l == letter {
			return Aptitude(i), nil
		}
	}
	return AptitudeG, fmt.Errorf("unknown aptitude %q", s)
}

// Aptitudes holds the trainee's terrain and distance aptitudes.
// Missing entries count as G.
type Aptitudes struct {
	Terrain  map[Terrain]Aptitude
	Distance map[Distance]Aptitude
}

func (a Aptitudes) ForTerrain(t Terrain) Aptitude {
	return a.Terrain[t]
}

func (a Aptitudes) ForDistance(d Distance) Aptitude {
	return a.Distance[d]
}
