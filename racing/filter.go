package racing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/nstehr/trackside/trackside-core/model"
)

// Preferences narrow the races the planner is willing to consider.
// Empty fields mean "any".
type Preferences struct {
	MinFans   int
	Terrain   string // "Turf", "Dirt" or "Any"
	Grades    []string
	Distances []string
	// Condition is an optional extra expr condition over RaceEnv, ANDed
	// with the generated ones, e.g. `Turn > 24 || Grade == "G1"`.
	Condition string
}

// RaceEnv is what filter conditions can reference.
type RaceEnv struct {
	Name     string
	Grade    string
	Terrain  string
	Distance string
	Fans     int
	Turn     int
}

func envFor(r model.Race) RaceEnv {
	return RaceEnv{
		Name:     r.Name,
		Grade:    string(r.Grade),
		Terrain:  string(r.Terrain),
		Distance: string(r.Distance),
		Fans:     r.Fans,
		Turn:     r.TurnNumber,
	}
}

// Filter is a compiled race condition.
type Filter struct {
	src     string
	program *vm.Program
}

// CompileFilter turns preferences into a single expr condition and compiles
// it. All generated clauses come from fmt.Sprintf over validated values, so
// only a malformed user Condition can fail compilation.
func CompileFilter(p Preferences) (*Filter, error) {
	var clauses []string
	if p.MinFans > 0 {
		clauses = append(clauses, fmt.Sprintf("Fans >= %d", p.MinFans))
	}
	if t := strings.TrimSpace(p.Terrain); t != "" && !strings.EqualFold(t, "any") {
		terrain, err := model.ParseTerrain(t)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, fmt.Sprintf("Terrain == %s", strconv.Quote(string(terrain))))
	}
	if len(p.Grades) > 0 {
		grades := make([]string, 0, len(p.Grades))
		for _, g := range p.Grades {
			grade, err := model.ParseGrade(g)
			if err != nil {
				return nil, err
			}
			grades = append(grades, string(grade))
		}
		clauses = append(clauses, "Grade in "+quotedList(grades))
	}
	if len(p.Distances) > 0 {
		distances := make([]string, 0, len(p.Distances))
		for _, d := range p.Distances {
			dist, err := model.ParseDistance(d)
			if err != nil {
				return nil, err
			}
			distances = append(distances, string(dist))
		}
		clauses = append(clauses, "Distance in "+quotedList(distances))
	}
	if c := strings.TrimSpace(p.Condition); c != "" {
		clauses = append(clauses, "("+c+")")
	}

	src := "true"
	if len(clauses) > 0 {
		src = strings.Join(clauses, " && ")
	}
	prog, err := expr.Compile(src, expr.Env(RaceEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile race filter %q: %w", src, err)
	}
	return &Filter{src: src, program: prog}, nil
}

// Match reports whether race passes the filter. A nil Filter matches everything.
func (f *Filter) Match(race model.Race) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, err := vm.Run(f.program, envFor(race))
	if err != nil {
		return false, fmt.Errorf("evaluate race filter for %q: %w", race.Name, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

// String returns the condition source.
func (f *Filter) String() string {
	if f == nil {
		return "true"
	}
	return f.src
}

func quotedList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = strconv.Quote(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
