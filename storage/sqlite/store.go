// Package sqlite stores the race catalog and the user's racing plan in
// SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nstehr/trackside/trackside-core/model"
	"github.com/nstehr/trackside/trackside-core/storage/sqlite/migrations"
)

// Store persists catalog and plan state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// UpsertRaces inserts or replaces catalog entries by name.
func (s *Store) UpsertRaces(ctx context.Context, races []model.Race) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert races: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO races (
		   name, date, grade, terrain, distance_type, fans, turn_number
		 ) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   date = excluded.date,
		   grade = excluded.grade,
		   terrain = excluded.terrain,
		   distance_type = excluded.distance_type,
		   fans = excluded.fans,
		   turn_number = excluded.turn_number`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare upsert races: %w", err)
	}
	defer stmt.Close()

	for _, r := range races {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			_ = tx.Rollback()
			return fmt.Errorf("race name is required")
		}
		if _, err := stmt.ExecContext(ctx, name, r.Date, string(r.Grade), string(r.Terrain), string(r.Distance), r.Fans, r.TurnNumber); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert race %q: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert races: %w", err)
	}
	return nil
}

const raceColumns = `name, date, grade, terrain, distance_type, fans, turn_number`

func scanRace(rows *sql.Rows) (model.Race, error) {
	var (
		r                        model.Race
		grade, terrain, distance string
	)
	if err := rows.Scan(&r.Name, &r.Date, &grade, &terrain, &distance, &r.Fans, &r.TurnNumber); err != nil {
		return model.Race{}, err
	}
	r.Grade = model.Grade(grade)
	r.Terrain = model.Terrain(terrain)
	r.Distance = model.Distance(distance)
	return r, nil
}

// RacesByName returns the catalog entries for names. Unknown names are
// absent from the result.
func (s *Store) RacesByName(ctx context.Context, names []string) (map[string]model.Race, error) {
	out := make(map[string]model.Race, len(names))
	if len(names) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+raceColumns+` FROM races WHERE name IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query races by name: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scanRace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan race: %w", err)
		}
		out[r.Name] = r
	}
	return out, rows.Err()
}

// RacesBetween lists catalog races with turn numbers in [from, to],
// ordered by turn then name.
func (s *Store) RacesBetween(ctx context.Context, from, to int) ([]model.Race, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+raceColumns+` FROM races WHERE turn_number BETWEEN ? AND ? ORDER BY turn_number, name`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("query races between turns: %w", err)
	}
	defer rows.Close()
	var out []model.Race
	for rows.Next() {
		r, err := scanRace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan race: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PlannedRaces returns the racing plan ordered by priority.
func (s *Store) PlannedRaces(ctx context.Context) ([]model.PlannedRace, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT race_name, date, priority, turn_number FROM planned_races ORDER BY priority, race_name`)
	if err != nil {
		return nil, fmt.Errorf("query planned races: %w", err)
	}
	defer rows.Close()
	var out []model.PlannedRace
	for rows.Next() {
		var p model.PlannedRace
		if err := rows.Scan(&p.RaceName, &p.Date, &p.Priority, &p.TurnNumber); err != nil {
			return nil, fmt.Errorf("scan planned race: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SavePlannedRaces replaces the whole racing plan.
func (s *Store) SavePlannedRaces(ctx context.Context, plan []model.PlannedRace) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save plan: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM planned_races`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear plan: %w", err)
	}
	now := time.Now().UTC().UnixMilli()
	for _, p := range plan {
		name := strings.TrimSpace(p.RaceName)
		if name == "" {
			_ = tx.Rollback()
			return fmt.Errorf("planned race name is required")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO planned_races (race_name, date, priority, turn_number, updated_at) VALUES (?, ?, ?, ?, ?)`,
			name, p.Date, p.Priority, p.TurnNumber, now,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("save planned race %q: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save plan: %w", err)
	}
	return nil
}

// DecodeRaces reads a catalog export. Both a JSON array of races and an
// object keyed by race name are accepted. Grades, terrains and distances
// are normalised.
func DecodeRaces(r io.Reader) ([]model.Race, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var races []model.Race
	if err := json.Unmarshal(raw, &races); err != nil {
		var byName map[string]model.Race
		if err2 := json.Unmarshal(raw, &byName); err2 != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
		for name, race := range byName {
			if race.Name == "" {
				race.Name = name
			}
			races = append(races, race)
		}
		sort.Slice(races, func(i, j int) bool {
			if races[i].TurnNumber != races[j].TurnNumber {
				return races[i].TurnNumber < races[j].TurnNumber
			}
			return races[i].Name < races[j].Name
		})
	}

	for i := range races {
		g, err := model.ParseGrade(string(races[i].Grade))
		if err != nil {
			return nil, fmt.Errorf("race %q: %w", races[i].Name, err)
		}
		t, err := model.ParseTerrain(string(races[i].Terrain))
		if err != nil {
			return nil, fmt.Errorf("race %q: %w", races[i].Name, err)
		}
		d, err := model.ParseDistance(string(races[i].Distance))
		if err != nil {
			return nil, fmt.Errorf("race %q: %w", races[i].Name, err)
		}
		races[i].Grade, races[i].Terrain, races[i].Distance = g, t, d
	}
	return races, nil
}
