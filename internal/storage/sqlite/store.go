// Package sqlite persists the volunteer-platform catalog the assistant draws
// its attachments from.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // pure Go driver

	"github.com/oneskyhq/onesky/backend/internal/model/catalog"
)

// Store wraps the catalog database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog database at path. ":memory:"
// yields a throwaway in-memory database for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows a single writer; one connection keeps the driver honest.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			about TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL,
			start_time TEXT NOT NULL DEFAULT '',
			end_time TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			capacity INTEGER NOT NULL DEFAULT 0,
			cause TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS teams (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			member_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS badges (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			criteria TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS impact (
			user_id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			hours REAL NOT NULL DEFAULT 0,
			events_completed INTEGER NOT NULL DEFAULT 0,
			badges_earned INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_city ON events(city)`,
		`CREATE INDEX IF NOT EXISTS idx_events_date ON events(date)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SeedIfEmpty loads the default catalog when no events exist yet.
func (s *Store) SeedIfEmpty(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return fmt.Errorf("count events: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	for _, e := range catalog.SeedEvents() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (id, title, about, date, start_time, end_time, city, address, capacity, cause, tags)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Title, e.About, e.Date, e.StartTime, e.EndTime, e.City, e.Address, e.Capacity, e.Cause, e.Tags); err != nil {
			return fmt.Errorf("seed event %s: %w", e.ID, err)
		}
	}
	for _, team := range catalog.SeedTeams() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO teams (id, name, description, member_count) VALUES (?, ?, ?, ?)`,
			team.ID, team.Name, team.Description, team.MemberCount); err != nil {
			return fmt.Errorf("seed team %s: %w", team.ID, err)
		}
	}
	for _, b := range catalog.SeedBadges() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO badges (id, name, description, criteria) VALUES (?, ?, ?, ?)`,
			b.ID, b.Name, b.Description, b.Criteria); err != nil {
			return fmt.Errorf("seed badge %s: %w", b.ID, err)
		}
	}
	for _, stats := range catalog.SeedImpact() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO impact (user_id, display_name, hours, events_completed, badges_earned)
			 VALUES (?, ?, ?, ?, ?)`,
			stats.UserID, stats.DisplayName, stats.HoursVolunteered, stats.EventsCompleted, stats.BadgesEarned); err != nil {
			return fmt.Errorf("seed impact %s: %w", stats.UserID, err)
		}
	}

	return tx.Commit()
}

// EventFilter narrows SearchEvents. Zero values mean "any".
type EventFilter struct {
	Keyword string
	City    string
	Date    string
}

// SearchEvents returns events matching the filter, soonest first.
func (s *Store) SearchEvents(ctx context.Context, filter EventFilter) ([]catalog.EventRef, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, title, about, date, start_time, end_time, city, address, capacity, cause, tags FROM events`)

	var clauses []string
	var args []any
	if filter.Keyword != "" {
		clauses = append(clauses, `(title LIKE ? OR about LIKE ? OR cause LIKE ? OR tags LIKE ?)`)
		pattern := "%" + filter.Keyword + "%"
		args = append(args, pattern, pattern, pattern, pattern)
	}
	if filter.City != "" {
		clauses = append(clauses, `city = ? COLLATE NOCASE`)
		args = append(args, filter.City)
	}
	if filter.Date != "" {
		clauses = append(clauses, `date = ?`)
		args = append(args, filter.Date)
	}
	if len(clauses) > 0 {
		query.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}
	query.WriteString(" ORDER BY date ASC, start_time ASC")

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	defer rows.Close()

	var events []catalog.EventRef
	for rows.Next() {
		var e catalog.EventRef
		if err := rows.Scan(&e.ID, &e.Title, &e.About, &e.Date, &e.StartTime, &e.EndTime,
			&e.City, &e.Address, &e.Capacity, &e.Cause, &e.Tags); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListTeams returns every team, alphabetically.
func (s *Store) ListTeams(ctx context.Context) ([]catalog.TeamRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, member_count FROM teams ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var teams []catalog.TeamRef
	for rows.Next() {
		var team catalog.TeamRef
		if err := rows.Scan(&team.ID, &team.Name, &team.Description, &team.MemberCount); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// ListBadges returns every badge definition.
func (s *Store) ListBadges(ctx context.Context) ([]catalog.BadgeRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, criteria FROM badges ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()

	var badges []catalog.BadgeRef
	for rows.Next() {
		var b catalog.BadgeRef
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.Criteria); err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

// Leaderboard returns impact rows ranked by hours volunteered.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]catalog.ImpactStats, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, display_name, hours, events_completed, badges_earned
		 FROM impact ORDER BY hours DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var stats []catalog.ImpactStats
	for rows.Next() {
		var row catalog.ImpactStats
		if err := rows.Scan(&row.UserID, &row.DisplayName, &row.HoursVolunteered,
			&row.EventsCompleted, &row.BadgesEarned); err != nil {
			return nil, fmt.Errorf("scan impact: %w", err)
		}
		stats = append(stats, row)
	}
	return stats, rows.Err()
}

// Impact returns one volunteer's stats.
func (s *Store) Impact(ctx context.Context, userID string) (catalog.ImpactStats, bool, error) {
	var row catalog.ImpactStats
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, display_name, hours, events_completed, badges_earned
		 FROM impact WHERE user_id = ?`, userID).
		Scan(&row.UserID, &row.DisplayName, &row.HoursVolunteered,
			&row.EventsCompleted, &row.BadgesEarned)
	if err == sql.ErrNoRows {
		return catalog.ImpactStats{}, false, nil
	}
	if err != nil {
		return catalog.ImpactStats{}, false, fmt.Errorf("impact for %s: %w", userID, err)
	}
	return row, true, nil
}

// Cities returns the distinct event cities, used for location matching.
func (s *Store) Cities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT city FROM events WHERE city != '' ORDER BY city ASC`)
	if err != nil {
		return nil, fmt.Errorf("cities: %w", err)
	}
	defer rows.Close()

	var cities []string
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return nil, fmt.Errorf("scan city: %w", err)
		}
		cities = append(cities, city)
	}
	return cities, rows.Err()
}
