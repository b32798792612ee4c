// Package directory answers catalog questions for the HTTP API and the
// assistant responder.
package directory

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/oneskyhq/onesky/backend/internal/model/catalog"
	"github.com/oneskyhq/onesky/backend/internal/storage/sqlite"
)

// ErrUnknownUser is returned when an impact lookup misses.
var ErrUnknownUser = errors.New("unknown user")

// Service wraps the catalog store with the lookups the handlers and the
// responder need.
type Service struct {
	store *sqlite.Store
	log   zerolog.Logger
}

// NewService binds the directory to its backing store.
func NewService(store *sqlite.Store, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "directory").Logger(),
	}
}

// SearchEvents returns events matching the filter.
func (s *Service) SearchEvents(ctx context.Context, filter sqlite.EventFilter) ([]catalog.EventRef, error) {
	return s.store.SearchEvents(ctx, filter)
}

// EventsForMessage finds events relevant to a free-text chat message: when
// the message names a known event city, results are narrowed to it.
func (s *Service) EventsForMessage(ctx context.Context, message string) ([]catalog.EventRef, error) {
	filter := sqlite.EventFilter{}

	cities, err := s.store.Cities(ctx)
	if err != nil {
		return nil, err
	}
	lowered := strings.ToLower(message)
	for _, city := range cities {
		if strings.Contains(lowered, strings.ToLower(city)) {
			filter.City = city
			break
		}
	}

	return s.store.SearchEvents(ctx, filter)
}

// Teams lists every team.
func (s *Service) Teams(ctx context.Context) ([]catalog.TeamRef, error) {
	return s.store.ListTeams(ctx)
}

// Badges lists every badge definition.
func (s *Service) Badges(ctx context.Context) ([]catalog.BadgeRef, error) {
	return s.store.ListBadges(ctx)
}

// Leaderboard returns the top volunteers by hours.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]catalog.ImpactStats, error) {
	return s.store.Leaderboard(ctx, limit)
}

// Impact returns one volunteer's stats.
func (s *Service) Impact(ctx context.Context, userID string) (catalog.ImpactStats, error) {
	stats, ok, err := s.store.Impact(ctx, userID)
	if err != nil {
		return catalog.ImpactStats{}, err
	}
	if !ok {
		return catalog.ImpactStats{}, ErrUnknownUser
	}
	return stats, nil
}
