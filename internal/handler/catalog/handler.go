// Package catalog serves the read-side endpoints for events, teams,
// badges and volunteer impact.
package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/oneskyhq/onesky/backend/internal/service/directory"
	"github.com/oneskyhq/onesky/backend/internal/storage/sqlite"
	"github.com/oneskyhq/onesky/backend/pkg/utils"
)

const defaultLeaderboardSize = 10

// Handler exposes the catalog over HTTP.
type Handler struct {
	directory *directory.Service
	log       zerolog.Logger
}

// New creates a catalog handler.
func New(dir *directory.Service, log zerolog.Logger) *Handler {
	return &Handler{
		directory: dir,
		log:       log.With().Str("handler", "catalog").Logger(),
	}
}

// RegisterRoutes registers the catalog routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.handleListEvents)
	r.Get("/teams", h.handleListTeams)
	r.Get("/badges", h.handleListBadges)
	r.Get("/leaderboard", h.handleLeaderboard)
	r.Get("/dashboard/{userID}", h.handleDashboard)
}

// handleListEvents lists events, optionally filtered by keyword, city or date.
func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := sqlite.EventFilter{
		Keyword: q.Get("q"),
		City:    q.Get("city"),
		Date:    q.Get("date"),
	}

	events, err := h.directory.SearchEvents(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("event search failed")
		utils.RespondError(w, http.StatusInternalServerError, "could not list events")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"events": events})
}

// handleListTeams lists every team.
func (h *Handler) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.directory.Teams(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("team listing failed")
		utils.RespondError(w, http.StatusInternalServerError, "could not list teams")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

// handleListBadges lists every badge definition.
func (h *Handler) handleListBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := h.directory.Badges(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("badge listing failed")
		utils.RespondError(w, http.StatusInternalServerError, "could not list badges")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"badges": badges})
}

// handleLeaderboard returns the top volunteers by hours. The limit query
// parameter caps the list; invalid values fall back to the default.
func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	board, err := h.directory.Leaderboard(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("leaderboard query failed")
		utils.RespondError(w, http.StatusInternalServerError, "could not load leaderboard")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"leaderboard": board})
}

// handleDashboard returns one volunteer's impact stats.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	stats, err := h.directory.Impact(r.Context(), userID)
	if err != nil {
		if errors.Is(err, directory.ErrUnknownUser) {
			utils.RespondError(w, http.StatusNotFound, "user not found")
			return
		}
		h.log.Error().Err(err).Msg("impact lookup failed")
		utils.RespondError(w, http.StatusInternalServerError, "could not load dashboard")
		return
	}

	utils.RespondJSON(w, http.StatusOK, stats)
}
