// Package chatbot exposes the assistant over its two transports: the
// persistent websocket for streaming replies and the plain HTTP endpoint the
// client falls back to.
package chatbot

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/oneskyhq/onesky/backend/internal/service/responder"
	"github.com/oneskyhq/onesky/backend/pkg/utils"
)

// Options tunes per-connection behavior.
type Options struct {
	// MessagesPerMinute bounds how fast one socket may submit. Zero disables
	// the limiter.
	MessagesPerMinute int
	RateBurst         int
}

// Handler serves the chatbot endpoints.
type Handler struct {
	responder *responder.Service
	opts      Options
	log       zerolog.Logger
}

// New creates the chatbot handler.
func New(svc *responder.Service, opts Options, log zerolog.Logger) *Handler {
	if opts.RateBurst <= 0 {
		opts.RateBurst = 5
	}
	return &Handler{
		responder: svc,
		opts:      opts,
		log:       log.With().Str("component", "chatbot").Logger(),
	}
}

// RegisterRoutes mounts the HTTP and websocket endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chatbot/chat", h.handleChat)
	r.Get("/chatbot/ws", h.handleWebSocket)
}

type chatRequest struct {
	Message string `json:"message"`
}

// handleChat is the non-streaming path: one request, one single-shot reply.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "No message provided")
		return
	}

	userID := userFrom(r)
	payload, err := h.responder.Process(r.Context(), userID, req.Message)
	if errors.Is(err, responder.ErrRejected) {
		utils.RespondError(w, http.StatusBadRequest, "Sorry, I can't process that request.")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("chat processing failed")
		utils.RespondError(w, http.StatusInternalServerError, "Sorry, I encountered an error. Please try again.")
		return
	}

	utils.RespondJSON(w, http.StatusOK, payload)
}

// userFrom resolves the caller's identity. Authentication is handled
// upstream; by the time requests reach here the identity is just a header.
func userFrom(r *http.Request) string {
	if user := r.Header.Get("X-User"); user != "" {
		return user
	}
	return r.URL.Query().Get("user")
}

func (h *Handler) newLimiter() *rate.Limiter {
	if h.opts.MessagesPerMinute <= 0 {
		return nil
	}
	perMessage := rate.Limit(float64(h.opts.MessagesPerMinute) / 60.0)
	return rate.NewLimiter(perMessage, h.opts.RateBurst)
}
