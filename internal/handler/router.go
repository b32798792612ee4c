package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/oneskyhq/onesky/backend/internal/handler/catalog"
	"github.com/oneskyhq/onesky/backend/internal/handler/chatbot"
	"github.com/oneskyhq/onesky/backend/internal/middleware"
	"github.com/oneskyhq/onesky/backend/internal/service/directory"
	"github.com/oneskyhq/onesky/backend/internal/service/responder"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(dir *directory.Service, resp *responder.Service, chatOpts chatbot.Options, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS)

	catalogHandler := catalog.New(dir, log)
	chatbotHandler := chatbot.New(resp, chatOpts, log)

	r.Route("/api", func(api chi.Router) {
		catalogHandler.RegisterRoutes(api)
		chatbotHandler.RegisterRoutes(api)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
