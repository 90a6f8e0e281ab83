package web

import (
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/presence-station/internal/web/handlers"
)

// requestTimeout bounds every request except the event stream.
const requestTimeout = 2 * time.Minute

func (s *Server) setupRoutes() {
	sessionsHandler := handlers.NewSessionsHandler(s.deps.Station, s.logger)
	presenceHandler := handlers.NewPresenceHandler(s.deps.Registry, s.deps.Log)
	identitiesHandler := handlers.NewIdentitiesHandler(s.deps.Gallery, s.deps.Events, s.logger)
	climateHandler := handlers.NewClimateHandler(s.deps.Climate)
	commandsHandler := handlers.NewCommandsHandler(s.deps.Commands)
	eventsHandler := handlers.NewEventsHandler(s.deps.Events)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/events", eventsHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(requestTimeout))

			r.Get("/health", handlers.HealthCheck)

			// Capture sessions
			r.Get("/sessions", sessionsHandler.List)
			r.Post("/sessions", sessionsHandler.Open)
			r.Post("/sessions/{id}/frames", sessionsHandler.SubmitFrame)
			r.Get("/sessions/{id}/frame", sessionsHandler.Captured)
			r.Post("/sessions/{id}/retake", sessionsHandler.Retake)
			r.Post("/sessions/{id}/confirm", sessionsHandler.Confirm)
			r.Delete("/sessions/{id}", sessionsHandler.Close)
			r.Post("/snapshot", sessionsHandler.Snapshot)

			// Attendance
			r.Get("/presence", presenceHandler.Presence)
			r.Get("/attendance", presenceHandler.Attendance)

			// Gallery
			r.Get("/identities", identitiesHandler.List)
			r.Post("/identities", identitiesHandler.Register)
			r.Post("/identities/reload", identitiesHandler.Reload)

			// Environment
			r.Get("/climate", climateHandler.Get)
			r.Post("/climate/{actuator}/toggle", climateHandler.Toggle)

			r.Post("/commands", commandsHandler.Handle)
		})
	})
}
