package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterOptions struct {
	// AuthMiddleware establishes the caller's subject. Nil leaves routes open,
	// which is only useful in tests that inject a subject themselves.
	AuthMiddleware func(http.Handler) http.Handler
	Logger         *zap.Logger
	CORSOrigins    []string
	MaxBodyBytes   int64
}

// NewRouter constructs the API HTTP router.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(log))
	r.Use(middleware.Recoverer)
	if len(opts.CORSOrigins) > 0 {
		r.Use(corsHandler(opts.CORSOrigins))
	}

	// Infra health check; unauthenticated.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		if opts.AuthMiddleware != nil {
			r.Use(opts.AuthMiddleware)
		}
		r.Use(limitBody(opts.MaxBodyBytes))

		r.Get("/trips", s.ListTrips)
		r.Post("/trips", s.CreateTrip)
		r.Route("/trips/{tripId}", func(r chi.Router) {
			r.Get("/", s.GetTrip)
			r.Patch("/", s.UpdateTrip)
			r.Delete("/", s.DeleteTrip)

			r.Post("/cities", s.AddCity)
			r.Post("/cities/move", s.MoveCity)
			r.Delete("/cities/{cityId}", s.RemoveCity)
			r.Put("/cities/{cityId}/days", s.SetCityDays)

			r.Get("/timeline", s.GetTimeline)
			r.Get("/map", s.GetMap)
			r.Post("/save", s.SaveTrip)
			r.Delete("/session", s.CloseSession)
		})
		r.Get("/cities/search", s.SearchCities)
	})
	return r
}
