package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/snapvid/snapvid/internal/auth"
	"github.com/snapvid/snapvid/internal/database"
	"github.com/snapvid/snapvid/internal/ratelimit"
	"github.com/snapvid/snapvid/internal/video"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	DB            database.DBTX
	Pinger        Pinger
	Storage       video.ObjectStorage
	Stream        video.StreamService
	Transcripts   video.TranscriptSource
	Limiter       ratelimit.Gate
	GeoResolver   video.GeoResolver
	SessionSecret string
	BaseURL       string
	EmbedBaseURL  string
}

type Server struct {
	router       chi.Router
	pinger       Pinger
	verifier     *auth.Verifier
	videoHandler *video.Handler
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(slogMiddleware)
	r.Use(securityHeaders(cfg.BaseURL))

	s := &Server{router: r, pinger: cfg.Pinger}

	if cfg.DB != nil {
		s.verifier = auth.NewVerifier(cfg.SessionSecret)
		s.videoHandler = video.NewHandler(cfg.DB, cfg.Storage, cfg.Stream, cfg.Transcripts, cfg.Limiter, cfg.EmbedBaseURL)
		if cfg.GeoResolver != nil {
			s.videoHandler.SetGeoResolver(cfg.GeoResolver)
		}
	}

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)

	if s.videoHandler == nil {
		return
	}

	s.router.Route("/api/videos", func(r chi.Router) {
		// Listing and detail work with or without a session; a session
		// unlocks the viewer's own private videos.
		r.Group(func(r chi.Router) {
			r.Use(s.verifier.Optional)
			r.Get("/", s.videoHandler.List)
			r.Get("/{id}", s.videoHandler.GetByID)
		})

		r.Get("/{id}/transcript", s.videoHandler.Transcript)
		r.Post("/{id}/views", s.videoHandler.IncrementViews)
		r.Post("/{id}/likes", s.videoHandler.IncrementLikes)

		r.Group(func(r chi.Router) {
			r.Use(s.verifier.Middleware)
			r.Post("/upload-url", s.videoHandler.UploadURL)
			r.Post("/thumbnail-upload-url", s.videoHandler.ThumbnailUploadURL)
			r.Post("/", s.videoHandler.Save)
			r.Get("/{id}/status", s.videoHandler.Status)
			r.Patch("/{id}/visibility", s.videoHandler.UpdateVisibility)
			r.Delete("/{id}", s.videoHandler.Delete)
		})
	})

	s.router.With(s.verifier.Optional).Get("/api/users/{id}/videos", s.videoHandler.ListByUser)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","error":"database unreachable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
