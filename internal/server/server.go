package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/morphdetect/morphdetect-api/internal/config"
	"github.com/morphdetect/morphdetect-api/internal/handlers"
)

type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	log        *zap.Logger
}

func New(h *handlers.Handler, cfg *config.Config, log *zap.Logger) *Server {
	router := NewRouter(h)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
			Handler:      corsHandler.Handler(router),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		cfg: cfg,
		log: log,
	}
}

// NewRouter builds the route table.
func NewRouter(h *handlers.Handler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", h.Index).Methods("GET")
	router.HandleFunc("/api/health", h.Health).Methods("GET")
	router.HandleFunc("/api/analyze", h.Analyze).Methods("POST")
	router.HandleFunc("/api/analyze-base64", h.AnalyzeBase64).Methods("POST")
	router.HandleFunc("/api/history", h.History).Methods("GET")
	router.HandleFunc("/api/calibrate", h.Calibrate).Methods("POST")
	router.HandleFunc("/uploads/{filename}", h.ServeUpload).Methods("GET")
	return router
}

func (s *Server) Run() error {
	s.log.Info("starting server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}
