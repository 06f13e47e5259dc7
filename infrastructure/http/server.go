// Package http assembles the gateway's HTTP surface: the public login
// endpoint and the admin-only audit routes.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/doara/doara/infrastructure/http/handler"
	"github.com/doara/doara/infrastructure/http/middleware"
	"github.com/doara/doara/infrastructure/service/logger"
)

type Server struct {
	addr   string
	server *http.Server
	log    logger.Logger
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func NewServer(
	cfg ServerConfig,
	authHandler *handler.AuthHandler,
	auditHandler *handler.AuditHandler,
	authMiddleware *middleware.AuthMiddleware,
	log logger.Logger,
) *Server {
	router := mux.NewRouter()

	router.Use(middleware.CorrelationID)
	router.Use(loggingMiddleware(log))
	router.Use(recoveryMiddleware(log))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)

	auditRoutes := api.PathPrefix("/audit").Subrouter()
	auditRoutes.HandleFunc("/users/{userId}", authMiddleware.RequireAdmin(auditHandler.LogsByUser)).Methods(http.MethodGet)
	auditRoutes.HandleFunc("/actions/{action}", authMiddleware.RequireAdmin(auditHandler.LogsByAction)).Methods(http.MethodGet)
	auditRoutes.HandleFunc("/date-range", authMiddleware.RequireAdmin(auditHandler.LogsByDateRange)).Methods(http.MethodGet)
	auditRoutes.HandleFunc("/recent", authMiddleware.RequireAdmin(auditHandler.Recent)).Methods(http.MethodGet)
	auditRoutes.HandleFunc("/stats", authMiddleware.RequireAdmin(auditHandler.Stats)).Methods(http.MethodGet)

	addr := cfg.Host + ":" + cfg.Port

	return &Server{
		addr: addr,
		log:  log,
		server: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

func (s *Server) Start() error {
	s.log.Info(context.Background(), "Starting HTTP server", map[string]interface{}{
		"addr": s.addr,
	})
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info(ctx, "Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}

func loggingMiddleware(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Info(r.Context(), "Request handled", map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"remote":   r.RemoteAddr,
				"duration": time.Since(start).String(),
			})
		})
	}
}

func recoveryMiddleware(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error(r.Context(), "Panic recovered", nil, map[string]interface{}{
						"panic": rec,
						"path":  r.URL.Path,
					})
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
