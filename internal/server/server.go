package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prompthub/apiserver/config"
	"github.com/prompthub/apiserver/internal/db"
	"github.com/prompthub/apiserver/internal/handlers"
	"github.com/prompthub/apiserver/internal/images"
	"github.com/prompthub/apiserver/internal/services"
	"github.com/prompthub/apiserver/internal/storage"
	"github.com/prompthub/apiserver/internal/store"
)

const rateLimitWindow = 15 * time.Minute

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
}

// New opens the database and storage backend, wires repositories,
// services, and handlers, and returns a ready-to-start server.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	objectStore, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if err := objectStore.Init(ctx); err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	promptRepo := store.NewPromptRepository(dbConn)
	categoryRepo := store.NewCategoryRepository(dbConn)
	favoriteRepo := store.NewFavoriteRepository(dbConn)

	processor := images.NewProcessor(objectStore, cfg.Upload)

	userService := services.NewUserService(userRepo)
	categoryService := services.NewCategoryService(categoryRepo)
	promptService := services.NewPromptService(promptRepo, categoryRepo, favoriteRepo, processor)

	authMiddleware := handlers.RequireAuth(cfg.JWTSecret)
	fileHandler := handlers.NewFileHandler(objectStore)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", handlers.Healthz(cfg.Env))
	router.Get("/uploads/{name}", fileHandler.ServeUpload)
	router.Get("/thumbnails/{name}", fileHandler.ServeThumbnail)

	router.Route("/api", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitMax, rateLimitWindow))
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, userService, cfg.JWTSecret)
		})
		r.Route("/prompts", func(r chi.Router) {
			handlers.PromptRouter(r, promptService, processor, authMiddleware)
		})
		r.Route("/categories", func(r chi.Router) {
			handlers.CategoryRouter(r, categoryService, userService, authMiddleware)
		})
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Shutdown(ctx)
}
