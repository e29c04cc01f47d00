package server

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dealdrop/backend/internal/config"
	"github.com/dealdrop/backend/internal/handlers"
	"github.com/dealdrop/backend/internal/middleware"
)

// HealthChecker reports dependency health for /health.
type HealthChecker interface {
	Health() map[string]string
}

type Server struct {
	cfg      *config.Config
	db       HealthChecker
	handler  *handlers.Handler
	gatherer prometheus.Gatherer
	log      *slog.Logger
}

func New(cfg *config.Config, db HealthChecker, handler *handlers.Handler, gatherer prometheus.Gatherer, log *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		db:       db,
		handler:  handler,
		gatherer: gatherer,
		log:      log,
	}
}

// HTTPServer wraps the router in an http.Server listening on the configured address.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	origins := s.cfg.Server.AllowedOrigins
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	gin.SetMode(s.cfg.Server.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(s.log))
	r.Use(cors.New(s.corsConfig()))

	r.GET("/health", func(c *gin.Context) {
		stats := s.db.Health()
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, stats)
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	secret := s.cfg.JWTSecret
	api := r.Group("/api")
	{
		// Public reads; a valid token adds the caller's votes to the response.
		public := api.Group("")
		public.Use(middleware.OptionalAuth(secret))
		{
			public.GET("/categories", s.handler.Category.List)
			public.GET("/categories/:slug/deals", s.handler.Deal.GetCategoryDeals)
			public.GET("/deals", s.handler.Deal.GetDeals)
			public.GET("/deals/:id", s.handler.Deal.GetDeal)
			public.GET("/deals/:id/comments", s.handler.Comment.GetComments)
		}

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(secret))
		{
			protected.POST("/votes", s.handler.Vote.Cast)
			protected.POST("/deals/:id/vote", s.handler.Vote.VoteDeal)
			protected.POST("/comments/:id/vote", s.handler.Vote.VoteComment)

			protected.POST("/deals", s.handler.Deal.CreateDeal)
			protected.PATCH("/deals/:id/status", s.handler.Deal.UpdateDealStatus)
			protected.POST("/deals/:id/comments", s.handler.Comment.CreateComment)
		}
	}

	return r
}
