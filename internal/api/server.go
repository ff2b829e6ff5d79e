// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jackhunterking/renoassist-forms/internal/common/config"
	"github.com/jackhunterking/renoassist-forms/internal/common/logger"
)

// Server exposes the funnel over HTTP. All domain logic lives in the
// funnel packages; handlers only translate between the wire and those
// packages.
type Server struct {
	config     *config.Config
	logger     logger.Logger
	engine     *gin.Engine
	httpServer *http.Server
	handlers   *Handlers
}

func NewServer(cfg *config.Config, handlers *Handlers, log logger.Logger) *Server {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())

	if cfg.Server.EnableCORS {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Requested-With"}
		corsConfig.AllowCredentials = false
		engine.Use(cors.New(corsConfig))
	}

	server := &Server{
		config:   cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "api"}),
		engine:   engine,
		handlers: handlers,
	}
	server.registerRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
	}
	return server
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handlers.Health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/api/v1")
	{
		v1.POST("/sessions", s.handlers.InitSession)

		funnel := v1.Group("/funnels/:funnelType")
		{
			funnel.GET("/steps", s.handlers.ListSteps)
			funnel.GET("/draft", s.handlers.GetDraft)
			funnel.POST("/enter", s.handlers.Enter)
			funnel.POST("/advance", s.handlers.Advance)
			funnel.POST("/back", s.handlers.Back)
			funnel.POST("/abandon", s.handlers.Abandon)
			funnel.POST("/start-over", s.handlers.StartOver)
			funnel.POST("/submit", s.handlers.Submit)
		}

		v1.GET("/geocode", s.handlers.Geocode)
	}
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", map[string]interface{}{
		"addr": s.httpServer.Addr,
	})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server", nil)
	return s.httpServer.Shutdown(ctx)
}
