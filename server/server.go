package server

import (
	"time"

	"smartbin-server/cache"
	"smartbin-server/confs"
	"smartbin-server/db"
	"smartbin-server/handlers"
	httpHandler "smartbin-server/handlers/http"
	"smartbin-server/metrics"
	"smartbin-server/repositories"
	"smartbin-server/services"
	"smartbin-server/usecases"
	"smartbin-server/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	app    *gin.Engine
	db     db.Database
	cfg    *confs.Config
	logger *zap.Logger
}

func NewServer(database db.Database, cfg *confs.Config, logger *zap.Logger) *Server {
	return &Server{
		app:    gin.Default(),
		db:     database,
		cfg:    cfg,
		logger: logger,
	}
}

func (s *Server) Start() {
	// Setup CORS middleware
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	s.app.Use(cors.New(config))

	s.app.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "OK",
		})
	})
	s.app.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Initialize repositories
	dustbinRepo := repositories.NewDustbinPgRepository(s.db)
	readingRepo := repositories.NewReadingPgRepository(s.db)
	logRepo := repositories.NewDeviceLogPgRepository(s.db)

	// Gateway state: explicitly owned here, not ambient singletons, so the
	// whole stack can be instantiated per test.
	nonces := cache.NewNonceCache(s.cfg.NonceCacheSize)
	limiter := services.NewRateLimiter(s.cfg.RateLimit, s.cfg.RateWindow)

	stop := make(chan struct{})
	defer close(stop)
	limiter.StartSweeping(s.cfg.RateWindow, stop)
	s.startGaugeLoop(nonces, limiter, stop)

	// Initialize use cases
	ingestUseCase := usecases.NewIngestUseCase(dustbinRepo, readingRepo, logRepo, nonces, limiter, usecases.IngestConfig{
		FreshnessWindow: s.cfg.FreshnessWindow,
		StoreTimeout:    s.cfg.StoreTimeout,
	}, s.logger)
	dustbinUseCase := usecases.NewDustbinUseCase(dustbinRepo, readingRepo, logRepo)

	// Dashboard live feed
	hub := ws.NewHub()
	wsHandler := handlers.NewWSHandler(hub, s.logger)
	ingestUseCase.SetPublisher(wsHandler)

	// Initialize handlers
	deviceUpdateHandler := httpHandler.NewDeviceUpdateHandler(ingestUseCase, s.logger)
	dustbinHandler := httpHandler.NewDustbinHandler(dustbinUseCase)
	statsHandler := handlers.NewStatsHandler(nonces, limiter, hub)

	// Setup API routes
	api := s.app.Group("/api/v1")
	{
		// The one endpoint field devices call
		api.POST("/device-update", deviceUpdateHandler.HandleDeviceUpdate)

		// Dashboard routes
		dustbins := api.Group("/dustbins")
		{
			dustbins.POST("", dustbinHandler.CreateDustbin)
			dustbins.GET("", dustbinHandler.GetAllDustbins)
			dustbins.GET("/:id", dustbinHandler.GetDustbin)
			dustbins.GET("/:id/readings", dustbinHandler.GetDustbinReadings)
			dustbins.GET("/:id/logs", dustbinHandler.GetDustbinLogs)
			dustbins.PUT("/:id", dustbinHandler.UpdateDustbin)
			dustbins.DELETE("/:id", dustbinHandler.DeleteDustbin)
		}

		// Operator endpoints
		api.GET("/gateway/stats", statsHandler.GetGatewayStats)
	}

	s.app.GET("/ws", wsHandler.HandleDashboardWS)

	s.logger.Info("gateway listening", zap.String("port", s.cfg.Port))
	if err := s.app.Run("0.0.0.0:" + s.cfg.Port); err != nil {
		panic(err)
	}
}

// startGaugeLoop keeps the in-memory state gauges current.
func (s *Server) startGaugeLoop(nonces *cache.NonceCache, limiter *services.RateLimiter, stop <-chan struct{}) {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.NonceCacheSize.Set(float64(nonces.Len()))
				metrics.RateLimiterWindows.Set(float64(limiter.ActiveWindows()))
			case <-stop:
				return
			}
		}
	}()
}
