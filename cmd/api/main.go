package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "dealership/api/swagger" // swagger docs
	"dealership/internal/config"
	"dealership/internal/database"
	"dealership/internal/handler"
	"dealership/internal/inventory"
	"dealership/internal/logger"
	"dealership/internal/middleware"
	"dealership/internal/model"
	"dealership/internal/repository"
	"dealership/internal/service"
	"dealership/internal/upstream"
	"dealership/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Dealership Gateway API
// @version         1.0
// @description     Backend-for-frontend of the car dealership: role dashboards, inventory browsing, currency management and an audited proxy to the dealership API.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger.SetLevel(cfg.LogLevel)
	if cfg.LogJSON {
		logger.SetJSON()
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	model.SetLocation(cfg.Location)
	middleware.SetJWTSecret([]byte(cfg.JWTSecret))

	db, err := database.NewConnection(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("Database connection failed")
	}
	logger.Log.Info().Str("driver", cfg.DBDriver).Msg("Connected to database")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(cfg.CORSOrigins...)
	go wsHub.Run(ctx)

	api := upstream.NewClient(upstream.Config{
		BaseURL:           cfg.APIBaseURL,
		Timeout:           cfg.UpstreamTimeout,
		RequestsPerSecond: cfg.UpstreamRPS,
		Burst:             cfg.UpstreamBurst,
		Logger:            logger.Log.With().Str("component", "upstream").Logger(),
	})

	var prefetcher service.ImagePrefetcher
	if cfg.PrefetchEnabled {
		p, err := inventory.NewPrefetcher(inventory.PrefetchConfig{
			BaseURL:           cfg.APIBaseURL,
			RequestsPerSecond: cfg.PrefetchRPS,
			Logger:            logger.Log.With().Str("component", "prefetch").Logger(),
		})
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Invalid prefetch configuration")
		}
		defer p.Close()
		prefetcher = p
	}

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	auditRepo := repository.NewAuditRepository(db)
	snapshotRepo := repository.NewRateSnapshotRepository(db)

	authService := service.NewAuthService(api, cfg.Now)
	dashboardService := service.NewDashboardService(api, cfg.FanoutLimit, cfg.Now)
	inventoryService := service.NewInventoryService(api, prefetcher, cfg.FanoutLimit)
	currencyService := service.NewCurrencyService(api, snapshotRepo, auditRepo, txManager, wsHub)
	proxyService := service.NewProxyService(api, auditRepo, txManager, wsHub)
	auditService := service.NewAuditService(auditRepo)

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(authService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	inventoryHandler := handler.NewInventoryHandler(inventoryService)
	currencyHandler := handler.NewCurrencyHandler(currencyService)
	resourceHandler := handler.NewResourceHandler(proxyService)
	expenseHandler := handler.NewExpenseHandler(proxyService)
	auditHandler := handler.NewAuditHandler(auditService)

	router := gin.New()
	router.Use(logger.GinMiddleware(), gin.Recovery())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c)
	})

	// API Routing
	authHandler.RegisterRoutes(router.Group(""))
	dashboardHandler.RegisterRoutes(router.Group(""))
	inventoryHandler.RegisterRoutes(router.Group(""))
	currencyHandler.RegisterRoutes(router.Group(""))
	resourceHandler.RegisterRoutes(router.Group(""))
	expenseHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Port).Str("upstream", cfg.APIBaseURL).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
