package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "quoteportal/api/swagger" // swagger docs
	"quoteportal/internal/config"
	"quoteportal/internal/database"
	"quoteportal/internal/handler"
	"quoteportal/internal/logger"
	"quoteportal/internal/metrics"
	"quoteportal/internal/middleware"
	"quoteportal/internal/model"
	"quoteportal/internal/notify"
	"quoteportal/internal/repository"
	"quoteportal/internal/service"
	"quoteportal/internal/websocket"
	"quoteportal/pkg/txid"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Quote Portal API
// @version         1.0
// @description     Purchase requisition submission and two-stage approval.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logr, err := logger.New(cfg.IsRelease(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("Logger setup failed: %v", err)
	}
	defer func() { _ = logr.Sync() }()

	loc, _ := cfg.Location()

	db, err := database.NewConnection(cfg.DSN(), logr)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	logr.Info("connected to PostgreSQL")

	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up WebSocket Hub; it closes its connections once ctx is cancelled
	wsHub := websocket.NewHub(service.EventAudience, logr.Named("ws"))
	go wsHub.Run(ctx)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	requisitionRepo := repository.NewRequisitionRepository(db)
	templateRepo := repository.NewEmailTemplateRepository(db)

	templateService := service.NewEmailTemplateService(templateRepo, auditRepo, txManager)

	var publisher notify.Publisher = notify.LogPublisher{Log: logr.Named("notify")}
	if cfg.AMQPURL != "" {
		amqpPub, err := notify.DialAMQP(cfg.AMQPURL, cfg.NotifyQueue)
		if err != nil {
			logr.Fatal("message broker connection failed", zap.Error(err))
		}
		defer func() { _ = amqpPub.Close() }()
		publisher = amqpPub
		logr.Info("publishing notifications to broker", zap.String("queue", cfg.NotifyQueue))
	}
	dispatcher := notify.NewDispatcher(templateService, publisher, logr.Named("notify"), cfg.NotifyBuffer)
	dispatcher.Start()

	userService := service.NewUserService(userRepo, auditRepo, txManager, dispatcher)
	auditService := service.NewAuditService(auditRepo, loc)
	requisitionService := service.NewRequisitionService(service.RequisitionDeps{
		Requisitions: requisitionRepo,
		Audit:        auditRepo,
		TxManager:    txManager,
		Availability: service.NewDirectoryAvailability(userRepo),
		Notifier:     dispatcher,
		Events:       wsHub,
		IDs:          txid.NewGenerator(nil, nil),
		Metrics:      m,
		Logger:       logr.Named("requisitions"),
	})
	reportService := service.NewReportService(requisitionService, auditRepo, m, logr.Named("reports"), loc, nil)

	// Initialize Handlers
	requisitionHandler := handler.NewRequisitionHandler(requisitionService)
	reportHandler := handler.NewReportHandler(reportService)
	userHandler := handler.NewUserHandler(userService)
	templateHandler := handler.NewEmailTemplateHandler(templateService)
	auditHandler := handler.NewAuditHandler(auditService)

	if cfg.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logger.Middleware(logr.Named("http")), m.Middleware())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	router.GET("/metrics", m.Handler())

	// WebSocket endpoint
	secret := []byte(cfg.JWTSecret)
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, func(token string) (model.Principal, error) {
			return middleware.ParseToken(secret, token)
		})
	})

	// API Routing
	api := router.Group("", middleware.Authenticate(secret))
	requisitionHandler.RegisterRoutes(api)
	reportHandler.RegisterRoutes(api)
	userHandler.RegisterRoutes(api)
	templateHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	dispatcher.Close()
}
