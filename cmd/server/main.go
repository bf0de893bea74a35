package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/pharmatrust/drugtrace/internal/config"
	"github.com/pharmatrust/drugtrace/internal/handlers"
	"github.com/pharmatrust/drugtrace/internal/ledger"
	"github.com/pharmatrust/drugtrace/internal/middleware"
	"github.com/pharmatrust/drugtrace/internal/models"
	"github.com/pharmatrust/drugtrace/internal/repository"
	"github.com/pharmatrust/drugtrace/internal/services/audit"
	"github.com/pharmatrust/drugtrace/internal/services/documents"
	"github.com/pharmatrust/drugtrace/internal/services/verification"
	"github.com/pharmatrust/drugtrace/pkg/composition"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := repository.NewStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer store.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.Migrate(migrateCtx); err != nil {
		cancelMigrate()
		log.Fatalf("Failed to migrate schema: %v", err)
	}
	cancelMigrate()

	userRepo := repository.NewUserRepository(store.DB())
	batchRepo := repository.NewBatchRepository(store.DB())
	refRepo := repository.NewReferenceRepository(store.DB())

	ledgerClient := ledger.NewHTTPClient(cfg.LedgerURL, cfg.LedgerTimeout)

	validator := composition.NewValidator(cfg.MatchThreshold, cfg.RequireFullStandard)
	engine := verification.NewEngine(ledgerClient, batchRepo,
		verification.WithConcurrency(cfg.VerifyConcurrency))
	aggregator := audit.NewAggregator(engine, batchRepo, userRepo,
		audit.WithConcurrency(cfg.VerifyConcurrency))

	docService, err := documents.NewService(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize document storage: %v", err)
	}
	bucketCtx, cancelBucket := context.WithTimeout(context.Background(), 10*time.Second)
	if err := docService.EnsureBucket(bucketCtx); err != nil {
		log.Printf("Warning: could not ensure certificate bucket: %v", err)
	}
	cancelBucket()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse redis URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	limiter := middleware.NewRateLimiter(rdb, cfg.RateLimitRPM, time.Minute)

	router := setupRouter(cfg, limiter, userRepo, batchRepo, refRepo, ledgerClient, validator, engine, aggregator, docService)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func setupRouter(
	cfg *config.Config,
	limiter *middleware.RateLimiter,
	userRepo *repository.UserRepository,
	batchRepo *repository.BatchRepository,
	refRepo *repository.ReferenceRepository,
	ledgerClient ledger.Client,
	validator *composition.Validator,
	engine *verification.Engine,
	aggregator *audit.Aggregator,
	docService *documents.Service,
) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.RateLimit(limiter))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(userRepo, cfg)
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)
		api.GET("/auth/users", authHandler.ListUsers)
		api.GET("/auth/users/:wallet", authHandler.GetUser)

		drugHandler := handlers.NewDrugHandler(userRepo, batchRepo, refRepo, ledgerClient, validator)
		api.POST("/drugs/validate-composition", drugHandler.ValidateComposition)
		api.POST("/drugs/register", drugHandler.Register)
		api.POST("/drugs/transfer", drugHandler.Transfer)
		api.GET("/drugs/batch/:id", drugHandler.GetBatch)
		api.PUT("/drugs/reference", drugHandler.UpsertReference)

		verifyHandler := handlers.NewVerificationHandler(engine, ledgerClient)
		api.GET("/verify/history/:id", verifyHandler.History)
		api.GET("/verify/:id", verifyHandler.Verify)
		api.POST("/verify/batch", verifyHandler.BatchVerify)

		docHandler := handlers.NewDocumentHandler(docService, batchRepo)
		api.POST("/drugs/batch/:id/certificate", middleware.Auth(cfg), docHandler.Upload)
		api.GET("/drugs/batch/:id/certificate", docHandler.Download)

		// Regulator-only surface.
		auditHandler := handlers.NewAuditHandler(aggregator)
		auditGroup := api.Group("/audit")
		auditGroup.Use(middleware.Auth(cfg), middleware.RequireRole(models.RoleRegulator))
		{
			auditGroup.GET("/statistics", auditHandler.Statistics)
			auditGroup.GET("/anomalies", auditHandler.Anomalies)
			auditGroup.GET("/expired-drugs", auditHandler.ExpiredDrugs)
			auditGroup.GET("/user-activity/:wallet", auditHandler.UserActivity)
		}
	}

	return router
}
