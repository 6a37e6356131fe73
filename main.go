package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitecraft/storefront-api/config"
	"github.com/bitecraft/storefront-api/controllers"
	"github.com/bitecraft/storefront-api/middleware"
	"github.com/bitecraft/storefront-api/models"
	"github.com/bitecraft/storefront-api/services"
	"github.com/bitecraft/storefront-api/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func main() {
	log.Println("Starting BiteCraft Storefront API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := config.GetDB()
	if cfg.LogLevel == "debug" {
		db = db.Debug()
		config.SetDB(db)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	ctx := context.Background()
	closers, err := initServices(ctx, cfg, db)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Printf("Shutdown: %v", err)
			}
		}
	}()

	if cfg.MenuSeedFile != "" {
		seed, err := services.LoadMenuSeed(cfg.MenuSeedFile)
		if err != nil {
			log.Fatalf("Failed to load menu seed: %v", err)
		}
		if _, err := services.SeedMenu(db, seed); err != nil {
			log.Fatalf("Failed to seed menu: %v", err)
		}
	}

	var reconciler *services.PaymentReconciler
	if cfg.ReconcileSchedule != "" {
		reconciler = services.NewPaymentReconciler(services.GetOrderService(), cfg.ReconcileAfter)
		if err := reconciler.Start(cfg.ReconcileSchedule); err != nil {
			log.Fatalf("Failed to start payment sweep: %v", err)
		}
	}

	router := newRouter(cfg.CORSAllowedOrigins,
		middleware.EnsureValidToken(cfg),
		middleware.RequireRole("admin"),
	)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server is running on http://localhost:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if reconciler != nil {
		reconciler.Stop()
	}
}

// initServices wires the payment gateway, notifier, order service and image storage.
// It returns resources to close on shutdown.
func initServices(ctx context.Context, cfg *config.Config, db *gorm.DB) ([]io.Closer, error) {
	var closers []io.Closer

	gateway := services.InitPaymentGateway(services.NewPaystackService(
		cfg.PaystackSecretKey,
		cfg.PaystackBaseURL,
		cfg.GatewayTimeout,
		cfg.GatewayMaxAttempts,
	))

	var notifier services.Notifier
	switch cfg.NotifyDriver {
	case "http":
		notifier = services.NewHTTPNotifier(cfg.NotifyWebhookURL, cfg.NotifySecret, cfg.NotifyTimeout)
	case "amqp":
		amqpNotifier, err := services.NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPNotifyExchange)
		if err != nil {
			return nil, err
		}
		closers = append(closers, amqpNotifier)
		notifier = amqpNotifier
	default:
		notifier = services.NewLogNotifier()
	}
	services.InitNotifier(notifier)
	log.Printf("[NOTIFY] using %s notifier", notifier.Name())

	dispatcher := services.NewNotificationDispatcher(db, notifier, cfg.NotifyTimeout)
	services.InitOrderService(services.NewOrderService(db, gateway, dispatcher, services.OrderServiceOptions{
		Currency:            cfg.PaymentCurrency,
		CallbackURL:         cfg.PaymentCallbackURL,
		FallbackEmailDomain: cfg.PaymentFallbackEmailDomain,
		WebhookSecret:       cfg.PaystackSecretKey,
	}))

	utils.UploadDir = cfg.UploadDir
	if cfg.UsesS3() {
		s3Service, err := services.InitS3Service(ctx, cfg)
		if err != nil {
			return nil, err
		}
		services.InitImageService(s3Service)
		log.Printf("[S3] storing food images in bucket %s", cfg.AWSS3Bucket)
	} else {
		services.InitLocalImageService(cfg.UploadDir)
		log.Printf("Storing food images in %s", cfg.UploadDir)
	}

	return closers, nil
}

// newRouter builds the HTTP router. adminAuth guards the /admin routes.
func newRouter(allowedOrigins []string, adminAuth ...gin.HandlerFunc) *gin.Engine {
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", controllers.PaystackSignatureHeader)
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)
	}

	controllers.RegisterRoutes(router, adminAuth...)
	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "BiteCraft Storefront API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
