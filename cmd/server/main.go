package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/localperks/backend/docs"
	"github.com/localperks/backend/internal/config"
	"github.com/localperks/backend/internal/database"
	"github.com/localperks/backend/internal/handlers"
	mW "github.com/localperks/backend/internal/middleware"
	"github.com/localperks/backend/internal/services"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title LocalPerks Coin Ledger API
// @version 1.0
// @description Community coin wallet, redemption holds and access-window pricing
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.ReadInConfig()

	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "LocalPerks Coin Ledger API"
	docs.SwaggerInfo.Description = "Community coin wallet, redemption holds and access-window pricing"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	ledgerConfig := config.LoadLedgerConfig()

	ledgerService := services.NewLedgerService(db, redisClient)
	pinService := services.NewPinService(db, redisClient)
	qrService := services.NewRedemptionQRService(db, redisClient, ledgerService.Reservations())
	syncService := services.NewSyncService(db)

	walletHandler := handlers.NewWalletHandler(ledgerService, pinService)
	redemptionHandler := handlers.NewRedemptionHandler(ledgerService, qrService)
	businessHandler := handlers.NewBusinessHandler(ledgerService.Policy())
	syncHandler := handlers.NewSyncHandler(syncService)

	// Background expiry sweep; lazy expiry keeps reads correct between runs.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	ledgerService.Reservations().StartSweeper(sweepCtx, ledgerConfig.SweepInterval)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Get("/businesses/{businessId}/price", businessHandler.GetPrice)
		r.Get("/businesses/{businessId}/windows", businessHandler.ListWindows)

		// Federation endpoints (peer API key required)
		r.Group(func(r chi.Router) {
			r.Use(mW.APIKeyAuth(syncService))
			r.Delete("/sync/events/{remoteId}", syncHandler.DeleteEvent)
		})

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/wallet", walletHandler.GetWallet)
			r.Get("/wallet/history", walletHandler.GetHistory)
			r.Post("/wallet/earn", walletHandler.Earn)
			r.Post("/wallet/pin", walletHandler.SetPin)
			r.Post("/wallet/pin/verify", walletHandler.VerifyPin)

			r.Post("/redemptions", redemptionHandler.CreateRedemption)
			r.Post("/redemptions/scan", redemptionHandler.ScanRedemption)
			r.Post("/redemptions/{reservationId}/consume", redemptionHandler.ConsumeRedemption)
			r.Post("/redemptions/{reservationId}/release", redemptionHandler.ReleaseRedemption)
			r.Get("/redemptions/{reservationId}/qr", redemptionHandler.GetRedemptionQR)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
