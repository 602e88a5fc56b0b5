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

	"github.com/bankledger/backend/docs"
	"github.com/bankledger/backend/internal/config"
	"github.com/bankledger/backend/internal/database"
	"github.com/bankledger/backend/internal/handlers"
	mW "github.com/bankledger/backend/internal/middleware"
	"github.com/bankledger/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title Bank Ledger API
// @version 1.0
// @description Users, accounts, cards and a balance-consistent transaction ledger
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := config.Init(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	_, syncLogger := config.InitializeLogger(config.LoadLogConfig())
	defer syncLogger()

	serverCfg := config.LoadServerConfig()

	docs.SwaggerInfo.Host = "localhost:" + serverCfg.Port
	docs.SwaggerInfo.BasePath = "/api/v1"

	ctx := context.Background()

	dbCfg := database.GetConfig()
	db := database.InitDatabase(ctx)
	defer db.Close()

	if viper.GetBool("database.auto_migrate") {
		if err := database.Migrate(ctx, db); err != nil {
			zap.L().Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	redisClient := database.InitRedis(ctx)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var compliance services.ComplianceChecker
	if complianceCfg := config.LoadComplianceConfig(); complianceCfg.Enabled {
		compliance = services.NewComplianceClient(complianceCfg)
		zap.L().Info("Compliance document validation enabled", zap.String("base_url", complianceCfg.BaseURL))
	}

	userService := services.NewUserService(db, compliance)
	authService := services.NewAuthService(db, redisClient, userService)
	accountService := services.NewAccountService(db)
	cardService := services.NewCardService(db)
	transactionService := services.NewTransactionService(db, accountService, database.TxOptions(dbCfg.Driver))
	idempotency := services.NewIdempotencyStore(redisClient, serverCfg.IdempotencyTTL)

	h := handlers.Handlers{
		Auth:         handlers.NewAuthHandler(authService, serverCfg.MaxBodyBytes),
		Users:        handlers.NewUserHandler(userService, serverCfg.MaxBodyBytes),
		Accounts:     handlers.NewAccountHandler(accountService, serverCfg.MaxBodyBytes),
		Cards:        handlers.NewCardHandler(cardService, accountService, serverCfg.MaxBodyBytes),
		Transactions: handlers.NewTransactionHandler(transactionService, accountService, serverCfg.MaxBodyBytes),
	}

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mW.SecurityHeaders)
	r.Use(mW.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(serverCfg.RequestTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mW.IdempotencyHeader},
		ExposedHeaders:   []string{"Idempotent-Replayed"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", handlers.Health)

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		handlers.RegisterRoutes(r, h, authService, idempotency)
	})

	server := &http.Server{
		Addr:         ":" + serverCfg.Port,
		Handler:      r,
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
		IdleTimeout:  serverCfg.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		zap.L().Info("Server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zap.L().Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Server stopped")
}
