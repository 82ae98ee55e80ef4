package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"raffle-market/internal/auth"
	"raffle-market/internal/config"
	"raffle-market/internal/custodian"
	"raffle-market/internal/database"
	"raffle-market/internal/handlers"
	"raffle-market/internal/logger"
	"raffle-market/internal/oracle"
	"raffle-market/internal/repository"
	"raffle-market/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.Init(os.Getenv("GIN_MODE") != "release")
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Asset custody and randomness
	ledger := custodian.NewLedger()
	native := custodian.NewLedgerNativeAdapter(ledger, cfg.Raffle.WrappedNativeAsset)
	rng := oracle.NewLocalOracle(cfg.Oracle.FulfillDelay)

	// Initialize repository and services
	repo := repository.NewRepository(database.GetDB())
	raffleService := services.NewRaffleService(repo, ledger, native, rng, services.RaffleConfig{
		MinDuration:          cfg.Raffle.MinDuration,
		OracleFeeAsset:       cfg.Raffle.OracleFeeAsset,
		OracleFeeAmount:      cfg.Raffle.OracleFeeAmount,
		NumWords:             uint32(cfg.Oracle.NumWords),
		CallbackGasBudget:    uint32(cfg.Oracle.CallbackGasBudget),
		RequestConfirmations: uint16(cfg.Oracle.RequestConfirmations),
	})
	marketService := services.NewMarketService(repo, ledger, native)

	// Random words flow back into the raffle lifecycle
	rng.SetConsumer(raffleService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler()
	raffleHandler := handlers.NewRaffleHandler(raffleService)
	marketHandler := handlers.NewMarketHandler(marketService)
	oracleHandler := handlers.NewOracleHandler(rng)
	whitelistHandler := handlers.NewWhitelistHandler()

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	router.POST("/api/auth/token", authHandler.IssueToken)

	// Public raffle routes
	router.GET("/api/raffles", raffleHandler.ListRaffles)
	router.GET("/api/raffles/:id", raffleHandler.GetRaffle)
	router.GET("/api/raffles/:id/state", raffleHandler.GetRaffleState)
	router.GET("/api/raffles/:id/tickets/:index", raffleHandler.GetTicketOwner)
	router.GET("/api/raffles/:id/transactions", raffleHandler.GetRaffleTransactions)
	router.GET("/api/raffles/:id/orders/:index", marketHandler.GetSellOrder)

	// Whitelist tooling
	router.POST("/api/whitelist/tree", whitelistHandler.BuildTree)

	// Oracle callback routes
	router.POST("/api/oracle/fulfill", oracleHandler.Fulfill)
	router.GET("/api/oracle/pending", oracleHandler.Pending)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Raffle lifecycle
		api.POST("/raffles", raffleHandler.CreateRaffle)
		api.POST("/raffles/:id/tickets", raffleHandler.BuyTickets)
		api.POST("/raffles/:id/cancel", raffleHandler.CancelRaffle)
		api.POST("/raffles/:id/complete", raffleHandler.CompleteRaffle)
		api.POST("/raffles/:id/claim", raffleHandler.ClaimRaffle)
		api.POST("/raffles/:id/refund", raffleHandler.RefundTickets)

		// Resale market
		api.POST("/raffles/:id/orders", marketHandler.CreateSellOrder)
		api.DELETE("/raffles/:id/orders/:index", marketHandler.CancelSellOrder)
		api.POST("/raffles/:id/orders/:index/buy", marketHandler.BuyResaleTicket)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Info("server starting", zap.String("port", cfg.Server.Port))

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
