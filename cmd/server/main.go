package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/puzzlemind/backend/internal/auth"
	"github.com/puzzlemind/backend/internal/config"
	"github.com/puzzlemind/backend/internal/database"
	"github.com/puzzlemind/backend/internal/dna"
	"github.com/puzzlemind/backend/internal/engagement"
	"github.com/puzzlemind/backend/internal/engine"
	"github.com/puzzlemind/backend/internal/generator"
	"github.com/puzzlemind/backend/internal/metrics"
	"github.com/puzzlemind/backend/internal/middleware"
	"github.com/puzzlemind/backend/internal/profile"
	"github.com/puzzlemind/backend/internal/puzzles"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := buildLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Migrate on a short-lived connection, then open the serving pool
	if err := database.Migrate(cfg.Database); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	var (
		profileStore    profile.Store
		inventoryStore  puzzles.Store
		engagementStore engagement.Store
		userStore       auth.Store
	)
	switch cfg.Database.Driver {
	case "sqlite":
		profileStore = profile.NewSQLiteStore(db)
		inventoryStore = puzzles.NewSQLiteStore(db)
		engagementStore = engagement.NewSQLiteStore(db)
		userStore = auth.NewSQLiteStore(db)
	default:
		profileStore = profile.NewPostgresStore(db)
		inventoryStore = puzzles.NewPostgresStore(db)
		engagementStore = engagement.NewPostgresStore(db)
		userStore = auth.NewPostgresStore(db)
	}

	storageTimeout := time.Duration(cfg.Engine.StorageTimeoutMs) * time.Millisecond
	profiles := profile.NewService(profileStore, logger.Named("profile"), storageTimeout)
	analyzer := dna.NewAnalyzer()
	metrics.RegisterDNACacheSize(func() float64 { return float64(analyzer.Size()) })

	gen := generator.NewGenerator(cfg.Generator, logger.Named("generator"))
	val := generator.NewValidator(cfg.Generator, logger.Named("validator"))
	inventory := puzzles.NewService(inventoryStore, gen, val, analyzer, cfg.Generator, logger.Named("inventory"))

	eng := engine.New(profiles, analyzer, cfg, logger.Named("engine"))
	engagementSvc := engagement.NewService(engagementStore, eng, logger.Named("engagement"))
	eng.SetRewarder(engagementSvc)

	engineHandler := engine.NewHandler(eng, inventory, logger.Named("engine"))
	engagementHandler := engagement.NewHandler(engagementSvc, logger.Named("engagement"))
	authHandler := auth.NewHandler(userStore, eng, logger.Named("auth"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background worker keeps the puzzle inventory stocked
	go inventory.StartWorker(ctx)

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/users/me", authHandler.GetCurrentUser).Methods("GET")
	protected.HandleFunc("/puzzles/next", engineHandler.NextPuzzle).Methods("POST")
	protected.HandleFunc("/puzzles/response", engineHandler.RecordResponse).Methods("POST")
	protected.HandleFunc("/puzzles/types", engineHandler.PuzzleTypes).Methods("GET")
	protected.HandleFunc("/users/me/metrics", engineHandler.UserMetrics).Methods("GET")
	protected.HandleFunc("/users/me/risk", engineHandler.RetentionRisk).Methods("GET")
	protected.HandleFunc("/engagement/summary", engagementHandler.Summary).Methods("GET")
	protected.HandleFunc("/engagement/powerups/{kind}/buy", engagementHandler.BuyPowerUp).Methods("POST")
	protected.HandleFunc("/engagement/powerups/{kind}/use", engagementHandler.UsePowerUp).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: c.Handler(r),
	}

	go func() {
		logger.Info("Server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("driver", cfg.Database.Driver),
			zap.Bool("mock_generator", cfg.Generator.Mock))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zcfg.Build()
}
