package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"debatearena/config"
	"debatearena/db"
	"debatearena/internal/debate"
	"debatearena/internal/stance"
	"debatearena/internal/stream"
	"debatearena/middlewares"
	"debatearena/routes"
	"debatearena/services"
	"debatearena/websocket"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and websocket server",
	Long: `Starts the debate API. Without database.uri the debates and users are kept
in memory; without redis.addr stances are kept in memory and spectator
events are pushed in-process instead of through Redis Streams.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "Listen port (overrides config)")
}

// userStore is what the rating and progression services need together.
type userStore interface {
	services.RatingStore
	services.ProgressStore
}

type stanceStore interface {
	routes.StanceRecorder
	stance.PairSource
}

func runServe(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}
	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret is not configured")
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		debates debate.Store
		users   userStore
	)
	if cfg.Database.URI != "" {
		client, database, err := db.ConnectMongoDB(ctx, cfg.Database.URI, cfg.Database.Name)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())

		mongoDebates := db.NewMongoDebateStore(database)
		if err := mongoDebates.EnsureIndexes(ctx); err != nil {
			logger.Warn("index creation failed", "event", "mongo_indexes_failed", "error", err)
		}
		debates = mongoDebates
		users = db.NewMongoUserStore(database)
	} else {
		logger.Info("database.uri not set, using in-memory stores", "event", "memory_store")
		debates = db.NewMemoryDebateStore()
		users = db.NewMemoryUserStore()
	}

	hub := websocket.NewHub(logger)
	var (
		stances     stanceStore
		limiter     middlewares.Limiter
		broadcaster debate.Broadcaster = hub
	)
	limits := stance.LimitConfig{MaxWrites: cfg.Debate.StanceRateLimit, Window: cfg.Debate.StanceRateWindow}
	if cfg.Redis.Addr != "" {
		rdb, err := stream.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rdb.Close()

		consumer := stream.NewConsumer(rdb, hub, logger)
		defer consumer.Close()
		hub.SetWatcher(consumer)

		stances = stance.NewRedisStore(rdb)
		limiter = stance.NewRedisLimiter(rdb, limits)
		broadcaster = stream.NewPublisher(rdb)
		logger.Info("connected to Redis", "event", "redis_connected", "addr", cfg.Redis.Addr)
	} else {
		stances = stance.NewMemoryStore()
		limiter = stance.NewMemoryLimiter(limits)
	}

	progression := services.NewProgressionService(users, cfg.Debate.GraduationThreshold, logger)
	ratings := services.NewRatingService(users, logger)
	controller, err := debate.NewController(debate.Dependencies{
		Store:         debates,
		Stances:       stances,
		Market:        stance.NewMarket(stances),
		Broadcaster:   broadcaster,
		Reputation:    []debate.ReputationRecorder{ratings},
		Progression:   progression,
		Policy:        policyFrom(cfg.Debate),
		Logger:        logger,
		NotifyTimeout: cfg.Debate.NotifyTimeout,
	})
	if err != nil {
		return err
	}
	hub.SetLookup(func(ctx context.Context, debateID string) error {
		_, err := controller.GetDebate(ctx, debateID)
		return err
	})

	gin.SetMode(gin.ReleaseMode)
	router := routes.SetupRouter(&routes.DebateHandler{
		Controller: controller,
		Stances:    stances,
		Progress:   progression,
		Ratings:    ratings,
		Logger:     logger,
	}, routes.RouterOptions{
		JWTSecret:      cfg.JWT.Secret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Spectate:       hub.ServeDebate,
		StanceLimiter:  limiter,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "event", "server_starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down", "event", "server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
	controller.Wait()
	return nil
}

func policyFrom(c config.DebateConfig) debate.Policy {
	return debate.Policy{
		OpeningLimit:        c.OpeningLimit,
		RebuttalLimit:       c.RebuttalLimit,
		ClosingLimit:        c.ClosingLimit,
		MinArgumentLength:   c.MinArgumentLength,
		MaxResolutionLength: c.MaxResolutionLength,
		WinnerThreshold:     c.WinnerThreshold,
		MindChangeThreshold: c.MindChangeThreshold,
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
