package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"live-quiz-engine/internal/anticheat"
	"live-quiz-engine/internal/app"
	"live-quiz-engine/internal/config"
	"live-quiz-engine/internal/infra/boltdb"
	"live-quiz-engine/internal/infra/memory"
	pgloader "live-quiz-engine/internal/infra/postgres"
	redisinfra "live-quiz-engine/internal/infra/redis"
	"live-quiz-engine/internal/logging"
	transport "live-quiz-engine/internal/transport/http"
)

const shutdownTimeout = 5 * time.Second

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.FromContext(ctx)
	if cfg.Debug {
		logger = logging.NewLogger(true)
	}
	defer func() { _ = logger.Sync() }()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}
	baseURL := cfg.Server.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:" + finalPort
	}

	loader, closeLoader, err := openQuizLoader(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLoader()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var (
		quizRepo     app.QuizRepository
		store        app.SessionRepository
		channel      app.Channel
		sessionStore *redisinfra.SessionStore
	)
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
		sessionStore = redisinfra.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
		store = sessionStore
		channel = redisinfra.NewChannel(redisClient, logger)
	} else {
		cacheSize := cfg.Quiz.CacheSize
		if cacheSize <= 0 {
			cacheSize = memory.DefaultCacheSize
		}
		repo, err := memory.NewQuizRepository(loader, quizTTL, cacheSize)
		if err != nil {
			return fmt.Errorf("quiz cache: %w", err)
		}
		quizRepo = repo
		store = memory.NewSessionStore()
		channel = memory.NewRegistry(0)
	}

	service := app.NewQuizService(store, quizRepo, channel, app.ServiceConfig{
		BaseURL:      baseURL,
		TickInterval: config.TTLDuration(cfg.Quiz.TickInterval, app.DefaultTickInterval),
		SyncInterval: config.TTLDuration(cfg.Quiz.SyncInterval, app.DefaultSyncInterval),
		AntiCheat:    cfg.AntiCheat.Enabled,
		Policy: anticheat.Policy{
			MinReaction:   config.TTLDuration(cfg.AntiCheat.MinReaction, anticheat.DefaultMinReaction),
			LateTolerance: config.TTLDuration(cfg.AntiCheat.LateTolerance, anticheat.DefaultLateTolerance),
			StrictNonce:   cfg.AntiCheat.StrictNonce,
		},
		Scoring:  cfg.Quiz.Scoring,
		MaxBonus: cfg.Quiz.MaxBonus,
		Logger:   logger,
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(service, channel, logger),
		ReadTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infow("starting quiz engine", "port", finalPort, "baseURL", baseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Infow("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("http shutdown", "error", err)
		}
		return service.Shutdown(shutdownCtx)
	})
	if sessionStore != nil {
		g.Go(func() error {
			return sessionStore.KeepAlive(gctx)
		})
	}

	return g.Wait()
}

// openQuizLoader picks the question set source: postgres, then bolt, then the
// built-in sample sets.
func openQuizLoader(ctx context.Context, cfg config.Config, logger *zap.SugaredLogger) (memory.QuizLoader, func(), error) {
	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		logger.Infow("loading question sets from postgres")
		return pgloader.NewQuizLoader(pool), pool.Close, nil
	case cfg.Bolt.Path != "":
		db, err := boltdb.Open(cfg.Bolt.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Infow("loading question sets from bolt", "path", cfg.Bolt.Path)
		return db, func() { _ = db.Close() }, nil
	default:
		logger.Infow("loading built-in question sets")
		return memory.NewStaticQuizLoader(sampleQuestionSets()), func() {}, nil
	}
}
