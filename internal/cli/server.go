package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"qzone-service/internal/app"
	"qzone-service/internal/auth"
	"qzone-service/internal/config"
	"qzone-service/internal/idgen"
	"qzone-service/internal/infra/memory"
	pgstore "qzone-service/internal/infra/postgres"
	redisrank "qzone-service/internal/infra/redis"
	"qzone-service/internal/scoring"
	"qzone-service/internal/stats"
	transport "qzone-service/internal/transport/http"
)

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
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var store app.Store = memory.NewStore()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = pgstore.NewStore(pool)
	} else {
		log.Printf("postgres url not configured, using in-memory store")
	}

	var rankCache app.RankCache
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rankCache = redisrank.NewRankCache(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	}

	scheme := scoring.DefaultScheme()
	if cfg.Scoring.QuestionMarks > 0 {
		scheme.QuestionMarks = cfg.Scoring.QuestionMarks
	}
	if cfg.Scoring.MinusMarks > 0 {
		scheme.MinusMarks = cfg.Scoring.MinusMarks
	}

	secret := cfg.Auth.Secret
	if secret == "" {
		log.Printf("auth secret not configured, using an insecure default")
		secret = "insecure-dev-secret"
	}
	authSvc := auth.NewService(secret, config.TTLDuration(cfg.Auth.TokenTTL, 8*time.Hour))

	alloc := idgen.New(store)
	agg := stats.New(store)

	sheets := app.NewSheetService(store, alloc, agg, scheme)
	ranks := app.NewRankService(store, rankCache)
	sheets.SetListener(ranks)

	handler := transport.NewHandler(transport.Services{
		Auth:      authSvc,
		Topics:    app.NewTopicService(store, alloc),
		Questions: app.NewQuestionService(store, alloc),
		Quizzes:   app.NewQuizService(store, alloc),
		Sheets:    sheets,
		Ranks:     ranks,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting qzone service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
