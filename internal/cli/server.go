package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portal-score-service/internal/app"
	"portal-score-service/internal/config"
	"portal-score-service/internal/domain"
	"portal-score-service/internal/infra/memory"
	pgstore "portal-score-service/internal/infra/postgres"
	redisinfra "portal-score-service/internal/infra/redis"
	transport "portal-score-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the portal score server",
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var portalStore *pgstore.PortalStore
	var quizLoader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		portalStore = pgstore.NewPortalStore(pool)
		quizLoader = pgstore.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loaderAdapter{quizLoader}, quizTTL)
	} else {
		quizRepo = memory.NewQuizCache(quizLoader, quizTTL)
	}

	// The in-memory stores hold the live working set; Postgres, when
	// configured, seeds them at boot and receives write-through updates.
	var forumStore *memory.ForumStore
	var attemptStore *memory.AttemptStore
	if portalStore != nil {
		forumStore = memory.NewForumStore(portalStore)
		attemptStore = memory.NewAttemptStore(portalStore)

		posts, err := portalStore.LoadPosts(ctx)
		if err != nil {
			return err
		}
		replies, err := portalStore.LoadReplies(ctx)
		if err != nil {
			return err
		}
		forumStore.Seed(posts, replies)

		attempts, err := portalStore.LoadAttempts(ctx)
		if err != nil {
			return err
		}
		attemptStore.Seed(attempts)
	} else {
		forumStore = memory.NewForumStore(nil)
		attemptStore = memory.NewAttemptStore(nil)
	}

	var boardCache app.SnapshotCache
	if redisClient != nil {
		boardTTL := config.TTLDuration(cfg.Leaderboard.TTL, 10*time.Minute)
		boardCache = redisinfra.NewBoardCache(redisClient, boardTTL)
	}

	topN := cfg.Leaderboard.TopN
	if topN == 0 {
		topN = 20
	}
	board := app.NewBoard(forumStore, attemptStore, boardCache, topN)
	stopBoard := board.Start(ctx)
	defer stopBoard()

	service := app.NewPortalService(quizRepo, forumStore, attemptStore, board)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting portal score service on :%s", finalPort)
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

// loaderAdapter bridges the memory package's loader interface to the redis
// package's identical one.
type loaderAdapter struct {
	memory.QuizLoader
}

// sampleQuizzes provides a minimal data set for running without Postgres.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:        "quiz-1",
			Title:     "Research Methods Basics",
			TimeLimit: 300,
			Questions: []domain.Question{
				{
					ID:             "q1",
					Text:           "Which section states the hypothesis?",
					Type:           domain.SingleChoice,
					Options:        []string{"Abstract", "Introduction", "References"},
					CorrectAnswers: []string{"Introduction"},
					Points:         5,
				},
				{
					ID:             "q2",
					Text:           "Select all primary sources",
					Type:           domain.MultipleChoice,
					Options:        []string{"Lab notebook", "Review article", "Interview transcript"},
					CorrectAnswers: []string{"Lab notebook", "Interview transcript"},
					Points:         5,
				},
			},
		},
	}
}
