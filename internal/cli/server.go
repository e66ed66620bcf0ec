package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trivia-arena/internal/config"
	"trivia-arena/internal/domain"
	"trivia-arena/internal/game"
	"trivia-arena/internal/infra/memory"
	pgstore "trivia-arena/internal/infra/postgres"
	redisinfra "trivia-arena/internal/infra/redis"
	transport "trivia-arena/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
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
	}

	// Question storage: postgres when configured, otherwise an in-memory bank
	// seeded with demo questions.
	var loader memory.QuestionLoader
	var repo transport.QuestionRepository
	if pool != nil {
		store := pgstore.NewQuestionStore(pool)
		loader = store
		repo = store
	} else {
		bank := memory.NewQuestionBank(sampleQuestions())
		loader = bank
		repo = bank
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var bank game.QuestionBank
	var invalidate func(round int)
	if redisClient != nil {
		cache := redisinfra.NewQuestionCache(redisClient, loader, questionTTL)
		bank = cache
		invalidate = func(round int) { cache.Invalidate(context.Background(), round) }
	} else {
		cache := memory.NewQuestionCache(loader, questionTTL)
		bank = cache
		invalidate = cache.Invalidate
	}

	gameCfg := game.DefaultConfig()
	if cfg.Game.InitialBalance > 0 {
		gameCfg.InitialBalance = cfg.Game.InitialBalance
	}
	if cfg.Game.MinimumBet > 0 {
		gameCfg.MinimumBet = cfg.Game.MinimumBet
	}
	if cfg.Game.ShortlistSize > 0 {
		gameCfg.ShortlistSize = cfg.Game.ShortlistSize
	}
	if cfg.Game.TotalRounds > 0 {
		gameCfg.TotalRounds = cfg.Game.TotalRounds
	}
	if len(cfg.Game.RoundSeconds) > 0 {
		gameCfg.RoundSeconds = cfg.Game.RoundSeconds
	}

	hub := transport.NewHub(log.With().Str("component", "hub").Logger())

	opts := []game.Option{game.WithLogger(log.With().Str("component", "session").Logger())}
	if redisClient != nil {
		redisTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)
		opts = append(opts, game.WithArchiver(redisinfra.NewLeaderboardArchive(redisClient, redisTTL)))
	}
	session := game.NewSession(gameCfg, bank, hub, opts...)

	wsHandler := transport.NewWSHandler(session, hub, log.With().Str("component", "ws").Logger())
	questionsHandler := transport.NewQuestionsHandler(repo, invalidate, log.With().Str("component", "questions").Logger())

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServePlayer)
	mux.HandleFunc("/ws/admin", wsHandler.ServeAdmin)
	mux.HandleFunc("/api/questions", questionsHandler.ServeQuestions)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting trivia arena")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions seeds a minimal bank for demo runs without postgres.
func sampleQuestions() map[int][]domain.Question {
	return map[int][]domain.Question{
		1: {
			{
				ID:      "r1-q1",
				Prompt:  "Which planet is known as the Red Planet?",
				Seconds: 15,
				Payload: domain.ChoicePayload{
					Options:      []string{"Venus", "Jupiter", "Mars", "Mercury"},
					CorrectIndex: 2,
				},
			},
			{
				ID:      "r1-q2",
				Prompt:  "What is the chemical symbol for gold?",
				Seconds: 15,
				Payload: domain.ChoicePayload{
					Options:      []string{"Ag", "Au", "Gd", "Go"},
					CorrectIndex: 1,
				},
			},
		},
		2: {
			{
				ID:      "r2-q1",
				Prompt:  "Name the landmark in the picture.",
				Seconds: 30,
				Payload: domain.PicturePayload{
					Images: []string{"media/landmark-1.jpg"},
					Answer: "Eiffel Tower",
				},
			},
		},
		3: {
			{
				ID:      "r3-q1",
				Prompt:  "Complete the statement so x becomes 1.",
				Seconds: 20,
				Payload: domain.CodePayload{
					Snippet: "var x int\n// your line here",
					Answer:  "x = 1",
				},
			},
		},
	}
}
