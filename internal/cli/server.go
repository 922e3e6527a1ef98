package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizgram-bot/internal/app"
	"quizgram-bot/internal/config"
	"quizgram-bot/internal/infra/file"
	"quizgram-bot/internal/infra/memory"
	"quizgram-bot/internal/infra/postgres"
	redissession "quizgram-bot/internal/infra/redis"
	"quizgram-bot/internal/telegram"
)

const defaultAnswerDelay = 2500 * time.Millisecond

// NewStartCmd builds the CLI subcommand to start the bot.
func NewStartCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), *configPath)
		},
	}
}

func runBot(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token not configured (set BOT_TOKEN or telegram.token)")
	}
	if cfg.Telegram.AdminID == 0 {
		log.Printf("admin id not configured, admin commands disabled")
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	var bank app.QuestionSource
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		ttl := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
		bank = memory.NewQuestionCache(postgres.NewQuestionLoader(pool), ttl)
	} else {
		questions, err := file.LoadQuestionBank(cfg.Questions.Path)
		if err != nil {
			return err
		}
		log.Printf("loaded %d questions from %s", len(questions), cfg.Questions.Path)
		bank = memory.NewStaticBank(questions)
	}

	var store app.SessionRepository = memory.NewSessionStore()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = redissession.NewSessionStore(client, config.TTLDuration(cfg.Redis.TTL, time.Hour))
	}

	registry := file.NewUserRegistry(cfg.Registry.Path)
	quiz := app.NewQuizService(store, bank)
	admin := app.NewAdminService(registry)

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return err
	}
	log.Printf("authorized on account %s", api.Self.UserName)

	delay := config.TTLDuration(cfg.Telegram.AnswerDelay, defaultAnswerDelay)
	bot := telegram.New(api, quiz, admin, registry, cfg.Telegram.AdminID, delay)

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 60
	updates := api.GetUpdatesChan(updateCfg)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-stop:
			log.Println("shutting down bot...")
		case <-runCtx.Done():
		}
		api.StopReceivingUpdates()
		cancel()
	}()

	log.Println("bot started, polling for updates")
	bot.Run(runCtx, updates)
	return nil
}
