package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/codebuildervaibhav/story-shorts/internal/cleanup"
	"github.com/codebuildervaibhav/story-shorts/internal/config"
	"github.com/codebuildervaibhav/story-shorts/internal/handlers"
	"github.com/codebuildervaibhav/story-shorts/internal/queue"
	"github.com/codebuildervaibhav/story-shorts/internal/source"
	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

var noSchedule bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, workers and the scheduled scraper",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		logger := log.Logger

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc, err := newServices(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer svc.Close()

		broker, err := newBroker(ctx, cfg)
		if err != nil {
			return err
		}
		defer broker.Close()

		pool := queue.NewWorkerPool(cfg.Workers.Count, broker, svc.pipeline, svc.db, logger)

		if !noSchedule && cfg.Source.Schedule != "" {
			scraper := source.NewScraper(source.NewChromeBrowser(time.Minute), svc.db, logger)
			c := cron.New()
			_, err := c.AddFunc(cfg.Source.Schedule, func() {
				dispatchScraped(ctx, scraper, pool, cfg, logger)
			})
			if err != nil {
				return fmt.Errorf("invalid source.schedule %q: %w", cfg.Source.Schedule, err)
			}
			c.Start()
			defer c.Stop()
			logger.Info().Str("schedule", cfg.Source.Schedule).Strs("subreddits", cfg.Source.Subreddits).Msg("scheduled scraping enabled")
		}

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})
		app.Use(recover.New())
		app.Use(fiberlogger.New(fiberlogger.Config{Output: logger}))
		app.Use(cors.New(cors.Config{
			AllowOrigins: "*",
			AllowHeaders: "Origin, Content-Type, Accept",
		}))
		handlers.Register(app, handlers.Routes{
			Tasks:        pool,
			Videos:       svc.db,
			Logs:         logBuffer,
			PollInterval: time.Second,
			Logger:       logger,
		})

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return pool.Run(gctx)
		})
		g.Go(func() error {
			cleanup.NewScheduler(cfg.Storage.TempDir, cfg.Cleanup.IntervalMinutes, cfg.Cleanup.MaxAgeHours, logger).Run(gctx)
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info().Msg("shutting down gracefully")
			return app.Shutdown()
		})

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.Info().Str("addr", addr).Msg("server starting")
		if err := app.Listen(addr); err != nil {
			stop()
			g.Wait()
			return fmt.Errorf("server failed: %w", err)
		}
		stop()
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "disable the scheduled scraper")
}

// dispatchScraped queues every new post from the configured subreddits.
func dispatchScraped(ctx context.Context, scraper *source.Scraper, pool *queue.WorkerPool, cfg *config.Config, logger zerolog.Logger) {
	posts, err := scraper.Fetch(ctx, cfg.Source.Subreddits, cfg.Source.Limit)
	if err != nil {
		logger.Error().Err(err).Msg("scheduled scrape failed")
	}
	if len(posts) == 0 {
		logger.Info().Msg("no new posts found")
		return
	}
	for _, post := range posts {
		id, err := pool.Submit(ctx, types.SourceScheduled, post)
		if err != nil {
			logger.Error().Err(err).Str("title", post.Title).Msg("failed to dispatch post")
			continue
		}
		logger.Info().Str("task_id", id).Str("title", post.Title).Msg("dispatched video creation task")
	}
}
