package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/story-shorts/internal/config"
	"github.com/codebuildervaibhav/story-shorts/internal/queue"
	"github.com/codebuildervaibhav/story-shorts/internal/source"
	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

var (
	scrapeSubreddits []string
	scrapeLimit      int
	scrapeEnqueue    bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Find new top posts and create videos for them",
	Long: `Finds today's top posts that were not delivered before. By default each post is
rendered in-process; with --enqueue the posts are pushed to the Redis queue for a
running server to pick up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		ctx := cmd.Context()
		logger := log.Logger

		subs := scrapeSubreddits
		if len(subs) == 0 {
			subs = cfg.Source.Subreddits
		}
		limit := scrapeLimit
		if limit < 1 {
			limit = cfg.Source.Limit
		}
		if scrapeEnqueue && cfg.Queue.Backend != "redis" {
			return fmt.Errorf("--enqueue needs queue.backend redis, have %q", cfg.Queue.Backend)
		}

		svc, err := newServices(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer svc.Close()

		scraper := source.NewScraper(source.NewChromeBrowser(time.Minute), svc.db, logger)
		posts, err := scraper.Fetch(ctx, subs, limit)
		if err != nil {
			return err
		}
		if len(posts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No new posts found.")
			return nil
		}

		if scrapeEnqueue {
			broker, err := newBroker(ctx, cfg)
			if err != nil {
				return err
			}
			defer broker.Close()
			pool := queue.NewWorkerPool(1, broker, svc.pipeline, svc.db, logger)
			for _, post := range posts {
				id, err := pool.Submit(ctx, types.SourceScheduled, post)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Found post: '%s'. Dispatched task %s\n", post.Title, id)
			}
			return nil
		}

		for _, post := range posts {
			fmt.Fprintf(cmd.OutOrStdout(), "Found post: '%s' (r/%s)\n", post.Title, post.Subreddit)
			if err := runNow(cmd, svc, types.SourceScheduled, post); err != nil {
				logger.Error().Err(err).Str("title", post.Title).Msg("video creation failed")
			}
		}
		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringSliceVar(&scrapeSubreddits, "subreddit", nil, "subreddit to read (repeatable, default from config)")
	scrapeCmd.Flags().IntVar(&scrapeLimit, "limit", 0, "maximum number of posts (default from config)")
	scrapeCmd.Flags().BoolVar(&scrapeEnqueue, "enqueue", false, "push posts to the Redis queue instead of rendering")
}
