// Package source delivers candidate posts from subreddits.
package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

// DefaultBaseURL serves the server-rendered listing markup the scraper reads.
const DefaultBaseURL = "https://old.reddit.com"

// candidateFactor is how many listings are inspected per wanted post, so
// already-seen posts do not starve a run.
const candidateFactor = 3

// Browser evaluates a JavaScript expression on a loaded page and decodes
// the result into out.
type Browser interface {
	Evaluate(ctx context.Context, pageURL, expression string, out interface{}) error
}

// SeenStore remembers delivered post IDs.
type SeenStore interface {
	HasSeen(postID string) (bool, error)
	MarkSeen(postID, subreddit string) error
}

// Listing is one entry of a subreddit listing page.
type Listing struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Permalink string `json:"permalink"`
	Stickied  bool   `json:"stickied"`
}

const listingExpr = `Array.from(document.querySelectorAll('#siteTable div.thing.link')).map(e => ({
	id: e.getAttribute('data-fullname') || '',
	title: (e.querySelector('a.title') || {}).textContent || '',
	permalink: e.getAttribute('data-permalink') || '',
	stickied: e.classList.contains('stickied'),
}))`

const bodyExpr = `(() => {
	const md = document.querySelector('#siteTable div.thing.link div.usertext-body div.md');
	return md ? md.innerText : '';
})()`

// Scraper fetches the day's top posts and skips posts delivered before.
type Scraper struct {
	browser Browser
	seen    SeenStore
	baseURL string
	logger  zerolog.Logger
}

// NewScraper creates a scraper reading DefaultBaseURL.
func NewScraper(browser Browser, seen SeenStore, logger zerolog.Logger) *Scraper {
	return &Scraper{
		browser: browser,
		seen:    seen,
		baseURL: DefaultBaseURL,
		logger:  logger.With().Str("component", "source").Logger(),
	}
}

// WithBaseURL points the scraper at another host.
func (s *Scraper) WithBaseURL(base string) *Scraper {
	s.baseURL = strings.TrimRight(base, "/")
	return s
}

// Fetch returns at most limit unseen posts from the top-of-day listings of
// subreddits, in order. Returned posts are marked seen.
func (s *Scraper) Fetch(ctx context.Context, subreddits []string, limit int) ([]types.Post, error) {
	if limit < 1 {
		return nil, nil
	}

	var posts []types.Post
	for _, sub := range subreddits {
		if len(posts) >= limit {
			break
		}
		listings, err := s.top(ctx, sub, limit*candidateFactor)
		if err != nil {
			return posts, err
		}

		for _, l := range listings {
			if len(posts) >= limit {
				break
			}
			if l.ID == "" || l.Stickied {
				continue
			}
			seen, err := s.seen.HasSeen(l.ID)
			if err != nil {
				return posts, err
			}
			if seen {
				continue
			}

			text, err := s.body(ctx, l.Permalink)
			if err != nil {
				s.logger.Warn().Err(err).Str("post_id", l.ID).Msg("failed to read post body, skipping")
				continue
			}
			if err := s.seen.MarkSeen(l.ID, sub); err != nil {
				return posts, err
			}

			posts = append(posts, types.Post{
				ID:        l.ID,
				Subreddit: sub,
				Title:     strings.TrimSpace(l.Title),
				Text:      strings.TrimSpace(text),
			})
		}
	}

	s.logger.Info().Int("posts", len(posts)).Strs("subreddits", subreddits).Msg("scrape complete")
	return posts, nil
}

func (s *Scraper) top(ctx context.Context, subreddit string, n int) ([]Listing, error) {
	pageURL := fmt.Sprintf("%s/r/%s/top/?t=day&limit=%d", s.baseURL, url.PathEscape(subreddit), n)
	var listings []Listing
	if err := s.browser.Evaluate(ctx, pageURL, listingExpr, &listings); err != nil {
		return nil, fmt.Errorf("list r/%s: %w", subreddit, err)
	}
	if len(listings) > n {
		listings = listings[:n]
	}
	return listings, nil
}

func (s *Scraper) body(ctx context.Context, permalink string) (string, error) {
	if permalink == "" {
		return "", fmt.Errorf("listing has no permalink")
	}
	var text string
	if err := s.browser.Evaluate(ctx, s.baseURL+permalink, bodyExpr, &text); err != nil {
		return "", err
	}
	return text, nil
}

// ChromeBrowser drives a headless Chrome through chromedp.
type ChromeBrowser struct {
	timeout time.Duration
}

// NewChromeBrowser creates a browser that bounds each page load by timeout.
func NewChromeBrowser(timeout time.Duration) *ChromeBrowser {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &ChromeBrowser{timeout: timeout}
}

func (b *ChromeBrowser) Evaluate(ctx context.Context, pageURL, expression string, out interface{}) error {
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()
	ctx, cancel = context.WithTimeout(ctx, b.timeout)
	defer cancel()

	err := chromedp.Run(ctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(expression, out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", pageURL, err)
	}
	return nil
}
