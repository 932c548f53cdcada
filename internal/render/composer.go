package render

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/story-shorts/internal/config"
	"github.com/codebuildervaibhav/story-shorts/internal/ffmpeg"
	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

// Composer renders composition plans. The background clip and fonts are
// shared read-only assets; everything else lives in a per-call scratch
// directory that is removed on every exit path.
type Composer struct {
	engine  Engine
	looper  *Looper
	style   config.Style
	tempDir string
	logger  zerolog.Logger

	mu        sync.Mutex
	clipCache map[string]float64
}

// NewComposer creates a composer with a fixed style.
func NewComposer(engine Engine, style config.Style, tempDir string, logger zerolog.Logger) *Composer {
	return &Composer{
		engine:    engine,
		looper:    NewLooper(engine, style.Preset, logger),
		style:     style,
		tempDir:   tempDir,
		logger:    logger.With().Str("component", "composer").Logger(),
		clipCache: make(map[string]float64),
	}
}

// Compose renders plan to plan.OutputPath. A failed render leaves no
// partial output file behind.
func (c *Composer) Compose(ctx context.Context, plan types.CompositionPlan) (err error) {
	if plan.OutputPath == "" {
		return errors.New("output path is required")
	}

	scratch := filepath.Join(c.tempDir, "render_"+uuid.New().String())
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			c.logger.Warn().Err(rmErr).Str("dir", scratch).Msg("failed to remove render scratch dir")
		}
		if err != nil {
			os.Remove(plan.OutputPath)
		}
	}()

	duration := plan.AudioDuration
	if duration <= 0 {
		if duration, err = c.engine.ProbeDuration(ctx, plan.AudioPath); err != nil {
			return fmt.Errorf("probe narration: %w", err)
		}
	}

	clipDuration, err := c.clipDuration(ctx, plan.BackgroundPath)
	if err != nil {
		return fmt.Errorf("probe background: %w", err)
	}
	loop, err := PlanLoop(plan.BackgroundPath, clipDuration, duration)
	if err != nil {
		return err
	}
	background := filepath.Join(scratch, "background"+filepath.Ext(plan.BackgroundPath))
	if err := c.looper.Loop(ctx, loop, background); err != nil {
		return err
	}

	cardPath := filepath.Join(scratch, "title_card.png")
	if err := DrawTitleCard(c.style, plan.TitleCard, cardPath, c.logger); err != nil {
		return err
	}

	captionsPath := filepath.Join(scratch, "captions.ass")
	if err := WriteASS(c.style, plan.Subtitles, captionsPath); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(plan.OutputPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	c.logger.Info().
		Str("output", plan.OutputPath).
		Float64("duration", duration).
		Float64("title_duration", plan.TitleCard.Duration).
		Int("captions", len(plan.Subtitles)).
		Int("loops", len(loop.Segments)).
		Msg("composing video")

	return c.engine.Compose(ctx, ffmpeg.ComposeOptions{
		Background: background,
		Overlay:    cardPath,
		OverlayEnd: math.Min(plan.TitleCard.Duration, duration),
		Subtitles:  captionsPath,
		FontsDir:   filepath.Dir(c.style.TitleFont),
		Audio:      plan.AudioPath,
		Output:     plan.OutputPath,
		Duration:   duration,
		Width:      c.style.Width,
		Height:     c.style.Height,
		FPS:        c.style.FPS,
		VideoCodec: c.style.VideoCodec,
		AudioCodec: c.style.AudioCodec,
		Preset:     c.style.Preset,

		ProgressFunc: c.logProgress(plan.OutputPath, duration),
	})
}

// logProgress reports render progress as a share of the narration length.
func (c *Composer) logProgress(output string, duration float64) ffmpeg.ProgressFunc {
	return func(p *ffmpeg.Progress) {
		percent := 0.0
		if duration > 0 {
			percent = math.Min(p.OutTime/duration*100, 100)
		}
		c.logger.Debug().
			Str("output", output).
			Int("frame", p.Frame).
			Str("out_time", p.Time).
			Str("speed", p.Speed).
			Float64("percent", math.Round(percent)).
			Bool("done", p.Done).
			Msg("render progress")
	}
}

func (c *Composer) clipDuration(ctx context.Context, path string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.clipCache[path]; ok {
		return d, nil
	}
	d, err := c.engine.ProbeDuration(ctx, path)
	if err != nil {
		return 0, err
	}
	c.clipCache[path] = d
	return d, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
