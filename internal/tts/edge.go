package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// ErrSynthesis wraps every failure to produce narration audio.
var ErrSynthesis = errors.New("speech synthesis failed")

// DefaultRate speeds the voice up over its baseline.
const DefaultRate = "+15%"

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Config selects the edge-tts binary and speaking rate.
type Config struct {
	Binary string
	Rate   string
}

// Synthesizer turns text into an audio file via the edge-tts CLI.
type Synthesizer struct {
	binary string
	rate   string
	run    CommandRunner
	logger zerolog.Logger
}

// New creates a synthesizer.
func New(cfg Config, logger zerolog.Logger) *Synthesizer {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		binary = "edge-tts"
	}
	rate := strings.TrimSpace(cfg.Rate)
	if rate == "" {
		rate = DefaultRate
	}
	return &Synthesizer{
		binary: binary,
		rate:   rate,
		run:    defaultCommandRunner,
		logger: logger.With().Str("component", "tts").Logger(),
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (s *Synthesizer) WithCommandRunner(r CommandRunner) {
	s.run = r
}

// Synthesize writes speech for text in the given voice to dest. A missing
// or empty output file counts as a failure.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voice, dest string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: empty text", ErrSynthesis)
	}
	if voice == "" {
		return fmt.Errorf("%w: no voice selected", ErrSynthesis)
	}

	args := []string{
		"--voice", voice,
		"--rate=" + s.rate,
		"--text", text,
		"--write-media", dest,
	}
	s.logger.Debug().Str("voice", voice).Str("rate", s.rate).Int("chars", len(text)).Msg("synthesizing narration")

	if err := s.run(ctx, s.binary, args...); err != nil {
		return fmt.Errorf("%w: %v", ErrSynthesis, err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("%w: no output: %v", ErrSynthesis, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: empty output %s", ErrSynthesis, dest)
	}

	s.logger.Info().Str("voice", voice).Str("path", dest).Int64("bytes", info.Size()).Msg("narration synthesized")
	return nil
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
