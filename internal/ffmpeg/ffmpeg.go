package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// CommandRunner executes a command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Executor handles all ffmpeg operations with progress streaming
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
	runner      CommandRunner
}

// New creates a new ffmpeg executor
func New(logger zerolog.Logger, threads int) (*Executor, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	return NewWithPaths(logger, ffmpegPath, ffprobePath, threads), nil
}

// NewWithPaths creates an executor for known binary paths without looking
// them up.
func NewWithPaths(logger zerolog.Logger, ffmpegPath, ffprobePath string, threads int) *Executor {
	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     threads,
	}
}

// WithCommandRunner replaces process execution, for tests.
func (e *Executor) WithCommandRunner(r CommandRunner) *Executor {
	e.runner = r
	return e
}

// Run executes ffmpeg with the given arguments and streams progress
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return errors.New("no arguments provided")
	}

	// Threads go before the inputs so they apply to decoding as well.
	baseArgs := []string{"-y", "-hide_banner", "-loglevel", "info"}
	if e.threads > 0 {
		baseArgs = append(baseArgs, "-threads", fmt.Sprintf("%d", e.threads))
	}
	baseArgs = append(baseArgs, "-progress", "pipe:2")
	args := append(baseArgs, opts.Args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	if e.runner != nil {
		output, err := e.runner(ctx, e.ffmpegPath, args...)
		if perr := ParseProgress(bytes.NewReader(output), opts.ProgressHandler, opts.LogHandler); perr != nil {
			e.logger.Warn().Err(perr).Msg("failed to read ffmpeg output")
		}
		if err != nil {
			return fmt.Errorf("ffmpeg execution failed: %w", err)
		}
		return nil
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := ParseProgress(stderr, opts.ProgressHandler, opts.LogHandler); err != nil {
			e.logger.Warn().Err(err).Msg("failed to read ffmpeg output")
		}
	}()

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if opts.LogHandler != nil {
				opts.LogHandler(scanner.Text())
			}
		}
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

// output runs a command and captures its output, used for ffprobe.
func (e *Executor) output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if e.runner != nil {
		return e.runner(ctx, name, args...)
	}
	return exec.CommandContext(ctx, name, args...).Output()
}

// ParseProgress reads ffmpeg's stderr with -progress blocks interleaved.
// Every line goes to onLine; onProgress is called once per completed block
// that reports any advance. Either callback may be nil.
func ParseProgress(r io.Reader, onProgress ProgressFunc, onLine func(string)) error {
	scanner := bufio.NewScanner(r)
	block := &Progress{}

	for scanner.Scan() {
		line := scanner.Text()
		if onLine != nil {
			onLine(line)
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "frame":
			block.Frame, _ = strconv.Atoi(value)
		case "fps":
			block.FPS, _ = strconv.ParseFloat(value, 64)
		case "out_time_us":
			if us, err := strconv.ParseInt(value, 10, 64); err == nil && us > 0 {
				block.OutTime = float64(us) / 1e6
			}
		case "out_time":
			block.Time = value
		case "speed":
			block.Speed = value
		case "progress":
			block.Done = value == "end"
			if onProgress != nil && (block.Frame > 0 || block.OutTime > 0) {
				onProgress(block)
			}
			block = &Progress{}
		}
	}
	return scanner.Err()
}
