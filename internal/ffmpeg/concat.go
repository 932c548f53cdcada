package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Concat joins inputs end to end with stream copy. Inputs may repeat.
func (e *Executor) Concat(ctx context.Context, opts ConcatOptions) error {
	if len(opts.Inputs) == 0 {
		return errors.New("no input files provided")
	}
	if opts.Output == "" {
		return errors.New("output path is required")
	}

	e.logger.Info().
		Int("inputs", len(opts.Inputs)).
		Str("output", opts.Output).
		Msg("concatenating videos")

	concatFile, err := createConcatFile(filepath.Dir(opts.Output), opts.Inputs)
	if err != nil {
		return fmt.Errorf("failed to create concat file: %w", err)
	}
	defer os.Remove(concatFile)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", concatFile,
		"-c", "copy",
		opts.Output,
	}

	err = e.Run(ctx, RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("concatenating")
		},
	})
	if err != nil {
		return fmt.Errorf("concat failed: %w", err)
	}
	return nil
}

// Trim cuts a window out of the input, re-encoding so the cut is frame exact.
func (e *Executor) Trim(ctx context.Context, opts TrimOptions) error {
	if opts.Input == "" || opts.Output == "" {
		return errors.New("input and output paths are required")
	}
	if opts.Duration <= 0 {
		return fmt.Errorf("trim duration %.3f must be positive", opts.Duration)
	}

	codec := opts.VideoCodec
	if codec == "" {
		codec = DefaultVideoCodec
	}
	preset := opts.Preset
	if preset == "" {
		preset = DefaultPreset
	}

	args := []string{
		"-ss", formatSeconds(opts.Start),
		"-i", opts.Input,
		"-t", formatSeconds(opts.Duration),
		"-an",
		"-c:v", codec,
		"-preset", preset,
		opts.Output,
	}

	err := e.Run(ctx, RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("trimming")
		},
	})
	if err != nil {
		return fmt.Errorf("trim failed: %w", err)
	}
	return nil
}

// createConcatFile generates a file list for the concat demuxer next to
// the output so it shares the run's scratch directory.
func createConcatFile(dir string, inputs []string) (string, error) {
	tmpFile, err := os.CreateTemp(dir, "concat-*.txt")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	for _, input := range inputs {
		absPath, err := filepath.Abs(input)
		if err != nil {
			os.Remove(tmpFile.Name())
			return "", err
		}
		escaped := strings.ReplaceAll(absPath, "'", `'\''`)
		if _, err := fmt.Fprintf(tmpFile, "file '%s'\n", escaped); err != nil {
			os.Remove(tmpFile.Name())
			return "", err
		}
	}

	return tmpFile.Name(), nil
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}
