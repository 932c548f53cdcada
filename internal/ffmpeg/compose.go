package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// Compose renders background, title overlay, burned-in captions and the
// narration audio into one file.
func (e *Executor) Compose(ctx context.Context, opts ComposeOptions) error {
	args, err := ComposeArgs(opts)
	if err != nil {
		return fmt.Errorf("invalid compose options: %w", err)
	}

	e.logger.Info().
		Str("output", opts.Output).
		Float64("duration", opts.Duration).
		Float64("overlay_end", opts.OverlayEnd).
		Msg("starting render")

	err = e.Run(ctx, RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("render output")
		},
	})
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("render completed")
	return nil
}

// ComposeArgs builds the ffmpeg arguments for Compose.
func ComposeArgs(opts ComposeOptions) ([]string, error) {
	switch {
	case opts.Background == "":
		return nil, errors.New("background path is required")
	case opts.Audio == "":
		return nil, errors.New("audio path is required")
	case opts.Output == "":
		return nil, errors.New("output path is required")
	case opts.Width <= 0 || opts.Height <= 0:
		return nil, fmt.Errorf("canvas %dx%d must be positive", opts.Width, opts.Height)
	case opts.Duration <= 0:
		return nil, fmt.Errorf("duration %.3f must be positive", opts.Duration)
	}

	args := []string{"-i", opts.Background}
	audioIndex := 1
	if opts.Overlay != "" {
		args = append(args, "-i", opts.Overlay)
		audioIndex = 2
	}
	args = append(args, "-i", opts.Audio)

	graph := []string{fmt.Sprintf("[0:v]scale=%d:%d,setsar=1[bg]", opts.Width, opts.Height)}
	last := "bg"
	if opts.Overlay != "" && opts.OverlayEnd > 0 {
		graph = append(graph, fmt.Sprintf("[%s][1:v]overlay=0:0:enable='between(t,0,%s)'[titled]",
			last, formatSeconds(opts.OverlayEnd)))
		last = "titled"
	}
	if opts.Subtitles != "" {
		filter := "subtitles=filename=" + escapeFilterPath(opts.Subtitles)
		if opts.FontsDir != "" {
			filter += ":fontsdir=" + escapeFilterPath(opts.FontsDir)
		}
		graph = append(graph, fmt.Sprintf("[%s]%s[captioned]", last, filter))
		last = "captioned"
	}

	fps := opts.FPS
	if fps <= 0 {
		fps = 24
	}
	videoCodec := opts.VideoCodec
	if videoCodec == "" {
		videoCodec = DefaultVideoCodec
	}
	audioCodec := opts.AudioCodec
	if audioCodec == "" {
		audioCodec = DefaultAudioCodec
	}
	preset := opts.Preset
	if preset == "" {
		preset = DefaultPreset
	}

	args = append(args,
		"-filter_complex", strings.Join(graph, ";"),
		"-map", "["+last+"]",
		"-map", fmt.Sprintf("%d:a", audioIndex),
		"-r", fmt.Sprintf("%d", fps),
		"-c:v", videoCodec,
		"-preset", preset,
		"-pix_fmt", "yuv420p",
		"-c:a", audioCodec,
		"-t", formatSeconds(opts.Duration),
		opts.Output,
	)
	return args, nil
}

// escapeFilterPath escapes a file path for use inside an ffmpeg filter
func escapeFilterPath(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	if runtime.GOOS == "windows" {
		absPath = strings.ReplaceAll(absPath, "\\", "/")
	}

	escaped := strings.ReplaceAll(absPath, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, ":", `\:`)
	escaped = strings.ReplaceAll(escaped, "'", `\'`)
	escaped = strings.ReplaceAll(escaped, ",", `\,`)
	return escaped
}
