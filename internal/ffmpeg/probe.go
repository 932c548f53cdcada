package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ProbeDuration returns the container duration of a media file in seconds.
func (e *Executor) ProbeDuration(ctx context.Context, filePath string) (float64, error) {
	if filePath == "" {
		return 0, errors.New("file path is required")
	}

	output, err := e.output(ctx, e.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		filePath,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	dur, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe reported no duration for %s: %w", filePath, err)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("ffprobe reported non-positive duration %.3f for %s", dur, filePath)
	}
	return dur, nil
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}
