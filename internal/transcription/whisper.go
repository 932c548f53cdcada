package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Config selects the Whisper model and the binaries used to run it.
type Config struct {
	Python   string
	Model    string
	Language string
	FFmpeg   string
	TempDir  string
}

// WhisperTranscriber wraps Python's OpenAI Whisper for word-level alignment.
// Build one per process and share it; calls are serialized.
type WhisperTranscriber struct {
	cfg    Config
	run    CommandRunner
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewWhisperTranscriber creates a transcriber. Model accepts either a bare
// name ("base") or a model file path such as "ggml-base.bin".
func NewWhisperTranscriber(cfg Config, logger zerolog.Logger) *WhisperTranscriber {
	cfg.Model = resolveModelName(cfg.Model)
	if cfg.Python == "" {
		cfg.Python = "python"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = "temp"
	}
	logger = logger.With().Str("component", "whisper").Logger()
	logger.Info().Str("model", cfg.Model).Str("python", cfg.Python).Msg("whisper transcriber ready")

	return &WhisperTranscriber{
		cfg:    cfg,
		run:    defaultCommandRunner,
		logger: logger,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (wt *WhisperTranscriber) WithCommandRunner(r CommandRunner) {
	wt.run = r
}

func resolveModelName(model string) string {
	m := strings.ToLower(model)
	for _, name := range []string{"tiny", "base", "small", "medium", "large"} {
		if strings.Contains(m, name) {
			return name
		}
	}
	return "base"
}

// Transcribe aligns audioPath with word timestamps, using hint as the
// decoding prompt. A transcript without words is returned as-is; callers
// apply their own fallbacks.
func (wt *WhisperTranscriber) Transcribe(ctx context.Context, audioPath, hint string) (*types.TranscriptionResult, error) {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	if !ValidateAudioFormat(audioPath) {
		return nil, fmt.Errorf("unsupported audio format: %s", filepath.Ext(audioPath))
	}
	if err := os.MkdirAll(wt.cfg.TempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	normalized, err := NormalizeAudio(ctx, wt.run, wt.cfg.FFmpeg, wt.cfg.TempDir, audioPath)
	if err != nil {
		return nil, err
	}
	defer wt.remove(normalized)

	outputDir := filepath.Join(wt.cfg.TempDir, "whisper_"+uuid.New().String())
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create whisper output dir: %w", err)
	}
	defer wt.remove(outputDir)

	args := []string{"-m", "whisper",
		normalized,
		"--model", wt.cfg.Model,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--language", wt.cfg.Language,
		"--word_timestamps", "True",
		"--fp16", "False", // CPU compatibility
	}
	if hint = strings.TrimSpace(hint); hint != "" {
		args = append(args, "--initial_prompt", hint)
	}

	wt.logger.Debug().Str("audio", audioPath).Int("hint_chars", len(hint)).Msg("transcribing")
	if err := wt.run(ctx, wt.cfg.Python, args...); err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(normalized), filepath.Ext(normalized))
	jsonData, err := os.ReadFile(filepath.Join(outputDir, baseName+".json"))
	if err != nil {
		return nil, fmt.Errorf("read whisper output: %w", err)
	}

	result, err := ParseWhisperJSON(jsonData)
	if err != nil {
		return nil, err
	}

	words := len(result.Words())
	if words == 0 {
		wt.logger.Warn().Str("audio", audioPath).Msg("transcript has no word timestamps")
	}
	wt.logger.Info().Int("segments", len(result.Segments)).Int("words", words).
		Float64("duration", result.Duration).Msg("transcription completed")
	return result, nil
}

// ParseWhisperJSON converts Whisper's JSON output into a TranscriptionResult.
func ParseWhisperJSON(data []byte) (*types.TranscriptionResult, error) {
	var out WhisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse whisper JSON: %w", err)
	}

	segments := make([]types.Segment, len(out.Segments))
	for i, seg := range out.Segments {
		words := make([]types.WordToken, 0, len(seg.Words))
		for _, w := range seg.Words {
			words = append(words, types.WordToken{
				Text:  strings.TrimSpace(w.Word),
				Start: w.Start,
				End:   w.End,
			})
		}
		segments[i] = types.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
			Words: words,
		}
	}

	var duration float64
	if len(segments) > 0 {
		duration = segments[len(segments)-1].End
	}

	return &types.TranscriptionResult{
		Text:     strings.TrimSpace(out.Text),
		Language: out.Language,
		Duration: duration,
		Segments: segments,
	}, nil
}

func (wt *WhisperTranscriber) remove(path string) {
	if err := os.RemoveAll(path); err != nil {
		wt.logger.Warn().Err(err).Str("path", path).Msg("failed to remove transcription scratch file")
	}
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// WhisperOutput matches Python Whisper's JSON output format
type WhisperOutput struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []WhisperSegment `json:"segments"`
}

// WhisperSegment represents a timestamped segment from Whisper
type WhisperSegment struct {
	ID    int           `json:"id"`
	Start float64       `json:"start"`
	End   float64       `json:"end"`
	Text  string        `json:"text"`
	Words []WhisperWord `json:"words"`
}

// WhisperWord is one word emitted with --word_timestamps.
type WhisperWord struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability"`
}
