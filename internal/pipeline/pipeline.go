package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/story-shorts/internal/script"
	"github.com/codebuildervaibhav/story-shorts/internal/timing"
	"github.com/codebuildervaibhav/story-shorts/internal/types"
	"github.com/codebuildervaibhav/story-shorts/internal/voice"
)

// ErrNoScript is returned when the script writer produced nothing usable.
var ErrNoScript = errors.New("failed to generate script")

// ScriptWriter turns "<title>\n<text>" into narration text.
type ScriptWriter interface {
	GenerateScript(ctx context.Context, post string) (string, error)
}

// VoiceSelector picks a narrator voice; it never fails.
type VoiceSelector interface {
	Select(ctx context.Context, text string) voice.Decision
}

// Synthesizer writes narration audio to dest.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice, dest string) error
}

// Aligner transcribes narration audio into timestamped words.
type Aligner interface {
	Transcribe(ctx context.Context, audioPath, hint string) (*types.TranscriptionResult, error)
}

// Composer renders a composition plan.
type Composer interface {
	Compose(ctx context.Context, plan types.CompositionPlan) error
}

// Storage places output files and journals generated scripts.
type Storage interface {
	VideoPath(fileName string) (string, error)
	AppendScript(title, script string) error
}

// Recorder persists rendered video metadata.
type Recorder interface {
	SaveVideo(v types.VideoRecord) error
}

// Uploader publishes a rendered video and returns its link.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// Options are the per-deployment settings of a pipeline.
type Options struct {
	TempDir        string
	BackgroundClip string
	Handle         string
	WordsPerChunk  int
}

// Pipeline turns one post into one or more narrated videos.
type Pipeline struct {
	writer      ScriptWriter
	voices      VoiceSelector
	synthesizer Synthesizer
	aligner     Aligner
	composer    Composer
	storage     Storage
	recorder    Recorder
	uploader    Uploader
	opts        Options
	logger      zerolog.Logger
}

// Deps are the collaborators a pipeline needs. Recorder and Uploader are
// optional.
type Deps struct {
	Writer      ScriptWriter
	Voices      VoiceSelector
	Synthesizer Synthesizer
	Aligner     Aligner
	Composer    Composer
	Storage     Storage
	Recorder    Recorder
	Uploader    Uploader
}

// New creates a pipeline.
func New(deps Deps, opts Options, logger zerolog.Logger) *Pipeline {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.WordsPerChunk < 1 {
		opts.WordsPerChunk = timing.DefaultWordsPerChunk
	}
	return &Pipeline{
		writer:      deps.Writer,
		voices:      deps.Voices,
		synthesizer: deps.Synthesizer,
		aligner:     deps.Aligner,
		composer:    deps.Composer,
		storage:     deps.Storage,
		recorder:    deps.Recorder,
		uploader:    deps.Uploader,
		opts:        opts,
		logger:      logger.With().Str("component", "pipeline").Logger(),
	}
}

// Result describes a completed run.
type Result struct {
	Summary string
	Videos  []types.VideoRecord
}

// Run generates the script for post and renders every part in order. A
// failing part aborts the run; files of earlier parts stay on disk.
func (p *Pipeline) Run(ctx context.Context, taskID string, post types.Post) (*Result, error) {
	title := strings.TrimSpace(post.Title)
	if title == "" {
		title = "Untitled"
	}
	logger := p.logger.With().Str("task_id", taskID).Str("title", title).Logger()

	cleaned := script.CleanForNarration(post.Text)
	logger.Info().Msg("generating script")
	text, err := p.writer.GenerateScript(ctx, title+"\n"+cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %v", ErrNoScript, title, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w for %s", ErrNoScript, title)
	}

	story := types.NarrationScript{Title: title, Body: text}
	if err := p.storage.AppendScript(story.Title, story.Body); err != nil {
		logger.Warn().Err(err).Msg("failed to journal generated script")
	}

	parts := script.Plan(story)
	logger.Info().
		Float64("minutes", script.EstimateMinutes(story.Body)).
		Int("parts", len(parts)).
		Msg("script planned")

	res := &Result{}
	for _, part := range parts {
		video, err := p.runPart(ctx, logger, taskID, story, part)
		if err != nil {
			return res, fmt.Errorf("part %d/%d: %w", part.Index, part.Total, err)
		}
		res.Videos = append(res.Videos, video)
	}

	res.Summary = fmt.Sprintf("Created %d video(s) for post '%s'", len(res.Videos), story.Title)
	return res, nil
}

func (p *Pipeline) runPart(ctx context.Context, logger zerolog.Logger, taskID string, story types.NarrationScript, part types.ScriptPart) (types.VideoRecord, error) {
	spec := script.NamePart(story.Title, part)
	logger = logger.With().Int("part", part.Index).Int("parts", part.Total).Logger()
	logger.Info().Str("file", spec.OutputFileName).Msg("creating part")

	outputPath, err := p.storage.VideoPath(spec.OutputFileName)
	if err != nil {
		return types.VideoRecord{}, err
	}

	decision := p.voices.Select(ctx, spec.Narration)

	if err := os.MkdirAll(p.opts.TempDir, 0o755); err != nil {
		return types.VideoRecord{}, fmt.Errorf("create temp dir: %w", err)
	}
	audioPath := filepath.Join(p.opts.TempDir, fmt.Sprintf("narration_%s.mp3", uuid.New().String()))
	defer func() {
		if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", audioPath).Msg("failed to remove narration audio")
		}
	}()

	if err := p.synthesizer.Synthesize(ctx, script.SynthesisForm(spec.Narration), decision.Voice, audioPath); err != nil {
		return types.VideoRecord{}, err
	}

	// One transcription per part feeds both the title card and the captions.
	transcript, err := p.aligner.Transcribe(ctx, audioPath, script.HintForm(spec.Narration))
	if err != nil {
		logger.Warn().Err(err).Msg("alignment failed, continuing without word timestamps")
		transcript = &types.TranscriptionResult{}
	}
	words := transcript.Words()

	resolved := timing.ResolveTitleDuration(spec.SpokenTitle, words)
	if resolved.Estimated {
		logger.Warn().
			Str("reason", resolved.Reason).
			Int("matched", resolved.MatchedWords).
			Int("title_words", resolved.TitleWords).
			Float64("duration", resolved.Duration).
			Msg("title duration estimated")
	}

	captions := timing.ChunkSubtitles(words, resolved.Duration, p.opts.WordsPerChunk)
	if captions.Unfiltered {
		logger.Warn().Float64("title_duration", resolved.Duration).Msg("no words after title card, captioning all words")
	}

	plan := types.CompositionPlan{
		BackgroundPath: p.opts.BackgroundClip,
		TitleCard: types.TitleCard{
			Text:     spec.OnScreenTitle,
			Handle:   p.opts.Handle,
			Duration: resolved.Duration,
		},
		Subtitles:  captions.Chunks,
		AudioPath:  audioPath,
		OutputPath: outputPath,
	}
	if err := p.composer.Compose(ctx, plan); err != nil {
		return types.VideoRecord{}, err
	}

	video := types.VideoRecord{
		TaskID:        taskID,
		PostTitle:     story.Title,
		Part:          part.Index,
		TotalParts:    part.Total,
		Path:          outputPath,
		Voice:         decision.Voice,
		TitleDuration: resolved.Duration,
		Duration:      transcript.Duration,
		CreatedAt:     time.Now(),
	}

	if p.uploader != nil {
		url, err := p.uploader.Upload(ctx, outputPath)
		if err != nil {
			logger.Warn().Err(err).Msg("upload failed, keeping local file only")
		} else {
			video.DriveURL = url
		}
	}
	if p.recorder != nil {
		if err := p.recorder.SaveVideo(video); err != nil {
			logger.Warn().Err(err).Msg("failed to record video metadata")
		}
	}

	logger.Info().
		Str("path", outputPath).
		Str("voice", decision.Voice).
		Float64("title_duration", resolved.Duration).
		Int("captions", len(captions.Chunks)).
		Msg("part complete")
	return video, nil
}
