package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/story-shorts/internal/cleanup"
	"github.com/codebuildervaibhav/story-shorts/internal/config"
	"github.com/codebuildervaibhav/story-shorts/internal/ffmpeg"
	"github.com/codebuildervaibhav/story-shorts/internal/llm"
	"github.com/codebuildervaibhav/story-shorts/internal/pipeline"
	"github.com/codebuildervaibhav/story-shorts/internal/queue"
	"github.com/codebuildervaibhav/story-shorts/internal/render"
	"github.com/codebuildervaibhav/story-shorts/internal/storage"
	"github.com/codebuildervaibhav/story-shorts/internal/transcription"
	"github.com/codebuildervaibhav/story-shorts/internal/tts"
	"github.com/codebuildervaibhav/story-shorts/internal/voice"
)

// services are the long-lived components shared by every command.
type services struct {
	cfg      *config.Config
	db       *storage.MetadataDB
	pipeline *pipeline.Pipeline
}

func (s *services) Close() error {
	return s.db.Close()
}

// newServices opens the database and assembles the pipeline.
func newServices(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*services, error) {
	if err := cleanup.EnsureDirs(cfg.Storage.TempDir, cfg.Storage.OutputDir, cfg.Storage.TrackingDir); err != nil {
		return nil, fmt.Errorf("create working directories: %w", err)
	}

	db, err := storage.NewMetadataDB(cfg.Storage.Database)
	if err != nil {
		return nil, err
	}

	executor, err := ffmpeg.New(logger, cfg.Style.Threads)
	if err != nil {
		db.Close()
		return nil, err
	}

	writer := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}, logger)

	deps := pipeline.Deps{
		Writer: writer,
		Voices: voice.NewSelector(writer, cfg.Voice.Male, cfg.Voice.Female, logger),
		Synthesizer: tts.New(tts.Config{
			Binary: cfg.Voice.Binary,
			Rate:   cfg.Voice.Rate,
		}, logger),
		Aligner: transcription.NewWhisperTranscriber(transcription.Config{
			Python:   cfg.Whisper.Python,
			Model:    cfg.Whisper.Model,
			Language: cfg.Whisper.Language,
			FFmpeg:   "ffmpeg",
			TempDir:  cfg.Storage.TempDir,
		}, logger),
		Composer: render.NewComposer(executor, cfg.Style, cfg.Storage.TempDir, logger),
		Storage:  storage.NewLocalStorage(cfg.Storage.OutputDir, cfg.Storage.TrackingDir),
		Recorder: db,
	}
	if drive := newDriveClient(ctx, cfg, logger); drive != nil {
		deps.Uploader = drive
	}

	p := pipeline.New(deps, pipeline.Options{
		TempDir:        cfg.Storage.TempDir,
		BackgroundClip: cfg.FFmpeg.BackgroundClip,
		Handle:         cfg.Style.Handle,
		WordsPerChunk:  cfg.Style.WordsPerChunk,
	}, logger)

	return &services{cfg: cfg, db: db, pipeline: p}, nil
}

// newDriveClient returns nil when Drive upload is not set up.
func newDriveClient(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *storage.DriveClient {
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err != nil {
		logger.Info().Msg("google drive credentials not found, saving locally only")
		return nil
	}
	client, err := storage.NewDriveClient(ctx,
		cfg.GoogleDrive.CredentialsFile,
		cfg.GoogleDrive.TokenFile,
		cfg.GoogleDrive.FolderName,
	)
	if err != nil {
		if errors.Is(err, storage.ErrNoToken) {
			logger.Warn().Msg("google drive token missing, run `storyshorts drive auth` to enable uploads")
		} else {
			logger.Warn().Err(err).Msg("google drive not available, saving locally only")
		}
		return nil
	}
	logger.Info().Str("folder", cfg.GoogleDrive.FolderName).Msg("google drive upload enabled")
	return client
}

// newBroker connects the configured queue backend.
func newBroker(ctx context.Context, cfg *config.Config) (queue.Broker, error) {
	if cfg.Queue.Backend == "redis" {
		return queue.NewRedisBroker(ctx, cfg.Queue.RedisURL, cfg.Queue.Name)
	}
	return queue.NewMemoryBroker(100), nil
}
