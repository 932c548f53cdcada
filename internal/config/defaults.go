package config

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}

	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080

	cfg.Workers.Count = 1

	cfg.Queue.Backend = "memory"
	cfg.Queue.RedisURL = "redis://localhost:6379/0"
	cfg.Queue.Name = "q_video_create"

	cfg.Storage.TempDir = "temp"
	cfg.Storage.OutputDir = "output_videos"
	cfg.Storage.TrackingDir = "tracking_files"
	cfg.Storage.Database = "storyshorts.db"

	cfg.Cleanup.IntervalMinutes = 30
	cfg.Cleanup.MaxAgeHours = 6

	cfg.GoogleDrive.CredentialsFile = "config/credentials.json"
	cfg.GoogleDrive.TokenFile = "config/token.json"
	cfg.GoogleDrive.FolderName = "StoryShorts"

	cfg.LLM.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	cfg.LLM.Model = "gemini-2.5-flash"
	cfg.LLM.TimeoutSeconds = 60

	cfg.Voice.Male = "en-US-GuyNeural"
	cfg.Voice.Female = "en-US-JennyNeural"
	cfg.Voice.Rate = "+15%"
	cfg.Voice.Binary = "edge-tts"

	cfg.Whisper.Model = "base"
	cfg.Whisper.Python = "python"
	cfg.Whisper.Language = "en"

	cfg.FFmpeg.BackgroundClip = "minecraft_loop.mp4"

	cfg.Style = DefaultStyle()

	cfg.Source.Subreddits = []string{"TIFU"}
	cfg.Source.Limit = 1
	cfg.Source.Schedule = "@every 6h"

	return cfg
}
