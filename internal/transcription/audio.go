package transcription

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// NormalizeAudio converts any audio file to 16kHz mono WAV format inside
// tempDir and returns the new path. The caller removes it.
func NormalizeAudio(ctx context.Context, run CommandRunner, ffmpegBinary, tempDir, inputPath string) (string, error) {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	outputPath := filepath.Join(tempDir, fmt.Sprintf("normalized_%s.wav", uuid.New().String()))

	err := run(ctx, ffmpegBinary,
		"-i", inputPath,
		"-ar", "16000", // 16kHz sample rate
		"-ac", "1", // Mono
		"-c:a", "pcm_s16le",
		"-y",
		outputPath,
	)
	if err != nil {
		return "", fmt.Errorf("normalize audio: %w", err)
	}

	return outputPath, nil
}

// audioExtensions are the narration formats the transcriber accepts.
var audioExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".ogg": true,
	".flac": true, ".webm": true, ".aac": true,
}

// ValidateAudioFormat reports whether filename has a supported audio extension.
func ValidateAudioFormat(filename string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(filename))]
}
