package transcription

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

const sampleWhisperJSON = `{
  "text": " My Story. It began on a Tuesday.",
  "language": "en",
  "segments": [
    {"id": 0, "start": 0.0, "end": 1.2, "text": " My Story.",
     "words": [{"word": " My", "start": 0.0, "end": 0.4, "probability": 0.9},
               {"word": " Story.", "start": 0.4, "end": 1.1, "probability": 0.8}]},
    {"id": 1, "start": 1.2, "end": 3.0, "text": " It began on a Tuesday.",
     "words": [{"word": " It", "start": 1.2, "end": 1.4, "probability": 0.9},
               {"word": " began", "start": 1.4, "end": 1.8, "probability": 0.9},
               {"word": " on", "start": 1.8, "end": 2.0, "probability": 0.9},
               {"word": " a", "start": 2.0, "end": 2.1, "probability": 0.9},
               {"word": " Tuesday.", "start": 2.1, "end": 3.0, "probability": 0.9}]}
  ]
}`

func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// fakeRunner simulates ffmpeg and whisper by writing their output files.
func fakeRunner(t *testing.T, whisperJSON string, calls *[]string) CommandRunner {
	t.Helper()
	return func(ctx context.Context, name string, args ...string) error {
		*calls = append(*calls, name)
		switch name {
		case "ffmpeg":
			return os.WriteFile(args[len(args)-1], []byte("RIFF"), 0o644)
		case "python":
			audio := args[2]
			base := strings.TrimSuffix(filepath.Base(audio), filepath.Ext(audio))
			return os.WriteFile(filepath.Join(argAfter(args, "--output_dir"), base+".json"), []byte(whisperJSON), 0o644)
		}
		t.Fatalf("unexpected command %s", name)
		return nil
	}
}

func TestTranscribeParsesWords(t *testing.T) {
	tempDir := t.TempDir()
	wt := NewWhisperTranscriber(Config{TempDir: tempDir}, zerolog.Nop())

	var calls []string
	var hint string
	runner := fakeRunner(t, sampleWhisperJSON, &calls)
	wt.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		if name == "python" {
			hint = argAfter(args, "--initial_prompt")
			if argAfter(args, "--word_timestamps") != "True" {
				t.Errorf("word timestamps not requested: %v", args)
			}
		}
		return runner(ctx, name, args...)
	})

	res, err := wt.Transcribe(context.Background(), "narration.mp3", "My Story.\n\nIt began on a Tuesday.")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if len(calls) != 2 || calls[0] != "ffmpeg" || calls[1] != "python" {
		t.Fatalf("unexpected calls %v", calls)
	}
	if hint != "My Story.\n\nIt began on a Tuesday." {
		t.Fatalf("hint not passed, got %q", hint)
	}

	words := res.Words()
	if len(words) != 7 {
		t.Fatalf("expected 7 words, got %d", len(words))
	}
	if words[1].Text != "Story." || words[1].End != 1.1 {
		t.Fatalf("unexpected word %+v", words[1])
	}
	if res.Duration != 3.0 || res.Language != "en" {
		t.Fatalf("unexpected result %+v", res)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("scratch files left behind: %v", entries)
	}
}

func TestTranscribeNoWordsIsNotAnError(t *testing.T) {
	wt := NewWhisperTranscriber(Config{TempDir: t.TempDir()}, zerolog.Nop())
	var calls []string
	wt.WithCommandRunner(fakeRunner(t, `{"text":"","language":"en","segments":[]}`, &calls))

	res, err := wt.Transcribe(context.Background(), "narration.mp3", "")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if len(res.Words()) != 0 {
		t.Fatalf("expected no words, got %v", res.Words())
	}
}

func TestTranscribeFailures(t *testing.T) {
	wt := NewWhisperTranscriber(Config{TempDir: t.TempDir()}, zerolog.Nop())

	if _, err := wt.Transcribe(context.Background(), "narration.txt", ""); err == nil {
		t.Fatal("expected unsupported format error")
	}

	wt.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		if name == "ffmpeg" {
			return os.WriteFile(args[len(args)-1], []byte("RIFF"), 0o644)
		}
		return errors.New("whisper crashed")
	})
	if _, err := wt.Transcribe(context.Background(), "narration.mp3", ""); err == nil {
		t.Fatal("expected whisper failure")
	}
}

func TestResolveModelName(t *testing.T) {
	tests := map[string]string{
		"":                "base",
		"small":           "small",
		"ggml-medium.bin": "medium",
		"models/large-v3": "large",
		"unknown":         "base",
	}
	for in, want := range tests {
		if got := resolveModelName(in); got != want {
			t.Errorf("resolveModelName(%q) = %q, want %q", in, got, want)
		}
	}
}
