package types

import "time"

// Task status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Source type constants
const (
	SourceAPI       = "api"
	SourceCLI       = "cli"
	SourceScheduled = "scheduled"
)

// Post is a content record delivered by a content source or the API.
type Post struct {
	ID        string `json:"id,omitempty"`
	Subreddit string `json:"subreddit,omitempty"`
	Title     string `json:"title"`
	Text      string `json:"text"`
}

// NarrationScript is one story to narrate.
type NarrationScript struct {
	Title string
	Body  string
}

// ScriptPart is a paragraph-aligned slice of a script body.
type ScriptPart struct {
	Index int // 1-based
	Total int
	Body  string
}

// WordToken is one transcribed word with its spoken window in seconds.
type WordToken struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment represents a timestamped segment of transcription
type Segment struct {
	Start float64     `json:"start"`
	End   float64     `json:"end"`
	Text  string      `json:"text"`
	Words []WordToken `json:"words,omitempty"`
}

// TranscriptionResult represents the output from Whisper
type TranscriptionResult struct {
	Text     string
	Language string
	Duration float64
	Segments []Segment
}

// Words flattens segment words into a single time-ordered sequence.
func (r *TranscriptionResult) Words() []WordToken {
	if r == nil {
		return nil
	}
	var words []WordToken
	for _, seg := range r.Segments {
		words = append(words, seg.Words...)
	}
	return words
}

// TitleCard is the on-screen title overlay.
type TitleCard struct {
	Text     string
	Handle   string
	Duration float64
}

// SubtitleChunk is a timed group of words shown as one caption.
type SubtitleChunk struct {
	Text  string
	Start float64
	End   float64
}

// Duration returns how long the chunk stays on screen.
func (c SubtitleChunk) Duration() float64 {
	return c.End - c.Start
}

// CompositionPlan is the full set of timed layers handed to rendering.
type CompositionPlan struct {
	BackgroundPath string
	TitleCard      TitleCard
	Subtitles      []SubtitleChunk
	AudioPath      string
	AudioDuration  float64
	OutputPath     string
}

// VideoRecord describes a rendered video file.
type VideoRecord struct {
	TaskID        string    `json:"task_id"`
	PostTitle     string    `json:"post_title"`
	Part          int       `json:"part"`
	TotalParts    int       `json:"total_parts"`
	Path          string    `json:"path"`
	Voice         string    `json:"voice"`
	TitleDuration float64   `json:"title_duration"`
	Duration      float64   `json:"duration"`
	DriveURL      string    `json:"gdrive_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// TaskRecord is the persisted state of a queued video task.
type TaskRecord struct {
	ID         string
	Title      string
	SourceType string
	Status     string
	Result     string
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
