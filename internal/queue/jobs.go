package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

// Job represents a video creation job
type Job struct {
	ID         string     `json:"id"`
	SourceType string     `json:"source_type"`
	Post       types.Post `json:"post"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewJob creates a new job with a fresh ID
func NewJob(sourceType string, post types.Post) *Job {
	return &Job{
		ID:         uuid.New().String(),
		SourceType: sourceType,
		Post:       post,
		CreatedAt:  time.Now(),
	}
}

func encodeJob(job *Job) (string, error) {
	b, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	return string(b), nil
}

func decodeJob(payload string) (*Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	if job.ID == "" {
		return nil, fmt.Errorf("decode job: missing id")
	}
	return &job, nil
}
