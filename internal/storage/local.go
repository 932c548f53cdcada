package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

const (
	scriptJournal = "generated_scripts.txt"
	journalRule   = "------------------------------------------------------------------------------------------"
)

// LocalStorage owns the output and tracking directories on local disk
type LocalStorage struct {
	outputDir   string
	trackingDir string
}

// NewLocalStorage creates a new local storage handler
func NewLocalStorage(outputDir, trackingDir string) *LocalStorage {
	return &LocalStorage{
		outputDir:   outputDir,
		trackingDir: trackingDir,
	}
}

// VideoPath returns where a rendered file named fileName belongs, creating
// the output directory if needed.
func (ls *LocalStorage) VideoPath(fileName string) (string, error) {
	if err := os.MkdirAll(ls.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(ls.outputDir, filepath.Base(fileName)), nil
}

// JournalPath is the generated-scripts tracking file.
func (ls *LocalStorage) JournalPath() string {
	return filepath.Join(ls.trackingDir, scriptJournal)
}

// AppendScript appends a generated script to the tracking journal. Writers
// in other processes are excluded with a file lock.
func (ls *LocalStorage) AppendScript(title, script string) error {
	if err := os.MkdirAll(ls.trackingDir, 0o755); err != nil {
		return fmt.Errorf("failed to create tracking directory: %w", err)
	}

	lock := flock.New(ls.JournalPath() + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock script journal: %w", err)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(ls.JournalPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open script journal: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "Title:\n%s\n\n%s\n\n", title, script)
	b.WriteString(journalRule + "\n\n")
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("failed to write script journal: %w", err)
	}
	return f.Close()
}
