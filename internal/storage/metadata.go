package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

// ErrNotFound is returned when a task does not exist.
var ErrNotFound = errors.New("not found")

// MetadataDB handles SQLite database operations
type MetadataDB struct {
	db *sql.DB
}

// NewMetadataDB creates a new metadata database
func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		source_type TEXT NOT NULL,
		status TEXT NOT NULL,
		result TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS videos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id TEXT NOT NULL,
		post_title TEXT NOT NULL,
		part INTEGER NOT NULL,
		total_parts INTEGER NOT NULL,
		path TEXT NOT NULL,
		voice TEXT NOT NULL,
		title_duration REAL,
		duration REAL,
		gdrive_url TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS seen_posts (
		post_id TEXT PRIMARY KEY,
		subreddit TEXT NOT NULL,
		seen_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_videos_created_at ON videos(created_at);
	CREATE INDEX IF NOT EXISTS idx_videos_task_id ON videos(task_id);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &MetadataDB{db: db}, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// CreateTask stores a newly queued task.
func (mdb *MetadataDB) CreateTask(task types.TaskRecord) error {
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.Status == "" {
		task.Status = types.StatusQueued
	}
	_, err := mdb.db.Exec(`
	INSERT INTO tasks (id, title, source_type, status, result, error, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Title, task.SourceType, task.Status, task.Result, task.Error,
		formatTime(task.CreatedAt), formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// UpdateTaskStatus records a status transition with its result or error.
func (mdb *MetadataDB) UpdateTaskStatus(id, status, result, errMsg string) error {
	res, err := mdb.db.Exec(`
	UPDATE tasks SET status = ?, result = ?, error = ?, updated_at = ? WHERE id = ?`,
		status, result, errMsg, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetTask retrieves a task by ID
func (mdb *MetadataDB) GetTask(id string) (*types.TaskRecord, error) {
	row := mdb.db.QueryRow(`
	SELECT id, title, source_type, status, result, error, created_at, updated_at
	FROM tasks WHERE id = ?`, id)

	var (
		task             types.TaskRecord
		created, updated string
	)
	err := row.Scan(&task.ID, &task.Title, &task.SourceType, &task.Status, &task.Result, &task.Error, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	task.CreatedAt = parseTime(created)
	task.UpdatedAt = parseTime(updated)
	return &task, nil
}

// SaveVideo saves rendered video metadata
func (mdb *MetadataDB) SaveVideo(v types.VideoRecord) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	_, err := mdb.db.Exec(`
	INSERT INTO videos (task_id, post_title, part, total_parts, path, voice, title_duration, duration, gdrive_url, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.TaskID, v.PostTitle, v.Part, v.TotalParts, v.Path, v.Voice,
		v.TitleDuration, v.Duration, v.DriveURL, formatTime(v.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save video metadata: %w", err)
	}
	return nil
}

// ListVideos returns the most recent videos first
func (mdb *MetadataDB) ListVideos(limit int) ([]types.VideoRecord, error) {
	rows, err := mdb.db.Query(`
	SELECT task_id, post_title, part, total_parts, path, voice, title_duration, duration, gdrive_url, created_at
	FROM videos ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var videos []types.VideoRecord
	for rows.Next() {
		var (
			v       types.VideoRecord
			created string
		)
		if err := rows.Scan(&v.TaskID, &v.PostTitle, &v.Part, &v.TotalParts, &v.Path, &v.Voice,
			&v.TitleDuration, &v.Duration, &v.DriveURL, &created); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		v.CreatedAt = parseTime(created)
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// MarkSeen records a post ID so the source never delivers it again.
func (mdb *MetadataDB) MarkSeen(postID, subreddit string) error {
	_, err := mdb.db.Exec(`
	INSERT OR IGNORE INTO seen_posts (post_id, subreddit, seen_at) VALUES (?, ?, ?)`,
		postID, subreddit, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to mark post %s seen: %w", postID, err)
	}
	return nil
}

// HasSeen reports whether a post ID was delivered before.
func (mdb *MetadataDB) HasSeen(postID string) (bool, error) {
	var n int
	if err := mdb.db.QueryRow(`SELECT COUNT(1) FROM seen_posts WHERE post_id = ?`, postID).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check post %s: %w", postID, err)
	}
	return n > 0, nil
}

// Close closes the database connection
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}
