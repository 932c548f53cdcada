package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

func newTestDB(t *testing.T) *MetadataDB {
	t.Helper()
	db, err := NewMetadataDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewMetadataDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTaskLifecycle(t *testing.T) {
	db := newTestDB(t)

	if err := db.CreateTask(types.TaskRecord{ID: "task-1", Title: "My Story", SourceType: types.SourceAPI}); err != nil {
		t.Fatal(err)
	}
	task, err := db.GetTask("task-1")
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != types.StatusQueued || task.Title != "My Story" || task.CreatedAt.IsZero() {
		t.Fatalf("unexpected task %+v", task)
	}

	if err := db.UpdateTaskStatus("task-1", types.StatusCompleted, "Created 2 video(s) for post 'My Story'", ""); err != nil {
		t.Fatal(err)
	}
	task, err = db.GetTask("task-1")
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != types.StatusCompleted || !strings.HasPrefix(task.Result, "Created 2") {
		t.Fatalf("unexpected task %+v", task)
	}
}

func TestTaskNotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetTask("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := db.UpdateTaskStatus("missing", types.StatusFailed, "", "boom"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVideosNewestFirst(t *testing.T) {
	db := newTestDB(t)
	for i := 1; i <= 3; i++ {
		err := db.SaveVideo(types.VideoRecord{
			TaskID: "task-1", PostTitle: "My Story", Part: i, TotalParts: 3,
			Path: fmt.Sprintf("output_videos/my_story_part%d.mp4", i), Voice: "en-US-GuyNeural",
			TitleDuration: 2.4, Duration: 61,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	videos, err := db.ListVideos(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(videos) != 2 || videos[0].Part != 3 || videos[1].Part != 2 {
		t.Fatalf("unexpected videos %+v", videos)
	}
	if videos[0].TitleDuration != 2.4 || videos[0].Voice != "en-US-GuyNeural" {
		t.Fatalf("unexpected fields %+v", videos[0])
	}
}

func TestSeenPosts(t *testing.T) {
	db := newTestDB(t)
	seen, err := db.HasSeen("abc")
	if err != nil || seen {
		t.Fatalf("expected unseen, got %v %v", seen, err)
	}
	if err := db.MarkSeen("abc", "TIFU"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkSeen("abc", "TIFU"); err != nil {
		t.Fatalf("marking twice should be a no-op: %v", err)
	}
	if seen, _ := db.HasSeen("abc"); !seen {
		t.Fatal("expected seen")
	}
}

func TestAppendScript(t *testing.T) {
	dir := t.TempDir()
	ls := NewLocalStorage(filepath.Join(dir, "out"), filepath.Join(dir, "tracking"))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := ls.AppendScript(fmt.Sprintf("Story %d", i), "Once upon a time."); err != nil {
				t.Errorf("AppendScript: %v", err)
			}
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(ls.JournalPath())
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if got := strings.Count(content, journalRule); got != 4 {
		t.Fatalf("expected 4 entries, got %d", got)
	}
	if !strings.Contains(content, "Title:\nStory 2\n\nOnce upon a time.\n") {
		t.Fatalf("unexpected journal:\n%s", content)
	}
	if len(journalRule) != 90 {
		t.Fatalf("rule is %d dashes", len(journalRule))
	}
}

func TestVideoPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	ls := NewLocalStorage(dir, t.TempDir())
	p, err := ls.VideoPath("my_story_part1.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if p != filepath.Join(dir, "my_story_part1.mp4") {
		t.Fatalf("unexpected path %s", p)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatal("output directory not created")
	}
}

func TestFolderQuery(t *testing.T) {
	got := folderQuery("Bob's", "root-1")
	want := `name='Bob\'s' and mimeType='application/vnd.google-apps.folder' and trashed=false and 'root-1' in parents`
	if got != want {
		t.Fatalf("got %s", got)
	}
}

func TestDriveUpload(t *testing.T) {
	var mu sync.Mutex
	created := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `{"files":[]}`)
			return
		}
		created++
		fmt.Fprintf(w, `{"id":"file-%d"}`, created)
	}))
	defer server.Close()

	ctx := context.Background()
	srv, err := drive.NewService(ctx, option.WithEndpoint(server.URL+"/"), option.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatal(err)
	}
	dc, err := newDriveClient(ctx, srv, "StoryShorts")
	if err != nil {
		t.Fatal(err)
	}

	video := filepath.Join(t.TempDir(), "my_story.mp4")
	if err := os.WriteFile(video, []byte("mp4"), 0o644); err != nil {
		t.Fatal(err)
	}
	url, err := dc.Upload(ctx, video)
	if err != nil {
		t.Fatal(err)
	}
	// root folder, three date folders, then the video
	if url != "https://drive.google.com/file/d/file-5/view" {
		t.Fatalf("unexpected url %s", url)
	}
}

func TestTokenFileStoreAndLoad(t *testing.T) {
	p := tokenFile(filepath.Join(t.TempDir(), "creds", "token.json"))
	if _, err := p.load(); err == nil {
		t.Fatal("expected error for missing token")
	}
	if err := p.store(&oauth2.Token{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatal(err)
	}
	tok, err := p.load()
	if err != nil {
		t.Fatal(err)
	}
	if tok.RefreshToken != "r" {
		t.Fatalf("unexpected token %+v", tok)
	}
}
