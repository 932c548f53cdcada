package render

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/story-shorts/internal/config"
	"github.com/codebuildervaibhav/story-shorts/internal/ffmpeg"
	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

// fakeEngine records calls and creates the files ffmpeg would write.
type fakeEngine struct {
	durations  map[string]float64
	probes     []string
	concats    []ffmpeg.ConcatOptions
	trims      []ffmpeg.TrimOptions
	composed   []ffmpeg.ComposeOptions
	composeErr error
	// seen records files that existed while Compose ran.
	seen map[string]bool
}

func (f *fakeEngine) ProbeDuration(ctx context.Context, path string) (float64, error) {
	f.probes = append(f.probes, path)
	d, ok := f.durations[path]
	if !ok {
		return 0, errors.New("no such file")
	}
	return d, nil
}

func (f *fakeEngine) Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error {
	f.concats = append(f.concats, opts)
	return os.WriteFile(opts.Output, []byte("concat"), 0o644)
}

func (f *fakeEngine) Trim(ctx context.Context, opts ffmpeg.TrimOptions) error {
	f.trims = append(f.trims, opts)
	return os.WriteFile(opts.Output, []byte("trim"), 0o644)
}

func (f *fakeEngine) Compose(ctx context.Context, opts ffmpeg.ComposeOptions) error {
	f.composed = append(f.composed, opts)
	f.seen = map[string]bool{}
	for _, p := range []string{opts.Background, opts.Overlay, opts.Subtitles} {
		f.seen[p] = fileExists(p)
	}
	if err := os.WriteFile(opts.Output, []byte("partial"), 0o644); err != nil {
		return err
	}
	return f.composeErr
}

func smallStyle() config.Style {
	s := config.DefaultStyle()
	s.Width, s.Height = 360, 640
	s.CardWidth, s.CardHeight = 300, 160
	s.TitleFont = "missing/LuckiestGuy-Regular.ttf"
	s.DefaultFont = "missing/Arial.ttf"
	return s
}

func TestPlanLoopRepeatsShortClip(t *testing.T) {
	plan, err := PlanLoop("clip.mp4", 10, 25)
	if err != nil {
		t.Fatal(err)
	}
	if !plan.Concat {
		t.Fatal("expected concatenation")
	}
	if len(plan.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(plan.Segments))
	}
	for i, s := range plan.Segments {
		if s.Index != i || s.Source != "clip.mp4" {
			t.Fatalf("unexpected segment %+v", s)
		}
	}
	if plan.Covered() != 30 || plan.Duration() != 25 {
		t.Fatalf("covered %v duration %v", plan.Covered(), plan.Duration())
	}
}

func TestPlanLoopExactMultipleAddsExtraCopy(t *testing.T) {
	plan, err := PlanLoop("clip.mp4", 10, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Segments) != 3 || plan.Duration() != 20 {
		t.Fatalf("unexpected plan %+v", plan)
	}
}

func TestPlanLoopTrimsLongClip(t *testing.T) {
	plan, err := PlanLoop("clip.mp4", 60, 25)
	if err != nil {
		t.Fatal(err)
	}
	if plan.Concat || len(plan.Segments) != 1 || plan.Duration() != 25 {
		t.Fatalf("unexpected plan %+v", plan)
	}
}

func TestPlanLoopRejectsBadDurations(t *testing.T) {
	if _, err := PlanLoop("clip.mp4", 0, 25); err == nil {
		t.Error("expected error for zero clip")
	}
	if _, err := PlanLoop("clip.mp4", 10, 0); err == nil {
		t.Error("expected error for zero target")
	}
}

func TestLoopReleasesIntermediate(t *testing.T) {
	dir := t.TempDir()
	engine := &fakeEngine{}
	plan, _ := PlanLoop("clip.mp4", 10, 25)
	dest := filepath.Join(dir, "background.mp4")

	if err := NewLooper(engine, "ultrafast", zerolog.Nop()).Loop(context.Background(), plan, dest); err != nil {
		t.Fatal(err)
	}
	if len(engine.concats) != 1 || len(engine.concats[0].Inputs) != 3 {
		t.Fatalf("unexpected concats %+v", engine.concats)
	}
	if len(engine.trims) != 1 || engine.trims[0].Input != engine.concats[0].Output || engine.trims[0].Duration != 25 {
		t.Fatalf("unexpected trims %+v", engine.trims)
	}
	if fileExists(engine.concats[0].Output) {
		t.Fatal("intermediate concatenation left behind")
	}
	if !fileExists(dest) {
		t.Fatal("looped background missing")
	}
}

func TestLoopTrimOnly(t *testing.T) {
	engine := &fakeEngine{}
	plan, _ := PlanLoop("clip.mp4", 60, 25)
	if err := NewLooper(engine, "", zerolog.Nop()).Loop(context.Background(), plan, filepath.Join(t.TempDir(), "bg.mp4")); err != nil {
		t.Fatal(err)
	}
	if len(engine.concats) != 0 || engine.trims[0].Input != "clip.mp4" {
		t.Fatalf("unexpected calls concat=%v trim=%v", engine.concats, engine.trims)
	}
}

func TestWriteASS(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "captions.ass")
	chunks := []types.SubtitleChunk{
		{Text: "it began on", Start: 2.1, End: 3.0},
		{Text: "a {bold} Tuesday", Start: 3.0, End: 3754.456},
		{Text: "skipped", Start: 4, End: 4},
	}
	if err := WriteASS(config.DefaultStyle(), chunks, dest); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, want := range []string{
		"PlayResX: 1080",
		"Style: Caption,Luckiest Guy,80,",
		"Dialogue: 0,0:00:02.10,0:00:03.00,Caption,,0,0,0,,it began on",
		"Dialogue: 0,0:00:03.00,1:02:34.46,Caption,,0,0,0,,a (bold) Tuesday",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("captions missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "skipped") {
		t.Error("zero-length chunk should be skipped")
	}
}

func TestDrawTitleCard(t *testing.T) {
	style := smallStyle()
	dest := filepath.Join(t.TempDir(), "card.png")
	card := types.TitleCard{Text: "(Part 1) My Story", Handle: "@storyteller", Duration: 2}
	if err := DrawTitleCard(style, card, dest, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	b := img.Bounds()
	if b.Dx() != style.Width || b.Dy() != style.Height {
		t.Fatalf("card canvas %dx%d", b.Dx(), b.Dy())
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Fatal("canvas corner should be transparent")
	}
	if _, _, _, a := img.At(style.Width/2, style.Height/2-style.CardHeight/2+5).RGBA(); a == 0 {
		t.Fatal("panel should be opaque")
	}
}

func TestComposeCleansScratch(t *testing.T) {
	tempDir := t.TempDir()
	out := filepath.Join(t.TempDir(), "videos", "my_story.mp4")
	engine := &fakeEngine{durations: map[string]float64{"clip.mp4": 10}}
	c := NewComposer(engine, smallStyle(), tempDir, zerolog.Nop())

	plan := types.CompositionPlan{
		BackgroundPath: "clip.mp4",
		TitleCard:      types.TitleCard{Text: "My Story", Duration: 30},
		Subtitles:      []types.SubtitleChunk{{Text: "it began on", Start: 2, End: 3}},
		AudioPath:      "voice.mp3",
		AudioDuration:  25,
		OutputPath:     out,
	}
	if err := c.Compose(context.Background(), plan); err != nil {
		t.Fatal(err)
	}
	if len(engine.composed) != 1 {
		t.Fatalf("expected one render, got %d", len(engine.composed))
	}
	opts := engine.composed[0]
	if opts.Duration != 25 || opts.OverlayEnd != 25 {
		t.Fatalf("unexpected durations %+v", opts)
	}
	for p, ok := range engine.seen {
		if !ok {
			t.Errorf("%s missing during render", p)
		}
	}
	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 0 {
		t.Fatalf("scratch left behind: %v", entries)
	}
	if !fileExists(out) {
		t.Fatal("output missing")
	}

	// The background clip is probed once per composer.
	if err := c.Compose(context.Background(), plan); err != nil {
		t.Fatal(err)
	}
	if len(engine.probes) != 1 {
		t.Fatalf("expected one probe, got %v", engine.probes)
	}
}

func TestComposeFailureRemovesOutput(t *testing.T) {
	tempDir := t.TempDir()
	out := filepath.Join(t.TempDir(), "my_story.mp4")
	engine := &fakeEngine{
		durations:  map[string]float64{"clip.mp4": 60, "voice.mp3": 12},
		composeErr: errors.New("render failed"),
	}
	c := NewComposer(engine, smallStyle(), tempDir, zerolog.Nop())

	err := c.Compose(context.Background(), types.CompositionPlan{
		BackgroundPath: "clip.mp4",
		TitleCard:      types.TitleCard{Text: "My Story", Duration: 1.5},
		AudioPath:      "voice.mp3",
		OutputPath:     out,
	})
	if err == nil {
		t.Fatal("expected render error")
	}
	if fileExists(out) {
		t.Fatal("partial output left behind")
	}
	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 0 {
		t.Fatalf("scratch left behind: %v", entries)
	}
}

func TestComposeLogsRenderProgress(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	engine := &fakeEngine{durations: map[string]float64{"clip.mp4": 60}}
	c := NewComposer(engine, smallStyle(), t.TempDir(), logger)

	err := c.Compose(context.Background(), types.CompositionPlan{
		BackgroundPath: "clip.mp4",
		TitleCard:      types.TitleCard{Text: "My Story", Duration: 2},
		AudioPath:      "voice.mp3",
		AudioDuration:  25,
		OutputPath:     filepath.Join(t.TempDir(), "my_story.mp4"),
	})
	if err != nil {
		t.Fatal(err)
	}
	progress := engine.composed[0].ProgressFunc
	if progress == nil {
		t.Fatal("render should report progress")
	}

	buf.Reset()
	progress(&ffmpeg.Progress{Frame: 300, OutTime: 12.5, Time: "00:00:12.500000", Speed: "2.1x"})
	line := buf.String()
	for _, want := range []string{`"message":"render progress"`, `"component":"composer"`, `"frame":300`, `"percent":50`, `"speed":"2.1x"`} {
		if !strings.Contains(line, want) {
			t.Errorf("progress log %s missing %s", line, want)
		}
	}
}
