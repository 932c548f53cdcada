package render

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/story-shorts/internal/ffmpeg"
)

// Engine is the subset of the ffmpeg executor rendering needs.
type Engine interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error
	Trim(ctx context.Context, opts ffmpeg.TrimOptions) error
	Compose(ctx context.Context, opts ffmpeg.ComposeOptions) error
}

// SegmentRef is one copy of the source clip in a loop, addressed by index.
type SegmentRef struct {
	Index  int
	Source string
	Start  float64
	End    float64
}

// LoopPlan lays out how a clip covers a target duration.
type LoopPlan struct {
	Source   string
	Target   float64
	Segments []SegmentRef
	// Concat is false when a single trimmed copy already covers Target.
	Concat bool
}

// PlanLoop covers target seconds with a clip of clipDuration seconds. A long
// enough clip is trimmed; otherwise floor(target/clip)+1 copies are joined
// and the result trimmed to target.
func PlanLoop(source string, clipDuration, target float64) (LoopPlan, error) {
	if clipDuration <= 0 {
		return LoopPlan{}, fmt.Errorf("clip duration %.3f must be positive", clipDuration)
	}
	if target <= 0 {
		return LoopPlan{}, fmt.Errorf("target duration %.3f must be positive", target)
	}

	plan := LoopPlan{Source: source, Target: target}
	if clipDuration >= target {
		plan.Segments = []SegmentRef{{Index: 0, Source: source, Start: 0, End: target}}
		return plan, nil
	}

	loops := int(math.Floor(target/clipDuration)) + 1
	plan.Concat = true
	plan.Segments = make([]SegmentRef, loops)
	for i := range plan.Segments {
		plan.Segments[i] = SegmentRef{Index: i, Source: source, Start: 0, End: clipDuration}
	}
	return plan, nil
}

// Covered is the total length of all segments before the final trim.
func (p LoopPlan) Covered() float64 {
	var total float64
	for _, s := range p.Segments {
		total += s.End - s.Start
	}
	return total
}

// Duration is the length of the looped clip after trimming.
func (p LoopPlan) Duration() float64 {
	return math.Min(p.Covered(), p.Target)
}

// Inputs lists segment sources in index order.
func (p LoopPlan) Inputs() []string {
	inputs := make([]string, len(p.Segments))
	for _, s := range p.Segments {
		inputs[s.Index] = s.Source
	}
	return inputs
}

// Looper materializes loop plans with ffmpeg.
type Looper struct {
	engine Engine
	preset string
	logger zerolog.Logger
}

// NewLooper creates a looper.
func NewLooper(engine Engine, preset string, logger zerolog.Logger) *Looper {
	return &Looper{
		engine: engine,
		preset: preset,
		logger: logger.With().Str("component", "looper").Logger(),
	}
}

// Loop writes a clip of exactly plan.Target seconds to dest. The
// intermediate concatenation is removed before Loop returns.
func (l *Looper) Loop(ctx context.Context, plan LoopPlan, dest string) error {
	trimInput := plan.Source

	if plan.Concat {
		intermediate := filepath.Join(filepath.Dir(dest), fmt.Sprintf("concat_%s%s", uuid.New().String(), filepath.Ext(plan.Source)))
		defer l.release(intermediate)

		l.logger.Debug().Int("segments", len(plan.Segments)).Float64("target", plan.Target).Msg("looping background")
		if err := l.engine.Concat(ctx, ffmpeg.ConcatOptions{Inputs: plan.Inputs(), Output: intermediate}); err != nil {
			return fmt.Errorf("loop background: %w", err)
		}
		trimInput = intermediate
	}

	err := l.engine.Trim(ctx, ffmpeg.TrimOptions{
		Input:    trimInput,
		Output:   dest,
		Start:    0,
		Duration: plan.Target,
		Preset:   l.preset,
	})
	if err != nil {
		return fmt.Errorf("trim background: %w", err)
	}
	return nil
}

func (l *Looper) release(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		l.logger.Warn().Err(err).Str("path", path).Msg("failed to remove intermediate clip")
	}
}
