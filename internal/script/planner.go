package script

import (
	"math"
	"strings"

	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

const (
	// WordsPerMinute is the average narration speed used to size parts.
	WordsPerMinute = 150

	// ParagraphSeparator separates paragraphs in scripts and parts.
	ParagraphSeparator = "\n\n"

	// minutesBeforeSplit is the narration length below which a script stays whole.
	minutesBeforeSplit = 2.0
)

// EstimateMinutes returns the estimated narration length of text in minutes.
func EstimateMinutes(text string) float64 {
	return float64(len(strings.Fields(text))) / WordsPerMinute
}

// PlanPartCount decides how many parts a script should be split into.
// Scripts under two minutes stay whole; longer ones aim for roughly one
// minute per part. Halves round to even.
func PlanPartCount(text string) int {
	minutes := EstimateMinutes(text)
	if minutes < minutesBeforeSplit {
		return 1
	}
	n := int(math.RoundToEven(minutes))
	if n < 1 {
		return 1
	}
	return n
}

// SplitParagraphs splits text on blank-line boundaries after trimming it.
func SplitParagraphs(text string) []string {
	return strings.Split(strings.TrimSpace(text), ParagraphSeparator)
}

// SplitIntoParts distributes paragraphs across at most numParts parts. The
// first numParts-1 parts take ceil(paragraphs/numParts) paragraphs each and
// the last takes the remainder. Empty parts are dropped.
func SplitIntoParts(text string, numParts int) []string {
	if numParts <= 1 {
		return []string{text}
	}

	paragraphs := SplitParagraphs(text)
	total := len(paragraphs)
	perPart := (total + numParts - 1) / numParts

	parts := make([]string, 0, numParts)
	start := 0
	for i := 0; i < numParts; i++ {
		end := total
		if i < numParts-1 {
			end = min(start+perPart, total)
		}
		if part := strings.Join(paragraphs[start:end], ParagraphSeparator); part != "" {
			parts = append(parts, part)
		}
		start = end
	}
	return parts
}

// Plan splits the body of a story into ordered parts.
func Plan(story types.NarrationScript) []types.ScriptPart {
	bodies := SplitIntoParts(story.Body, PlanPartCount(story.Body))
	parts := make([]types.ScriptPart, len(bodies))
	for i, body := range bodies {
		parts[i] = types.ScriptPart{Index: i + 1, Total: len(bodies), Body: body}
	}
	return parts
}
