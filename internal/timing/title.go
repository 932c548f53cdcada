// Package timing derives on-screen timings from word-level transcripts.
package timing

import (
	"strings"

	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

const (
	// TitleEndBuffer is added after the last matched title word.
	TitleEndBuffer = 0.3

	// minTitleMatchRatio is the share of title words that must be found
	// before the transcript is trusted.
	minTitleMatchRatio = 0.5

	// estimatedWordsPerSecond drives the fallback title estimate.
	estimatedWordsPerSecond = 3.0
	estimateLeadIn          = 0.5
)

// TitleResolution reports how a title duration was obtained.
type TitleResolution struct {
	Duration     float64
	MatchedWords int
	TitleWords   int
	Estimated    bool
	Reason       string
}

// EstimateTitleDuration is the fallback used when the transcript cannot be trusted.
func EstimateTitleDuration(titleWordCount int) float64 {
	return float64(titleWordCount)/estimatedWordsPerSecond + estimateLeadIn
}

// ResolveTitleDuration finds where narration of the literal title ends.
//
// Title words are consumed in order with a forward-only pointer; a transcript
// word matches the current title word when either contains the other, which
// tolerates merged or partly transcribed tokens. The first match wins and
// the pointer never backs up, so the scan is linear in the transcript.
func ResolveTitleDuration(title string, words []types.WordToken) TitleResolution {
	titleWords := normalizeWords(strings.Fields(title))
	res := TitleResolution{TitleWords: len(titleWords)}

	if len(words) == 0 {
		res.Duration = EstimateTitleDuration(len(titleWords))
		res.Estimated = true
		res.Reason = "empty transcript"
		return res
	}

	var lastEnd float64
	for _, w := range words {
		if res.MatchedWords >= len(titleWords) {
			break
		}
		spoken := normalizeWord(w.Text)
		if spoken == "" {
			continue
		}
		if wordsMatch(spoken, titleWords[res.MatchedWords]) {
			res.MatchedWords++
			lastEnd = w.End
		}
	}

	if float64(res.MatchedWords) < float64(len(titleWords))*minTitleMatchRatio {
		res.Duration = EstimateTitleDuration(len(titleWords))
		res.Estimated = true
		res.Reason = "too few title words matched"
		return res
	}

	res.Duration = lastEnd + TitleEndBuffer
	return res
}

func wordsMatch(spoken, target string) bool {
	return strings.Contains(target, spoken) || strings.Contains(spoken, target)
}

func normalizeWord(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeWords(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = normalizeWord(s)
	}
	return out
}
