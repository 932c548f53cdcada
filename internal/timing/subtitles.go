package timing

import (
	"strings"

	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

// DefaultWordsPerChunk is the caption size used when none is configured.
const DefaultWordsPerChunk = 3

// ChunkResult holds the captions and whether the title filter was skipped.
type ChunkResult struct {
	Chunks     []types.SubtitleChunk
	Unfiltered bool
}

// ChunkSubtitles groups the words spoken after the title card into captions
// of wordsPerChunk consecutive words. When no word starts after titleDuration
// the full word list is used rather than producing no captions at all.
func ChunkSubtitles(words []types.WordToken, titleDuration float64, wordsPerChunk int) ChunkResult {
	if wordsPerChunk < 1 {
		wordsPerChunk = DefaultWordsPerChunk
	}
	var res ChunkResult
	if len(words) == 0 {
		return res
	}

	after := make([]types.WordToken, 0, len(words))
	for _, w := range words {
		if w.Start >= titleDuration {
			after = append(after, w)
		}
	}
	if len(after) == 0 {
		after = words
		res.Unfiltered = true
	}

	res.Chunks = make([]types.SubtitleChunk, 0, (len(after)+wordsPerChunk-1)/wordsPerChunk)
	for i := 0; i < len(after); i += wordsPerChunk {
		group := after[i:min(i+wordsPerChunk, len(after))]
		texts := make([]string, len(group))
		for j, w := range group {
			texts[j] = strings.TrimSpace(w.Text)
		}
		res.Chunks = append(res.Chunks, types.SubtitleChunk{
			Text:  strings.Join(texts, " "),
			Start: group[0].Start,
			End:   group[len(group)-1].End,
		})
	}
	return res
}
