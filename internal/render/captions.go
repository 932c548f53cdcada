package render

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/codebuildervaibhav/story-shorts/internal/config"
	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

const assStyleFormat = "Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, " +
	"Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, " +
	"Alignment, MarginL, MarginR, MarginV, Encoding"

// WriteASS writes one centered caption event per chunk: white text with a
// black outline, shown over [Start, End].
func WriteASS(style config.Style, chunks []types.SubtitleChunk, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create captions: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "[Script Info]\nScriptType: v4.00+\nPlayResX: %d\nPlayResY: %d\nWrapStyle: 0\nScaledBorderAndShadow: yes\n\n",
		style.Width, style.Height)
	fmt.Fprintf(w, "[V4+ Styles]\n%s\n", assStyleFormat)
	// Alignment 5 is middle-center.
	fmt.Fprintf(w, "Style: Caption,%s,%d,&H00FFFFFF,&H00FFFFFF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,%d,0,5,%d,%d,0,1\n\n",
		style.SubtitleFontName, style.SubtitleFontSize, style.SubtitleStrokeWidth, style.SubtitleMarginH, style.SubtitleMarginH)
	fmt.Fprint(w, "[Events]\nFormat: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, c := range chunks {
		if c.Duration() <= 0 {
			continue
		}
		fmt.Fprintf(w, "Dialogue: 0,%s,%s,Caption,,0,0,0,,%s\n", assTime(c.Start), assTime(c.End), escapeASS(c.Text))
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("write captions: %w", err)
	}
	return f.Close()
}

// assTime formats seconds as H:MM:SS.cc.
func assTime(seconds float64) string {
	cs := int(math.Round(seconds * 100))
	if cs < 0 {
		cs = 0
	}
	h := cs / 360000
	m := cs / 6000 % 60
	s := cs / 100 % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs%100)
}

var assEscaper = strings.NewReplacer(
	"\r", "",
	"\n", " ",
	"{", "(",
	"}", ")",
	`\`, `/`,
)

func escapeASS(text string) string {
	return assEscaper.Replace(strings.TrimSpace(text))
}
