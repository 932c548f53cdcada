package script

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

// maxTitleRunes bounds how much of a title ends up in a filename.
const maxTitleRunes = 30

var (
	invalidFileChars = regexp.MustCompile(`[\\/*?:"<>|]`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
)

// PartSpec is everything that differs between the parts of one script.
type PartSpec struct {
	Part           types.ScriptPart
	OnScreenTitle  string
	SpokenTitle    string
	Narration      string
	OutputFileName string
}

// SanitizeTitle turns a post title into a lowercase filename stem: the first
// 30 runes with diacritics folded, filesystem-invalid characters removed
// and whitespace runs collapsed to underscores.
func SanitizeTitle(title string) string {
	r := []rune(title)
	if len(r) > maxTitleRunes {
		r = r[:maxTitleRunes]
	}
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		string(r),
	)
	if err != nil {
		folded = string(r)
	}
	name := invalidFileChars.ReplaceAllString(folded, "")
	name = strings.ToLower(strings.TrimSpace(name))
	name = whitespaceRun.ReplaceAllString(name, "_")
	if name == "" {
		return "untitled"
	}
	return name
}

// NamePart applies the part naming convention. Multi-part scripts get a
// "(Part N)" on-screen prefix, a spoken "<title>, Part N." opener and a
// _partN filename suffix; single parts keep the bare title.
func NamePart(title string, part types.ScriptPart) PartSpec {
	stem := SanitizeTitle(title)
	spec := PartSpec{Part: part}
	if part.Total > 1 {
		spec.OnScreenTitle = fmt.Sprintf("(Part %d) %s", part.Index, title)
		spec.SpokenTitle = fmt.Sprintf("%s, Part %d.", title, part.Index)
		spec.OutputFileName = fmt.Sprintf("%s_part%d.mp4", stem, part.Index)
	} else {
		spec.OnScreenTitle = title
		spec.SpokenTitle = title
		spec.OutputFileName = stem + ".mp4"
	}
	spec.Narration = spec.SpokenTitle + ParagraphSeparator + part.Body
	return spec
}
