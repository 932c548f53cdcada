package script

import (
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`http\S+|www.\S+`)

// sentenceEnd matches a period that closes a sentence: followed by
// whitespace, a closing quote or bracket, or the end of the text.
var sentenceEnd = regexp.MustCompile(`\.([\s"')\]]|$)`)

type abbreviation struct {
	pattern *regexp.Regexp
	full    string
}

// abbreviations are story-forum shorthands spoken in full. Order matters
// only for readability; every pattern is whole-word.
var abbreviations = compileAbbreviations([][2]string{
	{"TIFU", "Today I Fucked Up"},
	{"AITA", "Am I the Asshole"},
	{"TL;DR", "TLDR"},
	{"OP", "Original Poster"},
	{"IMO", "In My Opinion"},
	{"IMHO", "In My Humble Opinion"},
	{"ELI5", "Explain Like I'm Five"},
	{"NSFW", "Not Safe For Work"},
	{"SFW", "Safe For Work"},
})

func compileAbbreviations(pairs [][2]string) []abbreviation {
	out := make([]abbreviation, len(pairs))
	for i, p := range pairs {
		out[i] = abbreviation{
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p[0]) + `\b`),
			full:    p[1],
		}
	}
	return out
}

// CleanForNarration removes URLs and trims the text.
func CleanForNarration(text string) string {
	return strings.TrimSpace(urlPattern.ReplaceAllString(text, ""))
}

// ExpandAbbreviations replaces known shorthands with their spoken form,
// matching whole words case-insensitively.
func ExpandAbbreviations(text string) string {
	for _, a := range abbreviations {
		text = a.pattern.ReplaceAllLiteralString(text, a.full)
	}
	return text
}

// SynthesisForm is the text handed to speech synthesis: abbreviations
// expanded and sentence-ending periods turned into commas, which shortens
// the pause the voice takes between sentences.
func SynthesisForm(text string) string {
	return sentenceEnd.ReplaceAllString(ExpandAbbreviations(text), ",$1")
}

// HintForm is the decoding prompt for transcription: abbreviations expanded,
// punctuation untouched. It is never spoken.
func HintForm(text string) string {
	return ExpandAbbreviations(text)
}
