package config

import (
	"errors"
	"fmt"
)

// Style is the immutable look of a rendered video. It is passed by value
// so a composer never observes later changes.
type Style struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`

	VideoCodec string `yaml:"video_codec"`
	AudioCodec string `yaml:"audio_codec"`
	Preset     string `yaml:"preset"`
	Threads    int    `yaml:"threads"`

	Handle string `yaml:"handle"`

	TitleFont   string `yaml:"title_font"`
	DefaultFont string `yaml:"default_font"`

	TitleFontSize  float64 `yaml:"title_font_size"`
	HandleFontSize float64 `yaml:"handle_font_size"`

	// SubtitleFontName is the family libass looks up in the TitleFont directory.
	SubtitleFontName    string `yaml:"subtitle_font_name"`
	SubtitleFontSize    int    `yaml:"subtitle_font_size"`
	SubtitleStrokeWidth int    `yaml:"subtitle_stroke_width"`
	// SubtitleMarginH keeps captions off the left and right edges.
	SubtitleMarginH int `yaml:"subtitle_margin_h"`
	WordsPerChunk   int `yaml:"words_per_chunk"`

	CardWidth    int `yaml:"card_width"`
	CardHeight   int `yaml:"card_height"`
	CardRadius   int `yaml:"card_radius"`
	ShadowOffset int `yaml:"shadow_offset"`
	MarkRadius   int `yaml:"mark_radius"`
}

// DefaultStyle returns the portrait 1080x1920 look.
func DefaultStyle() Style {
	return Style{
		Width:               1080,
		Height:              1920,
		FPS:                 24,
		VideoCodec:          "libx264",
		AudioCodec:          "aac",
		Preset:              "ultrafast",
		Threads:             10,
		Handle:              "@YourTikTokHandle",
		TitleFont:           "fonts/LuckiestGuy-Regular.ttf",
		DefaultFont:         "fonts/Arial.ttf",
		TitleFontSize:       55,
		HandleFontSize:      32,
		SubtitleFontName:    "Luckiest Guy",
		SubtitleFontSize:    80,
		SubtitleStrokeWidth: 4,
		SubtitleMarginH:     50,
		WordsPerChunk:       3,
		CardWidth:           900,
		CardHeight:          400,
		CardRadius:          30,
		ShadowOffset:        15,
		MarkRadius:          25,
	}
}

// Validate checks that the style describes a renderable canvas.
func (s Style) Validate() error {
	var errs []error
	if s.Width <= 0 || s.Height <= 0 {
		errs = append(errs, fmt.Errorf("style canvas %dx%d must be positive", s.Width, s.Height))
	}
	if s.FPS <= 0 {
		errs = append(errs, errors.New("style.fps must be positive"))
	}
	if s.WordsPerChunk < 1 {
		errs = append(errs, errors.New("style.words_per_chunk must be at least 1"))
	}
	if s.CardWidth <= 0 || s.CardHeight <= 0 {
		errs = append(errs, errors.New("style card dimensions must be positive"))
	}
	if s.CardWidth > s.Width || s.CardHeight > s.Height {
		errs = append(errs, errors.New("style card must fit on the canvas"))
	}
	return errors.Join(errs...)
}
