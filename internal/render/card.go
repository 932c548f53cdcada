package render

import (
	"fmt"

	"github.com/fogleman/gg"
	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/story-shorts/internal/config"
	"github.com/codebuildervaibhav/story-shorts/internal/types"
)

const (
	// shadowNudge pushes the drop shadow further down-right than the panel.
	shadowNudge = 8
	markInset   = 30
	handleGap   = 15
	titlePadX   = 40
	titlePadY   = 20
)

// DrawTitleCard renders the title card onto a transparent canvas-sized PNG
// at dest: a drop-shadowed rounded panel centered on the canvas, a round
// placeholder mark with the handle beside it, and the wrapped title.
// Missing fonts fall back to the built-in face with a warning.
func DrawTitleCard(style config.Style, card types.TitleCard, dest string, logger zerolog.Logger) error {
	dc := gg.NewContext(style.Width, style.Height)

	cw, ch := float64(style.CardWidth), float64(style.CardHeight)
	x := (float64(style.Width) - cw) / 2
	y := (float64(style.Height) - ch) / 2
	radius := float64(style.CardRadius)
	shadow := float64(style.ShadowOffset)

	dc.SetRGBA255(0, 0, 0, 120)
	dc.DrawRoundedRectangle(x+shadow+shadowNudge, y+shadow+shadowNudge, cw, ch, radius)
	dc.Fill()

	dc.SetRGBA255(255, 255, 255, 240)
	dc.DrawRoundedRectangle(x, y, cw, ch, radius)
	dc.Fill()

	mark := float64(style.MarkRadius)
	markX := x + markInset + mark
	markY := y + markInset + mark
	dc.SetRGB(0, 0, 0)
	dc.DrawCircle(markX, markY, mark)
	dc.Fill()

	if card.Handle != "" {
		loadFace(dc, style.DefaultFont, style.HandleFontSize, logger)
		dc.DrawStringAnchored(card.Handle, markX+mark+handleGap, markY, 0, 0.5)
	}

	titleFont := style.TitleFont
	if !fileExists(titleFont) {
		titleFont = style.DefaultFont
	}
	loadFace(dc, titleFont, style.TitleFontSize, logger)
	dc.DrawStringWrapped(card.Text, x+cw/2, y+ch/2+titlePadY, 0.5, 0.5, cw-2*titlePadX, 1.2, gg.AlignCenter)

	if err := dc.SavePNG(dest); err != nil {
		return fmt.Errorf("save title card: %w", err)
	}
	return nil
}

func loadFace(dc *gg.Context, path string, size float64, logger zerolog.Logger) {
	if err := dc.LoadFontFace(path, size); err != nil {
		logger.Warn().Err(err).Str("font", path).Msg("font unavailable, using built-in face")
	}
}
