// Package render draws viewport frames onto raster images with gg.
package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/odtweather/trail/server/internal/lib/elevation"
	"github.com/odtweather/trail/server/internal/lib/viewport"
)

const (
	textSize  = 11
	glyphSize = 9
)

var (
	fontOnce  sync.Once
	parsed    *truetype.Font
	errParsed error
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		parsed, errParsed = truetype.Parse(goregular.TTF)
	})
	return parsed, errParsed
}

// Surface is a viewport.Surface backed by an in-memory RGBA image
type Surface struct {
	dc    *gg.Context
	text  font.Face
	glyph font.Face
}

var _ viewport.Surface = (*Surface)(nil)

// NewSurface creates a width x height surface
func NewSurface(width, height int) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", width, height)
	}
	f, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	s := &Surface{
		dc:    gg.NewContext(width, height),
		text:  truetype.NewFace(f, &truetype.Options{Size: textSize}),
		glyph: truetype.NewFace(f, &truetype.Options{Size: glyphSize}),
	}
	s.dc.SetFontFace(s.text)
	return s, nil
}

func (s *Surface) Width() int  { return s.dc.Width() }
func (s *Surface) Height() int { return s.dc.Height() }

func (s *Surface) Clear(c color.Color) {
	s.dc.SetColor(c)
	s.dc.Clear()
}

func (s *Surface) SetColor(c color.Color)           { s.dc.SetColor(c) }
func (s *Surface) SetLineWidth(w float64)           { s.dc.SetLineWidth(w) }
func (s *Surface) SetDash(dashes ...float64)        { s.dc.SetDash(dashes...) }
func (s *Surface) MoveTo(x, y float64)              { s.dc.MoveTo(x, y) }
func (s *Surface) LineTo(x, y float64)              { s.dc.LineTo(x, y) }
func (s *Surface) ClosePath()                       { s.dc.ClosePath() }
func (s *Surface) Stroke()                          { s.dc.Stroke() }
func (s *Surface) Fill()                            { s.dc.Fill() }
func (s *Surface) DrawRectangle(x, y, w, h float64) { s.dc.DrawRectangle(x, y, w, h) }
func (s *Surface) DrawCircle(x, y, r float64)       { s.dc.DrawCircle(x, y, r) }

func (s *Surface) DrawText(text string, x, y float64, align elevation.Align) {
	ax := 0.0
	switch align {
	case elevation.AlignCenter:
		ax = 0.5
	case elevation.AlignRight:
		ax = 1
	}
	s.dc.DrawStringAnchored(text, x, y, ax, 0.5)
}

func (s *Surface) MeasureText(text string) (float64, float64) {
	return s.dc.MeasureString(text)
}

// DrawIcon draws a filled disc with the style's glyph in white
func (s *Surface) DrawIcon(style viewport.IconStyle, x, y, size float64) {
	s.dc.DrawCircle(x, y, size/2)
	s.dc.SetColor(style.Fill)
	s.dc.FillPreserve()
	s.dc.SetColor(color.White)
	s.dc.SetLineWidth(1)
	s.dc.Stroke()

	s.dc.SetFontFace(s.glyph)
	s.dc.DrawStringAnchored(style.Glyph, x, y, 0.5, 0.5)
	s.dc.SetFontFace(s.text)
}

// Image returns the backing image
func (s *Surface) Image() image.Image {
	return s.dc.Image()
}

// EncodePNG writes the current frame as PNG
func (s *Surface) EncodePNG(w io.Writer) error {
	return s.dc.EncodePNG(w)
}
