package viewport

import (
	"image/color"

	"github.com/odtweather/trail/server/internal/lib/elevation"
	"github.com/odtweather/trail/server/internal/lib/trail"
)

// Canvas is the 2D drawing capability the viewport renders through.
// Text is positioned with y at the vertical centre of the line.
type Canvas interface {
	Clear(c color.Color)
	SetColor(c color.Color)
	SetLineWidth(w float64)
	SetDash(dashes ...float64)
	MoveTo(x, y float64)
	LineTo(x, y float64)
	ClosePath()
	Stroke()
	Fill()
	DrawRectangle(x, y, w, h float64)
	DrawCircle(x, y, r float64)
	DrawText(s string, x, y float64, align elevation.Align)
	MeasureText(s string) (w, h float64)
	DrawIcon(style IconStyle, x, y, size float64)
}

// Surface is a Canvas with a fixed pixel size
type Surface interface {
	Canvas
	Width() int
	Height() int
}

// IconStyle is how a POI icon is drawn
type IconStyle struct {
	Fill  color.Color
	Glyph string
}

var (
	background   = color.RGBA{0xff, 0xff, 0xff, 0xff}
	stripFill    = color.RGBA{0xf4, 0xf1, 0xea, 0xff}
	textColor    = color.RGBA{0x33, 0x33, 0x33, 0xff}
	mutedText    = color.RGBA{0x77, 0x77, 0x77, 0xff}
	gridColor    = color.RGBA{0xe2, 0xe2, 0xe2, 0xff}
	profileLine  = color.RGBA{0x8b, 0x5a, 0x2b, 0xff}
	profileFill  = color.RGBA{0x8b, 0x5a, 0x2b, 0x33}
	locatorColor = color.RGBA{0xd9, 0x30, 0x25, 0xff}
	overviewBar  = color.RGBA{0xdd, 0xdd, 0xdd, 0xff}
	overviewWin  = color.RGBA{0x8b, 0x5a, 0x2b, 0x99}
	tooltipFill  = color.RGBA{0x22, 0x22, 0x22, 0xe6}
	tooltipText  = color.RGBA{0xff, 0xff, 0xff, 0xff}
	errorColor   = color.RGBA{0xb0, 0x20, 0x20, 0xff}
)

func defaultIconStyle(key trail.IconKey) IconStyle {
	switch key {
	case trail.IconWaterReliable:
		return IconStyle{Fill: color.RGBA{0x1e, 0x6f, 0xd9, 0xff}, Glyph: "W"}
	case trail.IconWaterOther:
		return IconStyle{Fill: color.RGBA{0x8c, 0xb8, 0xe8, 0xff}, Glyph: "w"}
	case trail.IconTowns:
		return IconStyle{Fill: color.RGBA{0x6a, 0x3d, 0x9a, 0xff}, Glyph: "T"}
	case trail.IconNavigation:
		return IconStyle{Fill: color.RGBA{0x2e, 0x8b, 0x57, 0xff}, Glyph: "N"}
	case trail.IconToilets:
		return IconStyle{Fill: color.RGBA{0x80, 0x80, 0x80, 0xff}, Glyph: "P"}
	}
	return IconStyle{Fill: mutedText, Glyph: "?"}
}
