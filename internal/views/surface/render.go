// Package surface draws slideshow images in the terminal and provides the
// display.Surface the controller binds them to.
package surface

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"
)

const halfBlock = "▀"

// Render draws img into cols x rows terminal cells. Each cell holds two
// vertically stacked pixels: the upper one as foreground of "▀", the lower
// one as background.
func Render(img image.Image, cols, rows int) string {
	if img == nil || cols <= 0 || rows <= 0 {
		return ""
	}
	dst := image.NewRGBA(image.Rect(0, 0, cols, rows*2))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	var b strings.Builder
	for y := 0; y < rows; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < cols; x++ {
			b.WriteString(lipgloss.NewStyle().
				Foreground(hex(dst.RGBAAt(x, 2*y))).
				Background(hex(dst.RGBAAt(x, 2*y+1))).
				Render(halfBlock))
		}
	}
	return b.String()
}

// Fit scales cols x rows down, keeping the ratio, until it fits within
// maxCols x maxRows. Non-positive limits are ignored.
func Fit(cols, rows, maxCols, maxRows int) (int, int) {
	if cols <= 0 || rows <= 0 {
		return 0, 0
	}
	scale := 1.0
	if maxCols > 0 && cols > maxCols {
		scale = math.Min(scale, float64(maxCols)/float64(cols))
	}
	if maxRows > 0 && rows > maxRows {
		scale = math.Min(scale, float64(maxRows)/float64(rows))
	}
	if scale == 1 {
		return cols, rows
	}
	return max(int(float64(cols)*scale), 1), max(int(float64(rows)*scale), 1)
}

// CellsFor returns the cell size of an image of the given aspect ratio
// that is cols wide. Cells are about twice as tall as wide and carry two
// pixel rows, so one row covers one column's worth of height.
func CellsFor(aspect float64, cols int) (int, int) {
	if aspect <= 0 || cols <= 0 {
		return 0, 0
	}
	return cols, max(int(math.Round(float64(cols)/aspect/2)), 1)
}

func hex(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}
