package viz

import (
	"image"
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Upper half block: foreground paints the top pixel, background the bottom.
const halfBlock = "▀"

const maxCachedStyles = 4096

// Canvas is a grid of terminal cells, each holding two vertically stacked
// pixels. Its pixel size is Width x (Height*2).
type Canvas struct {
	Width, Height int
	top, bottom   []colorful.Color
	cache         map[[2]string]lipgloss.Style
}

func NewCanvas(w, h int) *Canvas {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return &Canvas{
		Width:  w,
		Height: h,
		top:    make([]colorful.Color, w*h),
		bottom: make([]colorful.Color, w*h),
		cache:  make(map[[2]string]lipgloss.Style),
	}
}

// Fill paints every pixel c.
func (c *Canvas) Fill(col colorful.Color) {
	for i := range c.top {
		c.top[i] = col
		c.bottom[i] = col
	}
}

// Sample scales img onto the canvas by nearest-neighbour lookup.
func (c *Canvas) Sample(img *image.RGBA) {
	b := img.Bounds()
	if b.Empty() {
		return
	}
	rows := c.Height * 2
	for sy := 0; sy < rows; sy++ {
		py := b.Min.Y + (2*sy+1)*b.Dy()/(2*rows)
		for col := 0; col < c.Width; col++ {
			px := b.Min.X + (2*col+1)*b.Dx()/(2*c.Width)
			p := img.RGBAAt(px, py)
			v := colorful.Color{R: float64(p.R) / 255, G: float64(p.G) / 255, B: float64(p.B) / 255}
			i := (sy/2)*c.Width + col
			if sy%2 == 0 {
				c.top[i] = v
			} else {
				c.bottom[i] = v
			}
		}
	}
}

// At returns the top and bottom pixel of a cell.
func (c *Canvas) At(col, row int) (top, bottom colorful.Color) {
	i := row*c.Width + col
	return c.top[i], c.bottom[i]
}

func (c *Canvas) style(top, bottom string) lipgloss.Style {
	key := [2]string{top, bottom}
	if s, ok := c.cache[key]; ok {
		return s
	}
	if len(c.cache) >= maxCachedStyles {
		clear(c.cache)
	}
	s := lipgloss.NewStyle().Foreground(lipgloss.Color(top)).Background(lipgloss.Color(bottom))
	c.cache[key] = s
	return s
}

func (c *Canvas) String() string {
	var b strings.Builder
	for row := 0; row < c.Height; row++ {
		for col := 0; col < c.Width; col++ {
			i := row*c.Width + col
			b.WriteString(c.style(c.top[i].Hex(), c.bottom[i].Hex()).Render(halfBlock))
		}
		if row < c.Height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
