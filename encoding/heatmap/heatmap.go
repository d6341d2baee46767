// Package heatmap draws the activations of a network as one row of shaded cells per layer.
package heatmap

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/golang/freetype/truetype"
	"github.com/gorgonia/gaussnet"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
)

var regular *truetype.Font

const (
	dpi        = 72.0
	fontsize   = 12.0
	lineheight = 1.2

	// Cell is the side of one neuron, in pixels.
	Cell = 12
	// Pad is the margin around a frame.
	Pad = 10
)

func init() {
	var err error
	if regular, err = truetype.Parse(gomono.TTF); err != nil {
		panic(err)
	}
}

// Palette is black to white. Index 0 is also the text colour.
var Palette = func() color.Palette {
	p := make(color.Palette, 256)
	for i := range p {
		p[i] = color.Gray{uint8(i)}
	}
	return p
}()

// LineHeight is the height of one line of text, in pixels.
func LineHeight() int { return int(math.Ceil(fontsize * lineheight * dpi / 72)) }

// Top is the y coordinate of the first row of cells.
func Top() int { return Pad + 2*LineHeight() + LineHeight()/2 }

// Renderer draws frames. The frame size is fixed by the first state it sees, capped at the maximum.
type Renderer struct {
	H, W int
	font.Drawer

	maxH, maxW  int
	initialized bool
}

// New renderer with a maximum height and width.
func New(h, w int) *Renderer {
	return &Renderer{
		H:    -1,
		W:    -1,
		maxH: h,
		maxW: w,
		Drawer: font.Drawer{
			Src: image.Black,
		},
	}
}

// Caption is the second line of a frame.
func Caption(ms gaussnet.MetaState) string {
	return fmt.Sprintf("Epoch %d, Step %d, Cost %.4f", ms.Epoch(), ms.Steps(), ms.Cost())
}

func (r *Renderer) init(ms gaussnet.MetaState, acts [][]float32) {
	r.Face = truetype.NewFace(regular, &truetype.Options{
		Size:    fontsize,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})

	widest := 0
	for _, a := range acts {
		widest = maxInt(widest, len(a))
	}
	w := maxInt(widest*Cell, font.MeasureString(r.Face, Caption(ms)).Ceil()) + 2*Pad
	h := Top() + len(acts)*(Cell+2) + Pad

	r.W = minInt(w, r.maxW)
	r.H = minInt(h, r.maxH)
	r.initialized = true
}

// Render draws a frame. Each row is shaded from white (the row's minimum) to black (its maximum).
func (r *Renderer) Render(ms gaussnet.MetaState) *image.Paletted {
	acts := ms.Activations()
	if !r.initialized {
		r.init(ms, acts)
	}

	im := image.NewPaletted(image.Rect(0, 0, r.W, r.H), Palette)
	draw.Draw(im, im.Bounds(), image.White, image.Point{}, draw.Src)
	r.Dst = im

	dy := LineHeight()
	r.Dot = fixed.P(Pad, Pad+dy)
	r.DrawString(ms.Name())
	r.Dot = fixed.P(Pad, Pad+2*dy)
	r.DrawString(Caption(ms))

	y := Top()
	for _, a := range acts {
		lo, hi := Bounds(a)
		for i, v := range a {
			shade := uint8(255)
			if hi > lo {
				shade = uint8(255 * (1 - (v-lo)/(hi-lo)))
			}
			cell := image.Rect(Pad+i*Cell, y, Pad+(i+1)*Cell-1, y+Cell)
			draw.Draw(im, cell, &image.Uniform{color.Gray{shade}}, image.Point{}, draw.Src)
		}
		y += Cell + 2
	}
	return im
}

// Bounds returns the minimum and maximum of a.
func Bounds(a []float32) (lo, hi float32) {
	if len(a) == 0 {
		return 0, 0
	}
	lo, hi = a[0], a[0]
	for _, v := range a[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
