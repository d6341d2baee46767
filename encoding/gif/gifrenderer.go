package gif

import (
	"image/gif"
	"io"

	"github.com/gorgonia/gaussnet"
	"github.com/gorgonia/gaussnet/encoding/heatmap"
)

// Encoder collects one frame per step and writes them as an animated gif on Flush. It implements
// gaussnet.OutputEncoder.
type Encoder struct {
	*heatmap.Renderer
	io.Writer

	out   *gif.GIF
	delay int // per frame, in 100ths of a second
}

// NewGifEncoder with maximum height and width. Frames are written to w on Flush.
func NewGifEncoder(w io.Writer, h, wd int) *Encoder {
	return &Encoder{
		Renderer: heatmap.New(h, wd),
		Writer:   w,
		out:      &gif.GIF{LoopCount: 0},
		delay:    10,
	}
}

// Encode draws a frame.
func (enc *Encoder) Encode(ms gaussnet.MetaState) error {
	enc.out.Image = append(enc.out.Image, enc.Render(ms))
	enc.out.Delay = append(enc.out.Delay, enc.delay)
	return nil
}

// Flush writes the gif into the writer.
func (enc *Encoder) Flush() error { return gif.EncodeAll(enc.Writer, enc.out) }

// Frames is the number of frames encoded so far.
func (enc *Encoder) Frames() int { return len(enc.out.Image) }
