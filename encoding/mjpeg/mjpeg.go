package mjpeg

import (
	"bytes"
	"image/jpeg"
	"net/http"

	"github.com/gorgonia/gaussnet"
	"github.com/gorgonia/gaussnet/encoding/heatmap"
	"github.com/mattn/go-mjpeg"
	"github.com/pkg/errors"
)

// Encoder serves the activations of the latest step as a motion JPEG stream. It implements
// gaussnet.OutputEncoder and http.Handler.
type Encoder struct {
	*heatmap.Renderer

	stream  *mjpeg.Stream
	quality int
	frame   []byte
}

// NewEncoder with maximum height and width.
func NewEncoder(h, w int) *Encoder {
	return &Encoder{
		Renderer: heatmap.New(h, w),
		stream:   mjpeg.NewStream(),
		quality:  90,
	}
}

func (enc *Encoder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	enc.stream.ServeHTTP(w, r)
}

// Encode renders the step and pushes it to every connected client. Clients write the frame from
// their own goroutines, so every frame gets its own buffer.
func (enc *Encoder) Encode(ms gaussnet.MetaState) error {
	var b bytes.Buffer
	if err := jpeg.Encode(&b, enc.Render(ms), &jpeg.Options{Quality: enc.quality}); err != nil {
		return errors.Wrap(err, "unable to encode frame")
	}
	enc.frame = b.Bytes()
	return errors.WithStack(enc.stream.Update(enc.frame))
}

// Flush is a no-op: frames are sent as they are encoded.
func (enc *Encoder) Flush() error { return nil }

// Frame returns the JPEG bytes of the latest frame.
func (enc *Encoder) Frame() []byte { return enc.frame }
