package gaussnet

import "bytes"

// OutputEncoder encodes the state of a network after every step.
//
// An example OutputEncoder is the gif Encoder, which draws the activations of every layer.
type OutputEncoder interface {
	Encode(ms MetaState) error
	Flush() error
}

// MetaState is what an OutputEncoder sees of a network.
type MetaState interface {
	Name() string
	Epoch() int
	Steps() int64
	Cost() float32
	Activations() [][]float32 // host copies of every layer's output, input first
}

// Example is one training pair.
type Example struct {
	Input  []float32
	Target []float32
}

type manyErr []error

func (err manyErr) Error() string {
	var buf bytes.Buffer
	for _, e := range err {
		buf.WriteString(e.Error())
		buf.WriteByte('\n')
	}
	return buf.String()
}
