package layer

import (
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/gorgonia/gaussnet/device"
	"github.com/gorgonia/gaussnet/kernel"
	"github.com/gorgonia/gaussnet/memory"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approx = cmpopts.EquateApprox(0, 1e-5)

func newStack(t *testing.T) *Stack {
	dev, err := device.New(device.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })
	return NewStack(kernel.NewFactory(dev, 42))
}

func set(t *testing.T, b *memory.Block, vals ...float32) {
	require.Equal(t, b.Count(), len(vals), "%v", b)
	copy(b.Host, vals)
	require.NoError(t, b.CopyToDevice())
}

func get(t *testing.T, b *memory.Block) []float32 {
	require.NoError(t, b.CopyToHost())
	retVal := make([]float32, len(b.Host))
	copy(retVal, b.Host)
	return retVal
}

func TestStack(t *testing.T) {
	s := newStack(t)
	in, err := s.AddInput("in", 3)
	require.NoError(t, err)
	h, err := s.AddHidden("h", 4, kernel.Tanh)
	require.NoError(t, err)
	g, err := s.AddGaussian("g", 2)
	require.NoError(t, err)
	out, err := s.AddOutput("out", 1, kernel.Sigmoid)
	require.NoError(t, err)
	require.NoError(t, s.Init())
	require.NoError(t, s.Check())

	assert.Equal(t, 4, s.Len())
	assert.Nil(t, in.PreviousLayer())
	assert.Same(t, in, h.PreviousLayer())
	assert.Same(t, h, g.PreviousLayer())
	assert.Same(t, g, out.PreviousLayer())
	assert.Equal(t, 2, g.Index())

	// inputs alias the previous outputs
	assert.Same(t, in.Input, in.Output)
	assert.Same(t, in.Output, h.Input)
	assert.Same(t, h.Output, g.Input)
	assert.Same(t, g.Output, out.Input)

	assert.Equal(t, 4*3, h.Weights.Count())
	assert.Equal(t, 2*4, g.Weights.Count())
	assert.Equal(t, 2, g.RandomNormal.Count())
	assert.Nil(t, g.NeuronInput)
	assert.Same(t, h.NeuronInput, h.PreActivation())
	assert.Same(t, g.Input, g.PreActivation())

	assert.Len(t, in.Tasks(), 0)
	assert.Len(t, g.Tasks(), 2)
	assert.Len(t, out.Tasks(), 4)
	for _, b := range in.Blocks() {
		assert.NotSame(t, in.Input, b, "the input layer does not own its input")
	}
}

func TestStackTopology(t *testing.T) {
	cases := []struct {
		name  string
		build func(s *Stack) error
	}{
		{"hidden first", func(s *Stack) error {
			_, err := s.AddHidden("h", 2, kernel.Tanh)
			return err
		}},
		{"gaussian first", func(s *Stack) error {
			_, err := s.AddGaussian("g", 2)
			return err
		}},
		{"second input", func(s *Stack) error {
			s.AddInput("a", 2)
			_, err := s.AddInput("b", 2)
			return err
		}},
		{"empty input", func(s *Stack) error {
			_, err := s.AddInput("a", 0)
			return err
		}},
		{"gaussian size", func(s *Stack) error {
			s.AddInput("in", 5)
			_, err := s.AddGaussian("g", 2)
			return err
		}},
		{"after output", func(s *Stack) error {
			s.AddInput("in", 2)
			s.AddOutput("out", 2, kernel.Identity)
			_, err := s.AddHidden("h", 2, kernel.Tanh)
			return err
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.build(newStack(t))
			require.Error(t, err)
			_, ok := errors.Cause(err).(TopologyError)
			assert.True(t, ok, "%v", err)
		})
	}
}

func TestSignal(t *testing.T) {
	var s Signal
	assert.False(t, s.Rose())
	s.Raise()
	assert.True(t, s.Level())
	assert.True(t, s.Rose())
	assert.False(t, s.Rose(), "an edge is consumed")
	s.Lower()
	assert.False(t, s.Rose())
	s.Set(true)
	assert.True(t, s.Rose())
}

func TestResetDelta(t *testing.T) {
	s := newStack(t)
	in, err := s.AddInput("in", 3)
	require.NoError(t, err)

	set(t, in.Delta, 1, 2, 3)
	require.NoError(t, in.ResetDelta(1))
	assert.Equal(t, []float32{0, 0, 0}, get(t, in.Delta))

	set(t, in.Delta, 1, 2, 3)
	require.NoError(t, in.ResetDelta(1))
	assert.Equal(t, []float32{1, 2, 3}, get(t, in.Delta), "a delta is reset once per step")

	require.NoError(t, in.ResetDelta(2))
	assert.Equal(t, []float32{0, 0, 0}, get(t, in.Delta))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "Gaussian", Gaussian.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
	assert.True(t, Hidden.WeightBearing())
	assert.True(t, Output.WeightBearing())
	assert.False(t, Gaussian.WeightBearing())
	assert.False(t, Input.WeightBearing())
}
