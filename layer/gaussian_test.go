package layer

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/google/go-cmp/cmp"
	"github.com/gorgonia/gaussnet/kernel"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gaussianChain builds in(2n) → g(n).
func gaussianChain(t *testing.T, n int) (*Stack, *Layer, *Layer) {
	s := newStack(t)
	in, err := s.AddInput("in", 2*n)
	require.NoError(t, err)
	g, err := s.AddGaussian("g", n)
	require.NoError(t, err)
	require.NoError(t, s.Init())
	return s, in, g
}

func TestGaussianForward(t *testing.T) {
	_, in, g := gaussianChain(t, 2)
	p := &Params{Step: 1, TrainingRate: 0.1}

	set(t, in.Input, 1, 1, 0, 0)
	require.NoError(t, g.ForwardTask.Execute(p))
	assert.True(t, cmp.Equal([]float32{1, 1}, get(t, g.Output), approx), "σ = 0 yields the mean")

	// KL of N(1, 0) against N(0, 1): ½·Σ(μ² − ln ε)
	want := -math32.Log(kernel.KLEpsilon)
	assert.InDelta(t, want, get(t, g.Regularization)[0], 1e-3)
	assert.Equal(t, float32(0.1), p.TrainingRate)

	// μ + bias + σ·ε
	set(t, in.Input, 0.5, -1, 2, 3)
	set(t, g.Bias, 1, 1)
	require.NoError(t, g.ForwardTask.Execute(p))
	eps := get(t, g.RandomNormal)
	want2 := []float32{0.5 + 1 + 2*eps[0], -1 + 1 + 3*eps[1]}
	assert.True(t, cmp.Equal(want2, get(t, g.Output), approx))
}

func TestGaussianForwardDraws(t *testing.T) {
	_, _, g := gaussianChain(t, 3)
	p := &Params{Step: 1}
	set(t, g.Input, 0.5, -1, 2, 1, 0.5, 3)
	require.NoError(t, g.ForwardTask.Execute(p))
	first := get(t, g.RandomNormal)
	require.NoError(t, g.ForwardTask.Execute(p))
	second := get(t, g.RandomNormal)
	out := get(t, g.Output)

	assert.Len(t, first, 3)
	assert.Len(t, out, 3)
	assert.NotEqual(t, first, second, "every step draws new noise")
	for _, v := range append(append(first, second...), out...) {
		assert.False(t, math32.IsNaN(v) || math32.IsInf(v, 0))
	}
}

func TestGaussianForwardGenerate(t *testing.T) {
	_, in, g := gaussianChain(t, 2)
	p := &Params{Step: 1, TrainingRate: 0.5}

	g.Generate.Raise()
	require.NoError(t, g.ForwardTask.Execute(p))
	assert.Equal(t, float32(0), p.TrainingRate)
	assert.Equal(t, []float32{0, 0, 1, 1}, get(t, in.Input))
	// μ = 0 and σ = 1: the output is the noise itself
	assert.True(t, cmp.Equal(get(t, g.RandomNormal), get(t, g.Output), approx))

	// level still high: no new edge
	p = &Params{Step: 2, TrainingRate: 0.5}
	set(t, in.Input, 1, 1, 0, 0)
	require.NoError(t, g.ForwardTask.Execute(p))
	assert.Equal(t, float32(0.5), p.TrainingRate)
	assert.Equal(t, []float32{1, 1, 0, 0}, get(t, in.Input))
}

func TestGaussianForwardRegularizationTerms(t *testing.T) {
	_, _, g := gaussianChain(t, 2)
	set(t, g.Weights, 1, -2, 0, 3, -1, 0, 0, 0)
	set(t, g.L1Term, 7)
	set(t, g.L2Term, 7)

	p := &Params{Step: 1}
	require.NoError(t, g.ForwardTask.Execute(p))
	assert.Equal(t, float32(7), get(t, g.L1Term)[0], "no L1 coefficient, no L1 term")
	assert.Equal(t, float32(7), get(t, g.L2Term)[0], "no L2 coefficient, no L2 term")

	p = &Params{Step: 2, L1: 0.1}
	require.NoError(t, g.ForwardTask.Execute(p))
	assert.InDelta(t, 7, get(t, g.L1Term)[0], 1e-5)
	assert.Equal(t, float32(7), get(t, g.L2Term)[0])

	set(t, g.L1Term, 0)
	p = &Params{Step: 3, L1: 0.1, L2: 0.1}
	require.NoError(t, g.ForwardTask.Execute(p))
	assert.InDelta(t, 7, get(t, g.L1Term)[0], 1e-5)
	assert.InDelta(t, 15, get(t, g.L2Term)[0], 1e-5)

	// weights are only read
	assert.Equal(t, []float32{1, -2, 0, 3, -1, 0, 0, 0}, get(t, g.Weights))
}

func TestGaussianBackDeltaNoPrevious(t *testing.T) {
	g := &Layer{Name: "g", Kind: Gaussian, prev: nilLayer}
	task := NewGaussianBackDeltaTask(g)
	assert.True(t, task.Regularize)
	assert.Equal(t, float32(0.01), task.RegularizationCoefficient)
	assert.NoError(t, task.Execute(&Params{Step: 1}))
}

func TestGaussianBackDeltaTopology(t *testing.T) {
	s0, in, g := gaussianChain(t, 2)
	set(t, in.Delta, 5, 5, 5, 5)

	err := g.BackDeltaTask.Execute(&Params{Step: 1})
	require.Error(t, err)
	_, ok := errors.Cause(err).(TopologyError)
	assert.True(t, ok, "%v", err)
	assert.Equal(t, []float32{5, 5, 5, 5}, get(t, in.Delta), "nothing is touched")
	err = s0.Check()
	_, ok = errors.Cause(err).(TopologyError)
	assert.True(t, ok, "the stack reports the same error before any step: %v", err)
	g.BackDeltaTask.(*GaussianBackDeltaTask).Regularize = false
	assert.NoError(t, s0.Check())

	// a weight-bearing layer without a predecessor
	s := newStack(t)
	s.AddInput("in", 2)
	h, _ := s.AddHidden("h", 4, kernel.Identity)
	g2, err := s.AddGaussian("g", 2)
	require.NoError(t, err)
	require.NoError(t, s.Init())
	h.prev = nilLayer
	err = g2.BackDeltaTask.Execute(&Params{Step: 1})
	_, ok = errors.Cause(err).(TopologyError)
	assert.True(t, ok, "%v", err)
}

func TestGaussianBackDelta(t *testing.T) {
	_, in, g := gaussianChain(t, 2)
	task := g.BackDeltaTask.(*GaussianBackDeltaTask)
	task.Regularize = false

	p := &Params{Step: 1}
	require.NoError(t, g.ForwardTask.Execute(p))
	eps := get(t, g.RandomNormal)

	set(t, in.Delta, 9, 9, 9, 9)
	set(t, g.Delta, 1, 2)
	require.NoError(t, task.Execute(p))
	want := []float32{1, 2, eps[0], 2 * eps[1]}
	assert.True(t, cmp.Equal(want, get(t, in.Delta), approx), "stale delta is cleared first")

	// a second pass in the same step accumulates
	require.NoError(t, task.Execute(p))
	for i := range want {
		want[i] *= 2
	}
	assert.True(t, cmp.Equal(want, get(t, in.Delta), approx))

	// the delta of the gaussian layer itself is read only
	assert.Equal(t, []float32{1, 2}, get(t, g.Delta))
}

func TestGaussianBackDeltaRegularization(t *testing.T) {
	s := newStack(t)
	in, _ := s.AddInput("in", 2)
	h, _ := s.AddHidden("h", 4, kernel.Identity)
	g, err := s.AddGaussian("g", 2)
	require.NoError(t, err)
	require.NoError(t, s.Init())

	set(t, h.Weights,
		1, 0,
		0, 1,
		1, 1,
		2, -1,
	)
	y := []float32{1, -1, 2, 0.5}
	set(t, h.Output, y...)
	set(t, h.NeuronInput, y...)
	set(t, g.Delta, 0, 0)
	set(t, in.Delta, 3, 3)

	task := g.BackDeltaTask.(*GaussianBackDeltaTask)
	require.NoError(t, task.Execute(&Params{Step: 1}))

	// g = (μ, σ·(1 − 1/σ²)) = (1, −1, 1.5, −1.5), pushed through the weights and scaled by 0.01
	assert.True(t, cmp.Equal([]float32{-0.005, 0.02}, get(t, in.Delta), approx), "%v", in.Delta.Host)
	assert.True(t, cmp.Equal([]float32{0, 0, 0, 0}, get(t, h.Delta), approx))

	// the coefficient is read on every run
	task.RegularizationCoefficient = 0.02
	require.NoError(t, task.Execute(&Params{Step: 2}))
	assert.True(t, cmp.Equal([]float32{-0.01, 0.04}, get(t, in.Delta), approx), "%v", in.Delta.Host)

	// the previous layer's own back delta accumulates on top in the same step
	set(t, h.Delta, 1, 0, 0, 0)
	require.NoError(t, h.BackDeltaTask.Execute(&Params{Step: 2}))
	assert.True(t, cmp.Equal([]float32{0.99, 0.04}, get(t, in.Delta), approx), "%v", in.Delta.Host)
}
