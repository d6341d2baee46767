package gradcheck

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/gorgonia/gaussnet/device"
	"github.com/gorgonia/gaussnet/kernel"
	"github.com/gorgonia/gaussnet/layer"
	"github.com/gorgonia/gaussnet/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approx = cmpopts.EquateApprox(1e-4, 1e-5)

func set(t *testing.T, b *memory.Block, vals ...float32) {
	copy(b.Host, vals)
	require.NoError(t, b.CopyToDevice())
}

func get(t *testing.T, b *memory.Block) []float32 {
	require.NoError(t, b.CopyToHost())
	retVal := make([]float32, len(b.Host))
	copy(retVal, b.Host)
	return retVal
}

func newStack(t *testing.T) *layer.Stack {
	dev, err := device.New(device.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })
	return layer.NewStack(kernel.NewFactory(dev, 7))
}

func TestKL(t *testing.T) {
	mu := []float32{0, 1, -2}
	sigma := []float32{1, 0.5, 2}
	r, dMu, dSigma, err := KL(mu, sigma)
	require.NoError(t, err)

	var want float32
	wantSigma := make([]float32, len(sigma))
	for i := range mu {
		s2 := sigma[i] * sigma[i]
		want += 0.5 * (mu[i]*mu[i] + s2 - math32.Log(s2+kernel.KLEpsilon) - 1)
		wantSigma[i] = sigma[i] - sigma[i]/(s2+kernel.KLEpsilon)
	}
	assert.InDelta(t, want, r, 1e-4)
	assert.True(t, cmp.Equal(mu, dMu, approx), "%v", dMu)
	assert.True(t, cmp.Equal(wantSigma, dSigma, approx), "%v", dSigma)

	_, _, _, err = KL(mu, sigma[:1])
	assert.Error(t, err)
}

func TestSamplingDelta(t *testing.T) {
	s := newStack(t)
	in, _ := s.AddInput("in", 6)
	g, err := s.AddGaussian("g", 3)
	require.NoError(t, err)
	require.NoError(t, s.Init())
	g.BackDeltaTask.(*layer.GaussianBackDeltaTask).Regularize = false

	mu, sigma := []float32{0.5, -1, 2}, []float32{1, 0.2, 3}
	bias := []float32{0.1, 0, -0.1}
	delta := []float32{1, -2, 0.5}
	set(t, in.Input, append(append([]float32{}, mu...), sigma...)...)
	set(t, g.Bias, bias...)

	p := &layer.Params{Step: 1}
	require.NoError(t, g.ForwardTask.Execute(p))
	set(t, g.Delta, delta...)
	require.NoError(t, g.BackDeltaTask.Execute(p))

	dMu, dSigma, err := Sampling(mu, sigma, bias, get(t, g.RandomNormal), delta)
	require.NoError(t, err)
	want := append(dMu, dSigma...)
	got := get(t, in.Delta)
	assert.True(t, cmp.Equal(want, got, approx), "%v\n%v", want, got)
}

func TestRegularizationDelta(t *testing.T) {
	s := newStack(t)
	in, _ := s.AddInput("in", 3)
	h, _ := s.AddHidden("h", 4, kernel.Identity)
	g, err := s.AddGaussian("g", 2)
	require.NoError(t, err)
	require.NoError(t, s.Init())
	task := g.BackDeltaTask.(*layer.GaussianBackDeltaTask)
	task.RegularizationCoefficient = 0.05

	x := []float32{1, -0.5, 2}
	w := []float32{
		0.5, 0.1, 0.2,
		-0.3, 0.4, 0.1,
		0.2, 0.2, 0.3,
		0.6, -0.1, 0.1,
	}
	delta := []float32{0.3, -0.7}
	set(t, in.Input, x...)
	set(t, h.Weights, w...)

	p := &layer.Params{Step: 1}
	require.NoError(t, s.Forward(p))
	set(t, g.Delta, delta...)
	require.NoError(t, task.Execute(p))

	// through the sampling step into h
	y := get(t, h.Output)
	dMu, dSigma, err := Sampling(y[:2], y[2:], []float32{0, 0}, get(t, g.RandomNormal), delta)
	require.NoError(t, err)
	want := append(dMu, dSigma...)
	got := get(t, h.Delta)
	assert.True(t, cmp.Equal(want, got, approx), "%v\n%v", want, got)

	// through h's weights into the input
	dx, err := Regularization(x, w, 2, 0.05)
	require.NoError(t, err)
	got = get(t, in.Delta)
	assert.True(t, cmp.Equal(dx, got, approx), "%v\n%v", dx, got)

	_, err = Regularization(x, w[:3], 2, 0.05)
	assert.Error(t, err)
}
