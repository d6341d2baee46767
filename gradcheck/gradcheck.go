// Package gradcheck computes reference gradients for the Gaussian layer with gorgonia's symbolic
// differentiation. The kernels compute the same gradients by hand; the tests hold them to these.
package gradcheck

import (
	"github.com/gorgonia/gaussnet/kernel"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Float is the element type of every graph built here.
var Float = tensor.Float32

type maebe struct {
	err error
}

func (m *maebe) do(f func() (*G.Node, error)) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = f(); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

func vec(g *G.ExprGraph, name string, data []float32) *G.Node {
	backing := make([]float32, len(data))
	copy(backing, data)
	T := tensor.New(tensor.WithBacking(backing), tensor.WithShape(len(data)))
	return G.NewVector(g, Float, G.WithShape(len(data)), G.WithName(name), G.WithValue(T))
}

func mat(g *G.ExprGraph, name string, data []float32, rows, cols int) *G.Node {
	backing := make([]float32, len(data))
	copy(backing, data)
	T := tensor.New(tensor.WithBacking(backing), tensor.WithShape(rows, cols))
	return G.NewMatrix(g, Float, G.WithShape(rows, cols), G.WithName(name), G.WithValue(T))
}

// grads runs the graph and collects the gradient of cost with respect to each of wrt.
func grads(g *G.ExprGraph, cost *G.Node, wrt ...*G.Node) ([][]float32, error) {
	if _, err := G.Grad(cost, wrt...); err != nil {
		return nil, errors.Wrap(err, "symbolic differentiation failed")
	}
	m := G.NewTapeMachine(g, G.BindDualValues(wrt...))
	defer m.Close()
	if err := m.RunAll(); err != nil {
		return nil, errors.WithStack(err)
	}

	retVal := make([][]float32, len(wrt))
	for i, n := range wrt {
		gv, err := n.Grad()
		if err != nil {
			return nil, errors.Wrapf(err, "no gradient for %v", n.Name())
		}
		data := gv.Data().([]float32)
		retVal[i] = make([]float32, len(data))
		copy(retVal[i], data)
	}
	return retVal, nil
}

// Sampling differentiates L = Σ δ·(μ + b + σ·ε). The gradients with respect to μ and σ are what the
// sampling delta kernel writes into the previous layer's delta when that layer's activation is the
// identity.
func Sampling(mu, sigma, bias, eps, delta []float32) (dMu, dSigma []float32, err error) {
	n := len(mu)
	if len(sigma) != n || len(bias) != n || len(eps) != n || len(delta) != n {
		return nil, nil, errors.Errorf("mismatched lengths %d %d %d %d %d", n, len(sigma), len(bias), len(eps), len(delta))
	}
	g := G.NewGraph()
	μ := vec(g, "μ", mu)
	σ := vec(g, "σ", sigma)
	b := vec(g, "b", bias)
	ε := vec(g, "ε", eps)
	δ := vec(g, "δ", delta)

	var m maebe
	shifted := m.do(func() (*G.Node, error) { return G.Add(μ, b) })
	noise := m.do(func() (*G.Node, error) { return G.HadamardProd(σ, ε) })
	out := m.do(func() (*G.Node, error) { return G.Add(shifted, noise) })
	weighted := m.do(func() (*G.Node, error) { return G.HadamardProd(out, δ) })
	cost := m.do(func() (*G.Node, error) { return G.Sum(weighted) })
	if m.err != nil {
		return nil, nil, m.err
	}

	gs, err := grads(g, cost, μ, σ)
	if err != nil {
		return nil, nil, err
	}
	return gs[0], gs[1], nil
}

// kl builds ½·Σ(μ² + σ² − ln(σ² + ε) − 1).
func (m *maebe) kl(μ, σ *G.Node) *G.Node {
	half := G.NewConstant(float32(0.5), G.WithName("½"))
	one := G.NewConstant(float32(1), G.WithName("1"))
	eps := G.NewConstant(float32(kernel.KLEpsilon), G.WithName("ε"))

	μ2 := m.do(func() (*G.Node, error) { return G.Square(μ) })
	σ2 := m.do(func() (*G.Node, error) { return G.Square(σ) })
	shifted := m.do(func() (*G.Node, error) { return G.Add(σ2, eps) })
	logσ2 := m.do(func() (*G.Node, error) { return G.Log(shifted) })
	sum := m.do(func() (*G.Node, error) { return G.Add(μ2, σ2) })
	diff := m.do(func() (*G.Node, error) { return G.Sub(sum, logσ2) })
	terms := m.do(func() (*G.Node, error) { return G.Sub(diff, one) })
	total := m.do(func() (*G.Node, error) { return G.Sum(terms) })
	return m.do(func() (*G.Node, error) { return G.Mul(half, total) })
}

// KL returns the KL divergence of N(μ, σ²) from N(0, 1) and its gradients with respect to μ and σ.
func KL(mu, sigma []float32) (r float32, dMu, dSigma []float32, err error) {
	if len(mu) != len(sigma) {
		return 0, nil, nil, errors.Errorf("mismatched lengths %d %d", len(mu), len(sigma))
	}
	g := G.NewGraph()
	μ := vec(g, "μ", mu)
	σ := vec(g, "σ", sigma)
	var m maebe
	cost := m.kl(μ, σ)
	if m.err != nil {
		return 0, nil, nil, m.err
	}
	gs, err := grads(g, cost, μ, σ)
	if err != nil {
		return 0, nil, nil, err
	}
	return cost.Value().Data().(float32), gs[0], gs[1], nil
}

// Regularization differentiates c·KL through a layer with identity activation whose weights are w
// (2n × len(x), row-major): μ = w[:n]·x and σ = w[n:]·x. The result is what the regularization
// delta kernel accumulates into the delta of the layer producing x, when that layer's activation is
// the identity too.
func Regularization(x, w []float32, n int, c float32) (dx []float32, err error) {
	in := len(x)
	if len(w) != 2*n*in {
		return nil, errors.Errorf("expected %d×%d weights, got %d", 2*n, in, len(w))
	}
	g := G.NewGraph()
	X := vec(g, "x", x)
	Wμ := mat(g, "Wμ", w[:n*in], n, in)
	Wσ := mat(g, "Wσ", w[n*in:], n, in)
	coef := G.NewConstant(c, G.WithName("c"))

	var m maebe
	μ := m.do(func() (*G.Node, error) { return G.Mul(Wμ, X) })
	σ := m.do(func() (*G.Node, error) { return G.Mul(Wσ, X) })
	r := m.kl(μ, σ)
	cost := m.do(func() (*G.Node, error) { return G.Mul(coef, r) })
	if m.err != nil {
		return nil, m.err
	}

	gs, err := grads(g, cost, X)
	if err != nil {
		return nil, err
	}
	return gs[0], nil
}
