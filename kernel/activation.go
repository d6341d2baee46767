package kernel

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Activation is a neuron nonlinearity.
type Activation int

const (
	Identity Activation = iota
	Sigmoid
	Tanh
	ReLU
	MAXACTIVATION
)

func (a Activation) IsValid() bool { return a >= Identity && a < MAXACTIVATION }

// Apply computes f(z).
func (a Activation) Apply(z float32) float32 {
	switch a {
	case Sigmoid:
		return 1 / (1 + math32.Exp(-z))
	case Tanh:
		return math32.Tanh(z)
	case ReLU:
		if z > 0 {
			return z
		}
		return 0
	}
	return z
}

// Derivative computes f'(z).
func (a Activation) Derivative(z float32) float32 {
	switch a {
	case Sigmoid:
		s := 1 / (1 + math32.Exp(-z))
		return s * (1 - s)
	case Tanh:
		t := math32.Tanh(z)
		return 1 - t*t
	case ReLU:
		if z > 0 {
			return 1
		}
		return 0
	}
	return 1
}

// derivativeAt reads the pre-activation only when the derivative depends on it. Identity layers
// may pass a buffer that does not line up with their neurons.
func (a Activation) derivativeAt(pre []float32, i int) float32 {
	if a == Identity {
		return 1
	}
	return a.Derivative(pre[i])
}

func (a Activation) String() string {
	switch a {
	case Identity:
		return "identity"
	case Sigmoid:
		return "sigmoid"
	case Tanh:
		return "tanh"
	case ReLU:
		return "relu"
	}
	return fmt.Sprintf("Activation(%d)", int(a))
}
