package layer

import (
	"fmt"

	"github.com/gorgonia/gaussnet/kernel"
	"github.com/gorgonia/gaussnet/memory"
)

// Kind is the role a layer plays in the chain.
type Kind int

const (
	Input Kind = iota
	Hidden
	Gaussian
	Output
	MAXKIND
)

// WeightBearing reports whether layers of this kind compute W·x + b, and therefore keep the
// pre-activation accumulator NeuronInput.
func (k Kind) WeightBearing() bool { return k == Hidden || k == Output }

func (k Kind) String() string {
	switch k {
	case Input:
		return "Input"
	case Hidden:
		return "Hidden"
	case Gaussian:
		return "Gaussian"
	case Output:
		return "Output"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// naughty is an index into the owning Stack, standing in for *Layer.
type naughty int

const nilLayer naughty = -1

func (n naughty) isValid() bool { return n >= 0 }

// Layer holds the buffers of one stage of the network.
//
// Input is not owned: it is the previous layer's Output (or, for an Input layer, the external input
// that Output also aliases). Every other block belongs to the layer.
type Layer struct {
	Name       string
	Kind       Kind
	Neurons    int
	Activation kernel.Activation

	Input        *memory.Block
	Output       *memory.Block
	Bias         *memory.Block
	Weights      *memory.Block // Neurons × Input.Count, row-major
	NeuronInput  *memory.Block // weight-bearing layers only
	Delta        *memory.Block
	RandomNormal *memory.Block // Gaussian layers only
	Uniform      *memory.Block // Gaussian layers only
	Target       *memory.Block // Output layers only

	L1Term         *memory.Block
	L2Term         *memory.Block
	Regularization *memory.Block
	Cost           *memory.Block // Output layers only

	// Generate requests the canonical probe input on the next forward step. Only Gaussian layers
	// read it.
	Generate Signal

	ForwardTask   Task
	LossTask      Task
	BackDeltaTask Task
	UpdateTask    Task

	stack     *Stack
	id, prev  naughty
	deltaStep int64
}

// PreviousLayer returns the layer feeding this one, or nil for the first layer.
func (l *Layer) PreviousLayer() *Layer {
	if !l.prev.isValid() {
		return nil
	}
	return l.stack.layers[l.prev]
}

// Index is the position of the layer in its stack.
func (l *Layer) Index() int { return int(l.id) }

// PreActivation is the buffer holding the values the layer's activation was applied to.
func (l *Layer) PreActivation() *memory.Block {
	if l.Kind.WeightBearing() {
		return l.NeuronInput
	}
	return l.Input
}

// ResetDelta zeroes the delta buffer, once per step. Delta kernels accumulate, so the first task to
// target a layer's delta in a step clears it and later ones add to it.
func (l *Layer) ResetDelta(step int64) error {
	if l.deltaStep == step {
		return nil
	}
	l.deltaStep = step
	return l.Delta.Fill(0)
}

// Tasks returns the tasks attached to the layer in the order a step runs them.
func (l *Layer) Tasks() []Task {
	var retVal []Task
	for _, t := range []Task{l.ForwardTask, l.LossTask, l.BackDeltaTask, l.UpdateTask} {
		if t != nil {
			retVal = append(retVal, t)
		}
	}
	return retVal
}

// Blocks returns every buffer of the layer that the layer owns.
func (l *Layer) Blocks() []*memory.Block {
	var retVal []*memory.Block
	for _, b := range []*memory.Block{
		l.Output, l.Bias, l.Weights, l.NeuronInput, l.Delta, l.RandomNormal, l.Uniform, l.Target,
		l.L1Term, l.L2Term, l.Regularization, l.Cost,
	} {
		if b != nil && (l.Kind != Input || b != l.Input) {
			retVal = append(retVal, b)
		}
	}
	return retVal
}

func (l *Layer) String() string {
	return fmt.Sprintf("%s(%v, %d, %v)", l.Name, l.Kind, l.Neurons, l.Activation)
}
