package layer

import (
	"fmt"

	"github.com/gorgonia/gaussnet/kernel"
	"github.com/gorgonia/gaussnet/memory"
)

// Stack owns the layers of a chain. Layers refer to their predecessor by index, so the chain holds
// no cycles and no layer owns another.
type Stack struct {
	f      *kernel.Factory
	layers []*Layer
}

// NewStack creates an empty stack whose buffers live on the factory's device.
func NewStack(f *kernel.Factory) *Stack { return &Stack{f: f} }

func (s *Stack) Len() int                 { return len(s.layers) }
func (s *Stack) At(i int) *Layer          { return s.layers[i] }
func (s *Stack) Layers() []*Layer         { return s.layers }
func (s *Stack) Factory() *kernel.Factory { return s.f }

// Last returns the most recently added layer, or nil.
func (s *Stack) Last() *Layer {
	if len(s.layers) == 0 {
		return nil
	}
	return s.layers[len(s.layers)-1]
}

func (s *Stack) block(l *Layer, what string, count int) *memory.Block {
	return memory.New(s.f.Device(), fmt.Sprintf("%s.%s", l.Name, what), count)
}

func (s *Stack) push(l *Layer) *Layer {
	l.stack = s
	l.id = naughty(len(s.layers))
	l.prev = nilLayer
	l.deltaStep = -1
	if prev := s.Last(); prev != nil {
		l.prev = prev.id
		l.Input = prev.Output
	}
	s.layers = append(s.layers, l)
	return l
}

// common allocates what every non-input layer has.
func (s *Stack) common(l *Layer) {
	l.Output = s.block(l, "Output", l.Neurons)
	l.Bias = s.block(l, "Bias", l.Neurons)
	l.Delta = s.block(l, "Delta", l.Neurons)
	l.Weights = s.block(l, "Weights", l.Neurons*l.Input.Count())
	l.L1Term = s.block(l, "L1Term", 1)
	l.L2Term = s.block(l, "L2Term", 1)
	l.Regularization = s.block(l, "Regularization", 1)
}

func (s *Stack) follow(name string, kind Kind, neurons int) (*Layer, error) {
	if neurons <= 0 {
		return nil, TopologyError{Layer: name, Reason: fmt.Sprintf("%d neurons", neurons)}
	}
	if s.Last() == nil {
		return nil, TopologyError{Layer: name, Reason: fmt.Sprintf("a %v layer cannot start the chain", kind)}
	}
	if s.Last().Kind == Output {
		return nil, TopologyError{Layer: name, Reason: "nothing may follow an output layer"}
	}
	return s.push(&Layer{Name: name, Kind: kind, Neurons: neurons}), nil
}

// AddInput starts the chain with an input layer of n values.
func (s *Stack) AddInput(name string, n int) (*Layer, error) {
	if len(s.layers) != 0 {
		return nil, TopologyError{Layer: name, Reason: "an input layer must come first"}
	}
	if n <= 0 {
		return nil, TopologyError{Layer: name, Reason: fmt.Sprintf("%d inputs", n)}
	}
	l := s.push(&Layer{Name: name, Kind: Input, Neurons: n, Activation: kernel.Identity})
	l.Input = s.block(l, "Input", n)
	l.Output = l.Input
	l.Delta = s.block(l, "Delta", n)
	return l, nil
}

// AddHidden appends a fully connected layer.
func (s *Stack) AddHidden(name string, n int, act kernel.Activation) (*Layer, error) {
	l, err := s.follow(name, Hidden, n)
	if err != nil {
		return nil, err
	}
	l.Activation = act
	s.common(l)
	l.NeuronInput = s.block(l, "NeuronInput", n)
	l.ForwardTask = &FullyConnectedForwardTask{Owner: l}
	l.BackDeltaTask = &FullyConnectedBackDeltaTask{Owner: l}
	l.UpdateTask = &FullyConnectedUpdateWeightsTask{Owner: l}
	return l, nil
}

// AddGaussian appends a Gaussian sampling layer of n units. The previous layer must provide 2n
// values: n means followed by n standard deviations.
func (s *Stack) AddGaussian(name string, n int) (*Layer, error) {
	if prev := s.Last(); prev != nil && prev.Neurons != 2*n {
		return nil, TopologyError{
			Layer:  name,
			Reason: fmt.Sprintf("%d Gaussian units need 2×%d inputs, %v provides %d", n, n, prev.Name, prev.Neurons),
		}
	}
	l, err := s.follow(name, Gaussian, n)
	if err != nil {
		return nil, err
	}
	l.Activation = kernel.Identity
	s.common(l)
	l.RandomNormal = s.block(l, "RandomNormal", n)
	l.Uniform = s.block(l, "Uniform", 2*((n+1)/2))
	l.ForwardTask = &GaussianForwardTask{Owner: l}
	l.BackDeltaTask = NewGaussianBackDeltaTask(l)
	return l, nil
}

// AddOutput appends the output layer. Its delta is computed against Target.
func (s *Stack) AddOutput(name string, n int, act kernel.Activation) (*Layer, error) {
	l, err := s.follow(name, Output, n)
	if err != nil {
		return nil, err
	}
	l.Activation = act
	s.common(l)
	l.NeuronInput = s.block(l, "NeuronInput", n)
	l.Target = s.block(l, "Target", n)
	l.Cost = s.block(l, "Cost", 1)
	l.ForwardTask = &FullyConnectedForwardTask{Owner: l}
	l.LossTask = &OutputDeltaTask{Owner: l}
	l.BackDeltaTask = &FullyConnectedBackDeltaTask{Owner: l}
	l.UpdateTask = &FullyConnectedUpdateWeightsTask{Owner: l}
	return l, nil
}

// Init compiles the kernels of every task.
func (s *Stack) Init() error {
	for _, l := range s.layers {
		for _, t := range l.Tasks() {
			if err := t.Init(s.f); err != nil {
				return err
			}
		}
	}
	return nil
}

// Check verifies the linked chain against what each task needs from its neighbours. It touches no
// buffer.
func (s *Stack) Check() error {
	for _, l := range s.layers {
		for _, t := range l.Tasks() {
			c, ok := t.(interface{ Check() error })
			if !ok {
				continue
			}
			if err := c.Check(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Forward runs the forward tasks from the input to the output layer.
func (s *Stack) Forward(p *Params) error {
	for _, l := range s.layers {
		if l.ForwardTask == nil {
			continue
		}
		if err := l.ForwardTask.Execute(p); err != nil {
			return err
		}
	}
	return nil
}

// Backward runs the loss and back delta tasks from the output to the input layer.
func (s *Stack) Backward(p *Params) error {
	for i := len(s.layers) - 1; i >= 0; i-- {
		l := s.layers[i]
		for _, t := range []Task{l.LossTask, l.BackDeltaTask} {
			if t == nil {
				continue
			}
			if err := t.Execute(p); err != nil {
				return err
			}
		}
	}
	return nil
}

// Update runs the weight updates.
func (s *Stack) Update(p *Params) error {
	for _, l := range s.layers {
		if l.UpdateTask == nil {
			continue
		}
		if err := l.UpdateTask.Execute(p); err != nil {
			return err
		}
	}
	return nil
}
