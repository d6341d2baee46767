package layer

import (
	"github.com/gorgonia/gaussnet/kernel"
	"github.com/pkg/errors"
)

// FullyConnectedForwardTask computes f(W·x + b) for a hidden or output layer.
type FullyConnectedForwardTask struct {
	Owner *Layer

	forward *kernel.Kernel
	l1, l2  *kernel.Kernel
}

func (t *FullyConnectedForwardTask) Init(f *kernel.Factory) error {
	m := maebe{f: f}
	t.forward = m.compile(kernel.FullyConnectedForward)
	t.l1 = m.compile(kernel.L1Term)
	t.l2 = m.compile(kernel.L2Term)
	return errors.WithMessagef(m.err, "initializing %v forward", t.Owner.Name)
}

func (t *FullyConnectedForwardTask) Execute(p *Params) error {
	o := t.Owner
	var m maebe
	m.run(t.forward, o.Neurons,
		o.Input, o.Weights, o.Bias, o.NeuronInput, o.Output, o.Input.Count(), o.Neurons, int(o.Activation))
	m.regularizationTerms(o, p, t.l1, t.l2)
	return errors.WithMessagef(m.err, "%v forward", o.Name)
}

// FullyConnectedBackDeltaTask propagates the layer's delta through its weights into the previous layer.
type FullyConnectedBackDeltaTask struct {
	Owner *Layer

	delta *kernel.Kernel
}

func (t *FullyConnectedBackDeltaTask) Init(f *kernel.Factory) (err error) {
	if t.delta, err = f.Compile(kernel.FullyConnectedDelta); err != nil {
		return errors.Wrapf(err, "initializing %v back delta", t.Owner.Name)
	}
	return nil
}

func (t *FullyConnectedBackDeltaTask) Execute(p *Params) error {
	o := t.Owner
	prev := o.PreviousLayer()
	if prev == nil {
		return nil
	}
	var m maebe
	m.do(func() error { return prev.ResetDelta(p.Step) })
	m.run(t.delta, prev.Neurons,
		o.Weights, o.Delta, prev.Delta, prev.PreActivation(), prev.Neurons, o.Neurons, int(prev.Activation))
	return errors.WithMessagef(m.err, "%v back delta", o.Name)
}

// FullyConnectedUpdateWeightsTask applies one SGD step with L1 and L2 decay to the layer's weights
// and biases.
type FullyConnectedUpdateWeightsTask struct {
	Owner *Layer

	update *kernel.Kernel
}

func (t *FullyConnectedUpdateWeightsTask) Init(f *kernel.Factory) (err error) {
	if t.update, err = f.Compile(kernel.FullyConnectedSGDUpdate); err != nil {
		return errors.Wrapf(err, "initializing %v update", t.Owner.Name)
	}
	return nil
}

func (t *FullyConnectedUpdateWeightsTask) Execute(p *Params) error {
	if p.TrainingRate == 0 {
		return nil
	}
	o := t.Owner
	in := o.Input.Count()
	var m maebe
	m.run(t.update, in*o.Neurons,
		o.Input, o.Weights, o.Bias, o.Delta, in, o.Neurons, p.TrainingRate, p.L1, p.L2)
	return errors.WithMessagef(m.err, "%v update", o.Name)
}

// OutputDeltaTask starts backpropagation: it compares the output with Target, writes the output
// layer's delta and reduces the cost.
type OutputDeltaTask struct {
	Owner *Layer

	outputDelta *kernel.Kernel
}

func (t *OutputDeltaTask) Init(f *kernel.Factory) (err error) {
	if t.outputDelta, err = f.Compile(kernel.OutputDelta); err != nil {
		return errors.Wrapf(err, "initializing %v loss", t.Owner.Name)
	}
	return nil
}

func (t *OutputDeltaTask) Execute(p *Params) error {
	o := t.Owner
	threads := o.Neurons
	if threads > t.outputDelta.MaxThreads {
		threads = t.outputDelta.MaxThreads
	}
	var m maebe
	m.reduce(t.outputDelta, threads,
		o.Output, o.Target, o.NeuronInput, o.Delta, o.Cost, o.Neurons, int(o.Activation))
	// the output delta is overwritten, not accumulated
	o.deltaStep = p.Step
	return errors.WithMessagef(m.err, "%v loss", o.Name)
}
