package layer

import (
	"github.com/gorgonia/gaussnet/kernel"
	"github.com/pkg/errors"
)

// GaussianForwardTask samples the layer's output from the distributions its input describes, and
// computes the layer's regularization terms.
type GaussianForwardTask struct {
	Owner *Layer

	rand         *kernel.RandDevice
	toNormal     *kernel.Kernel
	sampling     *kernel.Kernel
	l1, l2       *kernel.Kernel
	gaussianTerm *kernel.Kernel
}

func (t *GaussianForwardTask) Init(f *kernel.Factory) error {
	m := maebe{f: f}
	t.rand = f.RandDevice()
	t.toNormal = m.compile(kernel.UniformToNormal)
	t.sampling = m.compile(kernel.GaussianForwardSampling)
	t.l1 = m.compile(kernel.L1Term)
	t.l2 = m.compile(kernel.L2Term)
	t.gaussianTerm = m.compile(kernel.GaussianRegularization)
	return errors.WithMessagef(m.err, "initializing %v forward", t.Owner.Name)
}

func (t *GaussianForwardTask) Execute(p *Params) error {
	o := t.Owner
	n, in := o.Neurons, o.Input.Count()
	var m maebe

	m.do(func() error { return t.rand.GenerateUniform(o.Uniform) })
	m.run(t.toNormal, (n+1)/2, o.Uniform, o.RandomNormal, n)
	m.do(func() error { return o.RandomNormal.CopyToMemoryBlock(o.Output, 0, 0, n) })

	if o.Generate.Rose() {
		p.TrainingRate = 0
		for i := range o.Input.Host {
			if i < in/2 {
				o.Input.Host[i] = 0
			} else {
				o.Input.Host[i] = 1
			}
		}
		m.do(o.Input.SafeCopyToDevice)
	}

	m.run(t.sampling, n, o.Input, o.Output, o.Bias, o.RandomNormal, in, n)
	m.regularizationTerms(o, p, t.l1, t.l2)

	threads := t.gaussianTerm.MaxThreads / 2
	if threads < 1 {
		threads = 1
	}
	m.reduce(t.gaussianTerm, threads, o.Input, in, o.Regularization)
	return errors.WithMessagef(m.err, "%v forward", o.Name)
}

// GaussianBackDeltaTask propagates the layer's delta into the layer that produced its means and
// deviations. With Regularize set it also pushes the gradient of the KL term one layer further back.
type GaussianBackDeltaTask struct {
	Owner *Layer

	Regularize                bool
	RegularizationCoefficient float32

	samplingDelta       *kernel.Kernel
	regularizationDelta *kernel.Kernel
}

// NewGaussianBackDeltaTask creates the task with regularization on and a coefficient of 0.01.
func NewGaussianBackDeltaTask(owner *Layer) *GaussianBackDeltaTask {
	return &GaussianBackDeltaTask{
		Owner:                     owner,
		Regularize:                true,
		RegularizationCoefficient: 0.01,
	}
}

func (t *GaussianBackDeltaTask) Init(f *kernel.Factory) error {
	m := maebe{f: f}
	t.samplingDelta = m.compile(kernel.GaussianSamplingDelta)
	t.regularizationDelta = m.compile(kernel.GaussianRegularizationDel)
	return errors.WithMessagef(m.err, "initializing %v back delta", t.Owner.Name)
}

// check verifies the chain shape before anything is touched. It returns the layer feeding prev when
// regularization needs it.
func (t *GaussianBackDeltaTask) check(prev *Layer) (*Layer, error) {
	if !t.Regularize {
		return nil, nil
	}
	if !prev.Kind.WeightBearing() {
		return nil, TopologyError{Layer: t.Owner.Name, Reason: "regularization needs a weight-bearing layer before it, got " + prev.String()}
	}
	pp := prev.PreviousLayer()
	if pp == nil {
		return nil, TopologyError{Layer: t.Owner.Name, Reason: "regularization needs a layer before " + prev.Name}
	}
	return pp, nil
}

// Check reports a TopologyError if the chain cannot carry the regularization delta.
func (t *GaussianBackDeltaTask) Check() error {
	prev := t.Owner.PreviousLayer()
	if prev == nil {
		return nil
	}
	_, err := t.check(prev)
	return err
}

func (t *GaussianBackDeltaTask) Execute(p *Params) error {
	o := t.Owner
	prev := o.PreviousLayer()
	if prev == nil {
		return nil
	}
	pp, err := t.check(prev)
	if err != nil {
		return err
	}

	var m maebe
	m.do(func() error { return prev.ResetDelta(p.Step) })
	if pp != nil {
		m.do(func() error { return pp.ResetDelta(p.Step) })
	}

	m.run(t.samplingDelta, prev.Neurons,
		o.Input, o.Output, prev.Delta, o.Delta, o.RandomNormal, o.Neurons,
		prev.PreActivation(), int(prev.Activation))

	if pp != nil {
		m.do(func() error {
			return t.regularizationDelta.SetConstant(kernel.RegularizationCoefficient, t.RegularizationCoefficient)
		})
		m.run(t.regularizationDelta, prev.Neurons,
			prev.Output, prev.Neurons, prev.Input, prev.Input.Count(), prev.Weights,
			pp.Delta, prev.NeuronInput, int(prev.Activation), pp.PreActivation(), int(pp.Activation))
	}
	return errors.WithMessagef(m.err, "%v back delta", o.Name)
}
