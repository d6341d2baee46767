package gaussnet

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"math/rand"
	"time"

	"github.com/gorgonia/gaussnet/device"
	"github.com/gorgonia/gaussnet/kernel"
	"github.com/gorgonia/gaussnet/layer"
	"github.com/gorgonia/gaussnet/memory"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Network is the top level structure and the entry point of the API. It owns a device, the layer
// chain built on it and the per-step state.
type Network struct {
	Statistics

	conf   Config
	dev    *device.Device
	f      *kernel.Factory
	stack  *layer.Stack
	params layer.Params
	r      *rand.Rand

	input, output *layer.Layer
	gaussians     []*layer.Layer

	epoch  int
	steps  int64
	halted error

	outEnc OutputEncoder
	buf    bytes.Buffer
	logger *log.Logger
}

// New builds a network: it allocates every layer on a fresh device, initialises the weights and
// compiles every kernel.
func New(conf Config) (*Network, error) {
	if !conf.IsValid() {
		return nil, errors.Errorf("invalid config %+v", conf)
	}
	dev, err := device.New(conf.Device)
	if err != nil {
		return nil, errors.WithMessage(err, "unable to create device")
	}
	seed := conf.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	retVal := &Network{
		Statistics: makeStatistics(),
		conf:       conf,
		dev:        dev,
		f:          kernel.NewFactory(dev, seed),
		r:          rand.New(rand.NewSource(seed)),
		outEnc:     conf.OutputEncoder,
	}
	retVal.logger = log.New(&retVal.buf, "", log.Ltime)
	retVal.stack = layer.NewStack(retVal.f)

	if err = retVal.build(); err != nil {
		dev.Close()
		return nil, errors.WithMessage(err, "unable to build network")
	}
	if err = retVal.stack.Check(); err != nil {
		dev.Close()
		return nil, errors.WithMessage(err, "unable to build network")
	}
	if err = retVal.stack.Init(); err != nil {
		dev.Close()
		return nil, errors.WithMessage(err, "unable to compile kernels")
	}
	retVal.logger.Printf("Built %v on %v", retVal.conf.Name, dev)
	return retVal, nil
}

func (n *Network) build() (err error) {
	if n.input, err = n.stack.AddInput("Input", n.conf.Inputs); err != nil {
		return err
	}
	for i, lc := range n.conf.Layers {
		name := lc.Name
		if name == "" {
			name = fmt.Sprintf("%v%d", lc.Kind, i+1)
		}
		var l *layer.Layer
		switch lc.Kind {
		case layer.Hidden:
			l, err = n.stack.AddHidden(name, lc.Neurons, lc.Activation)
		case layer.Gaussian:
			if l, err = n.stack.AddGaussian(name, lc.Neurons); err == nil {
				task := l.BackDeltaTask.(*layer.GaussianBackDeltaTask)
				task.Regularize = n.conf.Regularize
				task.RegularizationCoefficient = n.conf.RegularizationCoefficient
				n.gaussians = append(n.gaussians, l)
			}
		case layer.Output:
			l, err = n.stack.AddOutput(name, lc.Neurons, lc.Activation)
			n.output = l
		default:
			err = errors.Errorf("cannot build a %v layer", lc.Kind)
		}
		if err != nil {
			return err
		}
		if err = initWeights(l); err != nil {
			return err
		}
	}
	return nil
}

// initWeights fills the weights with Glorot-uniform values.
func initWeights(l *layer.Layer) error {
	rows, cols := l.Neurons, l.Input.Count()
	ws := G.GlorotU(1.0)(tensor.Float32, rows, cols).([]float32)
	copy(l.Weights.Host, ws)
	return errors.Wrapf(l.Weights.CopyToDevice(), "unable to initialise %v", l.Name)
}

// Step trains on one example: forward, backward and weight update. A failed step halts the network
// and every later step returns the same error.
func (n *Network) Step(input, target []float32) error {
	if n.halted != nil {
		return errors.WithMessage(n.halted, "network halted")
	}
	if len(input) != n.conf.Inputs {
		return errors.Errorf("expected %d inputs, got %d", n.conf.Inputs, len(input))
	}
	if len(target) != n.conf.Outputs() {
		return errors.Errorf("expected %d targets, got %d", n.conf.Outputs(), len(target))
	}
	if err := n.step(input, target); err != nil {
		n.halted = err
		n.logger.Printf("Step %d failed: %v", n.steps, err)
		return err
	}
	return nil
}

func (n *Network) step(input, target []float32) error {
	n.steps++
	n.params = layer.Params{
		Step:         n.steps,
		TrainingRate: n.conf.TrainingRate,
		L1:           n.conf.L1,
		L2:           n.conf.L2,
	}
	copy(n.input.Input.Host, input)
	if err := n.input.Input.CopyToDevice(); err != nil {
		return errors.WithMessage(err, "copying input")
	}
	copy(n.output.Target.Host, target)
	if err := n.output.Target.CopyToDevice(); err != nil {
		return errors.WithMessage(err, "copying target")
	}

	if err := n.stack.Forward(&n.params); err != nil {
		return err
	}
	if err := n.stack.Backward(&n.params); err != nil {
		return err
	}
	if err := n.stack.Update(&n.params); err != nil {
		return err
	}
	if err := n.dev.Synchronize(); err != nil {
		return errors.WithMessage(err, "step failed on device")
	}
	if err := n.collect(); err != nil {
		return err
	}

	if n.outEnc != nil {
		if err := n.outEnc.Encode(n); err != nil {
			return errors.WithMessage(err, "unable to encode step")
		}
	}
	return nil
}

// collect pulls outputs and scalars back to the host and records them.
func (n *Network) collect() error {
	for _, l := range n.stack.Layers() {
		if err := l.Output.CopyToHost(); err != nil {
			return err
		}
	}
	if err := n.output.Cost.CopyToHost(); err != nil {
		return err
	}
	cost := n.output.Cost.Host[0]

	var reg, l1, l2 float32
	for _, g := range n.gaussians {
		for _, b := range []*memory.Block{g.Regularization, g.L1Term, g.L2Term} {
			if err := b.CopyToHost(); err != nil {
				return err
			}
		}
		reg += g.Regularization.Host[0]
		l1 += g.L1Term.Host[0]
		l2 += g.L2Term.Host[0]
	}
	n.record(n.steps, cost, reg, l1, l2)
	if n.params.TrainingRate == 0 {
		n.logger.Printf("Step %d: cost %v, KL %v (generated)", n.steps, cost, reg)
	} else {
		n.logger.Printf("Step %d: cost %v, KL %v", n.steps, cost, reg)
	}
	return nil
}

// Learn runs epochs passes over the examples, shuffled anew for every pass.
func (n *Network) Learn(examples []Example, epochs int) error {
	for n.epoch = 0; n.epoch < epochs; n.epoch++ {
		n.buf.Reset()
		n.logger.Printf("Epoch %d", n.epoch)
		n.logger.SetPrefix("\t")
		n.shuffle(examples)
		for _, ex := range examples {
			if err := n.Step(ex.Input, ex.Target); err != nil {
				n.logger.SetPrefix("")
				return errors.WithMessagef(err, "epoch %d", n.epoch)
			}
		}
		n.logger.SetPrefix("")
		log.Printf("Epoch %d: mean cost %v", n.epoch, n.MeanCost(len(examples)))
	}
	return nil
}

func (n *Network) shuffle(examples []Example) {
	for i := range examples {
		j := n.r.Intn(i + 1)
		examples[i], examples[j] = examples[j], examples[i]
	}
}

// Generate is the trigger of the first Gaussian layer. Raising it makes the next step feed that
// layer the canonical N(0, 1) input instead of the encoded one, and skip the weight update. It is
// nil if the network has no Gaussian layer.
func (n *Network) Generate() *layer.Signal {
	if len(n.gaussians) == 0 {
		return nil
	}
	return &n.gaussians[0].Generate
}

// Probe returns a copy of the output of the last step.
func (n *Network) Probe() ([]float32, error) {
	if err := n.output.Output.CopyToHost(); err != nil {
		return nil, err
	}
	retVal := make([]float32, n.output.Output.Count())
	copy(retVal, n.output.Output.Host)
	return retVal, nil
}

// Weights pulls the weights of layer i to the host and returns them as rows, one per neuron. The
// rows alias the layer's host buffer.
func (n *Network) Weights(i int) ([][]float32, error) {
	if i < 0 || i >= n.stack.Len() {
		return nil, errors.Errorf("no layer %d", i)
	}
	l := n.stack.At(i)
	if l.Weights == nil {
		return nil, errors.Errorf("%v has no weights", l.Name)
	}
	if err := l.Weights.CopyToHost(); err != nil {
		return nil, err
	}
	return memory.Rows(l.Weights.Host, l.Neurons, l.Input.Count())
}

// Layers returns the layer chain, input first.
func (n *Network) Layers() []*layer.Layer { return n.stack.Layers() }

// Halted returns the error that stopped the network, if any.
func (n *Network) Halted() error { return n.halted }

// Log writes the log of the current epoch.
func (n *Network) Log(w io.Writer) {
	w.Write(n.buf.Bytes())
}

// Close flushes the output encoder and stops the device.
func (n *Network) Close() error {
	var allErrs manyErr
	if n.outEnc != nil {
		if err := n.outEnc.Flush(); err != nil {
			allErrs = append(allErrs, err)
		}
	}
	if err := n.dev.Close(); err != nil {
		allErrs = append(allErrs, err)
	}
	if len(allErrs) > 0 {
		return allErrs
	}
	return nil
}

/* MetaState */

func (n *Network) Name() string { return n.conf.Name }
func (n *Network) Epoch() int   { return n.epoch }
func (n *Network) Steps() int64 { return n.steps }

func (n *Network) Cost() float32 {
	if len(n.Costs) == 0 {
		return 0
	}
	return n.Costs[len(n.Costs)-1]
}

func (n *Network) Activations() [][]float32 {
	retVal := make([][]float32, 0, n.stack.Len())
	for _, l := range n.stack.Layers() {
		retVal = append(retVal, l.Output.Host)
	}
	return retVal
}
