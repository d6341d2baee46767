package layer

import (
	"github.com/gorgonia/gaussnet/kernel"
	"github.com/pkg/errors"
)

// Params is the network-wide state every task reads during a step.
type Params struct {
	Step         int64
	TrainingRate float32
	L1, L2       float32
}

// Task is one operation of a layer. Init compiles what the task needs once; Execute runs every step.
type Task interface {
	Init(f *kernel.Factory) error
	Execute(p *Params) error
}

// maebe carries the first error through a sequence of launches.
type maebe struct {
	f   *kernel.Factory
	err error
}

func (m *maebe) compile(id kernel.ID) (retVal *kernel.Kernel) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = m.f.Compile(id); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

func (m *maebe) do(f func() error) {
	if m.err != nil {
		return
	}
	if m.err = f(); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
}

// run configures k for threads and launches it.
func (m *maebe) run(k *kernel.Kernel, threads int, args ...interface{}) {
	m.do(func() error {
		k.SetupExecution(threads)
		return k.Run(args...)
	})
}

// reduce launches a single-block reduction kernel with one float of shared memory per thread.
func (m *maebe) reduce(k *kernel.Kernel, threads int, args ...interface{}) {
	m.do(func() error {
		k.SetupExecution(threads)
		k.DynamicSharedMemory = k.BlockDimensions() * 4
		return k.Run(args...)
	})
}

// regularizationTerms computes the L1 and L2 terms of the owner's weights. A term whose coefficient
// is zero is not launched and keeps its previous value.
func (m *maebe) regularizationTerms(o *Layer, p *Params, l1, l2 *kernel.Kernel) {
	if p.L1 > 0 {
		m.reduce(l1, l1.MaxThreads, o.Weights, o.L1Term, o.Weights.Count())
	}
	if p.L2 > 0 {
		m.reduce(l2, l2.MaxThreads, o.Weights, o.L2Term, o.Weights.Count())
	}
}
