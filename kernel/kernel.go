package kernel

import (
	"runtime"
	"sync"

	"github.com/gorgonia/gaussnet/device"
	"github.com/pkg/errors"
)

// definition is a compiled kernel program.
type definition struct {
	id        ID
	signature []argKind
	constants []string

	// reduction kernels fold the whole input through the shared memory of a single block.
	reduction bool

	// check validates argument sizes against the launch. It runs on the host before anything is
	// queued.
	check func(l *launch) error

	// body executes one thread block.
	body func(b *Block)
}

type launch struct {
	id        ID
	threads   int
	blockDim  int
	gridDim   int
	shared    int // bytes
	args      Args
	constants map[string]float32
}

// Kernel is a kernel compiled for a device. The launch configuration and constants persist between
// runs.
type Kernel struct {
	def *definition
	dev *device.Device

	// MaxThreads is the widest block the device allows.
	MaxThreads int

	// DynamicSharedMemory is the shared memory given to every block, in bytes.
	DynamicSharedMemory int

	threads  int
	blockDim int
	gridDim  int

	constants map[string]float32
}

// ID returns the identifier the kernel was compiled from.
func (k *Kernel) ID() ID { return k.def.id }

// SetupExecution sets up a launch of threadCount threads. Blocks are as wide as the device allows.
// An invalid thread count is reported by the next Run.
func (k *Kernel) SetupExecution(threadCount int) {
	k.threads = threadCount
	if threadCount <= 0 {
		k.blockDim, k.gridDim = 0, 0
		return
	}
	k.blockDim = threadCount
	if k.blockDim > k.MaxThreads {
		k.blockDim = k.MaxThreads
	}
	k.gridDim = (threadCount + k.blockDim - 1) / k.blockDim
}

// BlockDimensions is the number of threads per block of the current setup.
func (k *Kernel) BlockDimensions() int { return k.blockDim }

// GridDimensions is the number of blocks of the current setup.
func (k *Kernel) GridDimensions() int { return k.gridDim }

// SetConstant sets a device-side constant. Only constants declared by the kernel may be set.
func (k *Kernel) SetConstant(name string, v float32) error {
	for _, c := range k.def.constants {
		if c == name {
			k.constants[name] = v
			return nil
		}
	}
	return InitializationError{ID: k.def.id, Reason: "no constant named " + name}
}

// Constant returns the current value of a device-side constant.
func (k *Kernel) Constant(name string) (float32, bool) {
	v, ok := k.constants[name]
	return v, ok
}

// Run validates the launch and queues it on the device stream. Validation failures are returned as
// ConfigurationError before anything is queued. Failures while the kernel runs surface from the
// device's Synchronize.
func (k *Kernel) Run(args ...interface{}) error {
	l, err := k.prepare(args)
	if err != nil {
		return err
	}
	return k.dev.Enqueue(k.def.id.String(), func() error { return l.exec(k.def) })
}

func (k *Kernel) prepare(args []interface{}) (*launch, error) {
	id := k.def.id
	if k.threads <= 0 {
		return nil, configErr(id, "thread count %d (was SetupExecution called?)", k.threads)
	}
	if k.DynamicSharedMemory < 0 || k.DynamicSharedMemory%4 != 0 {
		return nil, configErr(id, "dynamic shared memory of %d bytes is not a whole number of floats", k.DynamicSharedMemory)
	}
	if k.DynamicSharedMemory > k.dev.MaxSharedMemory {
		return nil, configErr(id, "dynamic shared memory of %d bytes exceeds the device limit of %d", k.DynamicSharedMemory, k.dev.MaxSharedMemory)
	}
	if k.def.reduction {
		if k.gridDim != 1 {
			return nil, configErr(id, "reduction needs exactly one block, got %d", k.gridDim)
		}
		if k.DynamicSharedMemory < 4*k.blockDim {
			return nil, configErr(id, "reduction over %d threads needs %d bytes of shared memory, got %d", k.blockDim, 4*k.blockDim, k.DynamicSharedMemory)
		}
	}
	if len(args) != len(k.def.signature) {
		return nil, configErr(id, "expected %d arguments, got %d", len(k.def.signature), len(args))
	}
	for i, kind := range k.def.signature {
		if !matches(kind, args[i]) {
			return nil, configErr(id, "argument %d: expected %v, got %T", i, kind, args[i])
		}
		if kind == bufferArg && Args(args).Block(i).Device() != k.dev {
			return nil, configErr(id, "argument %d: %v lives on another device", i, args[i])
		}
	}

	constants := make(map[string]float32, len(k.constants))
	for name, v := range k.constants {
		constants[name] = v
	}
	l := &launch{
		id:        id,
		threads:   k.threads,
		blockDim:  k.blockDim,
		gridDim:   k.gridDim,
		shared:    k.DynamicSharedMemory,
		args:      Args(args),
		constants: constants,
	}
	if k.def.check != nil {
		if err := k.def.check(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// exec runs every block of the launch. Blocks run concurrently, at most one per CPU. A block that
// panics fails the launch.
func (l *launch) exec(def *definition) error {
	if l.gridDim == 1 {
		return l.run(def, 0)
	}
	var (
		wg    sync.WaitGroup
		once  sync.Once
		first error
	)
	sem := make(chan struct{}, runtime.NumCPU())
	for i := 0; i < l.gridDim; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer func() { <-sem; wg.Done() }()
			if err := l.run(def, i); err != nil {
				once.Do(func() { first = err })
			}
		}(i)
	}
	wg.Wait()
	return first
}

// run executes block i, turning a panic into an error.
func (l *launch) run(def *definition, i int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("%v block %d: panic: %v", l.id, i, r)
		}
	}()
	def.body(l.block(i))
	return nil
}

func (l *launch) block(i int) *Block {
	return &Block{
		Idx:       i,
		Dim:       l.blockDim,
		GridDim:   l.gridDim,
		Threads:   l.threads,
		Shared:    make([]float32, l.shared/4),
		Args:      l.args,
		Constants: l.constants,
	}
}

// atLeast reports a ConfigurationError if buffer argument i holds fewer than n elements.
func (l *launch) atLeast(i, n int) error {
	if got := l.args.Block(i).Count(); got < n {
		return configErr(l.id, "argument %d (%v) holds %d elements, need %d", i, l.args.Block(i), got, n)
	}
	return nil
}

// validActivation reports a ConfigurationError if int argument i is not an activation.
func (l *launch) validActivation(i int) error {
	if !l.args.Activation(i).IsValid() {
		return configErr(l.id, "argument %d: unknown activation %d", i, l.args.Int(i))
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
