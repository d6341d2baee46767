package kernel

import (
	"time"

	"github.com/gorgonia/gaussnet/device"
	"github.com/gorgonia/gaussnet/memory"
	rng "github.com/leesper/go_rng"
)

// Factory compiles kernels for one device and owns the device's random number generator.
type Factory struct {
	dev  *device.Device
	rand *RandDevice
}

// NewFactory creates a factory for dev. A zero seed seeds the generator from the clock.
func NewFactory(dev *device.Device, seed int64) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		dev:  dev,
		rand: &RandDevice{gen: rng.NewUniformGenerator(seed)},
	}
}

// Device is the device kernels are compiled for.
func (f *Factory) Device() *device.Device { return f.dev }

// Kernel compiles the kernel named name in group.
func (f *Factory) Kernel(group, name string) (*Kernel, error) {
	return f.Compile(ID{Group: group, Name: name})
}

// Compile compiles the kernel identified by id. Unknown identifiers are an InitializationError.
func (f *Factory) Compile(id ID) (*Kernel, error) {
	def, ok := definitions[id]
	if !ok {
		return nil, InitializationError{ID: id, Reason: "no such kernel"}
	}
	return &Kernel{
		def:        def,
		dev:        f.dev,
		MaxThreads: f.dev.MaxThreads,
		constants:  make(map[string]float32),
	}, nil
}

// RandDevice returns the device random number generator.
func (f *Factory) RandDevice() *RandDevice { return f.rand }

// RandDevice generates random numbers directly into device buffers.
type RandDevice struct {
	gen *rng.UniformGenerator
}

// GenerateUniform fills the device buffer of b with uniform draws in (0, 1]. The fill is ordered
// on b's stream.
func (r *RandDevice) GenerateUniform(b *memory.Block) error {
	return b.Device().Enqueue("generate uniform "+b.Name, func() error {
		data := b.DeviceData()
		for i := range data {
			data[i] = 1 - r.gen.Float32()
		}
		return nil
	})
}
