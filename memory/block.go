package memory

import (
	"fmt"

	"github.com/gorgonia/gaussnet/device"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Block pairs a host array with a device buffer of the same length.
//
// The two views are not kept in sync. Host is only meaningful after CopyToHost, and the device
// buffer only reflects Host after CopyToDevice.
type Block struct {
	Name string
	Host []float32

	dev  *device.Device
	data []float32
	t    *tensor.Dense // view over data
}

// New allocates a block of count elements on dev.
func New(dev *device.Device, name string, count int) *Block {
	if count < 0 {
		panic(fmt.Sprintf("memory: negative count %d for block %q", count, name))
	}
	b := &Block{
		Name: name,
		Host: make([]float32, count),
		dev:  dev,
		data: make([]float32, count),
	}
	if count > 0 {
		b.t = tensor.New(tensor.WithBacking(b.data), tensor.WithShape(count))
	}
	return b
}

// Count is the number of elements in the block. A nil block has none.
func (b *Block) Count() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Device returns the device that owns the buffer.
func (b *Block) Device() *device.Device { return b.dev }

// DeviceData returns the device buffer. It may only be touched by work running on the stream,
// or by the host after a Synchronize.
func (b *Block) DeviceData() []float32 {
	if b == nil {
		return nil
	}
	return b.data
}

// Fill sets every element of the device buffer to v. The fill is ordered on the stream.
func (b *Block) Fill(v float32) error {
	if b.Count() == 0 {
		return nil
	}
	return b.dev.Enqueue("fill "+b.Name, func() error {
		return errors.WithStack(b.t.Memset(v))
	})
}

// CopyToDevice waits for the stream and copies Host into the device buffer.
func (b *Block) CopyToDevice() error {
	if err := b.dev.Synchronize(); err != nil {
		return err
	}
	copy(b.data, b.Host)
	return nil
}

// SafeCopyToDevice is CopyToDevice that accepts a nil block.
func (b *Block) SafeCopyToDevice() error {
	if b == nil {
		return nil
	}
	return b.CopyToDevice()
}

// CopyToHost waits for the stream and copies the device buffer into Host.
func (b *Block) CopyToHost() error {
	if err := b.dev.Synchronize(); err != nil {
		return err
	}
	copy(b.Host, b.data)
	return nil
}

// SafeCopyToHost is CopyToHost that accepts a nil block.
func (b *Block) SafeCopyToHost() error {
	if b == nil {
		return nil
	}
	return b.CopyToHost()
}

// CopyToMemoryBlock copies count elements from this block's device buffer, starting at srcOffset,
// into dst's device buffer at dstOffset. Both blocks must live on the same device. The copy is
// ordered on the stream; bad ranges are reported immediately and nothing is queued.
func (b *Block) CopyToMemoryBlock(dst *Block, srcOffset, dstOffset, count int) error {
	if dst == nil {
		return errors.Errorf("copy from %q: nil destination", b.Name)
	}
	if b.dev != dst.dev {
		return errors.Errorf("copy from %q to %q: blocks live on different devices", b.Name, dst.Name)
	}
	if srcOffset < 0 || dstOffset < 0 || count < 0 ||
		srcOffset+count > b.Count() || dstOffset+count > dst.Count() {
		return errors.Errorf("copy from %q[%d:%d] to %q[%d:%d]: out of range (%d, %d)",
			b.Name, srcOffset, srcOffset+count, dst.Name, dstOffset, dstOffset+count, b.Count(), dst.Count())
	}
	if count == 0 {
		return nil
	}
	return b.dev.Enqueue("copy "+b.Name+" -> "+dst.Name, func() error {
		copy(dst.data[dstOffset:dstOffset+count], b.data[srcOffset:srcOffset+count])
		return nil
	})
}

// Tensor returns a tensor view of the device buffer. The same access rules as DeviceData apply.
func (b *Block) Tensor() *tensor.Dense { return b.t }

func (b *Block) String() string { return fmt.Sprintf("%s[%d]", b.Name, b.Count()) }
