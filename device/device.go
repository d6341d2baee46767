package device

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// ErrClosed is returned when work is submitted to a closed device.
var ErrClosed = errors.New("device closed")

// Config describes the limits of a compute device.
type Config struct {
	ID              int // device ordinal
	MaxThreads      int // maximum threads per block
	MaxSharedMemory int // maximum dynamic shared memory per block, in bytes
	QueueDepth      int // number of launches that may be in flight before the host blocks
}

// DefaultConfig mirrors the limits of a common CUDA device.
func DefaultConfig() Config {
	return Config{
		MaxThreads:      1024,
		MaxSharedMemory: 48 << 10,
		QueueDepth:      256,
	}
}

func (c Config) IsValid() bool {
	return c.ID >= 0 &&
		c.MaxThreads >= 2 &&
		c.MaxThreads&(c.MaxThreads-1) == 0 && // power of two, so reductions halve cleanly
		c.MaxSharedMemory >= 4*c.MaxThreads &&
		c.QueueDepth >= 1
}

type op struct {
	name string
	fn   func() error
	done chan struct{}
}

// Device is a compute device with a single in-order stream.
//
// Work submitted with Enqueue runs on the stream goroutine in submission order. The host only
// blocks in Synchronize (and in the memory copies built on it). The first error raised on the
// stream is sticky: everything queued after it is skipped, and every later Synchronize reports it.
type Device struct {
	Config

	sync.RWMutex // guards closed against in-flight Enqueue
	closed       bool
	queue        chan op
	stopped      chan struct{}

	errLock sync.Mutex
	err     error
}

// New creates a device and starts its stream.
func New(conf Config) (*Device, error) {
	if !conf.IsValid() {
		return nil, errors.Errorf("invalid device configuration %+v", conf)
	}
	d := &Device{
		Config:  conf,
		queue:   make(chan op, conf.QueueDepth),
		stopped: make(chan struct{}),
	}
	go d.run()
	return d, nil
}

func (d *Device) run() {
	defer close(d.stopped)
	for o := range d.queue {
		if o.fn != nil && d.Err() == nil {
			if err := d.exec(o); err != nil {
				d.setErr(errors.Wrapf(err, "device %d: %s", d.ID, o.name))
			}
		}
		if o.done != nil {
			close(o.done)
		}
	}
}

func (d *Device) exec(o op) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return o.fn()
}

// Enqueue submits fn to the stream. It returns the sticky stream error, if any, without queueing.
func (d *Device) Enqueue(name string, fn func() error) error {
	if err := d.Err(); err != nil {
		return err
	}
	return d.submit(op{name: name, fn: fn})
}

func (d *Device) submit(o op) error {
	d.RLock()
	defer d.RUnlock()
	if d.closed {
		return ErrClosed
	}
	d.queue <- o
	return nil
}

// Synchronize blocks until everything queued so far has run, and returns the stream error.
func (d *Device) Synchronize() error {
	done := make(chan struct{})
	if err := d.submit(op{name: "synchronize", done: done}); err != nil {
		return err
	}
	<-done
	return d.Err()
}

// Err returns the sticky stream error.
func (d *Device) Err() error {
	d.errLock.Lock()
	err := d.err
	d.errLock.Unlock()
	return err
}

func (d *Device) setErr(err error) {
	d.errLock.Lock()
	if d.err == nil {
		d.err = err
	}
	d.errLock.Unlock()
}

// Close drains the stream and stops it. It returns the stream error, if any.
func (d *Device) Close() error {
	d.Lock()
	if d.closed {
		d.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.Unlock()
	<-d.stopped
	return d.Err()
}

func (d *Device) String() string { return fmt.Sprintf("device %d", d.ID) }
