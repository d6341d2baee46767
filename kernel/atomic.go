package kernel

import (
	"sync/atomic"
	"unsafe"

	"github.com/chewxy/math32"
)

// atomicAdd adds v to *addr. Blocks of a launch run concurrently, so any accumulation that crosses
// blocks goes through here.
func atomicAdd(addr *float32, v float32) {
	p := (*uint32)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint32(p)
		updated := math32.Float32bits(math32.Float32frombits(old) + v)
		if atomic.CompareAndSwapUint32(p, old, updated) {
			return
		}
	}
}
