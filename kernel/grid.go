package kernel

// Block is the execution context of one thread block.
//
// Threads of a block run in phases: every ForEachThread call is one phase, and the end of a phase is
// a barrier. Shared memory is private to the block and is zeroed before the block starts.
type Block struct {
	Idx     int // block index within the grid
	Dim     int // threads per block
	GridDim int // blocks in the grid
	Threads int // threads requested for the launch

	Shared    []float32
	Args      Args
	Constants map[string]float32
}

// ForEachThread runs fn once for every thread of the block.
func (b *Block) ForEachThread(fn func(tid int)) {
	for tid := 0; tid < b.Dim; tid++ {
		fn(tid)
	}
}

// GlobalID is the grid-wide index of thread tid.
func (b *Block) GlobalID(tid int) int { return b.Idx*b.Dim + tid }

// reduceShared sums Shared[0:Dim] into Shared[0] by halving.
func (b *Block) reduceShared() float32 {
	for s := nextPow2(b.Dim) / 2; s > 0; s >>= 1 {
		s := s
		b.ForEachThread(func(tid int) {
			if tid < s && tid+s < b.Dim {
				b.Shared[tid] += b.Shared[tid+s]
			}
		})
	}
	return b.Shared[0]
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
