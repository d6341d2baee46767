package kernel

import (
	"fmt"

	"github.com/gorgonia/gaussnet/memory"
)

type argKind byte

const (
	bufferArg argKind = iota
	intArg
	floatArg
)

func (k argKind) String() string {
	switch k {
	case bufferArg:
		return "*memory.Block"
	case intArg:
		return "int"
	case floatArg:
		return "float32"
	}
	return fmt.Sprintf("argKind(%d)", byte(k))
}

// Args are the arguments of one launch, in signature order.
type Args []interface{}

func (a Args) Block(i int) *memory.Block { return a[i].(*memory.Block) }
func (a Args) Buffer(i int) []float32    { return a[i].(*memory.Block).DeviceData() }
func (a Args) Int(i int) int             { return a[i].(int) }
func (a Args) Float(i int) float32       { return a[i].(float32) }

// Activation reads an int argument as an activation function.
func (a Args) Activation(i int) Activation { return Activation(a[i].(int)) }

func matches(k argKind, v interface{}) bool {
	switch k {
	case bufferArg:
		b, ok := v.(*memory.Block)
		return ok && b != nil
	case intArg:
		_, ok := v.(int)
		return ok
	case floatArg:
		_, ok := v.(float32)
		return ok
	}
	return false
}
