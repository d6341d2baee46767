package kernel

import "fmt"

// Kernel groups. These are stable logical identifiers.
const (
	FeedForwardKernels    = "Layer/FeedForwardKernels"
	RegularizationKernels = "Layer/RegularizationTermKernels"
	DeltaKernels          = "Layer/DeltaKernels"
	UpdateWeightsKernels  = "Layer/UpdateWeightsKernels"
	RandomKernels         = "Common/RandomKernels"
)

// ID identifies a kernel by group and name.
type ID struct {
	Group, Name string
}

func (id ID) String() string { return fmt.Sprintf("%s/%s", id.Group, id.Name) }

// The closed set of kernels.
var (
	GaussianForwardSampling   = ID{FeedForwardKernels, "GaussianForwardSamplingKernel"}
	FullyConnectedForward     = ID{FeedForwardKernels, "FullyConnectedForwardKernel"}
	L1Term                    = ID{RegularizationKernels, "L1TermKernel"}
	L2Term                    = ID{RegularizationKernels, "L2TermKernel"}
	GaussianRegularization    = ID{RegularizationKernels, "GaussianRegularizationKernel"}
	GaussianRegularizationDel = ID{RegularizationKernels, "GaussianRegularizationDeltaKernel"}
	GaussianSamplingDelta     = ID{DeltaKernels, "GaussianSamplingDeltaKernel"}
	FullyConnectedDelta       = ID{DeltaKernels, "FullyConnectedDeltaKernel"}
	OutputDelta               = ID{DeltaKernels, "OutputDeltaKernel"}
	FullyConnectedSGDUpdate   = ID{UpdateWeightsKernels, "FullyConnectedSGDUpdateKernel"}
	UniformToNormal           = ID{RandomKernels, "UniformToNormalKernel"}
)

// RegularizationCoefficient is the constant read by GaussianRegularizationDeltaKernel.
const RegularizationCoefficient = "RegularizationCoefficient"

var definitions map[ID]*definition

func init() {
	defs := []*definition{
		uniformToNormal,
		gaussianForwardSampling,
		fullyConnectedForward,
		l1Term,
		l2Term,
		gaussianRegularization,
		gaussianRegularizationDelta,
		gaussianSamplingDelta,
		fullyConnectedDelta,
		outputDelta,
		fullyConnectedSGDUpdate,
	}
	definitions = make(map[ID]*definition, len(defs))
	for _, d := range defs {
		if _, ok := definitions[d.id]; ok {
			panic(fmt.Sprintf("kernel %v defined twice", d.id))
		}
		definitions[d.id] = d
	}
}

// IDs lists every known kernel.
func IDs() []ID {
	retVal := make([]ID, 0, len(definitions))
	for id := range definitions {
		retVal = append(retVal, id)
	}
	return retVal
}
