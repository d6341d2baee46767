package kernel

import "github.com/chewxy/math32"

// KLEpsilon keeps the Gaussian regularization finite when a standard deviation reaches zero.
const KLEpsilon = 1e-6

func reductionCheck(l *launch, buf, count, result int) error {
	return firstErr(
		l.atLeast(buf, l.args.Int(count)),
		l.atLeast(result, 1),
	)
}

// reduce folds f(i) for i in [0, count) through shared memory. Each thread strides over the input,
// then the block halves its partial sums.
func reduce(b *Block, count int, f func(i int) float32) float32 {
	b.ForEachThread(func(tid int) {
		var acc float32
		for i := tid; i < count; i += b.Dim {
			acc += f(i)
		}
		b.Shared[tid] = acc
	})
	return b.reduceShared()
}

// l1Term computes Σ|w|.
//
//	args: weights, result, count
//	threads: one block, shared memory of one float per thread
var l1Term = &definition{
	id:        L1Term,
	signature: []argKind{bufferArg, bufferArg, intArg},
	reduction: true,
	check:     func(l *launch) error { return reductionCheck(l, 0, 2, 1) },
	body: func(b *Block) {
		w, result := b.Args.Buffer(0), b.Args.Buffer(1)
		result[0] = reduce(b, b.Args.Int(2), func(i int) float32 { return math32.Abs(w[i]) })
	},
}

// l2Term computes Σw².
//
//	args: weights, result, count
//	threads: one block, shared memory of one float per thread
var l2Term = &definition{
	id:        L2Term,
	signature: []argKind{bufferArg, bufferArg, intArg},
	reduction: true,
	check:     func(l *launch) error { return reductionCheck(l, 0, 2, 1) },
	body: func(b *Block) {
		w, result := b.Args.Buffer(0), b.Args.Buffer(1)
		result[0] = reduce(b, b.Args.Int(2), func(i int) float32 { return w[i] * w[i] })
	},
}

// gaussianRegularization computes the KL divergence of N(μ, σ²) from N(0, 1), summed over the
// units of the input: ½Σ(μ² + σ² − ln(σ²+ε) − 1).
//
//	args: input, inputCount, result
//	threads: one block, shared memory of one float per thread
var gaussianRegularization = &definition{
	id:        GaussianRegularization,
	signature: []argKind{bufferArg, intArg, bufferArg},
	reduction: true,
	check: func(l *launch) error {
		if in := l.args.Int(1); in%2 != 0 {
			return configErr(l.id, "input count %d is odd", in)
		}
		return reductionCheck(l, 0, 1, 2)
	},
	body: func(b *Block) {
		input, result := b.Args.Buffer(0), b.Args.Buffer(2)
		n := b.Args.Int(1) / 2
		result[0] = reduce(b, n, func(i int) float32 {
			mu, sigma := input[i], input[i+n]
			s2 := sigma * sigma
			return 0.5 * (mu*mu + s2 - math32.Log(s2+KLEpsilon) - 1)
		})
	},
}

// klGrad is the derivative of the Gaussian regularization with respect to unit j of a layer whose
// first n outputs are means and the rest standard deviations.
func klGrad(y []float32, j, n int) float32 {
	if j < n {
		return y[j]
	}
	sigma := y[j]
	return sigma - sigma/(sigma*sigma+KLEpsilon)
}

// gaussianRegularizationDelta pushes the gradient of the Gaussian regularization, taken at the
// output of a weight-bearing layer, through that layer's weights into the delta of the layer
// before it. The contribution is scaled by the RegularizationCoefficient constant and accumulated.
//
//	args: prevOutput, prevCount, prevInput, prevInputCount, prevWeights, prevPrevDelta,
//	      prevNeuronInput, prevActivation, prevPrevPreActivation, prevPrevActivation
//	threads: prevCount
var gaussianRegularizationDelta = &definition{
	id: GaussianRegularizationDel,
	signature: []argKind{
		bufferArg, intArg, bufferArg, intArg, bufferArg, bufferArg,
		bufferArg, intArg, bufferArg, intArg,
	},
	constants: []string{RegularizationCoefficient},
	check: func(l *launch) error {
		out, in := l.args.Int(1), l.args.Int(3)
		if out%2 != 0 {
			return configErr(l.id, "previous layer has an odd number of neurons (%d)", out)
		}
		errs := []error{
			l.atLeast(0, out),
			l.atLeast(2, in),
			l.atLeast(4, out*in),
			l.atLeast(5, in),
			l.atLeast(6, out),
			l.validActivation(7),
			l.validActivation(9),
		}
		if l.args.Activation(9) != Identity {
			errs = append(errs, l.atLeast(8, in))
		}
		return firstErr(errs...)
	},
	body: func(b *Block) {
		y := b.Args.Buffer(0)
		out, in := b.Args.Int(1), b.Args.Int(3)
		w, ppDelta := b.Args.Buffer(4), b.Args.Buffer(5)
		z, act := b.Args.Buffer(6), b.Args.Activation(7)
		ppPre, ppAct := b.Args.Buffer(8), b.Args.Activation(9)
		c := b.Constants[RegularizationCoefficient]
		n := out / 2
		b.ForEachThread(func(tid int) {
			j := b.GlobalID(tid)
			if j >= out {
				return
			}
			g := c * klGrad(y, j, n) * act.Derivative(z[j])
			if g == 0 {
				return
			}
			row := w[j*in : (j+1)*in]
			for k := range row {
				atomicAdd(&ppDelta[k], g*row[k]*ppAct.derivativeAt(ppPre, k))
			}
		})
	},
}
