package kernel

// gaussianSamplingDelta backpropagates the delta of a Gaussian layer through the sampling step into
// the delta of the previous layer, whose outputs are the means followed by the standard deviations.
// ∂out/∂μ = 1 and ∂out/∂σ = ε. The result is multiplied by the previous layer's activation
// derivative and accumulated.
//
// input and output are part of the launch signature but the draw is read from randomNormal.
//
//	args: input, output, prevDelta, delta, randomNormal, neurons, prevPreActivation, prevActivation
//	threads: 2·neurons (the previous layer's neuron count)
var gaussianSamplingDelta = &definition{
	id:        GaussianSamplingDelta,
	signature: []argKind{bufferArg, bufferArg, bufferArg, bufferArg, bufferArg, intArg, bufferArg, intArg},
	check: func(l *launch) error {
		n := l.args.Int(5)
		errs := []error{
			l.atLeast(0, 2*n),
			l.atLeast(1, n),
			l.atLeast(2, 2*n),
			l.atLeast(3, n),
			l.atLeast(4, n),
			l.validActivation(7),
		}
		if l.args.Activation(7) != Identity {
			errs = append(errs, l.atLeast(6, 2*n))
		}
		return firstErr(errs...)
	},
	body: func(b *Block) {
		prevDelta, delta, eps := b.Args.Buffer(2), b.Args.Buffer(3), b.Args.Buffer(4)
		n := b.Args.Int(5)
		pre, act := b.Args.Buffer(6), b.Args.Activation(7)
		b.ForEachThread(func(tid int) {
			j := b.GlobalID(tid)
			var g float32
			switch {
			case j < n:
				g = delta[j]
			case j < 2*n:
				g = delta[j-n] * eps[j-n]
			default:
				return
			}
			prevDelta[j] += g * act.derivativeAt(pre, j)
		})
	},
}

// fullyConnectedDelta backpropagates through the weights of a fully connected layer:
// prevDelta[k] += f'(z_k)·Σ_j W[j,k]·delta[j].
//
//	args: weights, delta, prevDelta, prevPreActivation, inputCount, outputCount, prevActivation
//	threads: inputCount
var fullyConnectedDelta = &definition{
	id:        FullyConnectedDelta,
	signature: []argKind{bufferArg, bufferArg, bufferArg, bufferArg, intArg, intArg, intArg},
	check: func(l *launch) error {
		in, out := l.args.Int(4), l.args.Int(5)
		errs := []error{
			l.atLeast(0, in*out),
			l.atLeast(1, out),
			l.atLeast(2, in),
			l.validActivation(6),
		}
		if l.args.Activation(6) != Identity {
			errs = append(errs, l.atLeast(3, in))
		}
		return firstErr(errs...)
	},
	body: func(b *Block) {
		w, delta, prevDelta, pre := b.Args.Buffer(0), b.Args.Buffer(1), b.Args.Buffer(2), b.Args.Buffer(3)
		in, out, act := b.Args.Int(4), b.Args.Int(5), b.Args.Activation(6)
		b.ForEachThread(func(tid int) {
			k := b.GlobalID(tid)
			if k >= in {
				return
			}
			var sum float32
			for j := 0; j < out; j++ {
				sum += w[j*in+k] * delta[j]
			}
			prevDelta[k] += sum * act.derivativeAt(pre, k)
		})
	},
}

// outputDelta starts backpropagation at the output layer: delta = (y − t)·f'(z). It also reduces
// the squared error ½Σ(y − t)² into cost.
//
//	args: output, target, neuronInput, delta, cost, count, activation
//	threads: one block, shared memory of one float per thread
var outputDelta = &definition{
	id:        OutputDelta,
	signature: []argKind{bufferArg, bufferArg, bufferArg, bufferArg, bufferArg, intArg, intArg},
	reduction: true,
	check: func(l *launch) error {
		n := l.args.Int(5)
		return firstErr(
			l.atLeast(0, n),
			l.atLeast(1, n),
			l.atLeast(2, n),
			l.atLeast(3, n),
			l.atLeast(4, 1),
			l.validActivation(6),
		)
	},
	body: func(b *Block) {
		y, t, z, delta, cost := b.Args.Buffer(0), b.Args.Buffer(1), b.Args.Buffer(2), b.Args.Buffer(3), b.Args.Buffer(4)
		n, act := b.Args.Int(5), b.Args.Activation(6)
		cost[0] = reduce(b, n, func(i int) float32 {
			e := y[i] - t[i]
			delta[i] = e * act.Derivative(z[i])
			return 0.5 * e * e
		})
	},
}
