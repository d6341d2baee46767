package kernel

// gaussianForwardSampling draws one sample per neuron from N(μ+bias, σ²), reparameterised as
// μ + bias + σ·ε. The input holds the means followed by the standard deviations.
//
//	args: input, output, bias, randomNormal, inputCount, outputCount
//	threads: outputCount
var gaussianForwardSampling = &definition{
	id:        GaussianForwardSampling,
	signature: []argKind{bufferArg, bufferArg, bufferArg, bufferArg, intArg, intArg},
	check: func(l *launch) error {
		in, out := l.args.Int(4), l.args.Int(5)
		if in != 2*out {
			return configErr(l.id, "input count %d must be twice the output count %d", in, out)
		}
		return firstErr(
			l.atLeast(0, in),
			l.atLeast(1, out),
			l.atLeast(2, out),
			l.atLeast(3, out),
		)
	},
	body: func(b *Block) {
		input, output, bias, eps := b.Args.Buffer(0), b.Args.Buffer(1), b.Args.Buffer(2), b.Args.Buffer(3)
		n := b.Args.Int(5)
		b.ForEachThread(func(tid int) {
			i := b.GlobalID(tid)
			if i >= n {
				return
			}
			output[i] = input[i] + bias[i] + input[i+n]*eps[i]
		})
	},
}

// fullyConnectedForward computes z = W·x + b and f(z). Weights are row-major, one row per neuron.
//
//	args: input, weights, bias, neuronInput, output, inputCount, outputCount, activation
//	threads: outputCount
var fullyConnectedForward = &definition{
	id:        FullyConnectedForward,
	signature: []argKind{bufferArg, bufferArg, bufferArg, bufferArg, bufferArg, intArg, intArg, intArg},
	check: func(l *launch) error {
		in, out := l.args.Int(5), l.args.Int(6)
		return firstErr(
			l.atLeast(0, in),
			l.atLeast(1, in*out),
			l.atLeast(2, out),
			l.atLeast(3, out),
			l.atLeast(4, out),
			l.validActivation(7),
		)
	},
	body: func(b *Block) {
		x, w, bias := b.Args.Buffer(0), b.Args.Buffer(1), b.Args.Buffer(2)
		z, y := b.Args.Buffer(3), b.Args.Buffer(4)
		in, out, act := b.Args.Int(5), b.Args.Int(6), b.Args.Activation(7)
		b.ForEachThread(func(tid int) {
			j := b.GlobalID(tid)
			if j >= out {
				return
			}
			row := w[j*in : (j+1)*in]
			sum := bias[j]
			for k, xk := range x[:in] {
				sum += row[k] * xk
			}
			z[j] = sum
			y[j] = act.Apply(sum)
		})
	},
}
