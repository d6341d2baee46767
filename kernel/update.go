package kernel

// fullyConnectedSGDUpdate applies one step of gradient descent to a fully connected layer:
// w −= rate·(δ_j·x_k + l1·sign(w) + l2·w) and b −= rate·δ_j.
//
//	args: input, weights, bias, delta, inputCount, outputCount, rate, l1, l2
//	threads: inputCount·outputCount
var fullyConnectedSGDUpdate = &definition{
	id:        FullyConnectedSGDUpdate,
	signature: []argKind{bufferArg, bufferArg, bufferArg, bufferArg, intArg, intArg, floatArg, floatArg, floatArg},
	check: func(l *launch) error {
		in, out := l.args.Int(4), l.args.Int(5)
		if in <= 0 {
			return configErr(l.id, "input count %d", in)
		}
		return firstErr(
			l.atLeast(0, in),
			l.atLeast(1, in*out),
			l.atLeast(2, out),
			l.atLeast(3, out),
		)
	},
	body: func(b *Block) {
		x, w, bias, delta := b.Args.Buffer(0), b.Args.Buffer(1), b.Args.Buffer(2), b.Args.Buffer(3)
		in, out := b.Args.Int(4), b.Args.Int(5)
		rate, l1, l2 := b.Args.Float(6), b.Args.Float(7), b.Args.Float(8)
		b.ForEachThread(func(tid int) {
			i := b.GlobalID(tid)
			if i >= in*out {
				return
			}
			j, k := i/in, i%in
			g := delta[j]*x[k] + l1*sign(w[i]) + l2*w[i]
			w[i] -= rate * g
			if k == 0 {
				bias[j] -= rate * delta[j]
			}
		})
	},
}

func sign(v float32) float32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
