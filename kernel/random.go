package kernel

import "github.com/chewxy/math32"

// uniformToNormal turns pairs of uniform draws into pairs of standard normal draws (Box–Muller).
//
//	args: uniform, normal, count
//	threads: ceil(count/2)
var uniformToNormal = &definition{
	id:        UniformToNormal,
	signature: []argKind{bufferArg, bufferArg, intArg},
	check: func(l *launch) error {
		count := l.args.Int(2)
		pairs := (count + 1) / 2
		return firstErr(
			l.atLeast(0, 2*pairs),
			l.atLeast(1, count),
		)
	},
	body: func(b *Block) {
		uniform, normal, count := b.Args.Buffer(0), b.Args.Buffer(1), b.Args.Int(2)
		b.ForEachThread(func(tid int) {
			k := b.GlobalID(tid)
			if 2*k >= count {
				return
			}
			u1, u2 := uniform[2*k], uniform[2*k+1]
			r := math32.Sqrt(-2 * math32.Log(u1))
			s, c := math32.Sincos(2 * math32.Pi * u2)
			normal[2*k] = r * c
			if 2*k+1 < count {
				normal[2*k+1] = r * s
			}
		})
	},
}
