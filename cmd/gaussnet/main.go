package main

import (
	"flag"
	"io/ioutil"
	"log"
	"net/http"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/chewxy/math32"
	"github.com/gorgonia/gaussnet"
	"github.com/gorgonia/gaussnet/encoding/gif"
	"github.com/gorgonia/gaussnet/encoding/mjpeg"
	"gorgonia.org/vecf32"
)

var (
	inputs    = flag.Int("inputs", 8, "width of the input and output")
	hidden    = flag.Int("hidden", 16, "width of the encoder and decoder layers")
	gaussians = flag.Int("gaussians", 2, "number of Gaussian units")
	epochs    = flag.Int("epochs", 200, "passes over the training set")
	rate      = flag.Float64("rate", 0.1, "training rate")
	l1        = flag.Float64("l1", 0, "L1 coefficient")
	l2        = flag.Float64("l2", 0, "L2 coefficient")
	coef      = flag.Float64("kl", 0.01, "coefficient of the KL regularization")
	noreg     = flag.Bool("noreg", false, "turn the KL regularization off")
	seed      = flag.Int64("seed", 0, "noise seed; 0 seeds from the clock")
	threads   = flag.Int("threads", 1024, "max threads per block")
	shared    = byteSize{48 * datasize.KB}

	gifname   = flag.String("gif", "", "write the activations of every step to this gif")
	dotname   = flag.String("dot", "", "write the network as a graphviz file")
	statsname = flag.String("stats", "", "write per-step statistics as CSV")
	serve     = flag.String("serve", "", "serve step costs on /ws and the activations on /stream at this address, e.g. :8080")
)

// byteSize lets a datasize.ByteSize be set from the command line.
type byteSize struct{ datasize.ByteSize }

func (b *byteSize) Set(s string) error { return b.UnmarshalText([]byte(s)) }

func init() {
	flag.Var(&shared, "shared", "max shared memory per block, e.g. 48KB")
}

// onehots is the training set: every unit vector of width n, reconstructed.
func onehots(n int) []gaussnet.Example {
	retVal := make([]gaussnet.Example, n)
	for i := range retVal {
		v := make([]float32, n)
		v[i] = 1
		retVal[i] = gaussnet.Example{Input: v, Target: v}
	}
	return retVal
}

func main() {
	flag.Parse()

	conf := gaussnet.DefaultConfig(*inputs, *hidden, *gaussians)
	conf.Name = "one-hot autoencoder"
	conf.TrainingRate = float32(*rate)
	conf.L1 = float32(*l1)
	conf.L2 = float32(*l2)
	conf.Regularize = !*noreg
	conf.RegularizationCoefficient = float32(*coef)
	conf.Seed = *seed
	conf.Device.MaxThreads = *threads
	conf.Device.MaxSharedMemory = int(shared.Bytes())
	log.Printf("Device: %d threads, %v shared memory per block", conf.Device.MaxThreads, shared.HumanReadable())

	var encs encoders
	var gifEnc *gif.Encoder
	if *gifname != "" {
		f, err := os.Create(*gifname)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		gifEnc = gif.NewGifEncoder(f, 600, 800)
		encs = append(encs, gifEnc)
	}
	if *serve != "" {
		outEnc := NewEncoder()
		streamEnc := mjpeg.NewEncoder(600, 800)
		encs = append(encs, outEnc, streamEnc)
		go func(ws, stream http.Handler) {
			mux := http.NewServeMux()
			mux.Handle("/ws", ws)
			mux.Handle("/stream", stream)
			log.Printf("ws://localhost%s/ws, http://localhost%s/stream", *serve, *serve)
			log.Println(http.ListenAndServe(*serve, mux))
		}(outEnc, streamEnc)
	}
	if len(encs) > 0 {
		conf.OutputEncoder = encs
	}

	n, err := gaussnet.New(conf)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	if *dotname != "" {
		dot, err := n.ToDot()
		if err != nil {
			log.Fatalf("%+v", err)
		}
		if err = ioutil.WriteFile(*dotname, []byte(dot), 0644); err != nil {
			log.Fatal(err)
		}
	}

	examples := onehots(*inputs)
	if err = n.Learn(examples, *epochs); err != nil {
		n.Log(os.Stderr)
		log.Fatalf("%+v", err)
	}

	// decode a draw from the prior
	n.Generate().Raise()
	if err = n.Step(examples[0].Input, examples[0].Target); err != nil {
		log.Fatalf("%+v", err)
	}
	n.Generate().Lower()
	sample, err := n.Probe()
	if err != nil {
		log.Fatalf("%+v", err)
	}
	normalise(sample)
	log.Printf("Generated (normalised): %1.3f", sample)

	if *statsname != "" {
		if err = n.Dump(*statsname); err != nil {
			log.Fatal(err)
		}
	}
	if err = n.Close(); err != nil {
		log.Fatalf("%+v", err)
	}
	if gifEnc != nil {
		log.Printf("Wrote %d frames to %v", gifEnc.Frames(), *gifname)
	}
}

// normalise scales xs to sum to 1. An all-zero sample is left as is.
func normalise(xs []float32) {
	sum := vecf32.Sum(xs)
	if sum == 0 || math32.IsNaN(sum) || math32.IsInf(sum, 0) {
		return
	}
	vecf32.Scale(xs, 1/sum)
}
