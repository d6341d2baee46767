package gaussnet

import (
	"github.com/gorgonia/gaussnet/device"
	"github.com/gorgonia/gaussnet/kernel"
	"github.com/gorgonia/gaussnet/layer"
)

// LayerConf describes one layer after the input.
type LayerConf struct {
	Name       string
	Kind       layer.Kind
	Neurons    int
	Activation kernel.Activation // ignored for Gaussian layers
}

// Config configures a network.
type Config struct {
	Name   string
	Inputs int
	Layers []LayerConf // the last one must be the output layer

	TrainingRate float32
	L1, L2       float32

	// Gaussian layers
	Regularize                bool
	RegularizationCoefficient float32

	Seed   int64 // seeds the noise; 0 seeds from the clock
	Device device.Config

	OutputEncoder OutputEncoder
}

// DefaultConfig is an autoencoder that squeezes inputs through `gaussians` Gaussian units:
//
//	inputs → hidden → 2·gaussians → gaussians (sampled) → hidden → inputs
func DefaultConfig(inputs, hidden, gaussians int) Config {
	return Config{
		Name:   "gaussnet",
		Inputs: inputs,
		Layers: []LayerConf{
			{Name: "Encoder", Kind: layer.Hidden, Neurons: hidden, Activation: kernel.Tanh},
			{Name: "Parameters", Kind: layer.Hidden, Neurons: 2 * gaussians, Activation: kernel.Sigmoid},
			{Name: "Gaussian", Kind: layer.Gaussian, Neurons: gaussians, Activation: kernel.Identity},
			{Name: "Decoder", Kind: layer.Hidden, Neurons: hidden, Activation: kernel.Tanh},
			{Name: "Output", Kind: layer.Output, Neurons: inputs, Activation: kernel.Sigmoid},
		},
		TrainingRate:              0.1,
		Regularize:                true,
		RegularizationCoefficient: 0.01,
		Device:                    device.DefaultConfig(),
	}
}

func (conf Config) IsValid() bool {
	if conf.Inputs < 1 || len(conf.Layers) == 0 ||
		conf.TrainingRate < 0 || conf.L1 < 0 || conf.L2 < 0 ||
		conf.RegularizationCoefficient < 0 ||
		!conf.Device.IsValid() {
		return false
	}
	last := len(conf.Layers) - 1
	for i, l := range conf.Layers {
		if l.Neurons < 1 {
			return false
		}
		switch l.Kind {
		case layer.Hidden:
			if i == last || !l.Activation.IsValid() {
				return false
			}
		case layer.Gaussian:
			if i == last {
				return false
			}
		case layer.Output:
			if i != last || !l.Activation.IsValid() {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Outputs is the width of the output layer.
func (conf Config) Outputs() int {
	if len(conf.Layers) == 0 {
		return 0
	}
	return conf.Layers[len(conf.Layers)-1].Neurons
}
