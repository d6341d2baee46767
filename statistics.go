package gaussnet

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gorgonia.org/vecf32"
)

// Statistics records the scalars of every step.
type Statistics struct {
	Index           []int64 // step numbers
	Costs           []float32
	Regularizations []float32 // summed over the Gaussian layers
	L1s, L2s        []float32
}

func makeStatistics() Statistics {
	return Statistics{
		Index:           make([]int64, 0, 64),
		Costs:           make([]float32, 0, 64),
		Regularizations: make([]float32, 0, 64),
		L1s:             make([]float32, 0, 64),
		L2s:             make([]float32, 0, 64),
	}
}

func (s *Statistics) record(step int64, cost, reg, l1, l2 float32) {
	s.Index = append(s.Index, step)
	s.Costs = append(s.Costs, cost)
	s.Regularizations = append(s.Regularizations, reg)
	s.L1s = append(s.L1s, l1)
	s.L2s = append(s.L2s, l2)
}

// MeanCost is the mean cost over the last n recorded steps, or over all of them if n is not positive.
func (s *Statistics) MeanCost(n int) float32 {
	window := s.Costs
	if n > 0 && n < len(window) {
		window = window[len(window)-n:]
	}
	if len(window) == 0 {
		return 0
	}
	return vecf32.Sum(window) / float32(len(window))
}

// Dump writes the statistics as CSV, one row per step.
func (s *Statistics) Dump(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"step", "cost", "regularization", "l1", "l2"}); err != nil {
		return errors.WithStack(err)
	}

	format := func(v float32) string { return strconv.FormatFloat(float64(v), 'f', 6, 32) }
	records := make([][]string, 0, len(s.Index))
	for i, step := range s.Index {
		records = append(records, []string{
			strconv.FormatInt(step, 10),
			format(s.Costs[i]),
			format(s.Regularizations[i]),
			format(s.L1s[i]),
			format(s.L2s[i]),
		})
	}
	if err := w.WriteAll(records); err != nil {
		return errors.WithStack(err)
	}
	w.Flush()
	return errors.WithStack(w.Error())
}
