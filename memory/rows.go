package memory

import "github.com/pkg/errors"

// Rows returns m row views of n elements each over a flat row-major matrix. The rows alias data.
func Rows(data []float32, m, n int) ([][]float32, error) {
	if m < 0 || n < 0 || len(data) < m*n {
		return nil, errors.Errorf("cannot view %d elements as %d×%d", len(data), m, n)
	}
	retVal := make([][]float32, m)
	for i := range retVal {
		start := i * n
		retVal[i] = data[start : start+n : start+n]
	}
	return retVal, nil
}
