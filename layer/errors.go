package layer

import "fmt"

// TopologyError is returned when the chain does not have the shape a layer or task needs.
type TopologyError struct {
	Layer  string
	Reason string
}

func (err TopologyError) Error() string {
	return fmt.Sprintf("layer %s: %s", err.Layer, err.Reason)
}
