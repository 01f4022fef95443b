package packet

import "fmt"

// OutOfBoundsError is returned by Encoder.PutRecord when a field value
// falls outside the bounds declared in its FieldSpec. No bits are
// written for a record that fails validation.
type OutOfBoundsError struct {
	Path     string
	Value    float64
	Min, Max float64
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("packet: value %g for field %q outside bounds [%g, %g]", e.Value, e.Path, e.Min, e.Max)
}
