package core

import (
	"fmt"
	"math"
)

// InvariantViolation is raised with panic when a numerical invariant breaks
// during rendering. Worker pools recover it and surface it as an error.
type InvariantViolation struct {
	What  string
	Value string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violated: %s (value %s)", e.What, e.Value)
}

// CheckRadiance panics if v has a NaN, infinite or negative component
func CheckRadiance(what string, v Vec3) {
	if !v.IsValid() {
		panic(&InvariantViolation{What: what, Value: v.String()})
	}
}

// CheckPDF panics if pdf is NaN, infinite or negative
func CheckPDF(what string, pdf float64) {
	if math.IsNaN(pdf) || math.IsInf(pdf, 0) || pdf < 0 {
		panic(&InvariantViolation{What: what, Value: fmt.Sprintf("%g", pdf)})
	}
}
