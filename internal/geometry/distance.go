// Package geometry holds planar helpers used for goal progress decisions.
package geometry

import (
	"gonum.org/v1/gonum/floats"
)

// Distance returns the Euclidean distance between (x1, y1) and (x2, y2).
func Distance(x1, y1, x2, y2 float64) float64 {
	return floats.Distance([]float64{x1, y1}, []float64{x2, y2}, 2)
}
