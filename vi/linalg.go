package vi

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// gather copies vec[idx[i]] into dst[i] and returns dst.
func gather(dst []float64, idx []int, vec []float64) []float64 {
	dst = dst[:len(idx)]
	for i, j := range idx {
		dst[i] = vec[j]
	}
	return dst
}

// gatherDot is the dot product of a sparse row (prob at positions idx) with
// the dense vector vec.
func gatherDot(buf []float64, prob []float64, idx []int, vec []float64) float64 {
	return floats.Dot(prob, gather(buf, idx, vec))
}

// maxDelta is the largest absolute difference between a and b.
func maxDelta(a, b []float64) float64 {
	return floats.Distance(a, b, math.Inf(1))
}

// argmax returns the largest value and the first index holding it.
func argmax(q []float64) (float64, int) {
	i := floats.MaxIdx(q)
	return q[i], i
}
