package core

import (
	"fmt"
	"sort"
)

// Distribution1D is a discrete distribution over n items built from
// non-negative weights. An all-zero weight vector becomes uniform.
type Distribution1D struct {
	pmf []float64
	cdf []float64
	sum float64
}

// NewDistribution1D normalizes weights into a discrete distribution
func NewDistribution1D(weights []float64) *Distribution1D {
	d := &Distribution1D{
		pmf: make([]float64, len(weights)),
		cdf: make([]float64, len(weights)+1),
	}
	for _, w := range weights {
		if w < 0 {
			panic(fmt.Sprintf("distribution weights must be non-negative, got %g", w))
		}
		d.sum += w
	}

	for i, w := range weights {
		if d.sum == 0 {
			d.pmf[i] = 1 / float64(len(weights))
		} else {
			d.pmf[i] = w / d.sum
		}
		d.cdf[i+1] = d.cdf[i] + d.pmf[i]
	}
	if len(weights) > 0 {
		d.cdf[len(weights)] = 1
	}
	return d
}

// Count returns the number of entries
func (d *Distribution1D) Count() int {
	return len(d.pmf)
}

// Sum returns the sum of the weights the distribution was built from
func (d *Distribution1D) Sum() float64 {
	return d.sum
}

// PMF returns the probability of choosing entry i
func (d *Distribution1D) PMF(i int) float64 {
	if i < 0 || i >= len(d.pmf) {
		return 0
	}
	return d.pmf[i]
}

// Sample picks an entry for u in [0,1) and returns its index and probability
func (d *Distribution1D) Sample(u float64) (int, float64) {
	if len(d.pmf) == 0 {
		return -1, 0
	}
	i := sort.Search(len(d.pmf), func(i int) bool { return d.cdf[i+1] > u })
	if i >= len(d.pmf) {
		i = len(d.pmf) - 1
	}
	for d.pmf[i] == 0 && i > 0 {
		i--
	}
	return i, d.pmf[i]
}

// CDF returns the cumulative probability of all entries before i
func (d *Distribution1D) CDF(i int) float64 {
	if i < 0 {
		return 0
	}
	if i >= len(d.pmf) {
		return 1
	}
	return d.cdf[i]
}
