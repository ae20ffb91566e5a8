package aggregate

import (
	"math"

	"github.com/sells-group/parking-cli/internal/ticket"
)

// Bucket is one fixed-width histogram bin.
type Bucket struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Count int     `json:"count" yaml:"count"`
}

// Histogram is a fixed-width histogram over [Min, Max). Values equal to Max
// are counted in the last bucket.
type Histogram struct {
	Column  ticket.Column `json:"column" yaml:"column"`
	Min     float64       `json:"min" yaml:"min"`
	Max     float64       `json:"max" yaml:"max"`
	Width   float64       `json:"width" yaml:"width"`
	Buckets []Bucket      `json:"buckets" yaml:"buckets"`

	// Excluded counts present values outside [Min, Max]; ExcludedRows holds
	// their table positions.
	Excluded     int   `json:"excluded" yaml:"excluded"`
	ExcludedRows []int `json:"excluded_rows,omitempty" yaml:"excluded_rows,omitempty"`
	Missing      int   `json:"missing" yaml:"missing"`
}

// MaxBuckets bounds the bucket count HistogramBuckets accepts.
const MaxBuckets = 10_000

// HistogramBuckets bins a numeric column into bucketCount equal-width buckets
// spanning [rangeMin, rangeMax). A value lands in bucket i when
// Buckets[i].Lower <= x < Buckets[i+1].Lower.
func HistogramBuckets(t *ticket.Table, col ticket.Column, rangeMin, rangeMax float64, bucketCount int) (*Histogram, error) {
	const op = "histogram"
	if err := checkNumeric(op, col); err != nil {
		return nil, err
	}
	if bucketCount <= 0 || bucketCount > MaxBuckets {
		return nil, invalidArg(op, "bucket count must be in [1, %d], got %d", MaxBuckets, bucketCount)
	}
	if !finite(rangeMin) || !finite(rangeMax) {
		return nil, invalidArg(op, "range bounds must be finite, got [%v, %v]", rangeMin, rangeMax)
	}
	if rangeMin >= rangeMax {
		return nil, invalidArg(op, "range min %v must be below max %v", rangeMin, rangeMax)
	}

	span := rangeMax - rangeMin
	width := span / float64(bucketCount)
	if !finite(span) || !finite(width) || width == 0 {
		return nil, invalidArg(op, "range [%v, %v] cannot be split into %d buckets", rangeMin, rangeMax, bucketCount)
	}

	h := &Histogram{
		Column:  col,
		Min:     rangeMin,
		Max:     rangeMax,
		Width:   width,
		Buckets: make([]Bucket, bucketCount),
	}
	for i := range h.Buckets {
		h.Buckets[i].Lower = lowerBound(rangeMin, span, i, bucketCount)
	}

	t.Each(func(i int, row ticket.Ticket) {
		v := row.Value(col)
		if v.IsMissing() {
			h.Missing++
			return
		}
		x := float64(v.Uint)
		if x < rangeMin || x > rangeMax {
			h.Excluded++
			h.ExcludedRows = append(h.ExcludedRows, i)
			return
		}
		h.Buckets[h.bucketIndex(x, span)].Count++
	})

	return h, nil
}

// bucketIndex estimates the bucket from the quotient, then settles it against
// the stored lower bounds so counts agree with Lower exactly.
func (h *Histogram) bucketIndex(x, span float64) int {
	n := len(h.Buckets)
	idx := int((x - h.Min) / span * float64(n))
	idx = max(0, min(idx, n-1))
	for idx+1 < n && x >= h.Buckets[idx+1].Lower {
		idx++
	}
	for idx > 0 && x < h.Buckets[idx].Lower {
		idx--
	}
	return idx
}

// lowerBound is rangeMin + span*i/n, multiplying first so edges that are exact
// in decimal (9 for 18*7/14) stay exact.
func lowerBound(rangeMin, span float64, i, n int) float64 {
	scaled := span * float64(i)
	if math.IsInf(scaled, 0) {
		return rangeMin + span*(float64(i)/float64(n))
	}
	return rangeMin + scaled/float64(n)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
