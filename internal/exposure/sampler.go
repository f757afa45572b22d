package exposure

import (
	"github.com/anthonynsimon/bild/histogram"
)

// BinCount is the number of histogram bins the brightness range is split into.
const BinCount = 5

// levels is the number of distinct 8-bit brightness values.
const levels = 256

// Histogram counts pixels per brightness bin. Bin i covers the 8-bit levels b
// with b*BinCount/256 == i, so the bins are 52, 51, 51, 51 and 51 levels wide.
type Histogram [BinCount]int

// Total returns the number of pixels counted in the histogram.
func (h Histogram) Total() int {
	total := 0
	for _, n := range h {
		total += n
	}
	return total
}

// MSV returns the mean sample value of the histogram: the average 1-based bin
// index weighted by bin occupancy. An empty histogram has no MSV and yields NaN.
func (h Histogram) MSV() float64 {
	var weighted float64
	for i, n := range h {
		weighted += float64(n) * float64(i+1)
	}
	return weighted / float64(h.Total())
}

// BinIndex returns the histogram bin a brightness level falls into.
func BinIndex(level uint8) int {
	return int(level) * BinCount / levels
}

// ComputeHistogram builds the 5-bin brightness histogram of a frame.
//
// A full 256-level histogram of the brightness plane is computed first and then
// folded into BinCount equal-width bins.
func ComputeHistogram(f Frame) (Histogram, error) {
	gray, err := f.Brightness()
	if err != nil {
		return Histogram{}, err
	}

	// The gray plane is replicated into R, G and B; any channel will do.
	full := histogram.NewRGBAHistogram(gray)

	var h Histogram
	for level, n := range full.R.Bins {
		h[BinIndex(uint8(level))] += n
	}
	return h, nil
}

// ComputeMSV returns the mean sample value of a frame, a number in [1, 5] that
// increases with overall image brightness.
//
// It returns an error wrapping ErrInvalidImage if the frame has zero area or a
// channel count other than 1 or 3.
func ComputeMSV(f Frame) (float64, error) {
	h, err := ComputeHistogram(f)
	if err != nil {
		return 0, err
	}
	return h.MSV(), nil
}
