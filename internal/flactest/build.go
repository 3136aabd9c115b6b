package flactest

import (
	"github.com/audiodec/flac/frame"
)

// NewFrame returns an audio frame with the given header and subframes. The
// block size is taken from the first subframe if unset.
func NewFrame(hdr frame.Header, subframes ...*frame.Subframe) *frame.Frame {
	if hdr.BlockSize == 0 && len(subframes) > 0 {
		hdr.BlockSize = uint16(len(subframes[0].Samples))
	}
	return &frame.Frame{Header: hdr, Subframes: subframes}
}

// Constant returns a constant subframe; every sample must be equal.
func Constant(samples []int32) *frame.Subframe {
	return newSubframe(frame.SubHeader{Pred: frame.PredConstant}, samples)
}

// Verbatim returns a subframe holding unencoded samples.
func Verbatim(samples []int32) *frame.Subframe {
	return newSubframe(frame.SubHeader{Pred: frame.PredVerbatim}, samples)
}

// Fixed returns a subframe using the fixed polynomial predictor of the given
// order, with a single Rice partition.
func Fixed(order int, samples []int32) *frame.Subframe {
	return newSubframe(frame.SubHeader{Pred: frame.PredFixed, Order: order}, samples)
}

// FIR returns a subframe using the given quantized LPC coefficients, with a
// single Rice partition.
func FIR(coeffs []int32, prec uint, shift int32, samples []int32) *frame.Subframe {
	hdr := frame.SubHeader{
		Pred:       frame.PredFIR,
		Order:      len(coeffs),
		CoeffPrec:  prec,
		CoeffShift: shift,
		Coeffs:     coeffs,
	}
	return newSubframe(hdr, samples)
}

func newSubframe(hdr frame.SubHeader, samples []int32) *frame.Subframe {
	return &frame.Subframe{SubHeader: hdr, Samples: samples, NSamples: len(samples)}
}
