package flactest

import (
	"github.com/audiodec/flac/frame"
	iobits "github.com/audiodec/flac/internal/bits"
	"github.com/icza/bitio"
	"github.com/mewkiz/pkg/errutil"
)

// fixedCoeffs maps from prediction order to the LPC coefficients used in fixed
// encoding.
var fixedCoeffs = [...][]int32{
	0: {},
	1: {1},
	2: {2, -1},
	3: {3, -3, 1},
	4: {4, -6, 4, -1},
}

// encodeSubframe encodes the given subframe with samples of bps bits, writing
// to bw. The samples replace those of the subframe, and may be decorrelated
// side channel samples of bps bits.
func encodeSubframe(bw *bitio.Writer, bps uint, subframe *frame.Subframe, samples []int64) error {
	// Encode subframe header.
	if err := encodeSubframeHeader(bw, subframe.SubHeader); err != nil {
		return errutil.Err(err)
	}

	// Drop wasted bits-per-sample.
	if subframe.Wasted > 0 {
		shifted := make([]int64, len(samples))
		for i, sample := range samples {
			shifted[i] = sample >> subframe.Wasted
		}
		samples = shifted
		bps -= subframe.Wasted
	}

	// Encode audio samples.
	switch subframe.Pred {
	case frame.PredConstant:
		for _, sample := range samples[1:] {
			if sample != samples[0] {
				return errutil.Newf("constant sample mismatch; expected %v, got %v", samples[0], sample)
			}
		}
		return writeSigned(bw, samples[0], bps)
	case frame.PredVerbatim:
		for _, sample := range samples {
			if err := writeSigned(bw, sample, bps); err != nil {
				return errutil.Err(err)
			}
		}
		return nil
	case frame.PredFixed:
		if subframe.Order >= len(fixedCoeffs) {
			return errutil.Newf("invalid fixed prediction order %d", subframe.Order)
		}
		return encodeLPC(bw, bps, subframe, samples, fixedCoeffs[subframe.Order], 0)
	case frame.PredFIR:
		return encodeLPC(bw, bps, subframe, samples, subframe.Coeffs, subframe.CoeffShift)
	default:
		return errutil.Newf("support for prediction method %v not implemented", subframe.Pred)
	}
}

// encodeSubframeHeader encodes the given subframe header, writing to bw.
func encodeSubframeHeader(bw *bitio.Writer, subHdr frame.SubHeader) error {
	// Zero bit padding, to prevent sync-fooling string of 1s.
	if err := bw.WriteBits(0x0, 1); err != nil {
		return errutil.Err(err)
	}

	// Subframe type:
	//     000000 : SUBFRAME_CONSTANT
	//     000001 : SUBFRAME_VERBATIM
	//     001xxx : if(xxx <= 4) SUBFRAME_FIXED, xxx=order ; else reserved
	//     1xxxxx : SUBFRAME_LPC, xxxxx=order-1
	var bits uint64
	switch subHdr.Pred {
	case frame.PredConstant:
		bits = 0x00
	case frame.PredVerbatim:
		bits = 0x01
	case frame.PredFixed:
		bits = 0x08 | uint64(subHdr.Order)
	case frame.PredFIR:
		bits = 0x20 | uint64(subHdr.Order-1)
	}
	if err := bw.WriteBits(bits, 6); err != nil {
		return errutil.Err(err)
	}

	// <1+k> 'Wasted bits-per-sample' flag:
	//
	//     0 : no wasted bits-per-sample in source subblock, k=0
	//     1 : k wasted bits-per-sample in source subblock, k-1 follows, unary coded
	hasWastedBits := subHdr.Wasted > 0
	if err := bw.WriteBool(hasWastedBits); err != nil {
		return errutil.Err(err)
	}
	if hasWastedBits {
		if err := iobits.WriteUnary(bw, uint64(subHdr.Wasted-1)); err != nil {
			return errutil.Err(err)
		}
	}
	return nil
}

// encodeLPC stores the samples using linear prediction coding with the given
// coefficients, writing to bw. The FIR precision and shift are written when
// the subframe uses FIR prediction.
func encodeLPC(bw *bitio.Writer, bps uint, subframe *frame.Subframe, samples []int64, coeffs []int32, shift int32) error {
	if len(coeffs) != subframe.Order {
		return errutil.Newf("prediction order (%d) differs from number of coefficients (%d)", subframe.Order, len(coeffs))
	}
	// Unencoded warm-up samples.
	for _, sample := range samples[:subframe.Order] {
		if err := writeSigned(bw, sample, bps); err != nil {
			return errutil.Err(err)
		}
	}
	if subframe.Pred == frame.PredFIR {
		// 4 bits: (coefficients' precision in bits) - 1.
		if err := bw.WriteBits(uint64(subframe.CoeffPrec-1), 4); err != nil {
			return errutil.Err(err)
		}
		// 5 bits: predictor coefficient shift needed in bits.
		if err := writeSigned(bw, int64(shift), 5); err != nil {
			return errutil.Err(err)
		}
		for _, c := range coeffs {
			if err := writeSigned(bw, int64(c), subframe.CoeffPrec); err != nil {
				return errutil.Err(err)
			}
		}
	}
	return encodeResiduals(bw, subframe, residuals(samples, coeffs, shift))
}

// Residuals returns the residuals (signal errors of the prediction) between
// the given audio samples and the LPC predicted audio samples, using the
// coefficients of a given polynomial, and a couple (order of polynomial; i.e.
// len(coeffs)) of unencoded warm-up samples.
func Residuals(samples, coeffs []int32, shift int32) []int64 {
	return residuals(widen(samples), coeffs, shift)
}

func residuals(samples []int64, coeffs []int32, shift int32) []int64 {
	var residuals []int64
	for i := len(coeffs); i < len(samples); i++ {
		var sum int64
		for j, c := range coeffs {
			sum += int64(c) * samples[i-j-1]
		}
		residuals = append(residuals, samples[i]-sum>>uint(shift))
	}
	return residuals
}

// widen returns a 64-bit copy of the given samples.
func widen(samples []int32) []int64 {
	wide := make([]int64, len(samples))
	for i, sample := range samples {
		wide[i] = int64(sample)
	}
	return wide
}

// encodeResiduals encodes the residuals (prediction method error signals) of
// the subframe. A subframe without Rice partitions is encoded as a single
// partition using the cheapest Rice parameter.
//
// ref: https://www.xiph.org/flac/format.html#residual
func encodeResiduals(bw *bitio.Writer, subframe *frame.Subframe, residuals []int64) error {
	riceSubframe := subframe.RiceSubframe
	if riceSubframe == nil {
		riceSubframe = &frame.RiceSubframe{
			Partitions: []frame.RicePartition{{Param: RiceParam(residuals)}},
		}
	}
	// 2 bits: Residual coding method.
	var paramSize uint8
	switch subframe.ResidualCodingMethod {
	case frame.ResidualCodingMethodRice1:
		paramSize = 4
	case frame.ResidualCodingMethodRice2:
		paramSize = 5
	default:
		return errutil.Newf("reserved residual coding method bit pattern (%02b)", uint8(subframe.ResidualCodingMethod))
	}
	if err := bw.WriteBits(uint64(subframe.ResidualCodingMethod), 2); err != nil {
		return errutil.Err(err)
	}

	// 4 bits: Partition order.
	partOrder := riceSubframe.PartOrder
	if err := bw.WriteBits(uint64(partOrder), 4); err != nil {
		return errutil.Err(err)
	}
	nparts := 1 << partOrder
	if len(riceSubframe.Partitions) != nparts {
		return errutil.Newf("partition count mismatch; expected %d, got %d", nparts, len(riceSubframe.Partitions))
	}
	escape := uint(1)<<paramSize - 1
	partSize := (len(residuals) + subframe.Order) / nparts
	for i, partition := range riceSubframe.Partitions {
		// (4 or 5) bits: Rice parameter.
		if err := bw.WriteBits(uint64(partition.Param), paramSize); err != nil {
			return errutil.Err(err)
		}
		nsamples := partSize
		if i == 0 {
			nsamples -= subframe.Order
		}
		part := residuals[:nsamples]
		residuals = residuals[nsamples:]

		if partition.Param == escape {
			// 5 bits: escaped bits-per-sample, followed by unencoded residuals.
			n := partition.EscapedBitsPerSample
			if err := bw.WriteBits(uint64(n), 5); err != nil {
				return errutil.Err(err)
			}
			for _, residual := range part {
				if err := writeSigned(bw, residual, n); err != nil {
					return errutil.Err(err)
				}
			}
			continue
		}
		for _, residual := range part {
			if err := encodeRiceResidual(bw, partition.Param, residual); err != nil {
				return errutil.Err(err)
			}
		}
	}
	return nil
}

// encodeRiceResidual encodes a Rice residual (error signal).
func encodeRiceResidual(bw *bitio.Writer, k uint, residual int64) error {
	// ZigZag encode, then split into low- and high bits.
	folded := iobits.EncodeZigZag(residual)
	high := folded >> k
	low := folded & (1<<k - 1)

	// Write unary encoded most significant bits.
	if err := iobits.WriteUnary(bw, high); err != nil {
		return errutil.Err(err)
	}
	// Write binary encoded least significant bits.
	if k > 0 {
		if err := bw.WriteBits(low, uint8(k)); err != nil {
			return errutil.Err(err)
		}
	}
	return nil
}

// RiceParam returns the Rice parameter in the range 0-14 which encodes the
// residuals using the fewest bits.
func RiceParam(residuals []int64) uint {
	best, bestSize := uint(0), ^uint64(0)
	for k := uint(0); k < 15; k++ {
		var size uint64
		for _, residual := range residuals {
			size += iobits.EncodeZigZag(residual)>>k + 1 + uint64(k)
		}
		if size < bestSize {
			best, bestSize = k, size
		}
	}
	return best
}

// writeSigned writes the n lowest bits of the two's complement representation
// of x.
func writeSigned(bw *bitio.Writer, x int64, n uint) error {
	if n == 0 {
		return nil
	}
	mask := uint64(1)<<n - 1
	if err := bw.WriteBits(uint64(x)&mask, uint8(n)); err != nil {
		return errutil.Err(err)
	}
	return nil
}
