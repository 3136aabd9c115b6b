package frame

import (
	"math"

	"github.com/audiodec/flac/internal/bits"
	"github.com/pkg/errors"
)

// A Subframe contains the encoded audio samples from one channel of an audio
// block (a part of the audio stream).
//
// ref: https://www.xiph.org/flac/format.html#subframe
type Subframe struct {
	// Subframe header.
	SubHeader
	// Decoded audio samples. Samples is populated by a call to Frame.Parse.
	Samples []int32
	// Number of audio samples in the subframe.
	NSamples int

	// Samples in 64 bits while decoding. The residuals of predicted subframes
	// are stored in place and then restored to samples.
	wide []int64
}

// A SubHeader specifies the prediction method and order of a subframe.
//
// ref: https://www.xiph.org/flac/format.html#subframe_header
type SubHeader struct {
	// Specifies the prediction method used to encode the audio sample of the
	// subframe.
	Pred Pred
	// Prediction order used by fixed and FIR linear prediction decoding.
	Order int
	// Wasted bits-per-sample.
	Wasted uint
	// Residual coding method used by fixed and FIR linear prediction decoding.
	ResidualCodingMethod ResidualCodingMethod
	// Coefficients' precision in bits used by FIR linear prediction decoding.
	CoeffPrec uint
	// Predictor coefficient shift needed in bits used by FIR linear prediction
	// decoding.
	CoeffShift int32
	// Predictor coefficients used by FIR linear prediction decoding.
	Coeffs []int32
	// Rice-coding subframe fields used by residual coding methods rice1 and
	// rice2; nil if unused.
	RiceSubframe *RiceSubframe
}

// Pred specifies the prediction method used to encode the audio samples of a
// subframe.
type Pred uint8

// Prediction methods.
const (
	// PredConstant specifies that the subframe contains a constant sound. The
	// audio samples are encoded using run-length encoding; a single unencoded
	// sample is replicated BlockSize times.
	PredConstant Pred = iota
	// PredVerbatim specifies that the subframe contains unencoded audio samples.
	PredVerbatim
	// PredFixed specifies that the subframe contains linear prediction coded
	// audio samples, using one of the fixed polynomial predictors of order 0
	// through 4.
	PredFixed
	// PredFIR specifies that the subframe contains linear prediction coded
	// audio samples, using quantized predictor coefficients of order 1 through
	// 32 stored within the subframe.
	PredFIR
)

func (pred Pred) String() string {
	switch pred {
	case PredConstant:
		return "constant"
	case PredVerbatim:
		return "verbatim"
	case PredFixed:
		return "fixed"
	case PredFIR:
		return "FIR"
	default:
		return "<unknown prediction method>"
	}
}

// ResidualCodingMethod specifies a residual coding method.
type ResidualCodingMethod uint8

// Residual coding methods.
const (
	// Rice coding with a 4-bit Rice parameter (rice1).
	ResidualCodingMethodRice1 ResidualCodingMethod = 0x0
	// Rice coding with a 5-bit Rice parameter (rice2).
	ResidualCodingMethodRice2 ResidualCodingMethod = 0x1
)

// A RiceSubframe holds rice-coding subframe fields used by residual coding
// methods rice1 and rice2.
type RiceSubframe struct {
	// Partition order used by fixed and FIR linear prediction decoding.
	PartOrder int
	// Rice partitions.
	Partitions []RicePartition
}

// A RicePartition is a partition containing a subset of the residuals of a
// subframe.
type RicePartition struct {
	// Rice parameter.
	Param uint
	// Residual sample size in bits-per-sample used by escaped partitions.
	EscapedBitsPerSample uint
}

// fixedCoeffs maps from prediction order to the LPC coefficients used in fixed
// encoding.
//
//	x_0[n] = 0
//	x_1[n] = x[n-1]
//	x_2[n] = 2*x[n-1] - x[n-2]
//	x_3[n] = 3*x[n-1] - 3*x[n-2] + x[n-3]
//	x_4[n] = 4*x[n-1] - 6*x[n-2] + 4*x[n-3] - x[n-4]
var fixedCoeffs = [...][]int32{
	0: {},
	1: {1},
	2: {2, -1},
	3: {3, -3, 1},
	4: {4, -6, 4, -1},
}

// maxSampleWidth is the largest sample width, in bits, that a subframe may
// carry after subtracting wasted bits; the side channel of 32-bit audio.
const maxSampleWidth = 33

// parseSubframe reads and decodes one subframe of blockSize samples with the
// given sample size in bits-per-sample into samples, which must have length
// blockSize.
func parseSubframe(br *bits.Reader, bps uint, samples []int64) (*Subframe, error) {
	subframe := &Subframe{NSamples: len(samples), wide: samples}
	if err := subframe.parseHeader(br); err != nil {
		return nil, err
	}
	if subframe.Wasted >= bps {
		return nil, errors.Wrapf(ErrBitWidth, "%d wasted bits in %d-bit subframe", subframe.Wasted, bps)
	}
	bps -= subframe.Wasted
	if bps > maxSampleWidth {
		return nil, errors.Wrapf(ErrBitWidth, "%d-bit samples not supported", bps)
	}

	var err error
	switch subframe.Pred {
	case PredConstant:
		err = subframe.decodeConstant(br, bps)
	case PredVerbatim:
		err = subframe.decodeVerbatim(br, bps)
	case PredFixed:
		err = subframe.decodeFixed(br, bps)
	case PredFIR:
		err = subframe.decodeFIR(br, bps)
	}
	if err != nil {
		return nil, err
	}

	// Left shift to account for wasted bits-per-sample.
	if subframe.Wasted > 0 {
		for i, sample := range subframe.wide {
			subframe.wide[i] = sample << subframe.Wasted
		}
	}
	return subframe, nil
}

// parseHeader reads and parses the header of a subframe.
func (subframe *Subframe) parseHeader(br *bits.Reader) error {
	// 1 bit: zero-padding.
	x, err := br.Read(1)
	if err != nil {
		return unexpected(err)
	} else if x != 0 {
		return errors.Wrap(ErrReservedBit, "non-zero subframe padding")
	}

	// 6 bits: Pred.
	if x, err = br.Read(6); err != nil {
		return unexpected(err)
	}
	// The 6 bits are used to specify the prediction method and order as follows:
	//    000000: Constant prediction method.
	//    000001: Verbatim prediction method.
	//    00001x: reserved.
	//    0001xx: reserved.
	//    001xxx:
	//       if (xxx <= 4)
	//          Fixed prediction method; xxx=order
	//       else
	//          reserved.
	//    01xxxx: reserved.
	//    1xxxxx: FIR prediction method; xxxxx=order-1
	switch {
	case x == 0:
		subframe.Pred = PredConstant
	case x == 1:
		subframe.Pred = PredVerbatim
	case x >= 8 && x <= 12:
		subframe.Pred = PredFixed
		subframe.Order = int(x & 0x07)
	case x >= 32:
		subframe.Pred = PredFIR
		subframe.Order = int(x&0x1F) + 1
	default:
		return errors.Wrapf(ErrInvalidSubframeType, "bit pattern %06b", x)
	}

	// 1 bit: hasWastedBits.
	if x, err = br.Read(1); err != nil {
		return unexpected(err)
	} else if x != 0 {
		// k wasted bits-per-sample in source subblock, k-1 follows, unary coded;
		// e.g. k=3 => 001 follows, k=7 => 0000001 follows.
		if x, err = br.ReadUnary(); err != nil {
			return unexpected(err)
		}
		subframe.Wasted = uint(x) + 1
	}
	return nil
}

// decodeConstant reads an unencoded audio sample of the subframe. Each sample
// of the subframe has this constant value.
func (subframe *Subframe) decodeConstant(br *bits.Reader, bps uint) error {
	// (bits-per-sample) bits: Unencoded constant value of the subblock.
	x, err := br.ReadSigned(bps)
	if err != nil {
		return unexpected(err)
	}
	for i := range subframe.wide {
		subframe.wide[i] = x
	}
	return nil
}

// decodeVerbatim reads the unencoded audio samples of the subframe.
func (subframe *Subframe) decodeVerbatim(br *bits.Reader, bps uint) error {
	for i := range subframe.wide {
		// (bits-per-sample) bits: Unencoded sample of the subblock.
		x, err := br.ReadSigned(bps)
		if err != nil {
			return unexpected(err)
		}
		subframe.wide[i] = x
	}
	return nil
}

// decodeFixed decodes the linear prediction coded samples of the subframe,
// using a fixed set of predefined polynomial coefficients.
//
// ref: https://www.xiph.org/flac/format.html#subframe_fixed
func (subframe *Subframe) decodeFixed(br *bits.Reader, bps uint) error {
	if err := subframe.decodeWarmup(br, bps); err != nil {
		return err
	}
	if err := subframe.decodeResiduals(br); err != nil {
		return err
	}
	return subframe.restore(fixedCoeffs[subframe.Order], 0, bps)
}

// decodeFIR decodes the linear prediction coded samples of the subframe, using
// polynomial coefficients stored in the stream.
//
// ref: https://www.xiph.org/flac/format.html#subframe_lpc
func (subframe *Subframe) decodeFIR(br *bits.Reader, bps uint) error {
	if err := subframe.decodeWarmup(br, bps); err != nil {
		return err
	}

	// 4 bits: (coefficients' precision in bits) - 1.
	x, err := br.Read(4)
	if err != nil {
		return unexpected(err)
	}
	if x == 0xF {
		return errors.Wrap(ErrInvalidCoeffPrecision, "bit pattern 1111")
	}
	subframe.CoeffPrec = uint(x) + 1

	// 5 bits: predictor coefficient shift needed in bits.
	shift, err := br.ReadSigned(5)
	if err != nil {
		return unexpected(err)
	}
	if shift < 0 {
		return errors.Wrapf(ErrInvalidLPCShift, "shift %d", shift)
	}
	subframe.CoeffShift = int32(shift)

	// Unencoded predictor coefficients.
	subframe.Coeffs = make([]int32, subframe.Order)
	for i := range subframe.Coeffs {
		c, err := br.ReadSigned(subframe.CoeffPrec)
		if err != nil {
			return unexpected(err)
		}
		subframe.Coeffs[i] = int32(c)
	}

	if err := subframe.decodeResiduals(br); err != nil {
		return err
	}
	return subframe.restore(subframe.Coeffs, subframe.CoeffShift, bps)
}

// decodeWarmup reads the unencoded warm-up samples of a predicted subframe.
func (subframe *Subframe) decodeWarmup(br *bits.Reader, bps uint) error {
	if subframe.Order > subframe.NSamples {
		return errors.Wrapf(ErrInvalidPartitionOrder, "predictor order %d exceeds block size %d", subframe.Order, subframe.NSamples)
	}
	for i := 0; i < subframe.Order; i++ {
		x, err := br.ReadSigned(bps)
		if err != nil {
			return unexpected(err)
		}
		subframe.wide[i] = x
	}
	return nil
}

// decodeResiduals decodes the encoded residuals (prediction method error
// signals) of the subframe, storing them after the warm-up samples.
//
// ref: https://www.xiph.org/flac/format.html#residual
func (subframe *Subframe) decodeResiduals(br *bits.Reader) error {
	// 2 bits: Residual coding method.
	x, err := br.Read(2)
	if err != nil {
		return unexpected(err)
	}
	// The 2 bits are used to specify the residual coding method as follows:
	//    00: Rice coding with a 4-bit Rice parameter.
	//    01: Rice coding with a 5-bit Rice parameter.
	//    10: reserved.
	//    11: reserved.
	switch x {
	case 0x0:
		subframe.ResidualCodingMethod = ResidualCodingMethodRice1
		return subframe.decodeRicePart(br, 4)
	case 0x1:
		subframe.ResidualCodingMethod = ResidualCodingMethodRice2
		return subframe.decodeRicePart(br, 5)
	default:
		return errors.Wrapf(ErrInvalidCodingMethod, "bit pattern %02b", x)
	}
}

// decodeRicePart decodes a Rice partition of encoded residuals from the
// subframe, using a Rice parameter of the specified size in bits.
//
// ref: https://www.xiph.org/flac/format.html#partitioned_rice
func (subframe *Subframe) decodeRicePart(br *bits.Reader, paramSize uint) error {
	// 4 bits: Partition order.
	x, err := br.Read(4)
	if err != nil {
		return unexpected(err)
	}
	partOrder := int(x)
	nparts := 1 << partOrder
	partSize := subframe.NSamples >> partOrder
	if subframe.NSamples%nparts != 0 || partSize < subframe.Order {
		return errors.Wrapf(ErrInvalidPartitionOrder, "partition order %d with block size %d and predictor order %d", partOrder, subframe.NSamples, subframe.Order)
	}
	riceSubframe := &RiceSubframe{
		PartOrder:  partOrder,
		Partitions: make([]RicePartition, nparts),
	}
	subframe.RiceSubframe = riceSubframe

	escape := uint64(1)<<paramSize - 1
	pos := subframe.Order
	for i := range riceSubframe.Partitions {
		partition := &riceSubframe.Partitions[i]
		// (4 or 5) bits: Rice parameter.
		x, err := br.Read(paramSize)
		if err != nil {
			return unexpected(err)
		}
		partition.Param = uint(x)

		// The first partition holds the warm-up samples.
		nsamples := partSize
		if i == 0 {
			nsamples -= subframe.Order
		}
		residuals := subframe.wide[pos : pos+nsamples]
		pos += nsamples

		if x == escape {
			// 1111 or 11111: Escape code, meaning the partition is in unencoded
			// binary form using n bits per sample; n follows as a 5-bit number.
			// The residuals are stored as signed two's complement, and always
			// fit in 32 bits.
			n, err := br.Read(5)
			if err != nil {
				return unexpected(err)
			}
			partition.EscapedBitsPerSample = uint(n)
			for j := range residuals {
				residual, err := br.ReadSigned(uint(n))
				if err != nil {
					return unexpected(err)
				}
				residuals[j] = residual
			}
			continue
		}

		// Decode the Rice encoded residuals of the partition.
		for j := range residuals {
			residual, err := decodeRiceResidual(br, partition.Param)
			if err != nil {
				return err
			}
			residuals[j] = residual
		}
	}
	return nil
}

// decodeRiceResidual decodes and returns a Rice encoded residual (error
// signal) with Rice parameter k. Residuals must fit in a signed 32-bit integer.
func decodeRiceResidual(br *bits.Reader, k uint) (int64, error) {
	// Read unary encoded most significant bits.
	high, err := br.ReadUnary()
	if err != nil {
		return 0, unexpected(err)
	}
	// Read binary encoded least significant bits.
	low, err := br.Read(k)
	if err != nil {
		return 0, unexpected(err)
	}
	if high > math.MaxUint32>>k {
		return 0, errors.Wrapf(ErrBitWidth, "residual quotient %d with Rice parameter %d exceeds 32 bits", high, k)
	}
	folded := high<<k | low
	if folded > math.MaxUint32 {
		return 0, errors.Wrapf(ErrBitWidth, "folded residual %d exceeds 32 bits", folded)
	}
	return bits.DecodeZigZag(folded), nil
}

// restore replaces the residuals stored after the warm-up samples with the
// audio samples they encode, using the given prediction coefficients and
// quantization shift. Each restored sample must fit in bps bits.
func (subframe *Subframe) restore(coeffs []int32, shift int32, bps uint) error {
	samples := subframe.wide
	lo, hi := int64(-1)<<(bps-1), int64(1)<<(bps-1)-1
	for i := len(coeffs); i < len(samples); i++ {
		var sum int64
		for j, c := range coeffs {
			sum += int64(c) * samples[i-j-1]
		}
		sample := samples[i] + sum>>uint(shift)
		if sample < lo || sample > hi {
			return errors.Wrapf(ErrBitWidth, "restored sample %d at index %d exceeds %d bits", sample, i, bps)
		}
		samples[i] = sample
	}
	return nil
}
