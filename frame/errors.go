package frame

import (
	"io"

	"github.com/audiodec/flac/internal/bits"
	"github.com/pkg/errors"
)

// Errors returned while decoding audio frames. They are wrapped with context;
// use errors.Is to test for them.
var (
	// ErrInvalidSync reports a frame header that does not start with the
	// 14-bit sync code.
	ErrInvalidSync = errors.New("frame: invalid sync code")
	// ErrReservedBit reports a reserved bit or zero-padding bit which is set.
	ErrReservedBit = errors.New("frame: reserved bit set")
	// ErrInvalidChannels reports a reserved channel assignment (1011-1111).
	ErrInvalidChannels = errors.New("frame: reserved channel assignment")
	// ErrInvalidBlockSize reports a reserved block size bit pattern.
	ErrInvalidBlockSize = errors.New("frame: invalid block size")
	// ErrInvalidSampleRate reports the invalid sample rate bit pattern 1111.
	ErrInvalidSampleRate = errors.New("frame: invalid sample rate")
	// ErrInvalidSampleSize reports a reserved or unresolvable sample size.
	ErrInvalidSampleSize = errors.New("frame: invalid sample size")
	// ErrInvalidUTF8 reports a malformed UTF-8 coded frame or sample number.
	ErrInvalidUTF8 = errors.New("frame: invalid UTF-8 coded number")
	// ErrInvalidHeaderCRC reports a CRC-8 mismatch of the frame header.
	ErrInvalidHeaderCRC = errors.New("frame: header CRC-8 mismatch")
	// ErrInvalidFrameCRC reports a CRC-16 mismatch of the frame footer.
	ErrInvalidFrameCRC = errors.New("frame: frame CRC-16 mismatch")
	// ErrInvalidSubframeType reports a reserved subframe type.
	ErrInvalidSubframeType = errors.New("frame: reserved subframe type")
	// ErrInvalidCodingMethod reports a reserved residual coding method.
	ErrInvalidCodingMethod = errors.New("frame: reserved residual coding method")
	// ErrInvalidCoeffPrecision reports the invalid LPC coefficient precision
	// bit pattern 1111.
	ErrInvalidCoeffPrecision = errors.New("frame: invalid LPC coefficient precision")
	// ErrInvalidLPCShift reports a negative LPC quantization shift.
	ErrInvalidLPCShift = errors.New("frame: negative LPC shift")
	// ErrInvalidPartitionOrder reports a Rice partition order which is
	// incompatible with the block size and predictor order.
	ErrInvalidPartitionOrder = errors.New("frame: invalid partition order")
	// ErrBitWidth reports a sample or residual which does not fit in its
	// permitted width.
	ErrBitWidth = bits.ErrBitWidth
)

// unexpected returns io.ErrUnexpectedEOF if err is io.EOF, and returns err
// otherwise.
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
