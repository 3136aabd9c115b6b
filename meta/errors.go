package meta

import "github.com/pkg/errors"

// Errors returned by the metadata parser.
var (
	// ErrInvalidType reports the block type 127.
	ErrInvalidType = errors.New("meta: invalid block type")
	// ErrBlockLength reports a block body which does not fill its declared
	// length.
	ErrBlockLength = errors.New("meta: block body shorter than declared length")
	// ErrFirstNotStreamInfo reports a stream whose first metadata block is not a
	// StreamInfo block.
	ErrFirstNotStreamInfo = errors.New("meta: first metadata block is not stream info")
	// ErrInvalidPadding reports a non-zero byte in a padding block.
	ErrInvalidPadding = errors.New("meta: invalid padding")
	// ErrReservedNotZero reports reserved cue sheet bits that are not zero.
	ErrReservedNotZero = errors.New("meta: all reserved bits must be 0")
)
