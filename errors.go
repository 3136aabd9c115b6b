package flac

import "github.com/pkg/errors"

// Errors returned by Stream. They are wrapped with context; use errors.Is to
// test for them.
var (
	// ErrInvalidSignature reports a stream which does not start with "fLaC".
	ErrInvalidSignature = errors.New("flac: invalid FLAC signature")
	// ErrChannelCount reports a frame whose channel count differs from
	// StreamInfo.
	ErrChannelCount = errors.New("flac: channel count mismatch")
	// ErrBlockSize reports a frame whose block size lies outside of the range
	// declared by StreamInfo.
	ErrBlockSize = errors.New("flac: block size out of range")
	// ErrSampleCount reports frames holding more samples than declared by
	// StreamInfo.
	ErrSampleCount = errors.New("flac: sample count exceeds StreamInfo")
	// ErrMD5Mismatch reports decoded audio samples whose MD5 hash differs from
	// the one stored in StreamInfo.
	ErrMD5Mismatch = errors.New("flac: MD5 checksum mismatch")
	// ErrNoSeeker reports that Stream.Seek was called on a stream not created
	// by NewSeek or Open.
	ErrNoSeeker = errors.New("flac: stream does not support seeking")
	// ErrNoSeekTable reports that no seek point precedes the requested sample.
	ErrNoSeekTable = errors.New("flac: no seek table")
	// ErrSeekRange reports a seek beyond the last sample of the stream.
	ErrSeekRange = errors.New("flac: sample number out of range")
)
