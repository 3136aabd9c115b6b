package meta

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"

	"github.com/audiodec/flac/internal/bits"
	"github.com/pkg/errors"
)

// streamInfoLength is the length in bytes of a StreamInfo block body.
const streamInfoLength = 34

// StreamInfo contains the basic properties of a FLAC audio stream, such as its
// sample rate and channel count. It is the only mandatory metadata block and
// must be present as the first metadata block of a FLAC stream.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_streaminfo
type StreamInfo struct {
	// Minimum block size (in samples) used in the stream; 0 if unknown.
	BlockSizeMin uint16
	// Maximum block size (in samples) used in the stream; 0 if unknown.
	BlockSizeMax uint16
	// Minimum frame size in bytes; a 0 value implies unknown.
	FrameSizeMin uint32
	// Maximum frame size in bytes; a 0 value implies unknown.
	FrameSizeMax uint32
	// Sample rate in Hz; between 1 and 655350 Hz.
	SampleRate uint32
	// Number of channels; between 1 and 8 channels.
	NChannels uint8
	// Sample size in bits-per-sample; between 4 and 32 bits.
	BitsPerSample uint8
	// Total number of inter-channel samples in the stream. One second of 44.1
	// KHz audio will have 44100 samples regardless of the number of channels. A
	// value of 0 implies unknown.
	NSamples uint64
	// MD5 checksum of the unencoded audio data.
	MD5sum [md5.Size]uint8
}

// parseStreamInfo reads and parses the body of a StreamInfo metadata block.
//
// StreamInfo format (pseudo code):
//
//	type METADATA_BLOCK_STREAMINFO struct {
//	   block_size_min  uint16
//	   block_size_max  uint16
//	   frame_size_min  uint24
//	   frame_size_max  uint24
//	   sample_rate     uint20
//	   n_channels      uint3 // n_channels-1
//	   bits_per_sample uint5 // bits_per_sample-1
//	   n_samples       uint36
//	   md5sum          [16]byte
//	}
func (block *Block) parseStreamInfo() error {
	if block.Length != streamInfoLength {
		return errors.Wrapf(ErrBlockLength, "stream info length %d, expected %d", block.Length, streamInfoLength)
	}
	var buf [streamInfoLength]byte
	if _, err := io.ReadFull(block.lr, buf[:]); err != nil {
		return err
	}
	si, err := ParseStreamInfo(buf[:])
	if err != nil {
		return err
	}
	block.Body = si
	return nil
}

// ParseStreamInfo parses a 34-byte StreamInfo block body.
func ParseStreamInfo(buf []byte) (*StreamInfo, error) {
	if len(buf) != streamInfoLength {
		return nil, errors.Wrapf(ErrBlockLength, "stream info length %d, expected %d", len(buf), streamInfoLength)
	}
	br := bits.NewReader(bytes.NewReader(buf))
	var fields [8]uint64
	for i, n := range [...]uint{16, 16, 24, 24, 20, 3, 5, 36} {
		x, err := br.Read(n)
		if err != nil {
			return nil, err
		}
		fields[i] = x
	}
	si := &StreamInfo{
		BlockSizeMin:  uint16(fields[0]),
		BlockSizeMax:  uint16(fields[1]),
		FrameSizeMin:  uint32(fields[2]),
		FrameSizeMax:  uint32(fields[3]),
		SampleRate:    uint32(fields[4]),
		NChannels:     uint8(fields[5]) + 1,
		BitsPerSample: uint8(fields[6]) + 1,
		NSamples:      fields[7],
	}
	copy(si.MD5sum[:], buf[streamInfoLength-md5.Size:])
	if si.BitsPerSample < 4 {
		return nil, errors.Errorf("meta: invalid stream info bits-per-sample; expected >= 4, got %d", si.BitsPerSample)
	}
	if si.BlockSizeMax != 0 && si.BlockSizeMin > si.BlockSizeMax {
		return nil, errors.Errorf("meta: invalid stream info block sizes; min %d > max %d", si.BlockSizeMin, si.BlockSizeMax)
	}
	return si, nil
}

func (si *StreamInfo) String() string {
	return fmt.Sprintf("%d Hz, %d channel(s), %d bits-per-sample, %d samples", si.SampleRate, si.NChannels, si.BitsPerSample, si.NSamples)
}
