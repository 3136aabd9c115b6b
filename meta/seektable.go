package meta

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// PlaceholderPoint is the sample number used for seek point placeholders.
const PlaceholderPoint = 0xFFFFFFFFFFFFFFFF

// seekPointSize is the size in bytes of an encoded seek point.
const seekPointSize = 18

// SeekTable contains one or more pre-calculated audio frame seek points.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_seektable
type SeekTable struct {
	// One or more seek points.
	Points []SeekPoint
}

// parseSeekTable reads and parses the body of a SeekTable metadata block.
//
// SeekTable format (pseudo code):
//
//	type METADATA_BLOCK_SEEKTABLE struct {
//	   points [header.Length/18]SeekPoint
//	}
//
//	type SeekPoint struct {
//	   sample_num uint64
//	   offset     uint64
//	   n_samples  uint16
//	}
func (block *Block) parseSeekTable() error {
	// The number of seek points is derived from the header length, divided by
	// the size of a SeekPoint; which is 18 bytes.
	if block.Length%seekPointSize != 0 {
		return errors.Wrapf(ErrBlockLength, "seek table length %d not a multiple of %d", block.Length, seekPointSize)
	}
	n := block.Length / seekPointSize
	table := &SeekTable{Points: make([]SeekPoint, n)}
	var (
		prev     uint64
		havePrev bool
	)
	for i := range table.Points {
		point := &table.Points[i]
		if err := binary.Read(block.lr, binary.BigEndian, point); err != nil {
			return err
		}
		if point.SampleNum == PlaceholderPoint {
			continue
		}
		// Seek points within a table must be unique and sorted in ascending
		// order, except for placeholder points which come last.
		if havePrev && point.SampleNum <= prev {
			return errors.Errorf("meta: invalid seek point order; sample number %d follows %d", point.SampleNum, prev)
		}
		prev, havePrev = point.SampleNum, true
	}
	block.Body = table
	return nil
}

// A SeekPoint specifies the byte offset and initial sample number of a given
// target frame.
//
// ref: https://www.xiph.org/flac/format.html#seekpoint
type SeekPoint struct {
	// Sample number of the first sample in the target frame, or
	// 0xFFFFFFFFFFFFFFFF for a placeholder point.
	SampleNum uint64
	// Offset in bytes from the first byte of the first frame header to the first
	// byte of the target frame's header.
	Offset uint64
	// Number of samples in the target frame.
	NSamples uint16
}
