package flac

import (
	"io"

	"github.com/audiodec/flac/meta"
	"github.com/pkg/errors"
)

// Seek seeks to the frame containing the given absolute sample number. The
// return value specifies the first sample number of the frame containing
// sampleNum; the next call to ParseNext decodes that frame.
//
// The SeekTable metadata block is used to locate a nearby frame. If the stream
// has no seek table, one is built by scanning all frames of the stream.
func (stream *Stream) Seek(sampleNum uint64) (uint64, error) {
	if stream.rs == nil {
		return 0, ErrNoSeeker
	}
	if n := stream.Info.NSamples; n != 0 && sampleNum >= n {
		return 0, errors.Wrapf(ErrSeekRange, "unable to seek to sample number %d of %d", sampleNum, n)
	}
	if !hasPoints(stream.seekTable) {
		if err := stream.makeSeekTable(); err != nil {
			return 0, err
		}
	}
	point := searchFromStart(stream.seekTable, sampleNum)
	if err := stream.seekTo(stream.dataStart + int64(point.Offset)); err != nil {
		return 0, err
	}

	// Scan forward from the seek point to the frame containing sampleNum.
	sample := point.SampleNum
	for {
		// Record seek offset to start of frame.
		offset := stream.rs.Offset()
		f, err := stream.dec.Next()
		if err == io.EOF {
			return 0, errors.Wrapf(ErrSeekRange, "sample number %d beyond end of stream", sampleNum)
		}
		if err != nil {
			return 0, err
		}
		if err := f.Parse(); err != nil {
			return 0, err
		}
		if sample+uint64(f.BlockSize) > sampleNum {
			// Restore seek offset to the start of the frame containing the
			// specified sample number.
			if err := stream.seekTo(offset); err != nil {
				return 0, err
			}
			stream.samplesDecoded = sample
			stream.short = false
			stream.resynced = false
			stream.md5Skipped = true
			stream.logger.Debug("seek", "sample", sampleNum, "frame", sample, "offset", offset)
			return sample, nil
		}
		sample += uint64(f.BlockSize)
	}
}

// seekTo repositions the stream at the given offset from the start of the
// source.
func (stream *Stream) seekTo(offset int64) error {
	if _, err := stream.rs.Seek(offset, io.SeekStart); err != nil {
		return errors.WithStack(err)
	}
	stream.dec.Reset(stream.rs)
	return nil
}

// hasPoints reports whether the seek table contains any seek point which is
// not a placeholder.
func hasPoints(table *meta.SeekTable) bool {
	if table == nil {
		return false
	}
	for _, point := range table.Points {
		if point.SampleNum != meta.PlaceholderPoint {
			return true
		}
	}
	return false
}

// searchFromStart returns the last seek point at or before the given sample
// number. Placeholder points are ignored. If every point follows the sample
// number, a seek point to the first frame is returned.
func searchFromStart(table *meta.SeekTable, sampleNum uint64) meta.SeekPoint {
	var prev meta.SeekPoint
	for _, point := range table.Points {
		if point.SampleNum == meta.PlaceholderPoint {
			continue
		}
		if point.SampleNum > sampleNum {
			break
		}
		prev = point
	}
	return prev
}

// makeSeekTable creates a seek table with seek points to each frame of the FLAC
// stream. The stream is left positioned at an arbitrary frame.
func (stream *Stream) makeSeekTable() error {
	if err := stream.seekTo(stream.dataStart); err != nil {
		return err
	}
	var sampleNum uint64
	var points []meta.SeekPoint
	for {
		// Record seek offset to start of frame.
		off := stream.rs.Offset()
		f, err := stream.dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := f.Parse(); err != nil {
			return err
		}
		points = append(points, meta.SeekPoint{
			SampleNum: sampleNum,
			Offset:    uint64(off - stream.dataStart),
			NSamples:  f.BlockSize,
		})
		sampleNum += uint64(f.BlockSize)
	}
	if len(points) == 0 {
		return ErrNoSeekTable
	}
	stream.seekTable = &meta.SeekTable{Points: points}
	stream.logger.Debug("built seek table", "points", len(points), "samples", sampleNum)
	return nil
}
