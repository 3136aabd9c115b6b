package flactest

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/audiodec/flac/meta"
	"github.com/icza/bitio"
	"github.com/mewkiz/pkg/errutil"
)

// EncodeBlock writes the metadata block to w. The length of the block header
// is computed from the body; Padding and Unknown blocks are written as
// Header.Length zero bytes.
func EncodeBlock(w io.Writer, block *meta.Block) error {
	body := new(bytes.Buffer)
	bw := bitio.NewWriter(body)
	hdr := block.Header
	var err error
	switch b := block.Body.(type) {
	case *meta.StreamInfo:
		err = encodeStreamInfo(bw, b)
	case *meta.Application:
		err = encodeApplication(bw, b)
	case *meta.SeekTable:
		err = encodeSeekTable(bw, b)
	case *meta.VorbisComment:
		err = encodeVorbisComment(bw, b)
	case *meta.CueSheet:
		err = encodeCueSheet(bw, b)
	case *meta.Picture:
		err = encodePicture(bw, b)
	default:
		_, err = bw.Write(make([]byte, hdr.Length))
	}
	if err != nil {
		return errutil.Err(err)
	}
	if err := bw.Close(); err != nil {
		return errutil.Err(err)
	}
	hdr.Length = int64(body.Len())

	// 1 bit: IsLast; 7 bits: Type; 24 bits: Length.
	x := uint32(hdr.Type)<<24 | uint32(hdr.Length)
	if hdr.IsLast {
		x |= 1 << 31
	}
	if err := binary.Write(w, binary.BigEndian, x); err != nil {
		return errutil.Err(err)
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return errutil.Err(err)
	}
	return nil
}

// encodeStreamInfo writes the body of a StreamInfo metadata block.
func encodeStreamInfo(bw *bitio.Writer, si *meta.StreamInfo) error {
	fields := []struct {
		x uint64
		n uint8
	}{
		{uint64(si.BlockSizeMin), 16},
		{uint64(si.BlockSizeMax), 16},
		{uint64(si.FrameSizeMin), 24},
		{uint64(si.FrameSizeMax), 24},
		{uint64(si.SampleRate), 20},
		// Stored as (number of channels) - 1.
		{uint64(si.NChannels - 1), 3},
		// Stored as (bits-per-sample) - 1.
		{uint64(si.BitsPerSample - 1), 5},
		{si.NSamples, 36},
	}
	for _, field := range fields {
		if err := bw.WriteBits(field.x, field.n); err != nil {
			return errutil.Err(err)
		}
	}
	// 16 bytes: MD5sum.
	if _, err := bw.Write(si.MD5sum[:]); err != nil {
		return errutil.Err(err)
	}
	return nil
}

// encodeApplication writes the body of an Application metadata block.
func encodeApplication(bw *bitio.Writer, app *meta.Application) error {
	id := make([]byte, 4)
	copy(id, app.ID)
	if _, err := bw.Write(id); err != nil {
		return errutil.Err(err)
	}
	if _, err := bw.Write(app.Data); err != nil {
		return errutil.Err(err)
	}
	return nil
}

// encodeSeekTable writes the body of a SeekTable metadata block.
func encodeSeekTable(bw *bitio.Writer, table *meta.SeekTable) error {
	for _, point := range table.Points {
		if err := binary.Write(bw, binary.BigEndian, point); err != nil {
			return errutil.Err(err)
		}
	}
	return nil
}

// encodeVorbisComment writes the body of a VorbisComment metadata block.
func encodeVorbisComment(bw *bitio.Writer, comment *meta.VorbisComment) error {
	// 32 bits: vendor length; (vendor length) bytes: vendor.
	if err := writeLE(bw, []byte(comment.Vendor)); err != nil {
		return errutil.Err(err)
	}
	// 32 bits: number of tags.
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(comment.Tags))); err != nil {
		return errutil.Err(err)
	}
	for _, tag := range comment.Tags {
		// Each tag has the format NAME=VALUE.
		if err := writeLE(bw, []byte(tag[0]+"="+tag[1])); err != nil {
			return errutil.Err(err)
		}
	}
	return nil
}

// writeLE writes buf prefixed by its 32-bit little-endian length.
func writeLE(bw *bitio.Writer, buf []byte) error {
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(buf))); err != nil {
		return errutil.Err(err)
	}
	if _, err := bw.Write(buf); err != nil {
		return errutil.Err(err)
	}
	return nil
}

// encodeCueSheet writes the body of a CueSheet metadata block.
func encodeCueSheet(bw *bitio.Writer, cs *meta.CueSheet) error {
	// 128 bytes: MCN.
	mcn := make([]byte, 128)
	copy(mcn, cs.MCN)
	if _, err := bw.Write(mcn); err != nil {
		return errutil.Err(err)
	}
	// 64 bits: NLeadInSamples.
	if err := bw.WriteBits(cs.NLeadInSamples, 64); err != nil {
		return errutil.Err(err)
	}
	// 1 bit: IsCompactDisc; 7 bits and 258 bytes: reserved.
	if err := bw.WriteBool(cs.IsCompactDisc); err != nil {
		return errutil.Err(err)
	}
	if err := bw.WriteBits(0, 7); err != nil {
		return errutil.Err(err)
	}
	if _, err := bw.Write(make([]byte, 258)); err != nil {
		return errutil.Err(err)
	}
	// 8 bits: (number of tracks).
	if err := bw.WriteByte(uint8(len(cs.Tracks))); err != nil {
		return errutil.Err(err)
	}
	for _, track := range cs.Tracks {
		// 64 bits: Offset; 8 bits: Num.
		if err := bw.WriteBits(track.Offset, 64); err != nil {
			return errutil.Err(err)
		}
		if err := bw.WriteByte(track.Num); err != nil {
			return errutil.Err(err)
		}
		// 12 bytes: ISRC.
		isrc := make([]byte, 12)
		copy(isrc, track.ISRC)
		if _, err := bw.Write(isrc); err != nil {
			return errutil.Err(err)
		}
		// 1 bit: is data; 1 bit: HasPreEmphasis; 6 bits and 13 bytes: reserved.
		if err := bw.WriteBool(!track.IsAudio); err != nil {
			return errutil.Err(err)
		}
		if err := bw.WriteBool(track.HasPreEmphasis); err != nil {
			return errutil.Err(err)
		}
		if err := bw.WriteBits(0, 6); err != nil {
			return errutil.Err(err)
		}
		if _, err := bw.Write(make([]byte, 13)); err != nil {
			return errutil.Err(err)
		}
		// 8 bits: (number of indicies).
		if err := bw.WriteByte(uint8(len(track.Indicies))); err != nil {
			return errutil.Err(err)
		}
		for _, index := range track.Indicies {
			// 64 bits: Offset; 8 bits: Num; 3 bytes: reserved.
			if err := bw.WriteBits(index.Offset, 64); err != nil {
				return errutil.Err(err)
			}
			if err := bw.WriteByte(index.Num); err != nil {
				return errutil.Err(err)
			}
			if _, err := bw.Write(make([]byte, 3)); err != nil {
				return errutil.Err(err)
			}
		}
	}
	return nil
}

// encodePicture writes the body of a Picture metadata block.
func encodePicture(bw *bitio.Writer, pic *meta.Picture) error {
	// 32 bits: Type.
	if err := bw.WriteBits(uint64(pic.Type), 32); err != nil {
		return errutil.Err(err)
	}
	// 32 bits: (MIME type length); (MIME type length) bytes: MIME.
	if err := writeBE(bw, []byte(pic.MIME)); err != nil {
		return errutil.Err(err)
	}
	// 32 bits: (description length); (description length) bytes: Desc.
	if err := writeBE(bw, []byte(pic.Desc)); err != nil {
		return errutil.Err(err)
	}
	// 32 bits each: Width, Height, Depth, NPalColors.
	for _, x := range []uint32{pic.Width, pic.Height, pic.Depth, pic.NPalColors} {
		if err := bw.WriteBits(uint64(x), 32); err != nil {
			return errutil.Err(err)
		}
	}
	// 32 bits: (data length); (data length) bytes: Data.
	if err := writeBE(bw, pic.Data); err != nil {
		return errutil.Err(err)
	}
	return nil
}

// writeBE writes buf prefixed by its 32-bit big-endian length.
func writeBE(bw *bitio.Writer, buf []byte) error {
	if err := bw.WriteBits(uint64(len(buf)), 32); err != nil {
		return errutil.Err(err)
	}
	if _, err := bw.Write(buf); err != nil {
		return errutil.Err(err)
	}
	return nil
}
