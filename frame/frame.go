// Package frame implements access to FLAC audio frames.
//
// A brief introduction of the FLAC audio format follows. FLAC encoders divide
// the audio stream into blocks through a process called blocking. A block
// contains the unencoded audio samples from all channels during a short period
// of time. Each audio block is divided into subblocks, one per channel.
//
// There is often a correlation between the left and right channel of stereo
// audio. Using inter-channel decorrelation it is possible to store only one of
// the channels and the difference between the channels, or store the average
// of the channels and their difference. An encoder decorrelates audio samples
// as follows:
//
//	mid = (left + right)/2 // average of the channels
//	side = left - right    // difference between the channels
//
// The blocks are encoded using a variety of prediction methods and stored in
// frames. Blocks and subblocks contain unencoded audio samples while frames and
// subframes contain encoded audio samples. A FLAC stream contains one or more
// audio frames.
package frame

import (
	"hash"
	"io"

	"github.com/audiodec/flac/internal/bits"
	"github.com/audiodec/flac/meta"
	"github.com/go-audio/audio"
	"github.com/pkg/errors"
)

// A Frame contains the header and subframes of an audio frame. It holds the
// encoded samples from a block (a part) of the audio stream. Each subframe
// holding the samples from one of its channel.
//
// ref: https://www.xiph.org/flac/format.html#frame
type Frame struct {
	// Audio frame header.
	Header
	// One subframe per channel, containing encoded audio samples.
	Subframes []*Subframe
	// CRC-16 checksum of the frame, read from the frame footer.
	CRC16 uint16
	// Bit reader positioned after the frame header.
	br *bits.Reader
	// Sample storage of the subframes; nil to allocate per frame.
	buf *Buffer
}

// New creates a new Frame for accessing the audio samples of r. It reads and
// parses an audio frame header. Call Frame.Parse to parse the audio samples of
// its subframes.
//
// Header fields which defer to the StreamInfo block are left unresolved; use a
// Decoder to decode frames of a stream.
func New(r io.Reader) (*Frame, error) {
	return newFrame(bits.NewReader(r), nil, nil)
}

// Parse reads and parses the header, and the audio samples from each subframe
// of a frame. If the samples are inter-channel decorrelated between the
// subframes, it correlates them. Use New for additional granularity.
func Parse(r io.Reader) (*Frame, error) {
	frame, err := New(r)
	if err != nil {
		return nil, err
	}
	if err := frame.Parse(); err != nil {
		return nil, err
	}
	return frame, nil
}

func newFrame(br *bits.Reader, info *meta.StreamInfo, buf *Buffer) (*Frame, error) {
	frame := &Frame{br: br, buf: buf}
	if err := frame.parseHeader(br, info); err != nil {
		return nil, err
	}
	return frame, nil
}

// Parse reads and parses the audio samples from each subframe of the frame,
// and verifies the CRC-16 of the frame footer. If the samples are inter-channel
// decorrelated between the subframes, it correlates them.
//
// ref: https://www.xiph.org/flac/format.html#interchannel
func (frame *Frame) Parse() error {
	n := int(frame.BlockSize)
	nchannels := frame.Channels.Count()
	frame.Subframes = make([]*Subframe, nchannels)
	side := frame.Channels.sideChannel()
	// Subframes are decoded in 64 bits, since the side channel of 32-bit audio
	// carries 33-bit samples.
	var wide [MaxChannels][]int64
	for channel := range frame.Subframes {
		// The side channel requires an extra bit per sample when using
		// inter-channel decorrelation.
		bps := uint(frame.BitsPerSample)
		if channel == side {
			bps++
		}
		if frame.buf != nil {
			wide[channel] = frame.buf.wideChannel(channel, n)
		} else {
			wide[channel] = make([]int64, n)
		}
		subframe, err := parseSubframe(frame.br, bps, wide[channel])
		if err != nil {
			return errors.WithMessagef(err, "subframe %d", channel)
		}
		frame.Subframes[channel] = subframe
	}

	// Inter-channel correlation of subframe samples.
	if side != -1 {
		Correlate(frame.Channels, wide[0], wide[1])
	}
	for channel, subframe := range frame.Subframes {
		var samples []int32
		if frame.buf != nil {
			samples = frame.buf.channel(channel, n)
		} else {
			samples = make([]int32, n)
		}
		for i, sample := range wide[channel] {
			samples[i] = int32(sample)
		}
		subframe.Samples = samples
	}

	// Zero-padding to byte alignment, then 2 bytes: CRC-16 checksum.
	frame.br.Align()
	got := frame.br.CRC16()
	x, err := frame.br.Read(16)
	if err != nil {
		return unexpected(err)
	}
	frame.CRC16 = uint16(x)
	if got != frame.CRC16 {
		return errors.Wrapf(ErrInvalidFrameCRC, "expected 0x%04X, got 0x%04X", frame.CRC16, got)
	}
	return nil
}

// Hash adds the decoded audio samples of the frame to a running MD5 hash. It
// can be used in conjunction with StreamInfo.MD5sum to verify the integrity of
// the decoded audio samples.
//
// Samples are interleaved and written as little-endian signed integers of
// (bits-per-sample + 7)/8 bytes each.
//
// Note: The audio samples of the frame must be decoded before calling Hash.
func (frame *Frame) Hash(md5sum hash.Hash) {
	var buf [4]byte
	width := (int(frame.BitsPerSample) + 7) / 8
	for i := 0; i < int(frame.BlockSize); i++ {
		for _, subframe := range frame.Subframes {
			sample := subframe.Samples[i]
			for j := 0; j < width; j++ {
				buf[j] = uint8(sample >> (8 * j))
			}
			md5sum.Write(buf[:width])
		}
	}
}

// IntBuffer returns the decoded audio samples of the frame as an interleaved
// PCM buffer.
func (frame *Frame) IntBuffer() *audio.IntBuffer {
	nchannels := len(frame.Subframes)
	data := make([]int, 0, nchannels*int(frame.BlockSize))
	for i := 0; i < int(frame.BlockSize); i++ {
		for _, subframe := range frame.Subframes {
			data = append(data, int(subframe.Samples[i]))
		}
	}
	return &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: nchannels,
			SampleRate:  int(frame.SampleRate),
		},
		Data:           data,
		SourceBitDepth: int(frame.BitsPerSample),
	}
}

// A Buffer holds the per-channel sample storage of decoded frames. It is
// reused across frames, so the samples of a frame are only valid until the
// next frame is parsed into the same buffer.
type Buffer struct {
	channels [MaxChannels][]int32
	// Working storage of subframe decoding.
	wide [MaxChannels][]int64
}

// NewBuffer returns a buffer with storage preallocated for nchannels channels
// of blockSize samples each.
func NewBuffer(nchannels, blockSize int) *Buffer {
	buf := new(Buffer)
	for i := 0; i < nchannels && i < MaxChannels; i++ {
		buf.channels[i] = make([]int32, blockSize)
		buf.wide[i] = make([]int64, blockSize)
	}
	return buf
}

// channel returns storage for n samples of the given channel, growing it if
// needed.
func (buf *Buffer) channel(i, n int) []int32 {
	if cap(buf.channels[i]) < n {
		buf.channels[i] = make([]int32, n)
	}
	return buf.channels[i][:n]
}

// wideChannel returns working storage for n samples of the given channel.
func (buf *Buffer) wideChannel(i, n int) []int64 {
	if cap(buf.wide[i]) < n {
		buf.wide[i] = make([]int64, n)
	}
	return buf.wide[i][:n]
}
