// Package flac provides access to FLAC (Free Lossless Audio Codec) streams.
//
// A brief introduction of the FLAC stream format [1] follows. Each FLAC stream
// starts with a 32-bit signature ("fLaC"), followed by one or more metadata
// blocks, and then one or more audio frames. The first metadata block
// (StreamInfo) describes the basic properties of the audio stream and it is the
// only mandatory metadata block. Subsequent metadata blocks may appear in an
// arbitrary order.
//
// Please refer to the documentation of the meta and the frame packages for a
// brief introduction of their respective formats.
//
//	[1]: https://www.xiph.org/flac/format.html#stream
package flac

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"hash"
	"io"
	"os"

	"github.com/audiodec/flac/frame"
	"github.com/audiodec/flac/internal/bufseekio"
	"github.com/audiodec/flac/meta"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

// A Stream contains the metadata blocks and provides access to the audio frames
// of a FLAC stream.
//
// A Stream is not safe for concurrent use.
//
// ref: https://www.xiph.org/flac/format.html#stream
type Stream struct {
	// The StreamInfo metadata block describes the basic properties of the FLAC
	// audio stream.
	Info *meta.StreamInfo
	// Zero or more metadata blocks following StreamInfo.
	Blocks []*meta.Block

	// seekTable contains one or more pre-calculated audio frame seek points of
	// the stream; nil if uninitialized.
	seekTable *meta.SeekTable
	// dataStart is the offset of the first frame header since SeekPoint.Offset
	// is relative to this position.
	dataStart int64
	// Running total of inter-channel samples decoded so far.
	samplesDecoded uint64
	// Set after a frame shorter than StreamInfo.BlockSizeMin, which is only
	// permitted as the last frame.
	short bool

	// Running MD5 hash of decoded audio samples; nil if disabled.
	md5sum hash.Hash
	// Set once hashing no longer covers the stream from its first frame.
	md5Skipped bool
	// Set by Resync; samplesDecoded is recovered from the next frame header.
	resynced bool
	// Decode into freshly allocated sample slices.
	copySamples bool
	logger      *log.Logger

	// Underlying io.Reader, or io.ReadCloser.
	r io.Reader
	// Buffered source of metadata and frames.
	src io.Reader
	// Seekable source; nil unless created by NewSeek.
	rs  *bufseekio.ReadSeeker
	dec *frame.Decoder
}

var (
	// flacSignature marks the beginning of a FLAC stream.
	flacSignature = []byte("fLaC")

	// id3Signature marks the beginning of an ID3 stream, used to skip over ID3
	// data.
	id3Signature = []byte("ID3")
)

// New creates a new Stream for accessing the audio samples of r. It reads and
// parses the FLAC signature and all metadata blocks.
//
// Call Stream.Next to parse the frame header of the next audio frame, and call
// Stream.ParseNext to parse the entire next frame including audio samples.
func New(r io.Reader, opts ...Option) (*Stream, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	stream := newStream(r, br, opts)
	if err := stream.parseMetadata(); err != nil {
		return nil, err
	}
	stream.init()
	return stream, nil
}

// NewSeek returns a Stream that has seeking enabled. The incoming io.ReadSeeker
// is buffered internally.
func NewSeek(rs io.ReadSeeker, opts ...Option) (*Stream, error) {
	brs := bufseekio.NewReadSeeker(rs)
	stream := newStream(rs, brs, opts)
	stream.rs = brs
	if err := stream.parseMetadata(); err != nil {
		return nil, err
	}
	// Record file offset of the first frame header.
	stream.dataStart = brs.Offset()
	stream.init()
	return stream, nil
}

// Open creates a new Stream for accessing the audio samples of path. It reads
// and parses the FLAC signature and all metadata blocks. The stream supports
// seeking.
//
// Note: The Close method of the stream must be called when finished using it.
func Open(path string, opts ...Option) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	stream, err := NewSeek(f, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	return stream, nil
}

// ParseFile creates a new Stream for accessing the metadata blocks and audio
// samples of path, reading it sequentially.
//
// Note: The Close method of the stream must be called when finished using it.
func ParseFile(path string, opts ...Option) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	stream, err := New(f, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	return stream, nil
}

// Close closes the stream gracefully if the underlying io.Reader also
// implements the io.Closer interface.
func (stream *Stream) Close() error {
	if closer, ok := stream.r.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func newStream(r, src io.Reader, opts []Option) *Stream {
	stream := &Stream{r: r, src: src}
	for _, opt := range opts {
		opt(stream)
	}
	if stream.logger == nil {
		stream.logger = log.New(io.Discard)
	}
	return stream
}

// init prepares the frame decoder, once the metadata has been parsed.
func (stream *Stream) init() {
	var buf *frame.Buffer
	if !stream.copySamples {
		buf = frame.NewBuffer(int(stream.Info.NChannels), int(stream.Info.BlockSizeMax))
	}
	stream.dec = frame.NewDecoder(stream.src, stream.Info, buf)
	if stream.md5sum != nil && stream.Info.MD5sum == [md5.Size]byte{} {
		stream.logger.Warn("MD5 verification disabled; StreamInfo holds no MD5 signature")
		stream.md5sum = nil
	}
}

// parseMetadata verifies the signature which marks the beginning of a FLAC
// stream, and parses the StreamInfo and all following metadata blocks.
func (stream *Stream) parseMetadata() error {
	// Verify FLAC signature.
	var buf [4]byte
	if _, err := io.ReadFull(stream.src, buf[:]); err != nil {
		return errors.Wrap(err, "flac: unable to read signature")
	}

	// Skip prepended ID3v2 data.
	if bytes.Equal(buf[:3], id3Signature) {
		if err := stream.skipID3v2(); err != nil {
			return err
		}
		// Second attempt at verifying signature.
		if _, err := io.ReadFull(stream.src, buf[:]); err != nil {
			return errors.Wrap(err, "flac: unable to read signature")
		}
	}
	if !bytes.Equal(buf[:], flacSignature) {
		return errors.Wrapf(ErrInvalidSignature, "expected %q, got %q", flacSignature, buf[:])
	}

	mr := meta.NewReader(stream.src)
	for {
		block, err := mr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch body := block.Body.(type) {
		case *meta.StreamInfo:
			if stream.Info != nil {
				return errors.New("flac: multiple StreamInfo metadata blocks")
			}
			stream.Info = body
			stream.logger.Debug("stream info", "rate", body.SampleRate, "channels", body.NChannels, "bps", body.BitsPerSample, "samples", body.NSamples)
			continue
		case *meta.SeekTable:
			stream.seekTable = body
		case *meta.Unknown:
			stream.logger.Debug("skipped metadata block", "type", uint8(body.Type), "length", block.Length)
		}
		stream.Blocks = append(stream.Blocks, block)
	}
}

// skipID3v2 skips ID3v2 data prepended to flac files. The first four bytes of
// the ID3v2 header have already been read.
//
// ref: https://id3.org/id3v2.4.0-structure
func (stream *Stream) skipID3v2() error {
	// 1 byte: revision; 1 byte: flags; 4 bytes: size.
	var hdr [6]byte
	if _, err := io.ReadFull(stream.src, hdr[:]); err != nil {
		return errors.Wrap(unexpected(err), "flac: unable to read ID3v2 header")
	}
	// The size is encoded as a synchsafe integer, and excludes the header and
	// footer.
	size := int64(hdr[2])<<21 | int64(hdr[3])<<14 | int64(hdr[4])<<7 | int64(hdr[5])
	if hdr[1]&0x10 != 0 {
		size += 10
	}
	stream.logger.Debug("skipping ID3v2 tag", "size", size)
	if _, err := io.CopyN(io.Discard, stream.src, size); err != nil {
		return errors.Wrap(unexpected(err), "flac: unable to skip ID3v2 data")
	}
	return nil
}

// Next parses the frame header of the next audio frame. It returns io.EOF to
// signal a graceful end of FLAC stream.
//
// Call Frame.Parse to parse the audio samples of its subframes. Frames parsed
// this way are not covered by MD5 verification.
func (stream *Stream) Next() (*frame.Frame, error) {
	f, err := stream.next()
	if err != nil {
		return nil, err
	}
	stream.md5Skipped = true
	return f, nil
}

// ParseNext parses the entire next frame including audio samples. It returns
// io.EOF to signal a graceful end of FLAC stream, which is either the end of
// the source or the point at which StreamInfo.NSamples samples have been
// decoded.
//
// Unless the stream was created with the CopySamples option, the samples of the
// returned frame are only valid until the next call to Next or ParseNext.
func (stream *Stream) ParseNext() (*frame.Frame, error) {
	f, err := stream.next()
	if err != nil {
		if err == io.EOF {
			return nil, stream.verify()
		}
		stream.md5Skipped = true
		return nil, err
	}
	if err := f.Parse(); err != nil {
		stream.md5Skipped = true
		return nil, err
	}
	if stream.md5sum != nil {
		f.Hash(stream.md5sum)
	}
	return f, nil
}

// next parses the next frame header and validates it against StreamInfo.
func (stream *Stream) next() (*frame.Frame, error) {
	if n := stream.Info.NSamples; n != 0 && stream.samplesDecoded >= n {
		return nil, io.EOF
	}
	f, err := stream.dec.Next()
	if err == io.EOF {
		if n := stream.Info.NSamples; n != 0 && stream.samplesDecoded < n {
			stream.logger.Warn("stream truncated", "decoded", stream.samplesDecoded, "samples", n)
			return nil, errors.Wrapf(io.ErrUnexpectedEOF, "flac: stream ends after %d of %d samples", stream.samplesDecoded, n)
		}
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	if stream.resynced {
		stream.samplesDecoded = stream.firstSample(f)
		stream.resynced = false
	}
	if err := stream.check(f); err != nil {
		return nil, err
	}
	stream.samplesDecoded += uint64(f.BlockSize)
	return f, nil
}

// firstSample returns the number of the first sample of f. The frame number of
// a fixed block size frame counts frames of StreamInfo.BlockSizeMin samples.
func (stream *Stream) firstSample(f *frame.Frame) uint64 {
	if n, ok := f.FrameNumber(); ok && stream.Info.BlockSizeMin != 0 {
		return n * uint64(stream.Info.BlockSizeMin)
	}
	return f.SampleNumber()
}

// check validates the frame header against StreamInfo.
func (stream *Stream) check(f *frame.Frame) error {
	info := stream.Info
	// Callers typically allocate buffers and interleave samples based on
	// StreamInfo.NChannels.
	if got, want := f.Channels.Count(), int(info.NChannels); got != want {
		return errors.Wrapf(ErrChannelCount, "frame has %d channels, StreamInfo has %d", got, want)
	}
	if maxSize := info.BlockSizeMax; maxSize != 0 && f.BlockSize > maxSize {
		return errors.Wrapf(ErrBlockSize, "block size %d exceeds maximum %d", f.BlockSize, maxSize)
	}
	if stream.short {
		return errors.Wrapf(ErrBlockSize, "frame follows a frame shorter than the minimum block size %d", info.BlockSizeMin)
	}
	if minSize := info.BlockSizeMin; minSize != 0 && f.BlockSize < minSize {
		// Only permitted for the last frame.
		stream.short = true
	}
	if n := info.NSamples; n != 0 && stream.samplesDecoded+uint64(f.BlockSize) > n {
		return errors.Wrapf(ErrSampleCount, "decoded samples (%d) exceed StreamInfo.NSamples (%d)", stream.samplesDecoded+uint64(f.BlockSize), n)
	}
	return nil
}

// verify compares the MD5 hash of the decoded audio samples with the one
// stored in StreamInfo, once the end of the stream has been reached. It returns
// io.EOF if they match or if verification is disabled.
func (stream *Stream) verify() error {
	if stream.md5sum == nil {
		return io.EOF
	}
	md5sum := stream.md5sum
	stream.md5sum = nil
	if stream.md5Skipped {
		stream.logger.Warn("MD5 verification skipped; stream was not decoded sequentially")
		return io.EOF
	}
	want := stream.Info.MD5sum[:]
	if got := md5sum.Sum(nil); !bytes.Equal(got, want) {
		return errors.Wrapf(ErrMD5Mismatch, "expected %032x, got %032x", want, got)
	}
	return io.EOF
}

// Resync discards input until the next frame sync code, after a call to Next
// or ParseNext has failed. The following call to Next or ParseNext decodes the
// frame located there. It returns the number of bytes skipped.
func (stream *Stream) Resync() (int64, error) {
	skipped, err := stream.dec.Resync()
	if err != nil {
		return skipped, err
	}
	stream.md5Skipped = true
	stream.short = false
	stream.resynced = true
	stream.logger.Debug("resynchronised", "skipped", skipped)
	return skipped, nil
}

// unexpected returns io.ErrUnexpectedEOF if err is io.EOF, and returns err
// otherwise.
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
