package flac_test

import (
	"bytes"
	"crypto/md5"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/audiodec/flac"
	"github.com/audiodec/flac/frame"
	"github.com/audiodec/flac/internal/flactest"
	"github.com/audiodec/flac/meta"
	"github.com/charmbracelet/log"
)

// testStream is an in-memory FLAC stream of stereo 16-bit audio.
type testStream struct {
	info   *meta.StreamInfo
	frames []*frame.Frame
	// Offset of each frame relative to the first frame header.
	offsets []int64
}

// newTestStream returns a stream of n frames of blockSize samples, followed by
// a frame of lastSize samples if lastSize > 0.
func newTestStream(n int, blockSize, lastSize uint16) *testStream {
	ts := &testStream{
		info: &meta.StreamInfo{
			BlockSizeMin:  blockSize,
			BlockSizeMax:  blockSize,
			SampleRate:    44100,
			NChannels:     2,
			BitsPerSample: 16,
		},
	}
	sizes := make([]uint16, n)
	for i := range sizes {
		sizes[i] = blockSize
	}
	if lastSize > 0 {
		sizes = append(sizes, lastSize)
	}
	channels := []frame.Channels{frame.ChannelsLR, frame.ChannelsMidSide, frame.ChannelsLeftSide, frame.ChannelsSideRight}
	var offset int64
	md5sum := md5.New()
	for i, size := range sizes {
		left := make([]int32, size)
		right := make([]int32, size)
		for j := range left {
			x := int(ts.info.NSamples) + j
			left[j] = int32(x*37%2000 - 1000)
			right[j] = int32(x*101%30000-15000) / 2
		}
		hdr := frame.Header{
			HasFixedBlockSize: true,
			SampleRate:        44100,
			Channels:          channels[i%len(channels)],
			BitsPerSample:     16,
			Num:               uint64(i),
		}
		f := flactest.NewFrame(hdr, flactest.Fixed(2, left), flactest.Verbatim(right))
		f.Hash(md5sum)
		ts.frames = append(ts.frames, f)
		ts.offsets = append(ts.offsets, offset)
		offset += int64(len(flactest.Frame(f)))
		ts.info.NSamples += uint64(size)
	}
	copy(ts.info.MD5sum[:], md5sum.Sum(nil))
	return ts
}

func (ts *testStream) bytes(blocks ...*meta.Block) []byte {
	return flactest.Stream(ts.info, blocks, ts.frames...)
}

// decodeAll decodes every frame of the stream, and returns the error which
// ended decoding.
func decodeAll(t *testing.T, stream *flac.Stream, want []*frame.Frame) error {
	t.Helper()
	for i := 0; ; i++ {
		f, err := stream.ParseNext()
		if err != nil {
			if i != len(want) && err == io.EOF {
				t.Errorf("frame count mismatch; expected %d, got %d", len(want), i)
			}
			return err
		}
		if i >= len(want) {
			t.Fatalf("unexpected frame %d", i)
		}
		for j, sub := range f.Subframes {
			if !reflect.DeepEqual(sub.Samples, want[i].Subframes[j].Samples) {
				t.Errorf("frame %d, subframe %d: samples mismatch", i, j)
			}
		}
	}
}

func TestParseNext(t *testing.T) {
	ts := newTestStream(4, 256, 100)
	blocks := []*meta.Block{
		{Header: meta.Header{Type: meta.TypeVorbisComment}, Body: &meta.VorbisComment{Vendor: "test", Tags: [][2]string{{"TITLE", "sine"}}}},
		{Header: meta.Header{Type: meta.TypePadding, Length: 10}},
	}
	stream, err := flac.New(bytes.NewReader(ts.bytes(blocks...)), flac.VerifyMD5)
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()
	if !reflect.DeepEqual(stream.Info, ts.info) {
		t.Errorf("StreamInfo mismatch; expected %v, got %v", ts.info, stream.Info)
	}
	if len(stream.Blocks) != 2 {
		t.Fatalf("block count mismatch; expected 2, got %d", len(stream.Blocks))
	}
	if got := stream.Blocks[0].Type; got != meta.TypeVorbisComment {
		t.Errorf("block 0: type mismatch; expected %v, got %v", meta.TypeVorbisComment, got)
	}
	if got := stream.Blocks[1].Type; got != meta.TypePadding {
		t.Errorf("block 1: type mismatch; expected %v, got %v", meta.TypePadding, got)
	}
	// io.EOF is only returned if the MD5 checksum matches.
	if err := decodeAll(t, stream, ts.frames); err != io.EOF {
		t.Errorf("error mismatch; expected %v, got %v", io.EOF, err)
	}
	if _, err := stream.ParseNext(); err != io.EOF {
		t.Errorf("error mismatch after end of stream; expected %v, got %v", io.EOF, err)
	}
}

func TestNext(t *testing.T) {
	ts := newTestStream(2, 192, 0)
	stream, err := flac.New(bytes.NewReader(ts.bytes()))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		f, err := stream.Next()
		if err != nil {
			t.Fatal(err)
		}
		if f.BlockSize != 192 || f.Channels != ts.frames[i].Channels {
			t.Errorf("frame %d: header mismatch; got %+v", i, f.Header)
		}
		if err := f.Parse(); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := stream.Next(); err != io.EOF {
		t.Errorf("error mismatch; expected %v, got %v", io.EOF, err)
	}
}

func TestVerifyMD5Mismatch(t *testing.T) {
	ts := newTestStream(2, 256, 0)
	ts.info.MD5sum[0] ^= 0xFF
	stream, err := flac.New(bytes.NewReader(ts.bytes()), flac.VerifyMD5)
	if err != nil {
		t.Fatal(err)
	}
	if err := decodeAll(t, stream, ts.frames); !errors.Is(err, flac.ErrMD5Mismatch) {
		t.Errorf("error mismatch; expected %v, got %v", flac.ErrMD5Mismatch, err)
	}
}

func TestSkipID3v2(t *testing.T) {
	ts := newTestStream(1, 256, 0)
	id3 := []byte{'I', 'D', '3', 0x04, 0x00, 0x00, 0x00, 0x00, 0x01, 0x05}
	id3 = append(id3, make([]byte, 0x85)...)
	stream, err := flac.New(bytes.NewReader(append(id3, ts.bytes()...)))
	if err != nil {
		t.Fatal(err)
	}
	if err := decodeAll(t, stream, ts.frames); err != io.EOF {
		t.Errorf("error mismatch; expected %v, got %v", io.EOF, err)
	}
}

func TestNewErrors(t *testing.T) {
	ts := newTestStream(1, 256, 0)
	valid := ts.bytes()
	golden := []struct {
		in   []byte
		want error
	}{
		{in: []byte("fLaX"), want: flac.ErrInvalidSignature},
		{in: []byte("fL"), want: io.ErrUnexpectedEOF},
		{in: []byte("ID3\x04\x00\x00\x00\x00\x01"), want: io.ErrUnexpectedEOF},
		{in: valid[:20], want: io.ErrUnexpectedEOF},
		{in: append([]byte("fLaC"), 0x81, 0, 0, 0), want: meta.ErrFirstNotStreamInfo},
	}
	for i, g := range golden {
		_, err := flac.New(bytes.NewReader(g.in))
		if !errors.Is(err, g.want) {
			t.Errorf("i=%d: error mismatch; expected %v, got %v", i, g.want, err)
		}
	}
}

func TestNSamples(t *testing.T) {
	// Frames past StreamInfo.NSamples are not decoded.
	ts := newTestStream(4, 256, 0)
	ts.info.NSamples = 512
	stream, err := flac.New(bytes.NewReader(ts.bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if err := decodeAll(t, stream, ts.frames[:2]); err != io.EOF {
		t.Errorf("error mismatch; expected %v, got %v", io.EOF, err)
	}

	// A frame straddling StreamInfo.NSamples is reported.
	ts.info.NSamples = 600
	stream, err = flac.New(bytes.NewReader(ts.bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if err := decodeAll(t, stream, ts.frames[:2]); !errors.Is(err, flac.ErrSampleCount) {
		t.Errorf("error mismatch; expected %v, got %v", flac.ErrSampleCount, err)
	}
}

func TestTruncated(t *testing.T) {
	// A stream ending at a frame boundary before StreamInfo.NSamples samples
	// is truncated.
	ts := newTestStream(3, 256, 0)
	data := ts.bytes()
	end := len(data) - len(flactest.Frame(ts.frames[2]))
	buf := new(bytes.Buffer)
	stream, err := flac.New(bytes.NewReader(data[:end]), flac.WithLogger(log.New(buf)))
	if err != nil {
		t.Fatal(err)
	}
	if err := decodeAll(t, stream, ts.frames[:2]); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("error mismatch; expected %v, got %v", io.ErrUnexpectedEOF, err)
	}
	if !strings.Contains(buf.String(), "stream truncated") {
		t.Errorf("expected truncation to be logged; got %q", buf.String())
	}

	// Without a sample count, the end of the source ends the stream.
	ts.info.NSamples = 0
	data = ts.bytes()
	end = len(data) - len(flactest.Frame(ts.frames[2]))
	stream, err = flac.New(bytes.NewReader(data[:end]))
	if err != nil {
		t.Fatal(err)
	}
	if err := decodeAll(t, stream, ts.frames[:2]); err != io.EOF {
		t.Errorf("error mismatch; expected %v, got %v", io.EOF, err)
	}
}

func TestFrameChecks(t *testing.T) {
	golden := []struct {
		modify func(ts *testStream)
		// Number of frames decoded before the error.
		n    int
		want error
	}{
		{
			modify: func(ts *testStream) { ts.info.NChannels = 1 },
			n:      0,
			want:   flac.ErrChannelCount,
		},
		{
			modify: func(ts *testStream) { ts.info.BlockSizeMin, ts.info.BlockSizeMax = 64, 128 },
			n:      0,
			want:   flac.ErrBlockSize,
		},
		{
			// A short frame is only permitted as the last frame.
			modify: func(ts *testStream) {
				ts.frames[1], ts.frames[3] = ts.frames[3], ts.frames[1]
			},
			n:    2,
			want: flac.ErrBlockSize,
		},
	}
	for i, g := range golden {
		ts := newTestStream(3, 256, 100)
		g.modify(ts)
		stream, err := flac.New(bytes.NewReader(ts.bytes()))
		if err != nil {
			t.Fatalf("i=%d: %v", i, err)
		}
		err = decodeAll(t, stream, ts.frames[:g.n])
		if !errors.Is(err, g.want) {
			t.Errorf("i=%d: error mismatch; expected %v, got %v", i, g.want, err)
		}
	}
}

func TestResync(t *testing.T) {
	ts := newTestStream(3, 256, 0)
	data := ts.bytes()
	// Insert corrupt data before the second frame.
	pos := len(data) - int(ts.offsets[2]-ts.offsets[1]) - len(flactest.Frame(ts.frames[2]))
	corrupt := append([]byte(nil), data[:pos]...)
	corrupt = append(corrupt, 0x00, 0x11, 0x22, 0xFF)
	corrupt = append(corrupt, data[pos:]...)

	stream, err := flac.New(bytes.NewReader(corrupt), flac.VerifyMD5)
	if err != nil {
		t.Fatal(err)
	}
	if err := decodeAll(t, stream, ts.frames[:1]); !errors.Is(err, frame.ErrInvalidSync) {
		t.Fatalf("error mismatch; expected %v, got %v", frame.ErrInvalidSync, err)
	}
	skipped, err := stream.Resync()
	if err != nil {
		t.Fatal(err)
	}
	// The header read stops at the first byte, 0x00, which is not part of a
	// sync code.
	if skipped != 3 {
		t.Errorf("skipped bytes mismatch; expected 3, got %d", skipped)
	}
	// MD5 verification is skipped after resynchronisation.
	if err := decodeAll(t, stream, ts.frames[1:]); err != io.EOF {
		t.Errorf("error mismatch; expected %v, got %v", io.EOF, err)
	}
}

func TestCopySamples(t *testing.T) {
	ts := newTestStream(2, 256, 0)
	for _, copySamples := range []bool{false, true} {
		var opts []flac.Option
		if copySamples {
			opts = append(opts, flac.CopySamples)
		}
		stream, err := flac.New(bytes.NewReader(ts.bytes()), opts...)
		if err != nil {
			t.Fatal(err)
		}
		f1, err := stream.ParseNext()
		if err != nil {
			t.Fatal(err)
		}
		first := f1.Subframes[0].Samples
		f2, err := stream.ParseNext()
		if err != nil {
			t.Fatal(err)
		}
		shared := &first[0] == &f2.Subframes[0].Samples[0]
		if shared == copySamples {
			t.Errorf("copySamples=%v: unexpected sharing of sample storage (shared=%v)", copySamples, shared)
		}
		if copySamples && !reflect.DeepEqual(first, ts.frames[0].Subframes[0].Samples) {
			t.Errorf("copySamples=%v: samples of first frame modified", copySamples)
		}
	}
}

func TestSeek(t *testing.T) {
	ts := newTestStream(4, 256, 100)
	table := &meta.SeekTable{
		Points: []meta.SeekPoint{
			{SampleNum: 0, Offset: uint64(ts.offsets[0]), NSamples: 256},
			{SampleNum: 512, Offset: uint64(ts.offsets[2]), NSamples: 256},
			{SampleNum: meta.PlaceholderPoint},
		},
	}
	withTable := ts.bytes(&meta.Block{Header: meta.Header{Type: meta.TypeSeekTable}, Body: table})
	golden := []struct {
		sampleNum uint64
		want      uint64
		frame     int
	}{
		{sampleNum: 600, want: 512, frame: 2},
		{sampleNum: 0, want: 0, frame: 0},
		{sampleNum: 255, want: 0, frame: 0},
		{sampleNum: 256, want: 256, frame: 1},
		{sampleNum: 1123, want: 1024, frame: 4},
		{sampleNum: 767, want: 512, frame: 2},
	}
	for _, data := range [][]byte{ts.bytes(), withTable} {
		stream, err := flac.NewSeek(bytes.NewReader(data))
		if err != nil {
			t.Fatal(err)
		}
		for i, g := range golden {
			got, err := stream.Seek(g.sampleNum)
			if err != nil {
				t.Fatalf("i=%d: %v", i, err)
			}
			if got != g.want {
				t.Errorf("i=%d: sample number mismatch; expected %d, got %d", i, g.want, got)
			}
			if err := decodeAll(t, stream, ts.frames[g.frame:]); err != io.EOF {
				t.Errorf("i=%d: error mismatch; expected %v, got %v", i, io.EOF, err)
			}
		}
		if _, err := stream.Seek(ts.info.NSamples); !errors.Is(err, flac.ErrSeekRange) {
			t.Errorf("error mismatch; expected %v, got %v", flac.ErrSeekRange, err)
		}
	}
}

func TestSeekNoSeeker(t *testing.T) {
	ts := newTestStream(1, 256, 0)
	stream, err := flac.New(bytes.NewReader(ts.bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := stream.Seek(10); err != flac.ErrNoSeeker {
		t.Errorf("error mismatch; expected %v, got %v", flac.ErrNoSeeker, err)
	}
}

func TestOpen(t *testing.T) {
	ts := newTestStream(2, 1024, 7)
	path := filepath.Join(t.TempDir(), "test.flac")
	if err := os.WriteFile(path, ts.bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, open := range []func(string, ...flac.Option) (*flac.Stream, error){flac.Open, flac.ParseFile} {
		stream, err := open(path, flac.VerifyMD5)
		if err != nil {
			t.Fatal(err)
		}
		if err := decodeAll(t, stream, ts.frames); err != io.EOF {
			t.Errorf("error mismatch; expected %v, got %v", io.EOF, err)
		}
		if err := stream.Close(); err != nil {
			t.Errorf("unable to close stream; %v", err)
		}
	}
	if _, err := flac.Open(filepath.Join(t.TempDir(), "missing.flac")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error mismatch; expected %v, got %v", os.ErrNotExist, err)
	}
}

func TestWithLogger(t *testing.T) {
	ts := newTestStream(1, 256, 0)
	blocks := []*meta.Block{
		{Header: meta.Header{Type: 9, Length: 3}},
	}
	buf := new(bytes.Buffer)
	logger := log.New(buf)
	logger.SetLevel(log.DebugLevel)
	stream, err := flac.New(bytes.NewReader(ts.bytes(blocks...)), flac.WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := stream.Blocks[0].Body.(*meta.Unknown); !ok {
		t.Errorf("body type mismatch; expected *meta.Unknown, got %T", stream.Blocks[0].Body)
	}
	if !strings.Contains(buf.String(), "skipped metadata block") {
		t.Errorf("expected skipped block to be logged; got %q", buf.String())
	}
}
