package frame_test

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"reflect"
	"testing"

	"github.com/audiodec/flac/frame"
	"github.com/audiodec/flac/internal/flactest"
	"github.com/audiodec/flac/meta"
)

// constantFrame is a mono frame holding four samples of the constant 1000,
// sampled at 44.1 kHz with 16 bits-per-sample.
var constantFrame = []byte{
	0xFF, 0xF8, // sync code, reserved bit, fixed block size.
	0x69,       // block size 0110 (8 bit suffix), sample rate 1001 (44.1 kHz).
	0x08,       // mono, 16 bits-per-sample, reserved bit.
	0x00,       // frame number 0.
	0x03,       // block size - 1.
	0x14,       // CRC-8.
	0x00,       // constant subframe.
	0x03, 0xE8, // 1000.
	0x1C, 0xDF, // CRC-16.
}

func TestParseConstant(t *testing.T) {
	f, err := frame.Parse(bytes.NewReader(constantFrame))
	if err != nil {
		t.Fatalf("unable to parse frame; %v", err)
	}
	want := frame.Header{
		HasFixedBlockSize: true,
		BlockSize:         4,
		SampleRate:        44100,
		Channels:          frame.ChannelsMono,
		BitsPerSample:     16,
		Num:               0,
		CRC8:              0x14,
	}
	if f.Header != want {
		t.Errorf("header mismatch; expected %+v, got %+v", want, f.Header)
	}
	if f.CRC16 != 0x1CDF {
		t.Errorf("CRC-16 mismatch; expected 0x1CDF, got 0x%04X", f.CRC16)
	}
	if len(f.Subframes) != 1 {
		t.Fatalf("subframe count mismatch; expected 1, got %d", len(f.Subframes))
	}
	sub := f.Subframes[0]
	if sub.Pred != frame.PredConstant {
		t.Errorf("prediction method mismatch; expected %v, got %v", frame.PredConstant, sub.Pred)
	}
	if got, want := sub.Samples, []int32{1000, 1000, 1000, 1000}; !reflect.DeepEqual(got, want) {
		t.Errorf("samples mismatch; expected %v, got %v", want, got)
	}
	if n, ok := f.FrameNumber(); !ok || n != 0 {
		t.Errorf("frame number mismatch; expected (0, true), got (%d, %v)", n, ok)
	}
}

func TestEncodeChecksums(t *testing.T) {
	hdr := frame.Header{
		HasFixedBlockSize: true,
		SampleRate:        44100,
		Channels:          frame.ChannelsMono,
		BitsPerSample:     16,
	}
	f := flactest.NewFrame(hdr, flactest.Constant([]int32{1000, 1000, 1000, 1000}))
	got := flactest.Frame(f)
	if !bytes.Equal(got, constantFrame) {
		t.Errorf("encoded frame mismatch; expected % X, got % X", constantFrame, got)
	}
}

func TestParseErrors(t *testing.T) {
	golden := []struct {
		// Index and new value of the constant frame byte to modify; pos < 0
		// leaves the frame intact.
		pos int
		b   byte
		// Length of the input; 0 denotes the entire frame.
		n    int
		want error
	}{
		{pos: 0, b: 0x7F, want: frame.ErrInvalidSync},                       // i=0
		{pos: 1, b: 0xFC, want: frame.ErrInvalidSync},                       // i=1
		{pos: 1, b: 0xFA, want: frame.ErrReservedBit},                       // i=2
		{pos: 2, b: 0x09, want: frame.ErrInvalidBlockSize},                  // i=3
		{pos: 2, b: 0x6F, want: frame.ErrInvalidSampleRate},                 // i=4
		{pos: 3, b: 0xB8, want: frame.ErrInvalidChannels},                   // i=5
		{pos: 3, b: 0x06, want: frame.ErrInvalidSampleSize},                 // i=6
		{pos: 3, b: 0x09, want: frame.ErrReservedBit},                       // i=7
		{pos: 4, b: 0x80, want: frame.ErrInvalidUTF8},                       // i=8
		{pos: 4, b: 0xFE, want: frame.ErrInvalidUTF8},                       // i=9
		{pos: 6, b: 0x15, want: frame.ErrInvalidHeaderCRC},                  // i=10
		{pos: 7, b: 0x80, want: frame.ErrReservedBit},                       // i=11
		{pos: 7, b: 0x04, want: frame.ErrInvalidSubframeType},               // i=12
		{pos: 7, b: 0x1A, want: frame.ErrInvalidSubframeType},               // i=13
		{pos: 11, b: 0xDE, want: frame.ErrInvalidFrameCRC},                  // i=14
		{pos: -1, n: 1, want: io.ErrUnexpectedEOF},                          // i=15
		{pos: -1, n: 5, want: io.ErrUnexpectedEOF},                          // i=16
		{pos: -1, n: 9, want: io.ErrUnexpectedEOF},                          // i=17
		{pos: -1, n: 11, want: io.ErrUnexpectedEOF},                         // i=18
		{pos: 7, b: 0x02, n: len(constantFrame), want: io.ErrUnexpectedEOF}, // i=19
		{pos: 0, b: 0x00, n: 1, want: frame.ErrInvalidSync},                 // i=20
		{pos: 0, b: 0xFE, n: 1, want: frame.ErrInvalidSync},                 // i=21
	}
	for i, g := range golden {
		buf := append([]byte(nil), constantFrame...)
		if g.pos >= 0 {
			buf[g.pos] = g.b
		}
		if g.n != 0 {
			buf = buf[:g.n]
		}
		_, err := frame.Parse(bytes.NewReader(buf))
		if !errors.Is(err, g.want) {
			t.Errorf("i=%d: error mismatch; expected %v, got %v", i, g.want, err)
		}
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := frame.New(bytes.NewReader(nil)); err != io.EOF {
		t.Errorf("error mismatch; expected %v, got %v", io.EOF, err)
	}
}

func TestParseGarbage(t *testing.T) {
	// Arbitrary input must be rejected without panicking.
	x := uint32(2463534242)
	for i := 0; i < 200; i++ {
		buf := make([]byte, 64)
		for j := range buf {
			// xorshift32
			x ^= x << 13
			x ^= x >> 17
			x ^= x << 5
			buf[j] = byte(x)
		}
		if i%2 == 0 {
			// Valid sync code with random header contents.
			buf[0], buf[1] = 0xFF, 0xF8
		}
		if _, err := frame.Parse(bytes.NewReader(buf)); err == nil {
			t.Errorf("i=%d: expected error for input % X", i, buf)
		}
	}
}

// signal returns n samples of a sine wave with the given amplitude.
func signal(n int, amplitude float64, period float64) []int32 {
	samples := make([]int32, n)
	for i := range samples {
		samples[i] = int32(amplitude * math.Sin(2*math.Pi*float64(i)/period))
	}
	return samples
}

// roundTrip encodes f and decodes it again.
func roundTrip(t *testing.T, f *frame.Frame) *frame.Frame {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := flactest.EncodeFrame(buf, f); err != nil {
		t.Fatalf("unable to encode frame; %v", err)
	}
	got, err := frame.Parse(buf)
	if err != nil {
		t.Fatalf("unable to parse frame; %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("%d bytes left after frame", buf.Len())
	}
	return got
}

func TestFixedRoundTrip(t *testing.T) {
	hdr := frame.Header{
		HasFixedBlockSize: true,
		SampleRate:        48000,
		Channels:          frame.ChannelsMono,
		BitsPerSample:     16,
	}
	for order := 0; order <= 4; order++ {
		samples := signal(1152, 30000, 97)
		f := flactest.NewFrame(hdr, flactest.Fixed(order, samples))
		got := roundTrip(t, f)
		sub := got.Subframes[0]
		if sub.Pred != frame.PredFixed || sub.Order != order {
			t.Errorf("order=%d: predictor mismatch; got %v of order %d", order, sub.Pred, sub.Order)
		}
		if !reflect.DeepEqual(sub.Samples, samples) {
			t.Errorf("order=%d: samples mismatch", order)
		}
	}
}

func TestRiceRoundTrip(t *testing.T) {
	hdr := frame.Header{
		HasFixedBlockSize: false,
		SampleRate:        96000,
		Channels:          frame.ChannelsMono,
		BitsPerSample:     24,
	}
	for k := uint(0); k <= 14; k++ {
		// Values span well beyond 2^k in both directions, while keeping the
		// unary coded quotient short.
		limit := int32(1) << (k + 4)
		var samples []int32
		for v := -limit; v <= limit; v += limit/64 + 1 {
			samples = append(samples, v)
		}
		samples = append(samples, limit, -limit, 0, 1, -1)
		sub := flactest.Fixed(0, samples)
		sub.RiceSubframe = &frame.RiceSubframe{
			Partitions: []frame.RicePartition{{Param: k}},
		}
		f := flactest.NewFrame(hdr, sub)
		f.Num = uint64(k) << 30
		got := roundTrip(t, f)
		if got.Num != f.Num {
			t.Errorf("k=%d: sample number mismatch; expected %d, got %d", k, f.Num, got.Num)
		}
		if p := got.Subframes[0].RiceSubframe.Partitions[0].Param; p != k {
			t.Errorf("k=%d: Rice parameter mismatch; got %d", k, p)
		}
		if !reflect.DeepEqual(got.Subframes[0].Samples, samples) {
			t.Errorf("k=%d: samples mismatch", k)
		}
	}
}

func TestRice2RoundTrip(t *testing.T) {
	hdr := frame.Header{
		HasFixedBlockSize: true,
		SampleRate:        48000,
		Channels:          frame.ChannelsMono,
		BitsPerSample:     32,
	}
	for k := uint(15); k <= 30; k++ {
		// Quotients of up to 64 exercise long unary runs for small k, while
		// samples remain within 32 bits for large k.
		limit := int64(1) << (k + 5)
		if limit > math.MaxInt32 {
			limit = math.MaxInt32
		}
		samples := []int32{0, 1, -1, int32(limit), int32(-limit), int32(limit / 3), int32(-limit / 7), 1 << k, -1 << k, 12345}
		sub := flactest.Fixed(0, samples)
		sub.ResidualCodingMethod = frame.ResidualCodingMethodRice2
		sub.RiceSubframe = &frame.RiceSubframe{
			Partitions: []frame.RicePartition{{Param: k}},
		}
		got := roundTrip(t, flactest.NewFrame(hdr, sub))
		gotSub := got.Subframes[0]
		if gotSub.ResidualCodingMethod != frame.ResidualCodingMethodRice2 {
			t.Errorf("k=%d: residual coding method mismatch; got %v", k, gotSub.ResidualCodingMethod)
		}
		if p := gotSub.RiceSubframe.Partitions[0].Param; p != k {
			t.Errorf("k=%d: Rice parameter mismatch; got %d", k, p)
		}
		if !reflect.DeepEqual(gotSub.Samples, samples) {
			t.Errorf("k=%d: samples mismatch; expected %v, got %v", k, samples, gotSub.Samples)
		}
	}
}

func TestFIRRoundTrip(t *testing.T) {
	hdr := frame.Header{
		HasFixedBlockSize: true,
		SampleRate:        22050,
		Channels:          frame.ChannelsMono,
		BitsPerSample:     16,
		Num:               1234,
	}
	samples := signal(4096, 20000, 50.5)
	sub := flactest.FIR([]int32{1873, -1626, 703, -133}, 12, 10, samples)
	sub.ResidualCodingMethod = frame.ResidualCodingMethodRice2
	sub.RiceSubframe = &frame.RiceSubframe{PartOrder: 2}
	for i := 0; i < 4; i++ {
		residuals := flactest.Residuals(samples, sub.Coeffs, sub.CoeffShift)
		param := flactest.RiceParam(residuals[i*1024 : (i+1)*1024-4])
		sub.RiceSubframe.Partitions = append(sub.RiceSubframe.Partitions, frame.RicePartition{Param: param})
	}
	// Escaped partition with 20-bit unencoded residuals.
	sub.RiceSubframe.Partitions[1] = frame.RicePartition{Param: 0x1F, EscapedBitsPerSample: 20}
	got := roundTrip(t, flactest.NewFrame(hdr, sub))
	gotSub := got.Subframes[0]
	if gotSub.Pred != frame.PredFIR || gotSub.Order != 4 {
		t.Errorf("predictor mismatch; got %v of order %d", gotSub.Pred, gotSub.Order)
	}
	if !reflect.DeepEqual(gotSub.Coeffs, sub.Coeffs) || gotSub.CoeffPrec != 12 || gotSub.CoeffShift != 10 {
		t.Errorf("coefficient mismatch; expected %v (prec 12, shift 10), got %v (prec %d, shift %d)", sub.Coeffs, gotSub.Coeffs, gotSub.CoeffPrec, gotSub.CoeffShift)
	}
	if e := gotSub.RiceSubframe.Partitions[1].EscapedBitsPerSample; e != 20 {
		t.Errorf("escaped bits-per-sample mismatch; expected 20, got %d", e)
	}
	if !reflect.DeepEqual(gotSub.Samples, samples) {
		t.Errorf("samples mismatch")
	}
}

func TestWastedBits(t *testing.T) {
	hdr := frame.Header{
		HasFixedBlockSize: true,
		SampleRate:        44100,
		Channels:          frame.ChannelsLR,
		BitsPerSample:     24,
	}
	left := signal(300, 1<<20, 40)
	right := signal(300, 1<<18, 33)
	for i := range left {
		left[i] &^= 0xFF
		right[i] &^= 0x1
	}
	subLeft := flactest.Verbatim(left)
	subLeft.Wasted = 8
	subRight := flactest.Fixed(2, right)
	subRight.Wasted = 1
	got := roundTrip(t, flactest.NewFrame(hdr, subLeft, subRight))
	if w := got.Subframes[0].Wasted; w != 8 {
		t.Errorf("wasted bits mismatch; expected 8, got %d", w)
	}
	if !reflect.DeepEqual(got.Subframes[0].Samples, left) {
		t.Errorf("left samples mismatch")
	}
	if !reflect.DeepEqual(got.Subframes[1].Samples, right) {
		t.Errorf("right samples mismatch")
	}
}

func TestStereoRoundTrip(t *testing.T) {
	const (
		max24 = 1<<23 - 1
		min24 = -1 << 23
	)
	left := []int32{max24, min24, max24, min24, 0, -1, 1, 12345, -7, max24 - 1}
	right := []int32{min24, max24, max24, min24, -1, 0, -1, -54321, 8, min24 + 1}
	for _, channels := range []frame.Channels{frame.ChannelsLR, frame.ChannelsLeftSide, frame.ChannelsSideRight, frame.ChannelsMidSide} {
		hdr := frame.Header{
			HasFixedBlockSize: true,
			SampleRate:        192000,
			Channels:          channels,
			BitsPerSample:     24,
		}
		f := flactest.NewFrame(hdr, flactest.Verbatim(left), flactest.Verbatim(right))
		got := roundTrip(t, f)
		if got.Channels != channels {
			t.Errorf("%v: channel assignment mismatch; got %v", channels, got.Channels)
		}
		if !reflect.DeepEqual(got.Subframes[0].Samples, left) {
			t.Errorf("%v: left samples mismatch; expected %v, got %v", channels, left, got.Subframes[0].Samples)
		}
		if !reflect.DeepEqual(got.Subframes[1].Samples, right) {
			t.Errorf("%v: right samples mismatch; expected %v, got %v", channels, right, got.Subframes[1].Samples)
		}
	}
}

func TestCorrelate(t *testing.T) {
	for _, bps := range []uint{8, 16, 24, 31, 32} {
		max := int64(1)<<(bps-1) - 1
		min := -max - 1
		values := []int64{min, min + 1, -2, -1, 0, 1, 2, max - 1, max}
		var left, right []int64
		for _, l := range values {
			for _, r := range values {
				left = append(left, l)
				right = append(right, r)
			}
		}
		for _, channels := range []frame.Channels{frame.ChannelsLeftSide, frame.ChannelsSideRight, frame.ChannelsMidSide} {
			a := append([]int64(nil), left...)
			b := append([]int64(nil), right...)
			frame.Decorrelate(channels, a, b)
			frame.Correlate(channels, a, b)
			if !reflect.DeepEqual(a, left) || !reflect.DeepEqual(b, right) {
				t.Errorf("bps=%d, %v: inverse transform mismatch", bps, channels)
			}
		}
	}
}

func TestMidSide(t *testing.T) {
	// mid = (left + right) >> 1, side = left - right.
	mid := []int64{-2, 0, 5}
	side := []int64{-3, 7, 0}
	frame.Correlate(frame.ChannelsMidSide, mid, side)
	wantLeft := []int64{-3, 4, 5}
	wantRight := []int64{0, -3, 5}
	if !reflect.DeepEqual(mid, wantLeft) {
		t.Errorf("left mismatch; expected %v, got %v", wantLeft, mid)
	}
	if !reflect.DeepEqual(side, wantRight) {
		t.Errorf("right mismatch; expected %v, got %v", wantRight, side)
	}
}

func TestStereoRoundTrip32(t *testing.T) {
	// The side channel of 32-bit audio carries 33-bit samples.
	left := []int32{5, -7, 100, 0, math.MaxInt32, math.MinInt32, math.MaxInt32, math.MinInt32, -1}
	right := []int32{3, 9, -100, 1, math.MinInt32, math.MaxInt32, math.MaxInt32, math.MinInt32, math.MaxInt32}
	for _, channels := range []frame.Channels{frame.ChannelsLR, frame.ChannelsLeftSide, frame.ChannelsSideRight, frame.ChannelsMidSide} {
		hdr := frame.Header{
			HasFixedBlockSize: true,
			SampleRate:        48000,
			Channels:          channels,
			BitsPerSample:     32,
		}
		got := roundTrip(t, flactest.NewFrame(hdr, flactest.Verbatim(left), flactest.Verbatim(right)))
		if !reflect.DeepEqual(got.Subframes[0].Samples, left) {
			t.Errorf("%v: left samples mismatch; expected %v, got %v", channels, left, got.Subframes[0].Samples)
		}
		if !reflect.DeepEqual(got.Subframes[1].Samples, right) {
			t.Errorf("%v: right samples mismatch; expected %v, got %v", channels, right, got.Subframes[1].Samples)
		}
	}
}

func TestSampleRange(t *testing.T) {
	golden := []struct {
		name string
		bps  uint8
		sub  *frame.Subframe
	}{
		// 0 + 200 exceeds the 8-bit range.
		{name: "restored sample", bps: 8, sub: flactest.Fixed(1, []int32{0, 100, 200})},
		// The residual 2^32-1 does not fit in 32 bits.
		{name: "residual", bps: 32, sub: flactest.Fixed(1, []int32{math.MinInt32, math.MaxInt32})},
	}
	for _, g := range golden {
		g.sub.ResidualCodingMethod = frame.ResidualCodingMethodRice2
		g.sub.RiceSubframe = &frame.RiceSubframe{
			Partitions: []frame.RicePartition{{Param: 30}},
		}
		hdr := frame.Header{
			HasFixedBlockSize: true,
			SampleRate:        44100,
			Channels:          frame.ChannelsMono,
			BitsPerSample:     g.bps,
		}
		buf := new(bytes.Buffer)
		if err := flactest.EncodeFrame(buf, flactest.NewFrame(hdr, g.sub)); err != nil {
			t.Fatalf("%s: unable to encode frame; %v", g.name, err)
		}
		if _, err := frame.Parse(buf); !errors.Is(err, frame.ErrBitWidth) {
			t.Errorf("%s: error mismatch; expected %v, got %v", g.name, frame.ErrBitWidth, err)
		}
	}
}

func TestDecoder(t *testing.T) {
	info := &meta.StreamInfo{SampleRate: 8000, NChannels: 1, BitsPerSample: 10}
	// Sample rate and sample size are resolved from StreamInfo.
	hdr := frame.Header{
		HasFixedBlockSize: true,
		Channels:          frame.ChannelsMono,
		BitsPerSample:     10,
	}
	var frames []*frame.Frame
	var stream []byte
	for i := 0; i < 3; i++ {
		hdr.Num = uint64(i)
		f := flactest.NewFrame(hdr, flactest.Fixed(1, signal(100, 400, float64(10+i))))
		frames = append(frames, f)
		stream = append(stream, flactest.Frame(f)...)
		if i == 0 {
			// Corrupt data between the first and second frame.
			stream = append(stream, 0x12, 0x34, 0x56)
		}
	}

	buf := frame.NewBuffer(1, 100)
	dec := frame.NewDecoder(bytes.NewReader(stream), info, buf)
	f, err := dec.Next()
	if err != nil {
		t.Fatal(err)
	}
	if f.SampleRate != 8000 {
		t.Errorf("sample rate mismatch; expected 8000, got %d", f.SampleRate)
	}
	if err := f.Parse(); err != nil {
		t.Fatal(err)
	}
	first := f.Subframes[0].Samples
	if !reflect.DeepEqual(first, frames[0].Subframes[0].Samples) {
		t.Errorf("frame 0: samples mismatch")
	}

	if _, err := dec.Next(); !errors.Is(err, frame.ErrInvalidSync) {
		t.Fatalf("error mismatch; expected %v, got %v", frame.ErrInvalidSync, err)
	}
	skipped, err := dec.Resync()
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 2 {
		t.Errorf("skipped bytes mismatch; expected 2, got %d", skipped)
	}
	var last *frame.Frame
	for i := 1; i < 3; i++ {
		f, err := dec.Next()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if err := f.Parse(); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if n, _ := f.FrameNumber(); n != uint64(i) {
			t.Errorf("frame %d: frame number mismatch; got %d", i, n)
		}
		if !reflect.DeepEqual(f.Subframes[0].Samples, frames[i].Subframes[0].Samples) {
			t.Errorf("frame %d: samples mismatch", i)
		}
		last = f
	}
	// Samples of earlier frames share the buffer of the decoder.
	if &first[0] != &last.Subframes[0].Samples[0] {
		t.Errorf("expected sample buffer to be reused")
	}
	if _, err := dec.Next(); err != io.EOF {
		t.Errorf("error mismatch; expected %v, got %v", io.EOF, err)
	}
}

func TestHash(t *testing.T) {
	hdr := frame.Header{
		HasFixedBlockSize: true,
		SampleRate:        44100,
		Channels:          frame.ChannelsLR,
		BitsPerSample:     16,
	}
	left := []int32{1, -2, 32767}
	right := []int32{-32768, 256, 0}
	f := flactest.NewFrame(hdr, flactest.Verbatim(left), flactest.Verbatim(right))
	got := roundTrip(t, f)

	want := md5.New()
	for i := range left {
		binary.Write(want, binary.LittleEndian, int16(left[i]))
		binary.Write(want, binary.LittleEndian, int16(right[i]))
	}
	md5sum := md5.New()
	got.Hash(md5sum)
	if !bytes.Equal(md5sum.Sum(nil), want.Sum(nil)) {
		t.Errorf("MD5 mismatch; expected %x, got %x", want.Sum(nil), md5sum.Sum(nil))
	}
}

func TestIntBuffer(t *testing.T) {
	hdr := frame.Header{
		HasFixedBlockSize: true,
		SampleRate:        44100,
		Channels:          frame.ChannelsMidSide,
		BitsPerSample:     8,
	}
	left := []int32{-128, 0, 127}
	right := []int32{127, -1, 127}
	got := roundTrip(t, flactest.NewFrame(hdr, flactest.Verbatim(left), flactest.Verbatim(right)))
	buf := got.IntBuffer()
	if buf.Format.NumChannels != 2 || buf.Format.SampleRate != 44100 || buf.SourceBitDepth != 8 {
		t.Errorf("format mismatch; got %d channels at %d Hz, %d bits", buf.Format.NumChannels, buf.Format.SampleRate, buf.SourceBitDepth)
	}
	want := []int{-128, 127, 0, -1, 127, 127}
	if !reflect.DeepEqual(buf.Data, want) {
		t.Errorf("data mismatch; expected %v, got %v", want, buf.Data)
	}
}
