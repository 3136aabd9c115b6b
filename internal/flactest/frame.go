package flactest

import (
	"bytes"
	"io"

	"github.com/audiodec/flac/frame"
	"github.com/audiodec/flac/internal/hashutil/crc16"
	"github.com/audiodec/flac/internal/hashutil/crc8"
	"github.com/icza/bitio"
	"github.com/mewkiz/pkg/errutil"
)

// EncodeFrame writes the audio frame to w. The samples of f.Subframes are the
// channel samples of the block; they are decorrelated according to
// f.Channels before encoding, without modifying f.
//
// A header BitsPerSample or SampleRate which has no dedicated bit pattern is
// encoded as "get from StreamInfo".
func EncodeFrame(w io.Writer, f *frame.Frame) error {
	if len(f.Subframes) != f.Channels.Count() {
		return errutil.Newf("channel count mismatch; expected %d subframes, got %d", f.Channels.Count(), len(f.Subframes))
	}
	buf := new(bytes.Buffer)
	bw := bitio.NewWriter(buf)
	if err := encodeFrameHeader(bw, f.Header); err != nil {
		return errutil.Err(err)
	}
	if err := bw.Close(); err != nil {
		return errutil.Err(err)
	}
	// CRC-8 (polynomial = x^8 + x^2 + x^1 + x^0, initialized with 0) of
	// everything before the crc, including the sync code.
	buf.WriteByte(crc8.ChecksumATM(buf.Bytes()))

	bw = bitio.NewWriter(buf)
	side := sideChannel(f.Channels)
	for i, samples := range decorrelate(f) {
		bps := uint(f.BitsPerSample)
		if i == side {
			bps++
		}
		if err := encodeSubframe(bw, bps, f.Subframes[i], samples); err != nil {
			return errutil.Err(err)
		}
	}
	// Zero-padding to byte alignment.
	if err := bw.Close(); err != nil {
		return errutil.Err(err)
	}

	// CRC-16 (polynomial = x^16 + x^15 + x^2 + x^0, initialized with 0) of
	// everything before the crc, back to and including the frame header sync
	// code.
	crc := crc16.ChecksumIBM(buf.Bytes())
	buf.WriteByte(uint8(crc >> 8))
	buf.WriteByte(uint8(crc))
	if _, err := w.Write(buf.Bytes()); err != nil {
		return errutil.Err(err)
	}
	return nil
}

// decorrelate returns 64-bit copies of the samples of each subframe of f,
// decorrelated according to the channel assignment of f.
func decorrelate(f *frame.Frame) [][]int64 {
	var channels [][]int64
	for _, subframe := range f.Subframes {
		channels = append(channels, widen(subframe.Samples))
	}
	if sideChannel(f.Channels) != -1 {
		frame.Decorrelate(f.Channels, channels[0], channels[1])
	}
	return channels
}

// sideChannel returns the index of the subframe which holds the side channel,
// or -1 if channels are independent.
func sideChannel(channels frame.Channels) int {
	switch channels {
	case frame.ChannelsSideRight:
		return 0
	case frame.ChannelsLeftSide, frame.ChannelsMidSide:
		return 1
	default:
		return -1
	}
}

// encodeFrameHeader encodes the given frame header, writing to bw.
func encodeFrameHeader(bw *bitio.Writer, hdr frame.Header) error {
	// Sync code: 11111111111110; reserved: 0.
	if err := bw.WriteBits(frame.SyncCode<<1, 15); err != nil {
		return errutil.Err(err)
	}

	// Blocking strategy:
	//    0 : fixed-blocksize stream; frame header encodes the frame number
	//    1 : variable-blocksize stream; frame header encodes the sample number
	if err := bw.WriteBool(!hdr.HasFixedBlockSize); err != nil {
		return errutil.Err(err)
	}

	// Block size in inter-channel samples:
	//    0001 : 192 samples
	//    0010-0101 : 576 * (2^(n-2)) samples, i.e. 576/1152/2304/4608
	//    0110 : get 8 bit (blocksize-1) from end of header
	//    0111 : get 16 bit (blocksize-1) from end of header
	//    1000-1111 : 256 * (2^(n-8)) samples, i.e. 256/512/1024/2048/4096/8192/16384/32768
	var (
		bits uint64
		// number of bits used to store block size after the frame header.
		nblockSizeSuffixBits uint8
	)
	switch hdr.BlockSize {
	case 192:
		bits = 0x1
	case 576, 1152, 2304, 4608:
		bits = 0x2 + uint64(log2(uint(hdr.BlockSize/576)))
	case 256, 512, 1024, 2048, 4096, 8192, 16384, 32768:
		bits = 0x8 + uint64(log2(uint(hdr.BlockSize/256)))
	default:
		if hdr.BlockSize <= 256 {
			bits = 0x6
			nblockSizeSuffixBits = 8
		} else {
			bits = 0x7
			nblockSizeSuffixBits = 16
		}
	}
	if err := bw.WriteBits(bits, 4); err != nil {
		return errutil.Err(err)
	}

	// Sample rate:
	//    0000 : get from STREAMINFO metadata block
	//    0001-1011 : 88.2kHz, 176.4kHz, 192kHz, 8kHz, 16kHz, 22.05kHz, 24kHz,
	//                32kHz, 44.1kHz, 48kHz, 96kHz
	//    1100 : get 8 bit sample rate (in kHz) from end of header
	//    1101 : get 16 bit sample rate (in Hz) from end of header
	//    1110 : get 16 bit sample rate (in tens of Hz) from end of header
	var (
		// bits used to store sample rate after the frame header.
		sampleRateSuffixBits uint64
		// number of bits used to store sample rate after the frame header.
		nsampleRateSuffixBits uint8
	)
	bits = 0
	for code, rate := range sampleRates {
		if rate == hdr.SampleRate {
			bits = uint64(code)
			break
		}
	}
	if bits == 0 && hdr.SampleRate != 0 {
		switch {
		case hdr.SampleRate <= 255000 && hdr.SampleRate%1000 == 0:
			bits = 0xC
			sampleRateSuffixBits = uint64(hdr.SampleRate / 1000)
			nsampleRateSuffixBits = 8
		case hdr.SampleRate <= 65535:
			bits = 0xD
			sampleRateSuffixBits = uint64(hdr.SampleRate)
			nsampleRateSuffixBits = 16
		case hdr.SampleRate <= 655350 && hdr.SampleRate%10 == 0:
			bits = 0xE
			sampleRateSuffixBits = uint64(hdr.SampleRate / 10)
			nsampleRateSuffixBits = 16
		}
	}
	if err := bw.WriteBits(bits, 4); err != nil {
		return errutil.Err(err)
	}

	// Channel assignment.
	//    0000-0111 : (number of independent channels)-1
	//    1000 : left/side stereo
	//    1001 : side/right stereo
	//    1010 : mid/side stereo
	if err := bw.WriteBits(uint64(hdr.Channels), 4); err != nil {
		return errutil.Err(err)
	}

	// Sample size in bits:
	//    000 : get from STREAMINFO metadata block
	//    001 : 8 bits per sample
	//    010 : 12 bits per sample
	//    100 : 16 bits per sample
	//    101 : 20 bits per sample
	//    110 : 24 bits per sample
	//    111 : 32 bits per sample
	switch hdr.BitsPerSample {
	case 8:
		bits = 0x1
	case 12:
		bits = 0x2
	case 16:
		bits = 0x4
	case 20:
		bits = 0x5
	case 24:
		bits = 0x6
	case 32:
		bits = 0x7
	default:
		bits = 0x0
	}
	// 3 bits: sample size; 1 bit: reserved.
	if err := bw.WriteBits(bits<<1, 4); err != nil {
		return errutil.Err(err)
	}

	//    if (variable blocksize)
	//       <8-56>:"UTF-8" coded sample number (decoded number is 36 bits)
	//    else
	//       <8-48>:"UTF-8" coded frame number (decoded number is 31 bits)
	if err := encodeUTF8(bw, hdr.Num); err != nil {
		return errutil.Err(err)
	}

	// Write block size after the frame header (used for uncommon block sizes).
	if nblockSizeSuffixBits > 0 {
		if err := bw.WriteBits(uint64(hdr.BlockSize-1), nblockSizeSuffixBits); err != nil {
			return errutil.Err(err)
		}
	}
	// Write sample rate after the frame header (used for uncommon sample rates).
	if nsampleRateSuffixBits > 0 {
		if err := bw.WriteBits(sampleRateSuffixBits, nsampleRateSuffixBits); err != nil {
			return errutil.Err(err)
		}
	}
	return nil
}

// sampleRates maps sample rate bit patterns 0001-1011 to Hz.
var sampleRates = [...]uint32{
	0x1: 88200,
	0x2: 176400,
	0x3: 192000,
	0x4: 8000,
	0x5: 16000,
	0x6: 22050,
	0x7: 24000,
	0x8: 32000,
	0x9: 44100,
	0xA: 48000,
	0xB: 96000,
}

// log2 returns the base 2 logarithm of the power of two x.
func log2(x uint) uint {
	var n uint
	for ; x > 1; x >>= 1 {
		n++
	}
	return n
}
