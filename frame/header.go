package frame

import (
	"github.com/audiodec/flac/internal/bits"
	"github.com/audiodec/flac/meta"
	"github.com/pkg/errors"
)

// SyncCode is the 14-bit code which starts every frame header. Bit
// representation: 11111111111110.
const SyncCode = 0x3FFE

// MaxChannels is the largest number of channels in a frame.
const MaxChannels = 8

// A Header contains the basic properties of an audio frame, such as its sample
// rate and channel count. To facilitate random access decoding each frame
// header starts with a sync-code. This allows the decoder to synchronize and
// locate the start of a frame header.
//
// ref: https://www.xiph.org/flac/format.html#frame_header
type Header struct {
	// Specifies if the block size is fixed or variable.
	HasFixedBlockSize bool
	// Block size in inter-channel samples, i.e. the number of audio samples in
	// each subframe.
	BlockSize uint16
	// Sample rate in Hz; a 0 value implies unknown.
	SampleRate uint32
	// Specifies the number of channels (subframes) that exist in the frame,
	// their order and possible inter-channel decorrelation.
	Channels Channels
	// Sample size in bits-per-sample.
	BitsPerSample uint8
	// Specifies the frame number if the block size is fixed, and the first
	// sample number in the frame otherwise.
	Num uint64
	// CRC-8 checksum of the frame header, including the sync code.
	CRC8 uint8
}

// FrameNumber returns the frame number of a fixed block size frame. The
// boolean result is false for variable block size frames, whose header
// carries a sample number instead.
func (hdr *Header) FrameNumber() (uint64, bool) {
	return hdr.Num, hdr.HasFixedBlockSize
}

// SampleNumber returns the first sample number contained within the frame.
// For fixed block size streams it is derived from the frame number, which
// assumes that all preceding frames hold BlockSize samples.
func (hdr *Header) SampleNumber() uint64 {
	if hdr.HasFixedBlockSize {
		return hdr.Num * uint64(hdr.BlockSize)
	}
	return hdr.Num
}

// Channels specifies the number of channels (subframes) that exist in a frame,
// their order and possible inter-channel decorrelation.
type Channels uint8

// Channel assignments. The first 6 channel constants follow the SMPTE/ITU-R
// channel order:
//
//	L R C Lfe Ls Rs
const (
	ChannelsMono           Channels = iota // 1 channel: mono.
	ChannelsLR                             // 2 channels: left, right.
	ChannelsLRC                            // 3 channels: left, right, center.
	ChannelsLRLsRs                         // 4 channels: left, right, left surround, right surround.
	ChannelsLRCLsRs                        // 5 channels: left, right, center, left surround, right surround.
	ChannelsLRCLfeLsRs                     // 6 channels: left, right, center, LFE, left surround, right surround.
	ChannelsLRCLfeCsSlSr                   // 7 channels: left, right, center, LFE, center surround, side left, side right.
	ChannelsLRCLfeLsRsSlSr                 // 8 channels: left, right, center, LFE, left surround, right surround, side left, side right.
	ChannelsLeftSide                       // 2 channels: left, side; using inter-channel decorrelation.
	ChannelsSideRight                      // 2 channels: side, right; using inter-channel decorrelation.
	ChannelsMidSide                        // 2 channels: mid, side; using inter-channel decorrelation.
)

// Count returns the number of channels (subframes) used by the provided
// channel assignment.
func (channels Channels) Count() int {
	switch channels {
	case ChannelsLeftSide, ChannelsSideRight, ChannelsMidSide:
		return 2
	default:
		return int(channels) + 1
	}
}

// sideChannel returns the index of the subframe which holds the side channel,
// or -1 if channels are independent.
func (channels Channels) sideChannel() int {
	switch channels {
	case ChannelsSideRight:
		return 0
	case ChannelsLeftSide, ChannelsMidSide:
		return 1
	default:
		return -1
	}
}

func (channels Channels) String() string {
	switch channels {
	case ChannelsLeftSide:
		return "left/side"
	case ChannelsSideRight:
		return "side/right"
	case ChannelsMidSide:
		return "mid/side"
	default:
		return "independent"
	}
}

// parseHeader reads and parses the header of an audio frame. Fields coded as
// "get from StreamInfo" are resolved using info, which may be nil.
//
// Frame header format (pseudo code):
//
//	type FRAME_HEADER struct {
//	   sync_code          uint14
//	   _                  uint1
//	   blocking_strategy  uint1
//	   block_size_spec    uint4
//	   sample_rate_spec   uint4
//	   channel_assignment uint4
//	   sample_size_spec   uint3
//	   _                  uint1
//	   if blocking_strategy == 0 {
//	      // "UTF-8" coded int, from 1 to 6 bytes.
//	      frame_num       uint31
//	   } else {
//	      // "UTF-8" coded int, from 1 to 7 bytes.
//	      sample_num      uint36
//	   }
//	   switch block_size_spec {
//	   case 0110:
//	      block_size      uint8  // block_size-1
//	   case 0111:
//	      block_size      uint16 // block_size-1
//	   }
//	   switch sample_rate_spec {
//	   case 1100:
//	      sample_rate     uint8  // sample rate in kHz.
//	   case 1101:
//	      sample_rate     uint16 // sample rate in Hz.
//	   case 1110:
//	      sample_rate     uint16 // sample rate in daHz (tens of Hz).
//	   }
//	   crc8               uint8
//	}
func (frame *Frame) parseHeader(br *bits.Reader, info *meta.StreamInfo) error {
	// Every byte of the frame up to the CRC-16 footer is checksummed; the
	// header up to the CRC-8 field is checksummed separately.
	br.EnableCRC8()
	br.EnableCRC16()

	// 14 bits: sync code. An end of stream before the first byte of a frame is
	// a clean end of stream.
	x, err := br.Read(8)
	if err != nil {
		return err
	}
	if x != SyncCode>>6 {
		return errors.Wrapf(ErrInvalidSync, "expected first byte 0x%02X, got 0x%02X", SyncCode>>6, x)
	}
	y, err := br.Read(6)
	if err != nil {
		return unexpected(err)
	}
	if sync := x<<6 | y; sync != SyncCode {
		return errors.Wrapf(ErrInvalidSync, "expected %014b, got %014b", SyncCode, sync)
	}

	// 1 bit: reserved.
	if x, err = br.Read(1); err != nil {
		return unexpected(err)
	} else if x != 0 {
		return errors.Wrap(ErrReservedBit, "frame header reserved bit after sync code")
	}

	// 1 bit: blocking strategy.
	//    0: fixed block size.
	//    1: variable block size.
	if x, err = br.Read(1); err != nil {
		return unexpected(err)
	}
	frame.HasFixedBlockSize = x == 0

	// 4 bits: block size spec; 4 bits: sample rate spec; 4 bits: channel
	// assignment; 3 bits: sample size spec; 1 bit: reserved.
	if x, err = br.Read(16); err != nil {
		return unexpected(err)
	}
	blockSizeSpec := x >> 12
	sampleRateSpec := x >> 8 & 0xF
	channels := x >> 4 & 0xF
	sampleSizeSpec := x >> 1 & 0x7
	if x&1 != 0 {
		return errors.Wrap(ErrReservedBit, "frame header reserved bit after sample size")
	}

	// Channel assignment.
	//    0000-0111: (number of independent channels)-1.
	//    1000: left/side stereo.
	//    1001: side/right stereo.
	//    1010: mid/side stereo.
	//    1011-1111: reserved.
	if channels > uint64(ChannelsMidSide) {
		return errors.Wrapf(ErrInvalidChannels, "bit pattern %04b", channels)
	}
	frame.Channels = Channels(channels)

	if err := frame.parseSampleSize(sampleSizeSpec, info); err != nil {
		return err
	}

	// "UTF-8" coded frame number or sample number.
	maxBytes := 7
	if frame.HasFixedBlockSize {
		maxBytes = 6
	}
	if frame.Num, err = decodeUTF8Int(br, maxBytes); err != nil {
		return err
	}

	if err := frame.parseBlockSize(br, blockSizeSpec); err != nil {
		return err
	}
	if err := frame.parseSampleRate(br, sampleRateSpec, info); err != nil {
		return err
	}

	// 8 bits: CRC-8 of the header, sync code included.
	got := br.CRC8()
	if x, err = br.Read(8); err != nil {
		return unexpected(err)
	}
	frame.CRC8 = uint8(x)
	if got != frame.CRC8 {
		return errors.Wrapf(ErrInvalidHeaderCRC, "expected 0x%02X, got 0x%02X", frame.CRC8, got)
	}
	return nil
}

// parseBlockSize resolves the block size of the header.
//
// The 4 bits are used to specify the block size as follows:
//
//	0000: reserved.
//	0001: 192 samples.
//	0010-0101: 576 * 2^(n-2) samples.
//	0110: get 8 bit (block size)-1 from the end of the header.
//	0111: get 16 bit (block size)-1 from the end of the header.
//	1000-1111: 256 * 2^(n-8) samples.
func (frame *Frame) parseBlockSize(br *bits.Reader, n uint64) error {
	switch {
	case n == 0x0:
		return errors.Wrap(ErrInvalidBlockSize, "reserved bit pattern 0000")
	case n == 0x1:
		frame.BlockSize = 192
	case n <= 0x5:
		frame.BlockSize = 576 << (n - 2)
	case n == 0x6:
		x, err := br.Read(8)
		if err != nil {
			return unexpected(err)
		}
		frame.BlockSize = uint16(x) + 1
	case n == 0x7:
		x, err := br.Read(16)
		if err != nil {
			return unexpected(err)
		}
		if x == 0xFFFF {
			return errors.Wrap(ErrInvalidBlockSize, "block size 65536 out of range")
		}
		frame.BlockSize = uint16(x) + 1
	default:
		frame.BlockSize = 256 << (n - 8)
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

// parseSampleRate resolves the sample rate of the header.
//
// The 4 bits are used to specify the sample rate as follows:
//
//	0000: unknown sample rate; get from StreamInfo.
//	0001-1011: fixed sample rates from 88.2 kHz to 96 kHz.
//	1100: get 8 bit sample rate (in kHz) from the end of the header.
//	1101: get 16 bit sample rate (in Hz) from the end of the header.
//	1110: get 16 bit sample rate (in daHz) from the end of the header.
//	1111: invalid.
func (frame *Frame) parseSampleRate(br *bits.Reader, n uint64, info *meta.StreamInfo) error {
	switch {
	case n == 0x0:
		if info != nil {
			frame.SampleRate = info.SampleRate
		}
	case n <= 0xB:
		frame.SampleRate = sampleRates[n]
	case n == 0xC:
		x, err := br.Read(8)
		if err != nil {
			return unexpected(err)
		}
		frame.SampleRate = uint32(x) * 1000
	case n == 0xD:
		x, err := br.Read(16)
		if err != nil {
			return unexpected(err)
		}
		frame.SampleRate = uint32(x)
	case n == 0xE:
		x, err := br.Read(16)
		if err != nil {
			return unexpected(err)
		}
		frame.SampleRate = uint32(x) * 10
	default:
		return errors.Wrap(ErrInvalidSampleRate, "bit pattern 1111")
	}
	return nil
}

// parseSampleSize resolves the sample size of the header.
//
// The 3 bits are used to specify the sample size as follows:
//
//	000: unknown sample size; get from StreamInfo.
//	001: 8 bits-per-sample.
//	010: 12 bits-per-sample.
//	011: reserved.
//	100: 16 bits-per-sample.
//	101: 20 bits-per-sample.
//	110: 24 bits-per-sample.
//	111: 32 bits-per-sample.
func (frame *Frame) parseSampleSize(n uint64, info *meta.StreamInfo) error {
	switch n {
	case 0x0:
		if info == nil {
			return errors.Wrap(ErrInvalidSampleSize, "sample size deferred to absent stream info")
		}
		frame.BitsPerSample = info.BitsPerSample
	case 0x1:
		frame.BitsPerSample = 8
	case 0x2:
		frame.BitsPerSample = 12
	case 0x3:
		return errors.Wrap(ErrInvalidSampleSize, "reserved bit pattern 011")
	case 0x4:
		frame.BitsPerSample = 16
	case 0x5:
		frame.BitsPerSample = 20
	case 0x6:
		frame.BitsPerSample = 24
	case 0x7:
		frame.BitsPerSample = 32
	}
	return nil
}
