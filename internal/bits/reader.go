// Package bits provides bit level access to FLAC bitstreams.
package bits

import (
	"bufio"
	"io"

	"github.com/audiodec/flac/internal/hashutil"
	"github.com/audiodec/flac/internal/hashutil/crc16"
	"github.com/audiodec/flac/internal/hashutil/crc8"
	"github.com/icza/bitio"
	"github.com/pkg/errors"
)

// MaxWidth is the largest bit width accepted by a single read.
const MaxWidth = 64

// ErrBitWidth reports a read whose bit width exceeds the permitted maximum.
var ErrBitWidth = errors.New("bits: bit width out of range")

// A Reader reads bits, MSB first, from an underlying byte source. Every byte
// consumed while a checksum scope is active is added to the corresponding
// running CRC.
type Reader struct {
	// Bit cache on top of src.
	br *bitio.Reader
	// Checksumming byte source.
	src *source
}

// NewReader returns a new Reader reading from r. If r does not implement
// io.ByteReader it is wrapped in a bufio.Reader.
func NewReader(r io.Reader) *Reader {
	src := &source{
		crc8:  crc8.NewATM(),
		crc16: crc16.NewIBM(),
	}
	src.reset(r)
	return &Reader{br: bitio.NewReader(src), src: src}
}

// Reset discards any cached bits and pending bytes and continues reading from
// r. It is used after the underlying stream has been repositioned.
func (br *Reader) Reset(r io.Reader) {
	br.src.reset(r)
	br.src.crc8On, br.src.crc16On = false, false
	br.br = bitio.NewReader(br.src)
}

// Read reads and returns the next n bits, at most 64, as an unsigned integer.
func (br *Reader) Read(n uint) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	if n > MaxWidth {
		return 0, ErrBitWidth
	}
	return br.br.ReadBits(uint8(n))
}

// ReadSigned reads the next n bits, at most 64, as a two's complement signed
// integer.
func (br *Reader) ReadSigned(n uint) (int64, error) {
	if n == 0 {
		return 0, nil
	}
	x, err := br.Read(n)
	if err != nil {
		return 0, err
	}
	return IntN(x, n), nil
}

// Align discards the remaining bits of a partially consumed byte. It returns
// the number of bits skipped.
func (br *Reader) Align() uint {
	return uint(br.br.Align())
}

// Pending returns the number of bytes pushed back by Sync that have not yet
// been consumed.
func (br *Reader) Pending() int {
	return len(br.src.pending)
}

// Sync discards input until the next byte-aligned frame sync code
// (0xFFF8 or 0xFFF9) and leaves it unread, so that the next frame header read
// starts at the sync code. It returns the number of bytes discarded. Checksum
// scopes are closed.
func (br *Reader) Sync() (skipped int64, err error) {
	br.br.Align()
	br.src.crc8On, br.src.crc16On = false, false
	var prev byte
	var n int64
	for {
		b, err := br.src.ReadByte()
		if err != nil {
			return n, err
		}
		n++
		if n >= 2 && prev == 0xFF && b&0xFE == 0xF8 {
			br.src.unread(prev, b)
			return n - 2, nil
		}
		prev = b
	}
}

// EnableCRC8 resets the CRC-8 and starts adding consumed bytes to it.
func (br *Reader) EnableCRC8() {
	br.src.crc8.Reset()
	br.src.crc8On = true
}

// CRC8 stops the CRC-8 scope and returns the checksum of the bytes consumed
// since EnableCRC8.
func (br *Reader) CRC8() uint8 {
	br.src.crc8On = false
	return br.src.crc8.Sum8()
}

// EnableCRC16 resets the CRC-16 and starts adding consumed bytes to it.
func (br *Reader) EnableCRC16() {
	br.src.crc16.Reset()
	br.src.crc16On = true
}

// CRC16 stops the CRC-16 scope and returns the checksum of the bytes consumed
// since EnableCRC16.
func (br *Reader) CRC16() uint16 {
	br.src.crc16On = false
	return br.src.crc16.Sum16()
}

// source is the byte source of the bit cache. It hashes every byte handed out
// while a checksum scope is active.
type source struct {
	r io.ByteReader
	// Bytes pushed back by Reader.Sync, served before r.
	pending []byte
	crc8    hashutil.Hash8
	crc16   hashutil.Hash16
	crc8On  bool
	crc16On bool
	one     [1]byte
}

func (src *source) reset(r io.Reader) {
	if rb, ok := r.(io.ByteReader); ok {
		src.r = rb
	} else {
		src.r = bufio.NewReader(r)
	}
	src.pending = src.pending[:0]
}

func (src *source) unread(b ...byte) {
	src.pending = append(src.pending, b...)
}

// ReadByte implements io.ByteReader.
func (src *source) ReadByte() (byte, error) {
	var b byte
	if len(src.pending) > 0 {
		b = src.pending[0]
		src.pending = src.pending[1:]
	} else {
		var err error
		if b, err = src.r.ReadByte(); err != nil {
			return 0, err
		}
	}
	if src.crc8On || src.crc16On {
		src.one[0] = b
		if src.crc8On {
			src.crc8.Write(src.one[:])
		}
		if src.crc16On {
			src.crc16.Write(src.one[:])
		}
	}
	return b, nil
}

// Read implements io.Reader.
func (src *source) Read(p []byte) (n int, err error) {
	for n < len(p) {
		b, err := src.ReadByte()
		if err != nil {
			return n, err
		}
		p[n] = b
		n++
	}
	return n, nil
}
