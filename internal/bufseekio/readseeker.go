// Package bufseekio provides a buffered io.ReadSeeker which also implements
// io.ByteReader, so that a bit reader may consume it without an additional
// buffering layer while the stream keeps track of byte offsets for seeking.
package bufseekio

import (
	"errors"
	"io"
)

const (
	defaultBufSize    = 4096
	minReadBufferSize = 16

	maxConsecutiveEmptyReads = 100
)

var errNegativeRead = errors.New("bufseekio: reader returned negative count from Read")

// ReadSeeker buffers reads from an io.ReadSeeker. Seeks that land inside the
// buffered window are served without touching the underlying source.
type ReadSeeker struct {
	rd   io.ReadSeeker
	buf  []byte
	pos  int64 // absolute source offset of buf[0]
	r, w int   // read and write positions within buf
	err  error
}

// NewReadSeekerSize returns a new ReadSeeker whose buffer has at least the
// specified size. If rd is already a ReadSeeker with a large enough buffer, rd
// is returned.
func NewReadSeekerSize(rd io.ReadSeeker, size int) *ReadSeeker {
	if b, ok := rd.(*ReadSeeker); ok && len(b.buf) >= size {
		return b
	}
	size = max(size, minReadBufferSize)
	return &ReadSeeker{rd: rd, buf: make([]byte, size)}
}

// NewReadSeeker returns a new ReadSeeker whose buffer has the default size.
func NewReadSeeker(rd io.ReadSeeker) *ReadSeeker {
	return NewReadSeekerSize(rd, defaultBufSize)
}

// Offset returns the absolute read offset within the underlying source.
func (b *ReadSeeker) Offset() int64 {
	return b.pos + int64(b.r)
}

// Read reads data into p, taking bytes from at most one Read on the
// underlying source. A non-zero count may be returned together with the
// error of the source.
func (b *ReadSeeker) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		if b.buffered() > 0 {
			return 0, nil
		}
		return 0, b.takeErr()
	}
	if b.buffered() == 0 {
		if b.err != nil {
			return 0, b.takeErr()
		}
		if len(p) >= len(b.buf) {
			// Large read into an empty buffer; bypass the copy.
			b.discard()
			n, b.err = b.rd.Read(p)
			if n < 0 {
				panic(errNegativeRead)
			}
			b.pos += int64(n)
			return n, b.takeErr()
		}
		if b.fill() == 0 {
			return 0, b.takeErr()
		}
	}
	n = copy(p, b.buf[b.r:b.w])
	b.r += n
	return n, nil
}

// ReadByte reads and returns a single byte.
func (b *ReadSeeker) ReadByte() (byte, error) {
	for i := 0; b.buffered() == 0; i++ {
		if b.err != nil {
			return 0, b.takeErr()
		}
		if i == maxConsecutiveEmptyReads {
			return 0, io.ErrNoProgress
		}
		b.fill()
	}
	c := b.buf[b.r]
	b.r++
	return c, nil
}

// Seek implements io.Seeker.
func (b *ReadSeeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekCurrent:
		if offset == 0 {
			return b.Offset(), nil
		}
		offset += b.Offset()
	case io.SeekEnd:
		// The size of the source is unknown; defer to it.
		return b.seek(offset, whence)
	}
	if offset >= b.pos && offset < b.pos+int64(b.w) {
		b.r = int(offset - b.pos)
		return offset, nil
	}
	return b.seek(offset, io.SeekStart)
}

func (b *ReadSeeker) seek(offset int64, whence int) (int64, error) {
	b.r, b.w = 0, 0
	b.err = nil
	var err error
	b.pos, err = b.rd.Seek(offset, whence)
	return b.pos, err
}

// fill discards the consumed buffer and performs one Read on the source. It
// returns the number of bytes read.
func (b *ReadSeeker) fill() int {
	b.discard()
	n, err := b.rd.Read(b.buf)
	if n < 0 {
		panic(errNegativeRead)
	}
	b.w = n
	b.err = err
	return n
}

// discard drops buffered data, advancing pos past the consumed bytes.
func (b *ReadSeeker) discard() {
	b.pos += int64(b.r)
	b.r, b.w = 0, 0
}

func (b *ReadSeeker) buffered() int { return b.w - b.r }

func (b *ReadSeeker) takeErr() error {
	err := b.err
	b.err = nil
	return err
}
