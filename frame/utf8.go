package frame

import (
	"github.com/audiodec/flac/internal/bits"
	"github.com/pkg/errors"
)

const (
	tx = 0x80 // 1000 0000
	t2 = 0xC0 // 1100 0000
	t3 = 0xE0 // 1110 0000
	t4 = 0xF0 // 1111 0000
	t5 = 0xF8 // 1111 1000
	t6 = 0xFC // 1111 1100
	t7 = 0xFE // 1111 1110
	t8 = 0xFF // 1111 1111

	maskx = 0x3F // 0011 1111
	mask2 = 0x1F // 0001 1111
	mask3 = 0x0F // 0000 1111
	mask4 = 0x07 // 0000 0111
	mask5 = 0x03 // 0000 0011
	mask6 = 0x01 // 0000 0001
)

// decodeUTF8Int decodes a "UTF-8" coded integer of at most maxBytes bytes. The
// coding extends UTF-8 to 36-bit values using up to 7 bytes:
//
//	1 byte:  0xxxxxxx (7 bits)
//	2 bytes: 110xxxxx 10xxxxxx (11 bits)
//	3 bytes: 1110xxxx 10xxxxxx 10xxxxxx (16 bits)
//	4 bytes: 11110xxx 10xxxxxx 10xxxxxx 10xxxxxx (21 bits)
//	5 bytes: 111110xx 10xxxxxx 10xxxxxx 10xxxxxx 10xxxxxx (26 bits)
//	6 bytes: 1111110x 10xxxxxx 10xxxxxx 10xxxxxx 10xxxxxx 10xxxxxx (31 bits)
//	7 bytes: 11111110 10xxxxxx 10xxxxxx 10xxxxxx 10xxxxxx 10xxxxxx 10xxxxxx (36 bits)
func decodeUTF8Int(br *bits.Reader, maxBytes int) (n uint64, err error) {
	x, err := br.Read(8)
	if err != nil {
		return 0, unexpected(err)
	}
	c0 := byte(x)

	var l int
	switch {
	case c0 < tx:
		// 1 byte: 0xxxxxxx.
		return uint64(c0), nil
	case c0 < t2:
		// Continuation byte in leading position.
		return 0, errors.Wrapf(ErrInvalidUTF8, "unexpected continuation byte 0x%02X", c0)
	case c0 < t3:
		l, n = 2, uint64(c0&mask2)
	case c0 < t4:
		l, n = 3, uint64(c0&mask3)
	case c0 < t5:
		l, n = 4, uint64(c0&mask4)
	case c0 < t6:
		l, n = 5, uint64(c0&mask5)
	case c0 < t7:
		l, n = 6, uint64(c0&mask6)
	case c0 < t8:
		l, n = 7, 0
	default:
		return 0, errors.Wrap(ErrInvalidUTF8, "invalid leading byte 0xFF")
	}
	if l > maxBytes {
		return 0, errors.Wrapf(ErrInvalidUTF8, "%d-byte coded number exceeds maximum of %d bytes", l, maxBytes)
	}

	// Continuation bytes: 10xxxxxx.
	for i := 1; i < l; i++ {
		x, err := br.Read(8)
		if err != nil {
			return 0, unexpected(err)
		}
		c := byte(x)
		if c&t2 != tx {
			return 0, errors.Wrapf(ErrInvalidUTF8, "expected continuation byte, got 0x%02X", c)
		}
		n = n<<6 | uint64(c&maskx)
	}
	return n, nil
}
