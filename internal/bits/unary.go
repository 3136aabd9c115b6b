package bits

import (
	"github.com/icza/bitio"
)

// ReadUnary reads a unary coded integer, the number of zero bits preceding the
// next one bit.
//
//	1    => 0
//	01   => 1
//	001  => 2
//	0001 => 3
func (br *Reader) ReadUnary() (uint64, error) {
	var n uint64
	for {
		one, err := br.br.ReadBool()
		if err != nil {
			return 0, err
		}
		if one {
			return n, nil
		}
		n++
	}
}

// WriteUnary writes x as a unary coded integer; x zero bits followed by a one
// bit.
func WriteUnary(bw *bitio.Writer, x uint64) error {
	for ; x >= MaxWidth; x -= MaxWidth {
		if err := bw.WriteBits(0, MaxWidth); err != nil {
			return err
		}
	}
	return bw.WriteBits(1, uint8(x+1))
}
