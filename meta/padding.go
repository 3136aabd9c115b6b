package meta

import (
	"io"

	"github.com/pkg/errors"
)

// verifyPadding consumes the body of a Padding metadata block, which may only
// contain zero bytes.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_padding
func (block *Block) verifyPadding() error {
	var buf [512]byte
	var off int64
	for {
		n, err := block.lr.Read(buf[:])
		for i, b := range buf[:n] {
			if b != 0 {
				return errors.Wrapf(ErrInvalidPadding, "byte 0x%02X at offset %d", b, off+int64(i))
			}
		}
		off += int64(n)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
