package meta

import (
	"io"

	"github.com/pkg/errors"
)

// A Reader yields the metadata blocks of a FLAC stream one at a time. The
// first block must be a StreamInfo block; iteration ends after the block
// flagged as last.
type Reader struct {
	r io.Reader
	// Number of blocks read so far.
	n int
	// Set once the last block has been read.
	done bool
}

// NewReader returns a Reader for the metadata blocks of r. The "fLaC"
// signature must already have been consumed from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next reads and parses the next metadata block. It returns io.EOF once the
// block flagged as last has been read.
func (mr *Reader) Next() (*Block, error) {
	if mr.done {
		return nil, io.EOF
	}
	block, err := New(mr.r)
	if err != nil {
		// At least one metadata block must precede the audio frames.
		return nil, errors.Wrap(unexpected(err), "meta: unable to read block header")
	}
	if mr.n == 0 && block.Type != TypeStreamInfo {
		return nil, errors.Wrapf(ErrFirstNotStreamInfo, "meta: first block is of type %v", block.Type)
	}
	if err := block.Parse(); err != nil {
		return nil, err
	}
	mr.n++
	mr.done = block.IsLast
	return block, nil
}

// ReadAll reads the metadata blocks of r up to and including the block flagged
// as last.
func ReadAll(r io.Reader) ([]*Block, error) {
	mr := NewReader(r)
	var blocks []*Block
	for {
		block, err := mr.Next()
		if err == io.EOF {
			return blocks, nil
		}
		if err != nil {
			return blocks, err
		}
		blocks = append(blocks, block)
	}
}
