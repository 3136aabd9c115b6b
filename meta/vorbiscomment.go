package meta

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// A VorbisComment metadata block is for storing a list of human-readable
// name/value pairs. Values are encoded using UTF-8. It is an implementation of
// the Vorbis comment specification (without the framing bit). This is the only
// officially supported tagging mechanism in FLAC. There may be only one
// VORBIS_COMMENT block in a stream. In some external documentation, Vorbis
// comments are called FLAC tags to lessen confusion.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_vorbis_comment
type VorbisComment struct {
	// Vendor name.
	Vendor string
	// A list of tags, each represented by a name-value pair, in stream order.
	Tags [][2]string
}

// Get returns the value of the first tag whose name matches name, ignoring
// case, and reports whether such a tag exists.
func (vc *VorbisComment) Get(name string) (string, bool) {
	for _, tag := range vc.Tags {
		if strings.EqualFold(tag[0], name) {
			return tag[1], true
		}
	}
	return "", false
}

// parseVorbisComment reads and parses the body of a VorbisComment metadata
// block.
//
// Vorbis comment format (pseudo code):
//
//	type METADATA_BLOCK_VORBIS_COMMENT struct {
//	   vendor_length uint32
//	   vendor_string [vendor_length]byte
//	   comment_count uint32
//	   comments      [comment_count]comment
//	}
//
//	type comment struct {
//	   vector_length uint32
//	   // vector_string is a name/value pair. Example: "NAME=value".
//	   vector_string [length]byte
//	}
//
// All lengths are little-endian.
func (block *Block) parseVorbisComment() error {
	vendor, err := block.readLengthPrefixed(binary.LittleEndian)
	if err != nil {
		return err
	}
	vc := &VorbisComment{Vendor: string(vendor)}

	var n uint32
	if err := binary.Read(block.lr, binary.LittleEndian, &n); err != nil {
		return err
	}
	// Each comment occupies at least its 4-byte length.
	if int64(n)*4 > block.lr.N {
		return io.ErrUnexpectedEOF
	}
	vc.Tags = make([][2]string, n)
	for i := range vc.Tags {
		buf, err := block.readLengthPrefixed(binary.LittleEndian)
		if err != nil {
			return err
		}
		vector := string(buf)
		pos := strings.Index(vector, "=")
		if pos == -1 {
			return errors.Errorf("meta: invalid comment vector; no '=' present in %q", vector)
		}
		vc.Tags[i] = [2]string{vector[:pos], vector[pos+1:]}
	}
	block.Body = vc
	return nil
}

// readLengthPrefixed reads a 32-bit length in the given byte order followed by
// that many bytes. Lengths beyond the remaining block body are rejected before
// allocation.
func (block *Block) readLengthPrefixed(order binary.ByteOrder) ([]byte, error) {
	var n uint32
	if err := binary.Read(block.lr, order, &n); err != nil {
		return nil, err
	}
	if int64(n) > block.lr.N {
		return nil, io.ErrUnexpectedEOF
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(block.lr, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
