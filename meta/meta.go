// Package meta implements access to FLAC metadata blocks.
//
// FLAC metadata is stored in blocks; each block contains a header followed by
// a body. The block header describes the type of the block body, its length in
// bytes, and specifies if the block is the last metadata block of the stream.
// The first block of every stream is a StreamInfo block.
//
// ref: https://www.xiph.org/flac/format.html#format_overview
package meta

import (
	"io"

	"github.com/pkg/errors"
)

// A Block contains the header and body of a metadata block.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block
type Block struct {
	// Metadata block header.
	Header
	// Metadata block body of type *StreamInfo, *Application, *SeekTable,
	// *VorbisComment, *CueSheet, *Picture or *Unknown. Padding blocks have a nil
	// body. Body is initially nil, and gets populated by a call to Block.Parse.
	Body interface{}
	// Underlying reader; limited by the length of the block body.
	lr *io.LimitedReader
}

// New creates a new Block for accessing the metadata of r. It reads and parses
// a metadata block header.
//
// Call Block.Parse to parse the metadata block body, and call Block.Skip to
// ignore it.
func New(r io.Reader) (block *Block, err error) {
	block = new(Block)
	if err := block.parseHeader(r); err != nil {
		return nil, err
	}
	block.lr = &io.LimitedReader{R: r, N: block.Length}
	return block, nil
}

// Parse reads and parses the header and body of a metadata block. Use New for
// additional granularity.
func Parse(r io.Reader) (block *Block, err error) {
	block, err = New(r)
	if err != nil {
		return nil, err
	}
	if err := block.Parse(); err != nil {
		return nil, err
	}
	return block, nil
}

// Parse reads and parses the metadata block body. Blocks of reserved type are
// given an *Unknown body and their contents are skipped.
func (block *Block) Parse() error {
	var err error
	switch block.Type {
	case TypeStreamInfo:
		err = block.parseStreamInfo()
	case TypePadding:
		err = block.verifyPadding()
	case TypeApplication:
		err = block.parseApplication()
	case TypeSeekTable:
		err = block.parseSeekTable()
	case TypeVorbisComment:
		err = block.parseVorbisComment()
	case TypeCueSheet:
		err = block.parseCueSheet()
	case TypePicture:
		err = block.parsePicture()
	default:
		if block.Type == typeInvalid {
			return ErrInvalidType
		}
		block.Body = &Unknown{Type: block.Type}
		err = block.Skip()
	}
	if err != nil {
		return errors.Wrapf(unexpected(err), "meta: unable to parse %v block", block.Type)
	}
	if block.lr.N != 0 {
		return errors.Wrapf(ErrBlockLength, "meta: %d unread bytes in %v block", block.lr.N, block.Type)
	}
	return nil
}

// Skip ignores the contents of the metadata block body.
func (block *Block) Skip() error {
	if sr, ok := block.lr.R.(io.Seeker); ok {
		if _, err := sr.Seek(block.lr.N, io.SeekCurrent); err != nil {
			return err
		}
		block.lr.N = 0
		return nil
	}
	if _, err := io.Copy(io.Discard, block.lr); err != nil {
		return err
	}
	if block.lr.N != 0 {
		return io.ErrUnexpectedEOF
	}
	return nil
}

// A Header contains information about the type and length of a metadata block.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_header
type Header struct {
	// IsLast specifies if the block is the last metadata block.
	IsLast bool
	// Metadata block body type.
	Type Type
	// Length of body data in bytes.
	Length int64
}

// parseHeader reads and parses the header of a metadata block.
//
// Block header format (pseudo code):
//
//	type METADATA_BLOCK_HEADER struct {
//	   is_last    bool
//	   block_type uint7
//	   length     uint24
//	}
func (block *Block) parseHeader(r io.Reader) error {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		// A partial header is reported as io.ErrUnexpectedEOF; a missing one
		// as io.EOF, which the caller decides how to treat.
		return err
	}
	block.IsLast = buf[0]&0x80 != 0
	block.Type = Type(buf[0] & 0x7F)
	block.Length = int64(buf[1])<<16 | int64(buf[2])<<8 | int64(buf[3])
	return nil
}

// Type represents the type of a metadata block body.
type Type uint8

// Metadata block body types.
const (
	TypeStreamInfo    Type = 0
	TypePadding       Type = 1
	TypeApplication   Type = 2
	TypeSeekTable     Type = 3
	TypeVorbisComment Type = 4
	TypeCueSheet      Type = 5
	TypePicture       Type = 6

	// Block type 127 is invalid, to avoid confusion with a frame sync code.
	typeInvalid Type = 127
)

func (t Type) String() string {
	switch t {
	case TypeStreamInfo:
		return "stream info"
	case TypePadding:
		return "padding"
	case TypeApplication:
		return "application"
	case TypeSeekTable:
		return "seek table"
	case TypeVorbisComment:
		return "vorbis comment"
	case TypeCueSheet:
		return "cue sheet"
	case TypePicture:
		return "picture"
	case typeInvalid:
		return "<invalid block type>"
	default:
		return "<reserved block type>"
	}
}

// Unknown is the body of a metadata block of a reserved type. Its contents are
// skipped.
type Unknown struct {
	// Raw block type, in the range 7-126.
	Type Type
}

// unexpected returns io.ErrUnexpectedEOF if err is io.EOF, and returns err
// otherwise.
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
