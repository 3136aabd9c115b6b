package frame

import (
	"io"

	"github.com/audiodec/flac/internal/bits"
	"github.com/audiodec/flac/meta"
)

// A Decoder reads consecutive audio frames of a stream. Header fields which
// defer to StreamInfo are resolved against the stream info of the decoder.
type Decoder struct {
	br   *bits.Reader
	info *meta.StreamInfo
	buf  *Buffer
}

// NewDecoder returns a decoder reading audio frames from r. If buf is non-nil
// the samples of decoded frames are stored in buf, and are only valid until
// the next frame is parsed.
func NewDecoder(r io.Reader, info *meta.StreamInfo, buf *Buffer) *Decoder {
	return &Decoder{br: bits.NewReader(r), info: info, buf: buf}
}

// Next reads and parses the header of the next audio frame. Call Frame.Parse
// to parse its audio samples. It returns io.EOF when the source ends at a frame
// boundary.
func (dec *Decoder) Next() (*Frame, error) {
	return newFrame(dec.br, dec.info, dec.buf)
}

// Resync discards input until the next byte-aligned frame sync code, so that
// the following call to Next starts decoding from there. It returns the number
// of bytes skipped.
func (dec *Decoder) Resync() (int64, error) {
	return dec.br.Sync()
}

// Reset discards buffered input and continues decoding from r, typically the
// same source after it has been repositioned.
func (dec *Decoder) Reset(r io.Reader) {
	dec.br.Reset(r)
}
