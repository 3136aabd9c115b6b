// Package flactest synthesises FLAC bitstreams for tests.
//
// The encoder writes exactly the frames and metadata blocks it is handed; it
// performs no analysis beyond choosing a Rice parameter for subframes which
// leave it unspecified.
package flactest

import (
	"bytes"
	"io"

	"github.com/audiodec/flac/frame"
	"github.com/audiodec/flac/meta"
	"github.com/mewkiz/pkg/errutil"
)

// Signature marks the beginning of a FLAC stream.
var Signature = []byte("fLaC")

// EncodeStream writes a FLAC stream to w, consisting of the signature, the
// StreamInfo block, the given metadata blocks and the given audio frames.
func EncodeStream(w io.Writer, info *meta.StreamInfo, blocks []*meta.Block, frames ...*frame.Frame) error {
	if _, err := w.Write(Signature); err != nil {
		return errutil.Err(err)
	}
	infoBlock := &meta.Block{
		Header: meta.Header{IsLast: len(blocks) == 0, Type: meta.TypeStreamInfo},
		Body:   info,
	}
	if err := EncodeBlock(w, infoBlock); err != nil {
		return errutil.Err(err)
	}
	for i, block := range blocks {
		hdr := block.Header
		hdr.IsLast = i == len(blocks)-1
		b := &meta.Block{Header: hdr, Body: block.Body}
		if err := EncodeBlock(w, b); err != nil {
			return errutil.Err(err)
		}
	}
	for _, f := range frames {
		if err := EncodeFrame(w, f); err != nil {
			return errutil.Err(err)
		}
	}
	return nil
}

// Stream returns the bytes of a FLAC stream, as written by EncodeStream. It
// panics on error.
func Stream(info *meta.StreamInfo, blocks []*meta.Block, frames ...*frame.Frame) []byte {
	buf := new(bytes.Buffer)
	if err := EncodeStream(buf, info, blocks, frames...); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Frame returns the bytes of an encoded audio frame. It panics on error.
func Frame(f *frame.Frame) []byte {
	buf := new(bytes.Buffer)
	if err := EncodeFrame(buf, f); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
