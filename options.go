package flac

import (
	"crypto/md5"

	"github.com/charmbracelet/log"
)

// An Option configures a Stream at creation.
type Option func(stream *Stream)

// WithLogger directs the debug and warning events of the stream to logger.
// By default they are discarded.
func WithLogger(logger *log.Logger) Option {
	return func(stream *Stream) {
		stream.logger = logger
	}
}

// CopySamples makes every decoded frame own its samples. By default the sample
// storage is reused between frames.
func CopySamples(stream *Stream) {
	stream.copySamples = true
}

// VerifyMD5 verifies the MD5 hash of the audio samples decoded by
// Stream.ParseNext against StreamInfo.MD5sum. A mismatch is reported in place
// of io.EOF at the end of the stream.
func VerifyMD5(stream *Stream) {
	stream.md5sum = md5.New()
}
