package meta

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// registeredApplications maps from a registered application ID to a
// description.
//
// ref: https://www.xiph.org/flac/id.html
var registeredApplications = map[ID]string{
	"ATCH": "FlacFile",
	"BSOL": "beSolo",
	"BUGS": "Bugs Player",
	"Cues": "GoldWave cue points (specification)",
	"Fica": "CUE Splitter",
	"Ftol": "flac-tools",
	"MOTB": "MOTB MetaCzar",
	"MPSE": "MP3 Stream Editor",
	"MuML": "MusicML: Music Metadata Language",
	"RIFF": "Sound Devices RIFF chunk storage",
	"SFFL": "Sound Font FLAC",
	"SONY": "Sony Creative Software",
	"SQEZ": "flacsqueeze",
	"TtWv": "TwistedWave",
	"UITS": "UITS Embedding tools",
	"aiff": "FLAC AIFF chunk storage",
	"imag": "flac-image application for storing arbitrary files in APPLICATION metadata blocks",
	"peem": "Parseable Embedded Extensible Metadata (specification)",
	"qfst": "QFLAC Studio",
	"riff": "FLAC RIFF chunk storage",
	"tune": "TagTuner",
	"xbat": "XBAT",
	"xmcd": "xmcd",
}

// An ID is a 4 byte identifier of a registered application.
type ID string

// Registered returns the name of the application registered under id, and
// reports whether id is registered.
func (id ID) Registered() (string, bool) {
	name, ok := registeredApplications[id]
	return name, ok
}

func (id ID) String() string {
	if name, ok := id.Registered(); ok {
		return fmt.Sprintf("%s (%s)", string(id), name)
	}
	return fmt.Sprintf("%q (unregistered)", string(id))
}

// An Application metadata block holds data of a third-party application,
// identified by a 32-bit ID which is granted upon request by the FLAC
// maintainers.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_application
type Application struct {
	// Registered application ID.
	ID ID
	// Application data; its layout is defined by the application.
	Data []byte
}

// parseApplication reads and parses the body of an Application metadata block.
//
// Application format (pseudo code):
//
//	type METADATA_BLOCK_APPLICATION struct {
//	   ID   [4]byte
//	   Data [header.Length-4]byte
//	}
func (block *Block) parseApplication() error {
	if block.Length < 4 {
		return errors.Wrapf(ErrBlockLength, "%d byte body lacks application ID", block.Length)
	}
	buf := make([]byte, block.Length)
	if _, err := io.ReadFull(block.lr, buf); err != nil {
		return err
	}
	block.Body = &Application{ID: ID(buf[:4]), Data: buf[4:]}
	return nil
}
