package meta

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// A CueSheet metadata block stores track and index points, compatible with
// Red Book CD digital audio discs, as well as other CD-DA metadata such as the
// media catalog number and track ISRCs.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_cuesheet
type CueSheet struct {
	// Media catalog number, in ASCII printable characters 0x20-0x7E.
	MCN string
	// Number of lead-in samples; only meaningful for CD-DA cue sheets.
	NLeadInSamples uint64
	// Specifies if the cue sheet corresponds to a Compact Disc.
	IsCompactDisc bool
	// One or more tracks. The last track is the lead-out track.
	Tracks []CueSheetTrack
}

// CueSheetTrack contains the start offset of a track and other track specific
// metadata.
type CueSheetTrack struct {
	// Track offset in samples, relative to the beginning of the FLAC audio
	// stream.
	Offset uint64
	// Track number; never 0, always unique.
	Num uint8
	// International Standard Recording Code; empty string if not present.
	ISRC string
	// Specifies if the track contains audio or data.
	IsAudio bool
	// Specifies if the track has been recorded with pre-emphasis.
	HasPreEmphasis bool
	// Every track has one or more track index points, except for the lead-out
	// track which has zero.
	Indicies []CueSheetTrackIndex
}

// A CueSheetTrackIndex specifies a position within a track.
type CueSheetTrackIndex struct {
	// Index point offset in samples, relative to the track offset.
	Offset uint64
	// Index point number; subsequently incrementing by 1 and always unique
	// within a track.
	Num uint8
}

// parseCueSheet reads and parses the body of a CueSheet metadata block.
//
// Cue sheet format (pseudo code):
//
//	type METADATA_BLOCK_CUESHEET struct {
//	   mcn                  [128]byte
//	   n_lead_in_samples    uint64
//	   is_compact_disc      bool
//	   _                    uint7
//	   _                    [258]byte
//	   n_tracks             uint8
//	   tracks               [n_tracks]track
//	}
//
//	type track struct {
//	   offset            uint64
//	   num               uint8
//	   isrc              [12]byte
//	   is_data           bool
//	   has_pre_emphasis  bool
//	   _                 uint6
//	   _                 [13]byte
//	   n_indicies        uint8
//	   indicies          [n_indicies]track_index
//	}
//
//	type track_index struct {
//	   offset uint64
//	   num    uint8
//	   _      [3]byte
//	}
func (block *Block) parseCueSheet() error {
	r := block.lr
	var mcn [128]byte
	if _, err := io.ReadFull(r, mcn[:]); err != nil {
		return err
	}
	cs := &CueSheet{MCN: stringFromSZ(mcn[:])}
	for _, c := range []byte(cs.MCN) {
		if c < 0x20 || c > 0x7E {
			return errors.Errorf("meta: invalid character in media catalog number; expected >= 0x20 and <= 0x7E, got 0x%02X", c)
		}
	}
	if err := binary.Read(r, binary.BigEndian, &cs.NLeadInSamples); err != nil {
		return err
	}

	// 1 bit: is_compact_disc; 7 bits + 258 bytes: reserved.
	var flags [259]byte
	if _, err := io.ReadFull(r, flags[:]); err != nil {
		return err
	}
	cs.IsCompactDisc = flags[0]&0x80 != 0
	if flags[0]&0x7F != 0 || !isAllZero(flags[1:]) {
		return ErrReservedNotZero
	}
	if !cs.IsCompactDisc && cs.NLeadInSamples != 0 {
		return errors.Errorf("meta: invalid number of lead-in samples for non CD-DA; expected 0, got %d", cs.NLeadInSamples)
	}

	var nTracks uint8
	if err := binary.Read(r, binary.BigEndian, &nTracks); err != nil {
		return err
	}
	if nTracks < 1 {
		return errors.New("meta: at least one track (the lead-out track) is required")
	}
	if cs.IsCompactDisc && nTracks > 100 {
		return errors.Errorf("meta: too many tracks for CD-DA cue sheet; expected <= 100, got %d", nTracks)
	}
	cs.Tracks = make([]CueSheetTrack, nTracks)
	for i := range cs.Tracks {
		leadOut := i == len(cs.Tracks)-1
		if err := cs.parseTrack(r, &cs.Tracks[i], leadOut); err != nil {
			return err
		}
	}
	block.Body = cs
	return nil
}

// parseTrack reads and parses a single cue sheet track.
func (cs *CueSheet) parseTrack(r io.Reader, track *CueSheetTrack, leadOut bool) error {
	if err := binary.Read(r, binary.BigEndian, &track.Offset); err != nil {
		return err
	}
	if cs.IsCompactDisc && track.Offset%588 != 0 {
		return errors.Errorf("meta: invalid track offset (%d) for CD-DA; must be evenly divisible by 588", track.Offset)
	}
	if err := binary.Read(r, binary.BigEndian, &track.Num); err != nil {
		return err
	}
	switch {
	case track.Num == 0:
		// Reserved for the CD-DA lead-in.
		return errors.New("meta: track number 0 not allowed")
	case cs.IsCompactDisc && leadOut && track.Num != 170:
		return errors.Errorf("meta: invalid lead-out track number for CD-DA; expected 170, got %d", track.Num)
	case cs.IsCompactDisc && !leadOut && track.Num > 99:
		return errors.Errorf("meta: invalid track number for CD-DA; expected <= 99, got %d", track.Num)
	case !cs.IsCompactDisc && leadOut && track.Num != 255:
		return errors.Errorf("meta: invalid lead-out track number for non CD-DA; expected 255, got %d", track.Num)
	}

	// 12 bytes: ISRC; 1 bit: is_data; 1 bit: has_pre_emphasis; 6 bits + 13
	// bytes: reserved.
	var buf [26]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	track.ISRC = stringFromSZ(buf[:12])
	track.IsAudio = buf[12]&0x80 == 0
	track.HasPreEmphasis = buf[12]&0x40 != 0
	if buf[12]&0x3F != 0 || !isAllZero(buf[13:]) {
		return ErrReservedNotZero
	}

	var nIndicies uint8
	if err := binary.Read(r, binary.BigEndian, &nIndicies); err != nil {
		return err
	}
	switch {
	case leadOut && nIndicies != 0:
		return errors.Errorf("meta: invalid number of track points for the lead-out track; expected 0, got %d", nIndicies)
	case !leadOut && nIndicies < 1:
		return errors.Errorf("meta: invalid number of track points; expected >= 1, got %d", nIndicies)
	case cs.IsCompactDisc && nIndicies > 100:
		return errors.Errorf("meta: invalid number of track points for CD-DA; expected <= 100, got %d", nIndicies)
	}
	if nIndicies == 0 {
		return nil
	}
	track.Indicies = make([]CueSheetTrackIndex, nIndicies)
	for i := range track.Indicies {
		// 8 bytes: offset; 1 byte: num; 3 bytes: reserved.
		var buf [12]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		track.Indicies[i] = CueSheetTrackIndex{
			Offset: binary.BigEndian.Uint64(buf[:8]),
			Num:    buf[8],
		}
		if !isAllZero(buf[9:]) {
			return ErrReservedNotZero
		}
	}
	return nil
}

// stringFromSZ converts the provided byte slice to a string after terminating
// it at the first occurrence of a NULL character.
func stringFromSZ(buf []byte) string {
	if pos := bytes.IndexByte(buf, 0); pos != -1 {
		buf = buf[:pos]
	}
	return string(buf)
}

// isAllZero reports whether every byte of buf is zero.
func isAllZero(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}
