package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/audiodec/flac"
	"github.com/audiodec/flac/meta"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type listOptions struct {
	// Block numbers to display; all blocks if empty.
	blockNums []int
}

func newListCmd() *cobra.Command {
	opts := &listOptions{}
	cmd := &cobra.Command{
		Use:   "list FILE...",
		Short: "List the metadata blocks of FLAC files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := list(cmd.OutOrStdout(), path, opts); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntSliceVarP(&opts.blockNums, "block-number", "b", nil, "Comma-separated list of block numbers to display")
	return cmd
}

func list(w io.Writer, path string, opts *listOptions) error {
	stream, err := flac.ParseFile(path, flac.WithLogger(logger))
	if err != nil {
		return errors.WithMessagef(err, "unable to parse %q", path)
	}
	defer stream.Close()

	if len(opts.blockNums) == 0 {
		listStreamInfoHeader(w, len(stream.Blocks) == 0)
		listStreamInfo(w, stream.Info)
		for i, block := range stream.Blocks {
			// stream.Blocks doesn't contain StreamInfo.
			listBlock(w, block, i+1)
		}
		return nil
	}
	// Only list the blocks given by the "--block-number" flag.
	for _, blockNum := range opts.blockNums {
		switch {
		case blockNum == 0:
			listStreamInfoHeader(w, len(stream.Blocks) == 0)
			listStreamInfo(w, stream.Info)
		case blockNum > 0 && blockNum <= len(stream.Blocks):
			listBlock(w, stream.Blocks[blockNum-1], blockNum)
		default:
			logger.Warn("no such metadata block", "file", path, "block", blockNum)
		}
	}
	return nil
}

func listBlock(w io.Writer, block *meta.Block, blockNum int) {
	listHeader(w, &block.Header, blockNum)
	switch body := block.Body.(type) {
	case *meta.Application:
		listApplication(w, body)
	case *meta.SeekTable:
		listSeekTable(w, body)
	case *meta.VorbisComment:
		listVorbisComment(w, body)
	case *meta.CueSheet:
		listCueSheet(w, body)
	case *meta.Picture:
		listPicture(w, body)
	}
}

// typeName maps from metadata block type to a string version of its name.
var typeName = map[meta.Type]string{
	meta.TypeStreamInfo:    "STREAMINFO",
	meta.TypePadding:       "PADDING",
	meta.TypeApplication:   "APPLICATION",
	meta.TypeSeekTable:     "SEEKTABLE",
	meta.TypeVorbisComment: "VORBIS_COMMENT",
	meta.TypeCueSheet:      "CUESHEET",
	meta.TypePicture:       "PICTURE",
}

// Each field of the StreamInfo header is constant, with the exception of
// is_last.
//
// Example:
//
//	METADATA block #0
//	  type: 0 (STREAMINFO)
//	  is last: false
//	  length: 34
func listStreamInfoHeader(w io.Writer, isLast bool) {
	fmt.Fprintln(w, "METADATA block #0")
	fmt.Fprintln(w, "  type: 0 (STREAMINFO)")
	fmt.Fprintln(w, "  is last:", isLast)
	fmt.Fprintln(w, "  length: 34")
}

func listHeader(w io.Writer, header *meta.Header, blockNum int) {
	name, ok := typeName[header.Type]
	if !ok {
		name = "UNKNOWN"
	}
	fmt.Fprintf(w, "METADATA block #%d\n", blockNum)
	fmt.Fprintf(w, "  type: %d (%s)\n", header.Type, name)
	fmt.Fprintf(w, "  is last: %t\n", header.IsLast)
	fmt.Fprintf(w, "  length: %d\n", header.Length)
}

// Example:
//
//	minimum blocksize: 4608 samples
//	maximum blocksize: 4608 samples
//	minimum framesize: 0 bytes
//	maximum framesize: 19024 bytes
//	sample_rate: 44100 Hz
//	channels: 2
//	bits-per-sample: 16
//	total samples: 151007220
//	MD5 signature: 2e6238f5d9fe5c19f3ead628f750fd3d
func listStreamInfo(w io.Writer, si *meta.StreamInfo) {
	fmt.Fprintf(w, "  minimum blocksize: %d samples\n", si.BlockSizeMin)
	fmt.Fprintf(w, "  maximum blocksize: %d samples\n", si.BlockSizeMax)
	fmt.Fprintf(w, "  minimum framesize: %d bytes\n", si.FrameSizeMin)
	fmt.Fprintf(w, "  maximum framesize: %d bytes\n", si.FrameSizeMax)
	fmt.Fprintf(w, "  sample_rate: %d Hz\n", si.SampleRate)
	fmt.Fprintf(w, "  channels: %d\n", si.NChannels)
	fmt.Fprintf(w, "  bits-per-sample: %d\n", si.BitsPerSample)
	fmt.Fprintf(w, "  total samples: %d\n", si.NSamples)
	fmt.Fprintf(w, "  MD5 signature: %x\n", si.MD5sum)
}

func listApplication(w io.Writer, app *meta.Application) {
	fmt.Fprintf(w, "  application ID: %x\n", string(app.ID))
	fmt.Fprintln(w, "  data contents:")
	if len(app.Data) > 0 {
		fmt.Fprint(w, hex.Dump(app.Data))
	}
}

// Example:
//
//	seek points: 17
//	  point 0: sample_number=0, stream_offset=0, frame_samples=4608
//	  point 1: sample_number=2419200, stream_offset=3733871, frame_samples=4608
//	  ...
func listSeekTable(w io.Writer, st *meta.SeekTable) {
	fmt.Fprintf(w, "  seek points: %d\n", len(st.Points))
	for pointNum, point := range st.Points {
		if point.SampleNum == meta.PlaceholderPoint {
			fmt.Fprintf(w, "    point %d: PLACEHOLDER\n", pointNum)
		} else {
			fmt.Fprintf(w, "    point %d: sample_number=%d, stream_offset=%d, frame_samples=%d\n", pointNum, point.SampleNum, point.Offset, point.NSamples)
		}
	}
}

func listVorbisComment(w io.Writer, vc *meta.VorbisComment) {
	fmt.Fprintf(w, "  vendor string: %s\n", vc.Vendor)
	fmt.Fprintf(w, "  comments: %d\n", len(vc.Tags))
	for tagNum, tag := range vc.Tags {
		fmt.Fprintf(w, "    comment[%d]: %s=%s\n", tagNum, tag[0], tag[1])
	}
}

func listCueSheet(w io.Writer, cs *meta.CueSheet) {
	fmt.Fprintf(w, "  media catalog number: %s\n", cs.MCN)
	fmt.Fprintf(w, "  lead-in: %d\n", cs.NLeadInSamples)
	fmt.Fprintf(w, "  is CD: %t\n", cs.IsCompactDisc)
	fmt.Fprintf(w, "  number of tracks: %d\n", len(cs.Tracks))
	for trackNum, track := range cs.Tracks {
		fmt.Fprintf(w, "    track[%d]\n", trackNum)
		fmt.Fprintf(w, "      offset: %d\n", track.Offset)
		if trackNum == len(cs.Tracks)-1 {
			// Lead-out track.
			fmt.Fprintf(w, "      number: %d (LEAD-OUT)\n", track.Num)
			continue
		}
		fmt.Fprintf(w, "      number: %d\n", track.Num)
		fmt.Fprintf(w, "      ISRC: %s\n", track.ISRC)
		trackType := "DATA"
		if track.IsAudio {
			trackType = "AUDIO"
		}
		fmt.Fprintf(w, "      type: %s\n", trackType)
		fmt.Fprintf(w, "      pre-emphasis: %t\n", track.HasPreEmphasis)
		fmt.Fprintf(w, "      number of index points: %d\n", len(track.Indicies))
		for indexNum, index := range track.Indicies {
			fmt.Fprintf(w, "        index[%d]\n", indexNum)
			fmt.Fprintf(w, "          offset: %d\n", index.Offset)
			fmt.Fprintf(w, "          number: %d\n", index.Num)
		}
	}
}

// pictureTypeName maps from picture type to a description of its contents.
var pictureTypeName = map[uint32]string{
	0:  "Other",
	1:  "32x32 pixels 'file icon' (PNG only)",
	2:  "Other file icon",
	3:  "Cover (front)",
	4:  "Cover (back)",
	5:  "Leaflet page",
	6:  "Media (e.g. label side of CD)",
	7:  "Lead artist/lead performer/soloist",
	8:  "Artist/performer",
	9:  "Conductor",
	10: "Band/Orchestra",
	11: "Composer",
	12: "Lyricist/text writer",
	13: "Recording Location",
	14: "During recording",
	15: "During performance",
	16: "Movie/video screen capture",
	17: "A bright coloured fish",
	18: "Illustration",
	19: "Band/artist logotype",
	20: "Publisher/Studio logotype",
}

func listPicture(w io.Writer, pic *meta.Picture) {
	fmt.Fprintf(w, "  type: %d (%s)\n", pic.Type, pictureTypeName[pic.Type])
	fmt.Fprintf(w, "  MIME type: %s\n", pic.MIME)
	fmt.Fprintf(w, "  description: %s\n", pic.Desc)
	fmt.Fprintf(w, "  width: %d\n", pic.Width)
	fmt.Fprintf(w, "  height: %d\n", pic.Height)
	fmt.Fprintf(w, "  depth: %d\n", pic.Depth)
	fmt.Fprintf(w, "  colors: %d", pic.NPalColors)
	if pic.NPalColors == 0 {
		fmt.Fprint(w, " (unindexed)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  data length: %d\n", len(pic.Data))
	fmt.Fprintln(w, "  data:")
	fmt.Fprint(w, hex.Dump(pic.Data))
}
