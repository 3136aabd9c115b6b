package main

import (
	"fmt"
	"io"

	"github.com/audiodec/flac"
	"github.com/audiodec/flac/meta"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// streamInfoOptions selects the StreamInfo fields to print. Every field is
// printed when none is selected.
type streamInfoOptions struct {
	blockSize     bool
	frameSize     bool
	sampleRate    bool
	channels      bool
	bitsPerSample bool
	totalSamples  bool
	md5           bool
}

func (opts *streamInfoOptions) none() bool {
	return !(opts.blockSize || opts.frameSize || opts.sampleRate || opts.channels || opts.bitsPerSample || opts.totalSamples || opts.md5)
}

func newInfoCmd() *cobra.Command {
	opts := &streamInfoOptions{}
	cmd := &cobra.Command{
		Use:   "info FILE",
		Short: "Print the StreamInfo fields of a FLAC file",
		Long:  "Print the StreamInfo fields of a FLAC file. Selecting fields prints only their values; without a selection every field is printed with a label.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return info(cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.blockSize, "block-size", false, "Show the minimum and maximum block size")
	cmd.Flags().BoolVar(&opts.frameSize, "frame-size", false, "Show the minimum and maximum frame size")
	cmd.Flags().BoolVar(&opts.sampleRate, "sample-rate", false, "Show the sample rate")
	cmd.Flags().BoolVar(&opts.channels, "channels", false, "Show the number of channels")
	cmd.Flags().BoolVar(&opts.bitsPerSample, "bits-per-sample", false, "Show the sample size in bits")
	cmd.Flags().BoolVar(&opts.totalSamples, "total-samples", false, "Show the total number of inter-channel samples")
	cmd.Flags().BoolVar(&opts.md5, "md5", false, "Show the MD5 signature of the audio samples")
	return cmd
}

func info(w io.Writer, path string, opts *streamInfoOptions) error {
	stream, err := flac.ParseFile(path, flac.WithLogger(logger))
	if err != nil {
		return errors.WithMessagef(err, "unable to parse %q", path)
	}
	defer stream.Close()

	printStreamInfo(w, stream.Info, opts)
	return nil
}

func printStreamInfo(w io.Writer, si *meta.StreamInfo, opts *streamInfoOptions) {
	all := opts.none()
	// field prints a single value, labelled when every field is printed.
	field := func(label string, format string, v interface{}) {
		if all {
			fmt.Fprintf(w, "%s: ", label)
		}
		fmt.Fprintf(w, format+"\n", v)
	}
	// Minimum and maximum sizes are always labelled.
	if all || opts.blockSize {
		fmt.Fprintf(w, "Minimum block size: %d samples\n", si.BlockSizeMin)
		fmt.Fprintf(w, "Maximum block size: %d samples\n", si.BlockSizeMax)
	}
	if all || opts.frameSize {
		fmt.Fprintf(w, "Minimum frame size: %d bytes\n", si.FrameSizeMin)
		fmt.Fprintf(w, "Maximum frame size: %d bytes\n", si.FrameSizeMax)
	}
	if all || opts.sampleRate {
		field("Sample rate", "%d Hz", si.SampleRate)
	}
	if all || opts.channels {
		field("Number of channels", "%d", si.NChannels)
	}
	if all || opts.bitsPerSample {
		field("Bits per sample", "%d", si.BitsPerSample)
	}
	if all || opts.totalSamples {
		field("Total samples", "%d", si.NSamples)
	}
	if all || opts.md5 {
		field("MD5 signature", "%x", si.MD5sum[:])
	}
}
