package main

import (
	"fmt"
	"io"
	"math"

	"github.com/audiodec/flac"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify FILE...",
		Short: "Decode FLAC files and verify the MD5 signature of their audio samples",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := verify(cmd.OutOrStdout(), path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func verify(w io.Writer, path string) error {
	stream, err := flac.Open(path, flac.VerifyMD5, flac.WithLogger(logger))
	if err != nil {
		return errors.WithMessagef(err, "unable to open %q", path)
	}
	defer stream.Close()

	peaks := make([]int, stream.Info.NChannels)
	var nframes, nsamples uint64
	for {
		f, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.WithMessagef(err, "%s: frame %d", path, nframes)
		}
		buf := f.IntBuffer()
		nchannels := buf.Format.NumChannels
		for i, sample := range buf.Data {
			if sample < 0 {
				sample = -sample
			}
			if ch := i % nchannels; sample > peaks[ch] {
				peaks[ch] = sample
			}
		}
		nframes++
		nsamples += uint64(f.BlockSize)
	}

	status := "ok"
	if stream.Info.MD5sum == [16]uint8{} {
		status = "ok (no MD5 signature)"
	}
	fmt.Fprintf(w, "%s: %s, %d frames, %d samples\n", path, status, nframes, nsamples)
	for ch, peak := range peaks {
		fmt.Fprintf(w, "  channel %d peak: %s\n", ch, dBFS(peak, stream.Info.BitsPerSample))
	}
	return nil
}

// dBFS formats the given sample amplitude relative to the full scale of the
// sample size.
func dBFS(peak int, bps uint8) string {
	if peak == 0 {
		return "-inf dBFS"
	}
	full := float64(uint64(1) << (bps - 1))
	return fmt.Sprintf("%.2f dBFS", 20*math.Log10(float64(peak)/full))
}
