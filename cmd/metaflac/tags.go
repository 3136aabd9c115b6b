package main

import (
	"fmt"
	"io"

	"github.com/audiodec/flac"
	"github.com/audiodec/flac/meta"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// commentOptions selects the parts of the Vorbis comments to print.
type commentOptions struct {
	// Print the vendor string.
	vendor bool
}

func newTagsCmd() *cobra.Command {
	opts := &commentOptions{}
	cmd := &cobra.Command{
		Use:   "tags FILE [NAME]...",
		Short: "Print the Vorbis comments of a FLAC file",
		Long:  "Print all Vorbis comments of a FLAC file, or the values of the named tags. Tag names are case-insensitive.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return tags(cmd.OutOrStdout(), args[0], args[1:], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.vendor, "vendor", false, "Print the vendor string; tags are only printed when named")
	return cmd
}

func tags(w io.Writer, path string, names []string, opts *commentOptions) error {
	stream, err := flac.ParseFile(path, flac.WithLogger(logger))
	if err != nil {
		return errors.WithMessagef(err, "unable to parse %q", path)
	}
	defer stream.Close()

	for _, block := range stream.Blocks {
		vc, ok := block.Body.(*meta.VorbisComment)
		if !ok {
			continue
		}
		if opts.vendor {
			fmt.Fprintln(w, vc.Vendor)
		}
		if len(names) == 0 {
			if opts.vendor {
				continue
			}
			for _, tag := range vc.Tags {
				fmt.Fprintf(w, "%s=%s\n", tag[0], tag[1])
			}
			continue
		}
		for _, name := range names {
			if value, ok := vc.Get(name); ok {
				fmt.Fprintf(w, "%s=%s\n", name, value)
			} else {
				logger.Debug("tag not present", "file", path, "name", name)
			}
		}
	}
	return nil
}
