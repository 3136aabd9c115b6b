package main

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var logger *log.Logger

func setupLogger(cmd *cobra.Command, opts *options) {
	logger = log.New(cmd.ErrOrStderr())
	logger.SetReportTimestamp(false)

	if opts.verbose {
		logger.SetLevel(log.DebugLevel)
	} else if opts.quiet {
		logger.SetLevel(log.ErrorLevel)
	}
}
