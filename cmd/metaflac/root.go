package main

import (
	"github.com/spf13/cobra"
)

// options holds the persistent command line flags.
type options struct {
	quiet   bool
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "metaflac",
		Short: "A simple FLAC metadata utility.",
		Long:  "A CLI tool to print the metadata of FLAC files and verify their audio samples.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogger(cmd, opts)
		},
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress warnings")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log decoder events")

	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newTagsCmd())
	rootCmd.AddCommand(newVerifyCmd())
	return rootCmd
}
