// The metaflac tool lists the metadata blocks of FLAC files and verifies the
// MD5 signature of their audio samples.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
