// Command draftsim runs batches of mock drafts and inspects roster needs offline
package main

import (
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
