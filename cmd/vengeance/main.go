// Command vengeance detects sales opportunities in incoming text, files them
// as sticky notes and keeps a distributed memory of everything it has seen.
package main

import (
	"fmt"
	"log"
	"os"
)

// Version information (set at build time)
var version = "dev"

func main() {
	log.SetPrefix("vengeance: ")

	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
