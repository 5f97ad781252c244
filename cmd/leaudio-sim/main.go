// leaudio-sim streams an audio context on simulated LE Audio earbuds.
//
// The earbuds are simulated ASCS/PACS servers reached over in-memory ATT
// links, and the isochronous channels come from a simulated controller. The
// scenario starts a stream, suspends it, resumes it and stops it, printing
// every status the group reports.
//
// Usage:
//
//	leaudio-sim [options]
//
// Options:
//
//	-devices       Number of earbuds in the group, 1 or 2 (default: 2)
//	-context       Audio context to stream (default: Media)
//	-timeout       Transition timeout (default: 3s)
//	-cache         Earbuds keep their codec configuration on release
//	-disallow-once The controller rejects the first CIG creation
//	-v             Debug logging
//
// Example:
//
//	leaudio-sim -devices 2 -context Conversational -cache
package main

import (
	"log"
	"os"
)

func main() {
	opts, err := ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	if err := Run(opts, os.Stdout); err != nil {
		log.Fatalf("Scenario failed: %v", err)
	}
}
