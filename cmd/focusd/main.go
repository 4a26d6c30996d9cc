// focusd - focus tracking over a lock-free input event pipeline
//
// Input events are captured into a fixed-size single-producer/single-consumer
// ring buffer and consumed by a focus tracker that notices distractions and
// tells you what you were doing before them.
//
//	focusd run      Capture input and track focus until interrupted
//	focusd bench    Measure ring buffer throughput and drops
//	focusd layout   Print the 64-byte event record layout
//	focusd config   Print the effective configuration
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
