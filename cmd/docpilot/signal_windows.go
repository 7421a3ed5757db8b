//go:build windows

package main

import "os"

// Windows has no SIGTERM; interrupt is the only graceful shutdown signal.
var terminationSignals = []os.Signal{os.Interrupt}
