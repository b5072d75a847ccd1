//go:build unix

package main

import (
	"os"
	"syscall"
)

// SIGHUP arrives when the controlling terminal closes; left unhandled it
// kills the process before the proxy is restored.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}
