package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalContext returns a context cancelled on SIGINT or SIGTERM.
// A second signal terminates the process immediately.
func SetupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
		<-ch
		os.Exit(1)
	}()

	return ctx
}
