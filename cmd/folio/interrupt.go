package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// notifyInterrupts subscribes to SIGINT and SIGTERM until stop is called.
func notifyInterrupts() (<-chan os.Signal, func()) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	return sigCh, func() { signal.Stop(sigCh) }
}

// watchInterrupts turns the first signal into a graceful cancel and the
// second into an abort. The returned function stops watching.
func watchInterrupts(sigCh <-chan os.Signal, cancel, abort func(), logger *slog.Logger) func() {
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		interrupts := 0
		for {
			select {
			case <-done:
				return
			case <-sigCh:
			}
			interrupts++
			if interrupts == 1 {
				logger.Warn("interrupt received: finishing in-flight units, interrupt again to abort")
				cancel()
				continue
			}
			logger.Warn("aborting in-flight units")
			abort()
			return
		}
	}()

	return func() {
		close(done)
		<-exited
	}
}
