package htsserver

import (
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/jdidion/htsget-server/internal/htslog"
)

// Runnable is anything with a blocking run loop and an idempotent-ish
// stop that releases its resources.
type Runnable interface {
	Run() error
	Stop()
}

// RunInterruptible runs runnable until it returns or the process is
// interrupted, and returns a unix-style exit code. An interrupt is a
// normal shutdown (code 0) unless errorOnInterrupt is set (code 130);
// broken pipes and unrecognized failures are logged and exit 1.
// Stop always runs before returning, on every path.
func RunInterruptible(runnable Runnable, errorOnInterrupt bool) int {
	defer runnable.Stop()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	done := make(chan error, 1)
	go func() {
		done <- runnable.Run()
	}()

	select {
	case sig := <-signals:
		if errorOnInterrupt {
			log.Error("interrupted (%s)", sig)
			return 130
		}
		log.Info("interrupted (%s)", sig)
		return 0
	case err := <-done:
		switch {
		case err == nil,
			errors.Is(err, net.ErrClosed),
			errors.Is(err, http.ErrServerClosed):
			return 0
		case errors.Is(err, syscall.EPIPE):
			log.Error("broken pipe: %v", err)
			return 1
		default:
			log.Error("unknown error: %v", err)
			return 1
		}
	}
}
