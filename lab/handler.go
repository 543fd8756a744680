package lab

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
)

// Cleaner idempotently releases process-wide emulation resources. It is
// invoked on any failure or interrupt, not just for the current
// experiment, since partially built resources may otherwise leak.
type Cleaner interface {
	Cleanup() error
}

// CleanerFunc adapts a function to the Cleaner interface.
type CleanerFunc func() error

// Cleanup implements Cleaner.
func (f CleanerFunc) Cleanup() error { return f() }

// ErrInterrupted is returned when an external interrupt terminated the run.
var ErrInterrupted = errors.New("interrupted")

// Launcher wraps one lifecycle invocation with the top-level failure
// contract: an interrupt observable at any point, a single formatted error
// report, and global cleanup guaranteed to run exactly once across all
// failure channels.
type Launcher struct {
	Lifecycle *Lifecycle
	Cleaner   Cleaner

	cleanOnce sync.Once
}

// Run supervises the lifecycle. On normal completion it takes no special
// action. On interrupt it logs a distinct message and forces global
// cleanup. On any other failure it emits the boxed error report, the
// diagnostic detail at debug severity, and forces the same cleanup. The
// returned error is non-nil on every failure path so the boundary layer
// exits non-zero.
func (l *Launcher) Run() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v\n%s", r, debug.Stack())
			}
		}()
		done <- l.Lifecycle.Run()
	}()

	select {
	case <-sigCh:
		logrus.Error("keyboard interrupt: shutting down and cleaning up")
		l.cleanup()
		return ErrInterrupted
	case err := <-done:
		if err == nil {
			return nil
		}
		l.report(err)
		// Usage errors precede any resource creation; there is nothing
		// to clean up for them.
		if !IsUsage(err) {
			l.cleanup()
		}
		return err
	}
}

// cleanup runs the cleaner exactly once across every exit path.
func (l *Launcher) cleanup() {
	l.cleanOnce.Do(func() {
		if l.Cleaner == nil {
			return
		}
		if err := l.Cleaner.Cleanup(); err != nil {
			logrus.Errorf("cleanup: %v", err)
		}
	})
}

// report emits the boxed kind-and-message error report, and the full
// error chain at debug severity for elevated verbosity.
func (l *Launcher) report(err error) {
	rule := strings.Repeat("-", 78)
	logrus.Errorf("\n%s\nCaught exception. Cleaning up...\n\n%s: %v\n%s", rule, Classify(err), err, rule)

	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, e.Error())
	}
	logrus.Debugf("error chain:\n  %s", strings.Join(chain, "\n  "))
	logrus.Debugf("%s", debug.Stack())
}
