// Package server manages the game server's long-running components:
// ordered startup, signal handling, and reverse-order graceful shutdown.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is a long-running component under lifecycle management.
type Service interface {
	// Start runs the service, blocking until it stops or fails.
	Start() error
	// Stop asks the service to shut down. Start returns after Stop.
	Stop()
}

// FuncService adapts a start/stop function pair into a Service.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls the underlying start function.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls the underlying stop function.
func (f *FuncService) Stop() { f.StopFn() }

// Lifecycle starts registered services in order and stops them in reverse
// order on SIGINT, SIGTERM, context cancellation, or the first service
// failure. A service that ignores Stop past the configured timeout is logged
// and abandoned; shutdown moves on to the next one.
type Lifecycle struct {
	logger      *zap.Logger
	stopTimeout time.Duration

	mu       sync.Mutex
	services []namedService
}

type namedService struct {
	name    string
	service Service
}

// NewLifecycle creates a Lifecycle manager. stopTimeout bounds how long
// shutdown waits on each individual service.
//
// Precondition: logger must be non-nil; stopTimeout must be positive.
func NewLifecycle(logger *zap.Logger, stopTimeout time.Duration) *Lifecycle {
	return &Lifecycle{logger: logger, stopTimeout: stopTimeout}
}

// Add registers a named service. Registration order is startup order.
//
// Precondition: name must be non-empty; svc must be non-nil. Add before Run.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// Run starts every registered service and blocks until a termination signal
// arrives, the context is cancelled, or a service fails.
//
// Postcondition: every service has been asked to stop; the error of the
// first failing service, if any, is returned.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	services := make([]namedService, len(l.services))
	copy(services, l.services)
	l.mu.Unlock()

	errCh := make(chan error, len(services))
	for _, ns := range services {
		ns := ns
		go func() {
			l.logger.Info("starting service", zap.String("service", ns.name))
			if err := ns.service.Start(); err != nil {
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
				cancel()
			}
		}()
	}

	l.logger.Info("services launched",
		zap.Int("count", len(services)),
		zap.Duration("elapsed", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case runErr = <-errCh:
		l.logger.Error("service failed, shutting down", zap.Error(runErr))
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
		// A failing service cancels the context after reporting; keep its error.
		select {
		case runErr = <-errCh:
		default:
		}
	}

	l.shutdown(services)

	l.logger.Info("shutdown complete", zap.Duration("uptime", time.Since(start)))
	return runErr
}

// shutdown stops services in reverse registration order, bounding each Stop
// with the configured timeout.
func (l *Lifecycle) shutdown(services []namedService) {
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		l.logger.Info("stopping service", zap.String("service", ns.name))

		stopped := make(chan struct{})
		go func() {
			ns.service.Stop()
			close(stopped)
		}()

		svcStart := time.Now()
		select {
		case <-stopped:
			l.logger.Info("service stopped",
				zap.String("service", ns.name),
				zap.Duration("elapsed", time.Since(svcStart)),
			)
		case <-time.After(l.stopTimeout):
			l.logger.Warn("service ignored stop, abandoning",
				zap.String("service", ns.name),
				zap.Duration("waited", l.stopTimeout),
			)
		}
	}
}
