package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	xhttp "SentiPulse/pkg/http"
	applogger "SentiPulse/pkg/logger"
)

// Component is a background part of the application with a start/stop lifecycle.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Closer releases a resource on shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// App encapsulates the application lifecycle: start components in order, serve HTTP,
// wait for a signal, then stop everything in reverse order.
type App struct {
	logger          *applogger.Logger
	httpServer      *xhttp.Server
	components      []Component
	closers         []Closer
	shutdownTimeout time.Duration
}

// New creates a new App.
func New(l *applogger.Logger, httpServer *xhttp.Server, shutdownTimeout time.Duration) *App {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	return &App{
		logger:          l,
		httpServer:      httpServer,
		shutdownTimeout: shutdownTimeout,
	}
}

// Add registers components; nil entries are skipped so optional parts can be passed directly.
func (a *App) Add(components ...Component) {
	for _, c := range components {
		if c != nil {
			a.components = append(a.components, c)
		}
	}
}

// OnClose registers a resource to release after the components stop.
func (a *App) OnClose(name string, fn func() error) {
	if fn != nil {
		a.closers = append(a.closers, Closer{Name: name, Close: fn})
	}
}

// Run starts the application and blocks until SIGINT/SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the application and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	started := 0
	for _, c := range a.components {
		if err := c.Start(ctx); err != nil {
			a.logger.Error("component start failed", applogger.String("component", c.Name()), applogger.Error(err))
			a.shutdown(a.components[:started])
			return fmt.Errorf("start %s: %w", c.Name(), err)
		}
		a.logger.Info("component started", applogger.String("component", c.Name()))
		started++
	}

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.shutdown(a.components)
			return fmt.Errorf("start http: %w", err)
		}
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	a.shutdown(a.components)
	return nil
}

func (a *App) shutdown(started []Component) {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
		}
	}

	for i := len(started) - 1; i >= 0; i-- {
		c := started[i]
		if err := c.Stop(ctx); err != nil {
			a.logger.Warn("component stop error", applogger.String("component", c.Name()), applogger.Error(err))
		}
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		cl := a.closers[i]
		if err := cl.Close(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", cl.Name), applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
}
