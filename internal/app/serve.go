package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	shutdownTimeout = 3 * time.Second
	// maxLineBytes bounds a single serve command, value included.
	maxLineBytes = 16 << 20
)

// Serve applies commands read line by line from in until EOF or ctx is done.
// Command errors are reported on out and do not stop the loop. When metrics
// are enabled the Prometheus endpoint is served for the lifetime of the call.
func (a *App) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	if a.prom != nil {
		stop, err := a.startMetricsServer()
		if err != nil {
			return err
		}
		defer stop()
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			a.serveLine(ctx, line, out)
		}
	}
}

func (a *App) serveLine(ctx context.Context, line string, out io.Writer) {
	args := splitCommandLine(line)
	if len(args) == 0 || strings.HasPrefix(args[0], "#") {
		return
	}
	if err := a.Exec(ctx, args, out); err != nil {
		a.log.Warn("command failed", zap.String("command", args[0]), zap.Error(err))
		fmt.Fprintf(out, "error: %v\n", firstLine(err.Error()))
	}
}

// splitCommandLine returns the command, the property name and the rest of the
// line as a single value, so JSON values may contain spaces.
func splitCommandLine(line string) []string {
	var args []string
	rest := strings.TrimSpace(line)
	for len(args) < 2 && rest != "" {
		i := strings.IndexAny(rest, " \t")
		if i < 0 {
			return append(args, rest)
		}
		args = append(args, rest[:i])
		rest = strings.TrimSpace(rest[i+1:])
	}
	if rest != "" {
		args = append(args, rest)
	}
	return args
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func (a *App) startMetricsServer() (func(), error) {
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, a.prom.Handler())
	listener, err := net.Listen("tcp", a.cfg.Metrics.Address)
	if err != nil {
		return nil, fmt.Errorf("metrics listen: %w", err)
	}
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	a.log.Info("metrics listening",
		zap.String("address", listener.Addr().String()),
		zap.String("path", a.cfg.Metrics.Path),
	)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
