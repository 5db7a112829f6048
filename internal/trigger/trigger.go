// Package trigger turns external events into recognition triggers.
// Sources never interpret the event; each one is a single fire.
package trigger

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// Signal fires once per received OS signal
type Signal struct {
	signals []os.Signal
}

// NewSignal creates a Signal source for sigs
func NewSignal(sigs ...os.Signal) *Signal {
	return &Signal{signals: sigs}
}

// Listen blocks until ctx is done
func (s *Signal) Listen(ctx context.Context, fire func()) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, s.signals...)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-ch:
			slog.Debug("Trigger signal received", "signal", sig.String())
			fire()
		}
	}
}

// Lines fires once per non-empty line read from r. A gesture sensor on a
// serial port typically writes one line per tap.
type Lines struct {
	r io.Reader
}

// NewLines creates a Lines source reading from r
func NewLines(r io.Reader) *Lines {
	return &Lines{r: r}
}

// Listen reads until EOF, a read error, or ctx is done
func (l *Lines) Listen(ctx context.Context, fire func()) error {
	scanner := bufio.NewScanner(l.r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		fire()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading trigger lines: %w", err)
	}
	return nil
}

// Serial is a Lines source backed by a serial port
type Serial struct {
	*Lines
	port      io.Closer
	closeOnce sync.Once
	closeErr  error
}

// OpenSerial opens the named serial device at baud
func OpenSerial(name string, baud int) (*Serial, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", name, err)
	}
	return newSerial(port), nil
}

func newSerial(port io.ReadCloser) *Serial {
	return &Serial{Lines: NewLines(port), port: port}
}

// Listen closes the port when ctx is done so the blocked read returns
func (s *Serial) Listen(ctx context.Context, fire func()) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-done:
		}
	}()

	err := s.Lines.Listen(ctx, fire)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Close closes the serial port. Later calls return the first result.
func (s *Serial) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.port.Close()
	})
	return s.closeErr
}

// Ticker fires on a fixed interval; useful for unattended capture of a
// dashboard that shows the latest payment.
type Ticker struct {
	interval time.Duration
}

// NewTicker creates a Ticker source
func NewTicker(interval time.Duration) *Ticker {
	return &Ticker{interval: interval}
}

// Listen blocks until ctx is done
func (t *Ticker) Listen(ctx context.Context, fire func()) error {
	tk := time.NewTicker(t.interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tk.C:
			fire()
		}
	}
}
