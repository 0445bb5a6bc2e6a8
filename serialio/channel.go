// Package serialio is the transport under the print path: open a named serial
// port, push ESC/POS bytes at it, close it. No retries and no framing; callers
// that want ordering put a queue in front.
package serialio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// ErrClosed is returned, wrapped in a TransportError, when writing to a
// channel that is not open.
var ErrClosed = errors.New("port closed")

// readTimeout bounds status reads so a silent printer cannot hang a caller.
const readTimeout = 500 * time.Millisecond

// Config holds the line parameters for a port. Zero values fall back to the
// common receipt printer default of 9600 8N1.
type Config struct {
	BaudRate int
	DataBits int
	Parity   string // none, odd, even
	StopBits int    // 1 or 2
}

// Mode maps the config onto the serial library's mode, applying defaults and
// rejecting values the line cannot carry.
func (c Config) Mode() (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if mode.BaudRate == 0 {
		mode.BaudRate = 9600
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}

	switch c.Parity {
	case "", "none":
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	default:
		return nil, fmt.Errorf("unknown parity %q", c.Parity)
	}

	switch c.StopBits {
	case 0, 1:
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits %d", c.StopBits)
	}

	return mode, nil
}

// TransportError reports a failed port operation along with the port it
// happened on. The OS-level cause is available through Unwrap.
type TransportError struct {
	Op   string // open, write, read, close
	Port string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("serial %s %s: %v", e.Op, e.Port, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Channel is an open connection to one serial device. All operations are safe
// for concurrent use; writes are serialized by an internal mutex so two
// callers can never interleave bytes on the wire.
type Channel struct {
	name string

	mu   sync.Mutex
	port io.ReadWriteCloser
}

// Open dials the named port with the given line parameters. It fails when the
// port is absent or held by another process.
func Open(name string, cfg Config) (*Channel, error) {
	mode, err := cfg.Mode()
	if err != nil {
		return nil, &TransportError{Op: "open", Port: name, Err: err}
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, &TransportError{Op: "open", Port: name, Err: err}
	}
	port.SetReadTimeout(readTimeout)

	return &Channel{name: name, port: port}, nil
}

// Wrap adopts an already-open port as a channel. Used where the transport is
// established elsewhere, such as USB bridges or tests.
func Wrap(name string, port io.ReadWriteCloser) *Channel {
	return &Channel{name: name, port: port}
}

// Name returns the port name the channel was opened on.
func (c *Channel) Name() string {
	return c.name
}

// IsOpen reports whether the channel still holds its port.
func (c *Channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port != nil
}

// Write pushes the whole payload to the port or fails with a TransportError.
// Partial writes are reported as failures; the device state is unknown after
// one and the caller should reconnect.
func (c *Channel) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil {
		return &TransportError{Op: "write", Port: c.name, Err: ErrClosed}
	}

	n, err := c.port.Write(data)
	if err != nil {
		return &TransportError{Op: "write", Port: c.name, Err: err}
	}
	if n < len(data) {
		return &TransportError{Op: "write", Port: c.name, Err: io.ErrShortWrite}
	}
	return nil
}

// Read fills p from the port, for status replies such as DLE EOT responses.
// Reads time out rather than block forever.
func (c *Channel) Read(p []byte) (int, error) {
	c.mu.Lock()
	port := c.port
	c.mu.Unlock()

	if port == nil {
		return 0, &TransportError{Op: "read", Port: c.name, Err: ErrClosed}
	}

	n, err := port.Read(p)
	if err != nil {
		return n, &TransportError{Op: "read", Port: c.name, Err: err}
	}
	return n, nil
}

// Close releases the port. Closing an already-closed channel is a no-op.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	if err != nil {
		return &TransportError{Op: "close", Port: c.name, Err: err}
	}
	return nil
}
