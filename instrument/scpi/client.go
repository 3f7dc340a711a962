package scpi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cwbudde/algo-pulse/dsp/decode"
)

// DefaultPort is the raw-socket SCPI port used when an address has none.
const DefaultPort = "5025"

// DefaultTimeout bounds each command and its response on transports that
// support deadlines.
const DefaultTimeout = 5 * time.Second

// ErrClosed is returned after Close.
var ErrClosed = errors.New("scpi: client closed")

type deadliner interface {
	SetDeadline(t time.Time) error
}

// Client sends commands and reads responses over a byte stream.
type Client struct {
	mu      sync.Mutex
	rw      io.ReadWriter
	r       *bufio.Reader
	closer  io.Closer
	logger  *log.Logger
	timeout time.Duration
	closed  bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger logs every command and response.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout sets the per-query deadline used when ctx has none or a later
// one. Zero or negative values keep DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient wraps rw. If rw is an io.Closer, Close closes it.
func NewClient(rw io.ReadWriter, opts ...Option) *Client {
	c := &Client{rw: rw, r: bufio.NewReader(rw), timeout: DefaultTimeout}
	if cl, ok := rw.(io.Closer); ok {
		c.closer = cl
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.logger == nil {
		c.logger = log.New(io.Discard, "", 0)
	}

	return c
}

// Dial connects to a raw-socket instrument. addr may omit the port.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, DefaultPort)
	}

	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("scpi: dial %s: %w", addr, err)
	}

	return NewClient(conn, opts...), nil
}

// Write sends one command.
func (c *Client) Write(ctx context.Context, cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.write(ctx, cmd)
}

// Query sends cmd and returns the response line without its terminator.
func (c *Client) Query(ctx context.Context, cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.write(ctx, cmd); err != nil {
		return "", err
	}

	line, err := c.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("scpi: read response to %q: %w", trim(cmd), err)
	}

	line = strings.TrimSpace(line)
	c.logger.Printf("scpi: < %s", line)

	return line, nil
}

// QueryFloat sends cmd and parses the response as a float.
func (c *Client) QueryFloat(ctx context.Context, cmd string) (float64, error) {
	s, err := c.Query(ctx, cmd)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("scpi: response to %q: %w", trim(cmd), err)
	}

	return v, nil
}

// QueryInt sends cmd and parses the response as an integer.
func (c *Client) QueryInt(ctx context.Context, cmd string) (int, error) {
	s, err := c.Query(ctx, cmd)
	if err != nil {
		return 0, err
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("scpi: response to %q: %w", trim(cmd), err)
	}

	return v, nil
}

// QueryBlock sends cmd and reads a definite-length block response. A
// terminator already received after the payload is discarded.
func (c *Client) QueryBlock(ctx context.Context, cmd string) (decode.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.write(ctx, cmd); err != nil {
		return decode.Block{}, err
	}

	b, err := decode.ReadBlock(c.r)
	if err != nil {
		return b, fmt.Errorf("scpi: read block for %q: %w", trim(cmd), err)
	}

	if c.r.Buffered() > 0 {
		if next, _ := c.r.Peek(1); len(next) == 1 && next[0] == '\n' {
			_, _ = c.r.Discard(1)
		}
	}

	c.logger.Printf("scpi: < block of %d bytes", b.Received())

	return b, nil
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true

	if c.closer != nil {
		return c.closer.Close()
	}

	return nil
}

func (c *Client) write(ctx context.Context, cmd string) error {
	if c.closed {
		return ErrClosed
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if d, ok := c.rw.(deadliner); ok {
		deadline := time.Now().Add(c.timeout)
		if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
			deadline = ctxDeadline
		}

		_ = d.SetDeadline(deadline)
	}

	line := trim(cmd)
	c.logger.Printf("scpi: > %s", line)

	if _, err := io.WriteString(c.rw, line+"\n"); err != nil {
		return fmt.Errorf("scpi: write %q: %w", line, err)
	}

	return nil
}

func trim(cmd string) string {
	return strings.TrimRight(cmd, "\r\n")
}
