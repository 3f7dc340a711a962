package usbtmc

import (
	"fmt"
	"io"
	"sync"
)

// DefaultTransferSize bounds the payload of one bulk transfer.
const DefaultTransferSize = 64 * 1024

// Conn exchanges USB-TMC messages over a pair of bulk endpoints.
type Conn struct {
	mu      sync.Mutex
	out     io.Writer
	in      io.Reader
	closer  io.Closer
	tag     byte
	max     int
	pending []byte
	buf     []byte
}

// ConnOption configures a Conn.
type ConnOption func(*Conn)

// WithTransferSize sets the largest payload per transfer.
func WithTransferSize(n int) ConnOption {
	return func(c *Conn) {
		if n > 0 {
			c.max = n
		}
	}
}

// WithCloser releases the device when the Conn is closed.
func WithCloser(cl io.Closer) ConnOption {
	return func(c *Conn) { c.closer = cl }
}

// NewConn frames messages written to out and requests responses from in.
func NewConn(out io.Writer, in io.Reader, opts ...ConnOption) *Conn {
	c := &Conn{out: out, in: in, max: DefaultTransferSize}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	c.buf = make([]byte, HeaderSize+c.max+3)

	return c
}

// Write sends p as one device-dependent message, split into transfers of
// at most the transfer size. The last transfer carries EOM.
func (c *Conn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sent := 0
	for {
		chunk := p[sent:]
		eom := true

		if len(chunk) > c.max {
			chunk = chunk[:c.max]
			eom = false
		}

		c.tag = nextTag(c.tag)
		if _, err := c.out.Write(EncodeOut(c.tag, chunk, eom)); err != nil {
			return sent, fmt.Errorf("usbtmc: bulk out: %w", err)
		}

		sent += len(chunk)
		if eom {
			return sent, nil
		}
	}
}

// Read returns response bytes, requesting a new transfer from the device
// once the previous one is consumed. An empty response reads as io.EOF.
func (c *Conn) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		if err := c.request(); err != nil {
			return 0, err
		}

		if len(c.pending) == 0 {
			return 0, io.EOF
		}
	}

	n := copy(p, c.pending)
	c.pending = c.pending[n:]

	return n, nil
}

func (c *Conn) request() error {
	c.tag = nextTag(c.tag)
	tag := c.tag

	if _, err := c.out.Write(EncodeRequestIn(tag, uint32(c.max), 0)); err != nil {
		return fmt.Errorf("usbtmc: request in: %w", err)
	}

	n, err := c.fill(0, HeaderSize)
	if err != nil {
		return err
	}

	h, err := DecodeHeader(c.buf[:n])
	if err != nil {
		return err
	}

	if h.MsgID != MsgDevDepIn || h.Tag != tag {
		return fmt.Errorf("%w: got message %d tag %d, want %d tag %d", ErrFrame, h.MsgID, h.Tag, MsgDevDepIn, tag)
	}

	size := int(h.Size)
	if size > c.max {
		return fmt.Errorf("%w: transfer size %d exceeds %d", ErrFrame, size, c.max)
	}

	if _, err := c.fill(n, HeaderSize+size); err != nil {
		return err
	}

	c.pending = append(c.pending[:0], c.buf[HeaderSize:HeaderSize+size]...)

	return nil
}

// fill reads into buf from offset n until at least want bytes are held.
func (c *Conn) fill(n, want int) (int, error) {
	for n < want {
		m, err := c.in.Read(c.buf[n:])
		if err != nil {
			return n, fmt.Errorf("usbtmc: bulk in: %w", err)
		}

		if m == 0 {
			return n, fmt.Errorf("%w: transfer ended after %d of %d bytes", ErrFrame, n, want)
		}

		n += m
	}

	return n, nil
}

// Close releases the device if the Conn owns it.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closer == nil {
		return nil
	}

	err := c.closer.Close()
	c.closer = nil

	return err
}
