package wire

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// MaxFrameSize bounds a single frame payload.
const MaxFrameSize = 8 << 20

var (
	// ErrFrameTooLarge is returned when a length prefix exceeds MaxFrameSize.
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
	// ErrUnknownKind is returned for envelopes with an unrecognised kind.
	ErrUnknownKind = errors.New("unknown frame kind")
)

// WriteFrame encodes f with its length prefix.
func WriteFrame(w io.Writer, f Frame) error {
	if err := f.validate(); err != nil {
		return err
	}
	body, err := json.Marshal(f)
	if err != nil {
		return errors.Wrap(err, "marshal frame")
	}
	if len(body) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// ReadFrame decodes the next frame from r. A clean end of stream before the
// length prefix is reported as io.EOF.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return Frame{}, ErrFrameTooLarge
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, err
	}
	var f Frame
	if err := json.Unmarshal(body, &f); err != nil {
		return Frame{}, errors.Wrap(err, "unmarshal frame")
	}
	if err := f.validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Conn wraps a net.Conn with buffered frame I/O. Send and Receive are not
// safe for concurrent use; callers that share a Conn serialize exchanges
// themselves.
type Conn struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
	once sync.Once
}

// NewConn wraps c.
func NewConn(c net.Conn) *Conn {
	return &Conn{
		conn: c,
		r:    bufio.NewReader(c),
		w:    bufio.NewWriter(c),
	}
}

// Dial connects to addr and wraps the connection.
func Dial(addr string, timeout time.Duration) (*Conn, error) {
	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	return NewConn(c), nil
}

// Send writes frames and flushes them as one batch.
func (c *Conn) Send(frames ...Frame) error {
	for _, f := range frames {
		if err := WriteFrame(c.w, f); err != nil {
			return err
		}
	}
	return c.w.Flush()
}

// Receive reads the next frame.
func (c *Conn) Receive() (Frame, error) {
	return ReadFrame(c.r)
}

// Exchange sends frames and reads exactly one reply. A zero timeout
// disables the deadline.
func (c *Conn) Exchange(timeout time.Duration, frames ...Frame) (Frame, error) {
	if timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return Frame{}, err
		}
		defer c.conn.SetDeadline(time.Time{})
	}
	if err := c.Send(frames...); err != nil {
		return Frame{}, err
	}
	return c.Receive()
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Close closes the underlying connection once.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() { err = c.conn.Close() })
	return err
}
