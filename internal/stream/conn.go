package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrClosed    = errors.New("stream: connection closed")
	ErrShortRead = errors.New("stream: short read")
)

// Conn supplies bytes on demand from one connected digitizer stream.
// It is not safe for concurrent use; the ingest loop is single-threaded.
type Conn struct {
	conn net.Conn
	cfg  Config
}

// Dial connects to addr and applies the transport options the digitizer
// link expects: Nagle disabled, large kernel receive buffer.
func Dial(ctx context.Context, addr string, cfg Config) (*Conn, error) {
	cfg = cfg.WithDefaults()

	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if tcpConn, ok := rawConn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			log.Warn().Err(err).Msg("stream: set TCP_NODELAY")
		}
		if err := tcpConn.SetReadBuffer(cfg.ReceiveBufferBytes); err != nil {
			log.Warn().Err(err).Int("bytes", cfg.ReceiveBufferBytes).Msg("stream: set receive buffer")
		}
	}

	return &Conn{conn: rawConn, cfg: cfg}, nil
}

// NewConn wraps an already-connected stream. Used by tests and by callers
// that manage dialing themselves.
func NewConn(conn net.Conn, cfg Config) *Conn {
	return &Conn{conn: conn, cfg: cfg.WithDefaults()}
}

// Receive performs one blocking read into buf. It returns the byte count,
// io.EOF on orderly peer close, or the transport error.
func (c *Conn) Receive(buf []byte) (int, error) {
	if c.conn == nil {
		return 0, ErrClosed
	}
	if c.cfg.ReadTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
			return 0, err
		}
	}
	return c.conn.Read(buf)
}

// ReceiveExact loops Receive until buf is completely filled. A peer close or
// transport error before the count is met is reported as ErrShortRead
// wrapping the cause; the connection is unusable afterwards.
func (c *Conn) ReceiveExact(buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := c.Receive(buf[total:])
		total += n
		if err != nil {
			if errors.Is(err, io.EOF) && total == len(buf) {
				return nil
			}
			return fmt.Errorf("%w: %w", ErrShortRead, err)
		}
	}
	return nil
}

func (c *Conn) RemoteAddr() net.Addr {
	if c.conn == nil {
		return nil
	}
	return c.conn.RemoteAddr()
}

func (c *Conn) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
