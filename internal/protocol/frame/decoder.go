package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/pixelfield/tofsink/internal/observability"
)

// Receiver is the byte source a Decoder drains. *stream.Conn satisfies it.
type Receiver interface {
	// Receive performs one blocking read and returns io.EOF on orderly close.
	Receive(buf []byte) (int, error)
	// ReceiveExact fills buf completely or fails.
	ReceiveExact(buf []byte) error
}

// Decoder reassembles Frames from an unbounded, arbitrarily-chunked byte
// stream: one JSON header line, then the fixed-size binary payload the
// header announces. One decode pass per connection; it cannot rewind.
//
// Not safe for concurrent use.
type Decoder struct {
	src    Receiver
	limits Limits

	// buf holds unconsumed stream bytes. filled is the fill cursor; consumed
	// bytes are compacted to the front after every line and payload take.
	buf    []byte
	filled int

	err error
}

// NewDecoder returns a Decoder reading from src under limits.
func NewDecoder(src Receiver, limits Limits) *Decoder {
	if limits.MaxBufferBytes <= 0 {
		limits.MaxBufferBytes = DefaultLimits().MaxBufferBytes
	}
	if limits.MaxBins <= 0 {
		limits.MaxBins = DefaultLimits().MaxBins
	}
	return &Decoder{
		src:    src,
		limits: limits,
		buf:    make([]byte, limits.MaxBufferBytes),
	}
}

// Next blocks until one complete frame is available and returns it.
// Malformed header lines are skipped and scanning continues. io.EOF is
// returned on a clean end of stream between frames; any error mid-payload
// or transport failure is fatal and sticky.
func (d *Decoder) Next() (Frame, error) {
	if d.err != nil {
		return Frame{}, d.err
	}

	for {
		if i := bytes.IndexByte(d.buf[:d.filled], '\n'); i >= 0 {
			header, err := ParseHeader(d.buf[:i], d.limits)
			d.consume(i + 1)
			if err != nil {
				observability.RecordHeaderSkipped()
				log.Warn().Err(err).Msg("frame: skipping unusable header line")
				continue
			}
			f, err := d.readPayload(header)
			if err != nil {
				d.err = err
				return Frame{}, err
			}
			observability.RecordFrameDecoded()
			return f, nil
		}

		if d.filled >= len(d.buf) {
			// Bounded-resource guard: drop everything buffered rather than
			// grow without limit. Loses any partially-received frame.
			observability.RecordBufferReset()
			log.Warn().Int("bytes", d.filled).Msg("frame: buffer full without newline, resetting")
			d.filled = 0
		}

		n, err := d.src.Receive(d.buf[d.filled:])
		if n > 0 {
			d.filled += n
			observability.RecordBytesReceived(n)
		}
		if err != nil {
			if n > 0 {
				// Scan what arrived with the error first; a terminal source
				// keeps reporting on the next Receive.
				continue
			}
			if !errors.Is(err, io.EOF) {
				err = fmt.Errorf("frame: receive: %w", err)
			}
			d.err = err
			return Frame{}, d.err
		}
	}
}

// readPayload consumes the frame's binary payload: buffered bytes after the
// header's newline first, then an exact-count receive for the remainder.
func (d *Decoder) readPayload(header Frame) (Frame, error) {
	need := header.PayloadLen()
	raw := make([]byte, need)

	have := min(d.filled, need)
	copy(raw, d.buf[:have])
	d.consume(have)

	if have < need {
		if err := d.src.ReceiveExact(raw[have:]); err != nil {
			return Frame{}, fmt.Errorf("%w: frame=%d need=%d have=%d: %w",
				ErrPayloadTruncated, header.Number, need, have, err)
		}
		observability.RecordBytesReceived(need - have)
	}

	counts := make([]uint32, header.BinCount)
	for i := range counts {
		counts[i] = binary.BigEndian.Uint32(raw[i*4:])
	}
	header.Counts = counts
	return header, nil
}

// consume drops n leading bytes and compacts the remainder to the front.
func (d *Decoder) consume(n int) {
	if n <= 0 {
		return
	}
	copy(d.buf, d.buf[n:d.filled])
	d.filled -= n
}
