package stream

import "time"

// Config defines transport reliability defaults for one digitizer connection.
type Config struct {
	// ConnectTimeout bounds the TCP dial.
	ConnectTimeout time.Duration
	// ReadTimeout bounds each individual Receive call. Zero disables the
	// deadline and a stalled peer blocks the run indefinitely.
	ReadTimeout time.Duration
	// ReceiveBufferBytes sets SO_RCVBUF on the connection.
	ReceiveBufferBytes int
}

// DefaultConfig returns defaults sized for a local digitizer link.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:     5 * time.Second,
		ReadTimeout:        0,
		ReceiveBufferBytes: 256 * 1024,
	}
}

func (c Config) WithDefaults() Config {
	out := c
	if out.ConnectTimeout <= 0 {
		out.ConnectTimeout = DefaultConfig().ConnectTimeout
	}
	if out.ReceiveBufferBytes <= 0 {
		out.ReceiveBufferBytes = DefaultConfig().ReceiveBufferBytes
	}
	return out
}
