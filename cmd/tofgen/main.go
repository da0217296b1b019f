// tofgen serves scripted time-of-flight frames over TCP for local testing
// of tofsink. One scenario file, one listener, one replay per connection.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pixelfield/tofsink/internal/logging"
	"github.com/pixelfield/tofsink/internal/observability"
	"github.com/pixelfield/tofsink/internal/protocol/frame"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tofgen: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	scenarioPath := flag.String("config", "tofgen.toml", "path to scenario TOML file")
	listenAddr := flag.String("listen", "", "listen address (overrides scenario)")
	flag.Parse()

	observability.InitLogger("tofgen", logging.ConfigureRuntime())

	s, err := loadScenario(*scenarioPath)
	if err != nil {
		return err
	}
	if *listenAddr != "" {
		s.ListenAddr = *listenAddr
	}

	ln, err := net.Listen("tcp", s.ListenAddr)
	if err != nil {
		return err
	}
	defer ln.Close()
	log.Info().
		Str("addr", ln.Addr().String()).
		Int("frames", len(s.Frames)).
		Int("repeat", s.Repeat).
		Msg("tofgen: listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go serveClient(conn, s)
	}
}

func serveClient(conn net.Conn, s scenario) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	log.Info().Str("remote", remote).Msg("tofgen: client connected")

	for round := 0; round < s.Repeat; round++ {
		for _, f := range s.Frames {
			wire, err := frame.Encode(f)
			if err != nil {
				log.Error().Err(err).Int64("frame", f.Number).Msg("tofgen: encode failed")
				return
			}
			if err := writeChunked(conn, wire, s.ChunkBytes); err != nil {
				log.Warn().Err(err).Str("remote", remote).Msg("tofgen: write failed")
				return
			}
			if s.FrameInterval > 0 {
				time.Sleep(s.FrameInterval)
			}
		}
	}
	log.Info().Str("remote", remote).Msg("tofgen: scenario complete, closing")
}

// writeChunked sends wire bytes in chunkBytes-sized pieces so the client's
// reassembly sees arbitrary frame boundaries. chunkBytes <= 0 sends whole.
func writeChunked(conn net.Conn, wire []byte, chunkBytes int) error {
	if chunkBytes <= 0 {
		_, err := conn.Write(wire)
		return err
	}
	for off := 0; off < len(wire); off += chunkBytes {
		end := min(off+chunkBytes, len(wire))
		if _, err := conn.Write(wire[off:end]); err != nil {
			return err
		}
	}
	return nil
}
