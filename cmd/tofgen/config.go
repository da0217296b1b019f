package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/pixelfield/tofsink/internal/protocol/frame"
)

// scenario scripts what tofgen serves to each accepted client.
type scenario struct {
	ListenAddr    string
	FrameInterval time.Duration
	// ChunkBytes splits each encoded frame into writes of this size to
	// exercise boundary reassembly in the client. Zero writes whole frames.
	ChunkBytes int
	// Repeat replays the frame list this many times per connection.
	Repeat int
	Frames []frame.Frame
}

func defaultScenario() scenario {
	return scenario{
		ListenAddr:    ":8451",
		FrameInterval: 100 * time.Millisecond,
		Repeat:        1,
	}
}

type fileConfig struct {
	ListenAddr    string      `toml:"listen_addr"`
	FrameInterval string      `toml:"frame_interval"`
	ChunkBytes    int         `toml:"chunk_bytes"`
	Repeat        int         `toml:"repeat"`
	Frames        []fileFrame `toml:"frames"`
}

type fileFrame struct {
	FrameNumber int64    `toml:"frame_number"`
	BinSize     int      `toml:"bin_size"`
	BinWidth    int64    `toml:"bin_width"`
	BinOffset   int64    `toml:"bin_offset"`
	Counts      []uint32 `toml:"counts"`
}

func loadScenario(path string) (scenario, error) {
	s := defaultScenario()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return scenario{}, fmt.Errorf("load scenario: %w", err)
	}

	if meta.IsDefined("listen_addr") {
		addr := strings.TrimSpace(raw.ListenAddr)
		if addr != "" {
			s.ListenAddr = addr
		}
	}

	if meta.IsDefined("frame_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.FrameInterval))
		if err != nil {
			return scenario{}, fmt.Errorf("parse frame_interval: %w", err)
		}
		if d < 0 {
			return scenario{}, fmt.Errorf("frame_interval negative: %s", raw.FrameInterval)
		}
		s.FrameInterval = d
	}

	if meta.IsDefined("chunk_bytes") {
		if raw.ChunkBytes < 0 {
			return scenario{}, fmt.Errorf("chunk_bytes negative: %d", raw.ChunkBytes)
		}
		s.ChunkBytes = raw.ChunkBytes
	}

	if meta.IsDefined("repeat") {
		if raw.Repeat < 1 {
			return scenario{}, fmt.Errorf("repeat must be >= 1: %d", raw.Repeat)
		}
		s.Repeat = raw.Repeat
	}

	if len(raw.Frames) == 0 {
		return scenario{}, fmt.Errorf("scenario defines no frames")
	}
	for i, rf := range raw.Frames {
		if rf.BinSize < 1 {
			return scenario{}, fmt.Errorf("frame[%d] bin_size must be >= 1: %d", i, rf.BinSize)
		}
		if len(rf.Counts) != rf.BinSize {
			return scenario{}, fmt.Errorf("frame[%d] counts length %d != bin_size %d", i, len(rf.Counts), rf.BinSize)
		}
		s.Frames = append(s.Frames, frame.Frame{
			Number:    rf.FrameNumber,
			BinCount:  rf.BinSize,
			BinWidth:  rf.BinWidth,
			BinOffset: rf.BinOffset,
			Counts:    rf.Counts,
		})
	}

	return s, nil
}
