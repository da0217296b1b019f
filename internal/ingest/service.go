package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pixelfield/tofsink/internal/histogram"
	"github.com/pixelfield/tofsink/internal/observability"
	"github.com/pixelfield/tofsink/internal/persist"
	"github.com/pixelfield/tofsink/internal/protocol/frame"
	"github.com/pixelfield/tofsink/internal/stream"
)

// Config wires one ingest run.
type Config struct {
	// Addr is the digitizer's host:port.
	Addr string
	// OutputPath is the snapshot file; empty selects persist.DefaultPath.
	OutputPath string
	Stream     stream.Config
	Limits     frame.Limits
}

// Service runs the single-threaded ingest pipeline:
// receive -> decode -> merge -> snapshot -> persist.
type Service struct {
	cfg    Config
	acc    *histogram.Accumulator
	writer *persist.Writer
	state  atomic.Int32
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Addr == "" {
		return nil, errors.New("ingest: addr required")
	}
	writer, err := persist.NewWriter(cfg.OutputPath)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:    cfg,
		acc:    histogram.NewAccumulator(),
		writer: writer,
	}, nil
}

// State returns the current pipeline state. Safe to call from any
// goroutine while Run is executing.
func (s *Service) State() State {
	return State(s.state.Load())
}

// Accumulator exposes the running sum for concurrent snapshot readers.
func (s *Service) Accumulator() *histogram.Accumulator {
	return s.acc
}

func (s *Service) setState(state State) {
	s.state.Store(int32(state))
	log.Debug().Str("state", state.String()).Msg("ingest: state transition")
}

// Run connects and processes frames until the peer closes, the transport
// fails, a geometry mismatch aborts the run, or ctx is canceled. The run
// ends in a terminal state either way; reconnecting belongs to the process
// manager, not to this service.
func (s *Service) Run(ctx context.Context) error {
	s.setState(StateConnecting)
	log.Info().Str("addr", s.cfg.Addr).Msg("ingest: connecting")

	conn, err := stream.Dial(ctx, s.cfg.Addr, s.cfg.Stream)
	if err != nil {
		s.setState(StateIOError)
		return fmt.Errorf("ingest: connect %s: %w", s.cfg.Addr, err)
	}
	defer conn.Close()

	// Cancellation closes the connection to unblock the receive.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	s.setState(StateStreaming)
	log.Info().
		Str("addr", s.cfg.Addr).
		Str("remote", conn.RemoteAddr().String()).
		Msg("ingest: connected, waiting for data")

	dec := frame.NewDecoder(conn, s.cfg.Limits)
	for {
		f, err := dec.Next()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				s.setState(StateShutdown)
				return ctx.Err()
			case errors.Is(err, io.EOF):
				s.setState(StateClosedByPeer)
				log.Info().Msg("ingest: connection closed by peer")
				return nil
			default:
				s.setState(StateIOError)
				return fmt.Errorf("ingest: decode: %w", err)
			}
		}

		if err := s.processFrame(f); err != nil {
			s.setState(StateShutdown)
			return err
		}
	}
}

func (s *Service) processFrame(f frame.Frame) error {
	fh, err := histogram.NewFrameHistogram(f.BinCount, f.BinWidth, f.BinOffset, f.Counts)
	if err != nil {
		return fmt.Errorf("ingest: frame %d: %w", f.Number, err)
	}

	log.Debug().
		Int64("frame", f.Number).
		Int("bins", f.BinCount).
		Int64("bin_width", f.BinWidth).
		Int64("bin_offset", f.BinOffset).
		Msg("ingest: frame decoded")

	result, err := s.acc.Merge(fh)
	if err != nil {
		return fmt.Errorf("ingest: merge frame %d: %w", f.Number, err)
	}
	observability.RecordFrameMerged(len(result.OverflowBins))
	if len(result.OverflowBins) > 0 {
		log.Warn().
			Int64("frame", f.Number).
			Ints("bins", result.OverflowBins).
			Msg("ingest: bin counters clamped at 64-bit maximum")
	}

	// Snapshot under the lock, write outside it.
	snap, ok := s.acc.Snapshot()
	if !ok {
		return nil
	}
	start := time.Now()
	err = s.writer.Write(snap)
	observability.RecordPersist(time.Since(start), err)
	if err != nil {
		log.Error().Err(err).Int64("frame", f.Number).Msg("ingest: snapshot write failed")
		return nil
	}

	log.Info().Int64("frame", f.Number).Msg("ingest: frame merged, running sum persisted")
	return nil
}
