package ingest

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pixelfield/tofsink/internal/histogram"
	"github.com/pixelfield/tofsink/internal/protocol/frame"
	"github.com/pixelfield/tofsink/internal/testutil/testlog"
)

func wireFrames(t *testing.T, frames ...frame.Frame) []byte {
	t.Helper()
	var out []byte
	for _, f := range frames {
		data, err := frame.Encode(f)
		if err != nil {
			t.Fatalf("encode frame %d: %v", f.Number, err)
		}
		out = append(out, data...)
	}
	return out
}

// serveOnce accepts one connection, writes data, and closes.
func serveOnce(t *testing.T, data []byte) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write(data)
	}()

	return ln.Addr().String()
}

func newTestService(t *testing.T, addr string) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Addr:       addr,
		OutputPath: filepath.Join(t.TempDir(), "running-sum.txt"),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRunEndToEnd(t *testing.T) {
	testlog.Start(t)

	f := frame.Frame{Number: 1, BinCount: 2, BinWidth: 100, BinOffset: 0, Counts: []uint32{3, 5}}
	f2 := f
	f2.Number = 2
	addr := serveOnce(t, wireFrames(t, f, f2))

	svc := newTestService(t, addr)
	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if svc.State() != StateClosedByPeer {
		t.Fatalf("state: got=%s want=%s", svc.State(), StateClosedByPeer)
	}

	snap, ok := svc.Accumulator().Snapshot()
	if !ok {
		t.Fatalf("expected running sum after two frames")
	}
	if snap.Counts[0] != 6 || snap.Counts[1] != 10 {
		t.Fatalf("running sum: got=%v want=[6 10]", snap.Counts)
	}
	wantEdges := histogram.BinEdges(2, 100, 0)
	for i := range wantEdges {
		if snap.Edges[i] != wantEdges[i] {
			t.Fatalf("edge[%d]: got=%v want=%v", i, snap.Edges[i], wantEdges[i])
		}
	}

	data, err := os.ReadFile(svc.writer.Path())
	if err != nil {
		t.Fatalf("read snapshot file: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "# Time of Flight Histogram Data\n# Bins: 2\n") {
		t.Fatalf("unexpected snapshot header:\n%s", content)
	}
	if !strings.Contains(content, "\t6\n") || !strings.Contains(content, "\t10\n") {
		t.Fatalf("snapshot missing accumulated counts:\n%s", content)
	}
}

func TestRunAbortsOnGeometryChange(t *testing.T) {
	testlog.Start(t)

	f1 := frame.Frame{Number: 1, BinCount: 2, BinWidth: 100, BinOffset: 0, Counts: []uint32{3, 5}}
	f2 := frame.Frame{Number: 2, BinCount: 3, BinWidth: 100, BinOffset: 0, Counts: []uint32{1, 1, 1}}
	addr := serveOnce(t, wireFrames(t, f1, f2))

	svc := newTestService(t, addr)
	err := svc.Run(context.Background())
	if !errors.Is(err, histogram.ErrBinCountMismatch) {
		t.Fatalf("expected ErrBinCountMismatch, got %v", err)
	}
	if !svc.State().Terminal() {
		t.Fatalf("state not terminal: %s", svc.State())
	}

	// The established running sum is untouched by the rejected frame.
	snap, ok := svc.Accumulator().Snapshot()
	if !ok {
		t.Fatalf("expected running sum from the first frame")
	}
	if snap.BinCount != 2 || snap.Counts[0] != 3 || snap.Counts[1] != 5 {
		t.Fatalf("running sum modified: %+v", snap)
	}
}

func TestRunShutdownOnCancel(t *testing.T) {
	testlog.Start(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		// Hold the connection open without sending anything.
		time.Sleep(5 * time.Second)
		conn.Close()
	}()

	svc := newTestService(t, ln.Addr().String())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err = svc.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if svc.State() != StateShutdown {
		t.Fatalf("state: got=%s want=%s", svc.State(), StateShutdown)
	}
}

func TestRunDialFailure(t *testing.T) {
	testlog.Start(t)

	// Grab a port and close it so the dial is refused.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	svc := newTestService(t, addr)
	if err := svc.Run(context.Background()); err == nil {
		t.Fatalf("expected dial failure")
	}
	if svc.State() != StateIOError {
		t.Fatalf("state: got=%s want=%s", svc.State(), StateIOError)
	}
}

func TestRunPersistFailureIsNonFatal(t *testing.T) {
	testlog.Start(t)

	f := frame.Frame{Number: 1, BinCount: 1, BinWidth: 10, BinOffset: 0, Counts: []uint32{4}}
	addr := serveOnce(t, wireFrames(t, f, f))

	svc := newTestService(t, addr)
	// Make the output path unwritable: turn it into a directory.
	if err := os.MkdirAll(svc.writer.Path(), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Both frames merged despite every write failing.
	snap, ok := svc.Accumulator().Snapshot()
	if !ok || snap.Counts[0] != 8 {
		t.Fatalf("in-memory state not authoritative: ok=%v snap=%+v", ok, snap)
	}
}

func TestStateStrings(t *testing.T) {
	cases := map[State]string{
		StateDisconnected: "disconnected",
		StateConnecting:   "connecting",
		StateStreaming:    "streaming",
		StateClosedByPeer: "closed_by_peer",
		StateIOError:      "io_error",
		StateShutdown:     "shutdown",
	}
	for state, want := range cases {
		if state.String() != want {
			t.Fatalf("state %d: got=%q want=%q", state, state.String(), want)
		}
	}
	if StateStreaming.Terminal() {
		t.Fatalf("streaming must not be terminal")
	}
	for _, s := range []State{StateClosedByPeer, StateIOError, StateShutdown} {
		if !s.Terminal() {
			t.Fatalf("%s must be terminal", s)
		}
	}
}
