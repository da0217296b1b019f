package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func TestLoadScenarioDefaultsAndOverrides(t *testing.T) {
	path := writeScenario(t, `
listen_addr = "127.0.0.1:9451"
frame_interval = "5ms"
chunk_bytes = 3
repeat = 4

[[frames]]
frame_number = 1
bin_size = 2
bin_width = 100
bin_offset = 0
counts = [3, 5]

[[frames]]
frame_number = 2
bin_size = 2
bin_width = 100
bin_offset = 0
counts = [7, 11]
`)

	s, err := loadScenario(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if s.ListenAddr != "127.0.0.1:9451" {
		t.Fatalf("listen addr: %q", s.ListenAddr)
	}
	if s.FrameInterval != 5*time.Millisecond {
		t.Fatalf("frame interval: %v", s.FrameInterval)
	}
	if s.ChunkBytes != 3 {
		t.Fatalf("chunk bytes: %d", s.ChunkBytes)
	}
	if s.Repeat != 4 {
		t.Fatalf("repeat: %d", s.Repeat)
	}
	if len(s.Frames) != 2 {
		t.Fatalf("frame count: %d", len(s.Frames))
	}
	if s.Frames[1].Number != 2 || s.Frames[1].Counts[1] != 11 {
		t.Fatalf("frame[1]: %+v", s.Frames[1])
	}
}

func TestLoadScenarioKeepsDefaultsWhenOmitted(t *testing.T) {
	path := writeScenario(t, `
[[frames]]
frame_number = 1
bin_size = 1
bin_width = 10
bin_offset = 0
counts = [1]
`)

	s, err := loadScenario(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	want := defaultScenario()
	if s.ListenAddr != want.ListenAddr {
		t.Fatalf("listen addr: got=%q want=%q", s.ListenAddr, want.ListenAddr)
	}
	if s.FrameInterval != want.FrameInterval {
		t.Fatalf("frame interval: got=%v want=%v", s.FrameInterval, want.FrameInterval)
	}
	if s.Repeat != want.Repeat {
		t.Fatalf("repeat: got=%d want=%d", s.Repeat, want.Repeat)
	}
}

func TestLoadScenarioRejectsBadFrames(t *testing.T) {
	cases := map[string]string{
		"no frames": `listen_addr = ":8451"`,
		"counts mismatch": `
[[frames]]
frame_number = 1
bin_size = 3
bin_width = 10
bin_offset = 0
counts = [1, 2]
`,
		"zero bins": `
[[frames]]
frame_number = 1
bin_size = 0
bin_width = 10
bin_offset = 0
counts = []
`,
		"bad interval": `
frame_interval = "fast"

[[frames]]
frame_number = 1
bin_size = 1
bin_width = 10
bin_offset = 0
counts = [1]
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := loadScenario(writeScenario(t, content)); err == nil {
				t.Fatalf("expected scenario error")
			}
		})
	}
}
