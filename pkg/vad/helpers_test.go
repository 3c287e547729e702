package vad_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/MrWong99/rmsvad/pkg/vad"
)

// constPCM returns frames frames of 16-bit little-endian PCM where every
// sample on every channel equals amp.
func constPCM(amp int16, frames, channels int) []byte {
	buf := make([]byte, frames*channels*2)
	for i := 0; i < len(buf); i += 2 {
		binary.LittleEndian.PutUint16(buf[i:], uint16(amp))
	}
	return buf
}

func loud() []byte    { return constPCM(10000, 1024, 1) }
func silence() []byte { return make([]byte, 1024*2) }

// sensitiveConfig is the low-threshold, zero-attack setup used by most
// scenario tests.
func sensitiveConfig() vad.Config {
	cfg := vad.DefaultConfig()
	cfg.Threshold = 0.01
	cfg.Attack = 0
	return cfg
}

func mustNew(t *testing.T, cfg vad.Config, opts ...vad.Option) *vad.Detector {
	t.Helper()
	d, err := vad.New(cfg, opts...)
	if err != nil {
		t.Fatalf("vad.New: %v", err)
	}
	return d
}

// tick is the events produced by one FeedAt call.
type tick struct {
	ts     float64
	events []vad.Event
}

func feedAll(d *vad.Detector, chunks [][]byte, spacing float64) []tick {
	out := make([]tick, len(chunks))
	for i, c := range chunks {
		ts := float64(i) * spacing
		out[i] = tick{ts: ts, events: d.FeedAt(c, ts)}
	}
	return out
}

func repeat(chunk []byte, n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = chunk
	}
	return out
}

func count(ticks []tick, typ vad.EventType) int {
	n := 0
	for _, tk := range ticks {
		for _, ev := range tk.events {
			if ev.Type == typ {
				n++
			}
		}
	}
	return n
}

func has(events []vad.Event, typ vad.EventType) bool {
	for _, ev := range events {
		if ev.Type == typ {
			return true
		}
	}
	return false
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
