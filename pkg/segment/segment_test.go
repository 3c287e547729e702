package segment_test

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/MrWong99/rmsvad/pkg/audio"
	"github.com/MrWong99/rmsvad/pkg/segment"
	"github.com/MrWong99/rmsvad/pkg/vad"
)

func start(ts float64, pre ...[]byte) vad.Event {
	return vad.Event{Type: vad.EventSpeechStart, Timestamp: ts, PreBuffer: pre}
}

func chunk(b ...byte) vad.Event { return vad.Event{Type: vad.EventAudio, Chunk: b} }

func end(typ vad.EventType, d float64) vad.Event {
	return vad.Event{Type: typ, Duration: d}
}

func TestAssembler_CollectsSpan(t *testing.T) {
	var seen []*segment.Segment
	asm := segment.New(segment.WithOnSegment(func(s *segment.Segment) { seen = append(seen, s) }))

	for _, ev := range []vad.Event{start(1.5, []byte{1, 2}), chunk(3, 4), chunk(5, 6)} {
		if seg := asm.Feed(ev); seg != nil {
			t.Fatalf("segment before end: %v", seg)
		}
	}
	if !asm.IsCollecting() {
		t.Fatal("IsCollecting() = false during span")
	}
	seg := asm.Feed(end(vad.EventSpeechEnd, 0.75))
	if seg == nil {
		t.Fatal("no segment on speech end")
	}
	if !bytes.Equal(seg.Audio, []byte{1, 2, 3, 4, 5, 6}) {
		t.Errorf("Audio = %v", seg.Audio)
	}
	if seg.Duration != 0.75 || seg.Timestamp != 1.5 || seg.Index != 0 || seg.TimedOut {
		t.Errorf("segment = %+v", seg)
	}
	if len(seen) != 1 || seen[0] != seg {
		t.Errorf("callback saw %v", seen)
	}
	if asm.IsCollecting() || asm.SegmentCount() != 1 {
		t.Errorf("collecting=%v count=%d", asm.IsCollecting(), asm.SegmentCount())
	}
}

func TestAssembler_WithoutPreBuffer(t *testing.T) {
	asm := segment.New(segment.WithPreBuffer(false))
	asm.Feed(start(0, []byte{9, 9}))
	asm.Feed(chunk(1, 2))
	seg := asm.Feed(end(vad.EventSpeechTimeout, 30))
	if !bytes.Equal(seg.Audio, []byte{1, 2}) {
		t.Errorf("Audio = %v, want [1 2]", seg.Audio)
	}
	if !seg.TimedOut {
		t.Error("TimedOut = false for timeout event")
	}
}

func TestAssembler_IgnoresStrayEvents(t *testing.T) {
	asm := segment.New()
	if seg := asm.Feed(chunk(1, 2)); seg != nil {
		t.Error("audio outside span produced a segment")
	}
	if seg := asm.Feed(end(vad.EventSpeechEnd, 1)); seg != nil {
		t.Error("end without start produced a segment")
	}
	if asm.SegmentCount() != 0 {
		t.Errorf("SegmentCount() = %d", asm.SegmentCount())
	}
}

func TestAssembler_IndicesAndReset(t *testing.T) {
	asm := segment.New()
	for i := range 2 {
		asm.Feed(start(float64(i)))
		asm.Feed(chunk(byte(i)))
		if seg := asm.Feed(end(vad.EventSpeechEnd, 1)); seg.Index != i {
			t.Errorf("segment %d has Index %d", i, seg.Index)
		}
	}

	asm.Feed(start(5))
	asm.Feed(chunk(7))
	asm.Reset()
	if asm.IsCollecting() {
		t.Error("IsCollecting() after Reset")
	}
	if seg := asm.Feed(end(vad.EventSpeechEnd, 1)); seg != nil {
		t.Error("Reset did not drop the open span")
	}

	asm.Feed(start(6))
	seg := asm.Feed(end(vad.EventSpeechEnd, 1))
	if seg.Index != 2 || len(seg.Audio) != 0 {
		t.Errorf("after reset: %+v", seg)
	}
}

func TestAssembler_SegmentsDoNotShareBuffers(t *testing.T) {
	asm := segment.New()
	asm.Feed(start(0))
	asm.Feed(chunk(1, 1))
	first := asm.Feed(end(vad.EventSpeechEnd, 1))
	asm.Feed(start(1))
	asm.Feed(chunk(2, 2))
	asm.Feed(end(vad.EventSpeechEnd, 1))
	if !bytes.Equal(first.Audio, []byte{1, 1}) {
		t.Errorf("first segment changed: %v", first.Audio)
	}
}

func TestAssembler_WithDetector(t *testing.T) {
	cfg := vad.DefaultConfig()
	cfg.Threshold = 0.01
	cfg.Attack = 0
	cfg.MaxSpeechDuration = 0.5
	det, err := vad.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	loud := make([]byte, cfg.ChunkSize*2)
	for i := 0; i < len(loud); i += 2 {
		binary.LittleEndian.PutUint16(loud[i:], 20000)
	}

	asm := segment.New()
	var segs []*segment.Segment
	for i := range 20 {
		for _, ev := range det.FeedAt(loud, float64(i)*0.064) {
			if seg := asm.Feed(ev); seg != nil {
				segs = append(segs, seg)
			}
		}
	}
	if len(segs) == 0 || !segs[0].TimedOut {
		t.Fatalf("segments = %v, want a timed-out first segment", segs)
	}
	// One pre-buffered frame plus eight audio chunks.
	if got, want := segs[0].NumSamples(2), 9*cfg.ChunkSize; got != want {
		t.Errorf("NumSamples = %d, want %d", got, want)
	}
}

func TestSegment_Accessors(t *testing.T) {
	seg := &segment.Segment{Audio: make([]byte, 200), Duration: 1.5, Index: 3}
	if seg.NumBytes() != 200 || seg.NumSamples(2) != 100 || seg.NumSamples(4) != 50 || seg.NumSamples(0) != 0 {
		t.Error("size accessors mismatch")
	}
	if got, want := seg.String(), "Segment(bytes=200, duration=1.500s, index=3)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	seg.TimedOut = true
	if got, want := seg.String(), "Segment(bytes=200, duration=1.500s, index=3, timed_out)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := seg.FileName(); got != "segment-0003.wav" {
		t.Errorf("FileName() = %q", got)
	}
}

func TestSegment_WAV(t *testing.T) {
	f := audio.Format{SampleRate: 16000, SampleWidth: 2, Channels: 1}
	seg := &segment.Segment{Audio: []byte{1, 0, 2, 0, 3, 0, 4, 0}}

	data, err := seg.ToWAV(f)
	if err != nil {
		t.Fatal(err)
	}
	pcm, got, err := audio.DecodeWAV(data)
	if err != nil {
		t.Fatal(err)
	}
	if got != f || !bytes.Equal(pcm, seg.Audio) {
		t.Errorf("round trip: format %+v pcm %v", got, pcm)
	}

	path := filepath.Join(t.TempDir(), seg.FileName())
	if err := seg.SaveWAV(path, f); err != nil {
		t.Fatal(err)
	}
	pcm, _, err = audio.LoadWAV(path)
	if err != nil || !bytes.Equal(pcm, seg.Audio) {
		t.Errorf("LoadWAV = %v, %v", pcm, err)
	}
}
