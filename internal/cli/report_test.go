package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/rmsvad/internal/detect"
	"github.com/MrWong99/rmsvad/pkg/audio"
	"github.com/MrWong99/rmsvad/pkg/segment"
	"github.com/MrWong99/rmsvad/pkg/vad"
)

func sampleResult() detect.Result {
	return detect.Result{
		Path:     "/data/talk.wav",
		Format:   audio.Format{SampleRate: 16000, SampleWidth: 2, Channels: 1},
		Duration: 0.576,
		Segments: []*segment.Segment{
			{Index: 0, Timestamp: 0.064, Duration: 0.384},
			{Index: 1, Timestamp: 1.2, Duration: 2, TimedOut: true},
		},
		SegmentPaths: []string{"/out/talk/segment-0000.wav", ""},
		Stats: vad.Stats{
			TotalChunks:     9,
			SpeechChunks:    6,
			SilenceChunks:   3,
			SpeechRatio:     6.0 / 9,
			TruncatedChunks: 1,
		},
		Unterminated: true,
	}
}

func TestRenderReport(t *testing.T) {
	out := RenderReport(sampleResult())
	for _, want := range []string{
		"talk.wav",
		"16000",
		"0.576s",
		"9 (6 speech, 3 silence)",
		"66.7%",
		"Truncated chunks",
		"Open at end",
		"#0",
		"timed out",
		"/out/talk/segment-0000.wav",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderReport_Failure(t *testing.T) {
	res := detect.Result{Path: "bad.wav", Err: errors.New("boom")}
	out := RenderReport(res)
	if !strings.Contains(out, "failed") || !strings.Contains(out, "boom") {
		t.Errorf("failure report = %q", out)
	}
	if strings.Contains(out, "Speech ratio") {
		t.Errorf("failure report renders stats: %q", out)
	}
}

func TestRenderReport_NoSegments(t *testing.T) {
	res := sampleResult()
	res.Segments, res.SegmentPaths = nil, nil
	res.Unterminated = false
	res.Stats.TruncatedChunks = 0
	out := RenderReport(res)
	for _, absent := range []string{"Segments:", "Truncated", "Open at end"} {
		if strings.Contains(out, absent) {
			t.Errorf("report contains %q:\n%s", absent, out)
		}
	}
}

func TestRenderEvent(t *testing.T) {
	ev := vad.Event{Type: vad.EventSpeechEnd, Timestamp: 1.5, Duration: 0.75}
	out := RenderEvent("/x/talk.wav", ev)
	for _, want := range []string{"talk.wav", "1.500s", "speech_end(duration=0.750s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderEvent = %q, missing %q", out, want)
		}
	}
}

func TestRenderSummary(t *testing.T) {
	results := []detect.Result{sampleResult(), {Path: "bad.wav", Err: errors.New("boom")}}
	out := RenderSummary(results)
	for _, want := range []string{"2 (1 failed)", "0.576s"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestPrintHelpers(t *testing.T) {
	var buf bytes.Buffer
	PrintVersion(&buf, "1.2.3")
	PrintError(&buf, "no input files")
	out := buf.String()
	for _, want := range []string{"rmsvad", "1.2.3", "Error:", "no input files"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}
