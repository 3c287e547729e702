package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/MrWong99/rmsvad/internal/detect"
	"github.com/MrWong99/rmsvad/pkg/vad"
)

// RenderEvent formats a single event line, e.g.
// "talk.wav   0.064s  speech_start(pre_buffer_frames=1)".
func RenderEvent(path string, ev vad.Event) string {
	style := endStyle
	switch ev.Type {
	case vad.EventSpeechStart:
		style = startStyle
	case vad.EventSpeechTimeout:
		style = timeoutStyle
	}
	return fmt.Sprintf("%s %8.3fs  %s", filepath.Base(path), ev.Timestamp, style.Render(ev.String()))
}

// RenderReport formats the per-file report printed after detection.
func RenderReport(res detect.Result) string {
	var sb strings.Builder
	sb.WriteString(TitleStyle.Render(filepath.Base(res.Path)))
	sb.WriteString("\n")

	if res.Err != nil {
		sb.WriteString(ErrorStyle.Render("failed: "))
		sb.WriteString(res.Err.Error())
		sb.WriteString("\n")
		return sb.String()
	}

	s := res.Stats
	sb.WriteString(kv("Format", res.Format.String()))
	sb.WriteString(kv("Duration", fmt.Sprintf("%.3fs", res.Duration)))
	sb.WriteString(kv("Chunks", fmt.Sprintf("%d (%d speech, %d silence)", s.TotalChunks, s.SpeechChunks, s.SilenceChunks)))
	sb.WriteString(kv("Speech ratio", fmt.Sprintf("%.1f%%", s.SpeechRatio*100)))
	sb.WriteString(kv("Segments", fmt.Sprintf("%d", len(res.Segments))))
	sb.WriteString(kv("Level avg/min/max", fmt.Sprintf("%.4f / %.4f / %.4f", s.AvgRMS, s.MinRMS, s.MaxRMS)))
	sb.WriteString(kv("Final threshold", fmt.Sprintf("%.4f", s.CurrentThreshold)))
	if s.TruncatedChunks > 0 {
		sb.WriteString(kv("Truncated chunks", fmt.Sprintf("%d", s.TruncatedChunks)))
	}
	if res.Unterminated {
		sb.WriteString(kv("Open at end", "yes"))
	}

	if len(res.Segments) == 0 {
		return sb.String()
	}
	sb.WriteString(SectionStyle.Render("Segments:"))
	sb.WriteString("\n")
	for i, seg := range res.Segments {
		line := fmt.Sprintf("  #%-3d %8.3fs  %7.3fs", seg.Index, seg.Timestamp, seg.Duration)
		if seg.TimedOut {
			line += "  " + timeoutStyle.Render("timed out")
		}
		if p := res.SegmentPaths[i]; p != "" {
			line += "  " + KeyStyle.UnsetWidth().Render(p)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderSummary formats the totals across all files.
func RenderSummary(results []detect.Result) string {
	var files, failed, segments int
	var duration float64
	for _, r := range results {
		files++
		if r.Err != nil {
			failed++
			continue
		}
		segments += len(r.Segments)
		duration += r.Duration
	}
	var sb strings.Builder
	sb.WriteString(SectionStyle.Render("Summary:"))
	sb.WriteString("\n")
	sb.WriteString(kv("Files", fmt.Sprintf("%d (%d failed)", files, failed)))
	sb.WriteString(kv("Audio", fmt.Sprintf("%.3fs", duration)))
	sb.WriteString(kv("Segments", fmt.Sprintf("%d", segments)))
	return sb.String()
}
