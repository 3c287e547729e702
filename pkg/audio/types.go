// Package audio provides the PCM plumbing used by the detector and its
// collaborators: channel down-mixing, RMS energy, frame alignment, and WAV
// container encoding and decoding.
//
// All sample data is raw little-endian signed PCM. Widths of 1, 2 and 4 bytes
// per sample are supported.
package audio

import "time"

// AudioFrame represents a single chunk of audio flowing into a detector.
type AudioFrame struct {
	// Data is interleaved PCM in the layout configured for the stream.
	Data []byte

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Seconds returns the frame timestamp as floating-point seconds.
func (f AudioFrame) Seconds() float64 {
	return f.Timestamp.Seconds()
}

// Frames splits pcm into consecutive chunks of chunkFrames frames each and
// stamps every chunk with its offset from the start of the buffer. The last
// chunk may be shorter. Chunks alias pcm.
func Frames(pcm []byte, f Format, chunkFrames int) []AudioFrame {
	fs := FrameSize(f.Channels, f.SampleWidth)
	if fs <= 0 || chunkFrames <= 0 || f.SampleRate <= 0 {
		return nil
	}
	step := chunkFrames * fs
	out := make([]AudioFrame, 0, (len(pcm)+step-1)/step)
	for off := 0; off < len(pcm); off += step {
		end := min(off+step, len(pcm))
		frameIdx := off / fs
		out = append(out, AudioFrame{
			Data:      pcm[off:end],
			Timestamp: time.Duration(frameIdx) * time.Second / time.Duration(f.SampleRate),
		})
	}
	return out
}
