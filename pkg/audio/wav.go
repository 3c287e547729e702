package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/youpy/go-wav"
)

// Format describes the PCM layout of an audio stream or container.
type Format struct {
	// SampleRate in Hz (e.g., 16000).
	SampleRate int

	// SampleWidth is the number of bytes per sample: 1, 2 or 4.
	SampleWidth int

	// Channels is the number of interleaved channels.
	Channels int
}

// Validate reports whether f describes a PCM layout the WAV codec can handle.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("audio: sample rate must be positive, got %d", f.SampleRate)
	}
	if !ValidWidth(f.SampleWidth) {
		return fmt.Errorf("%w: %d", ErrUnsupportedWidth, f.SampleWidth)
	}
	if f.Channels < 1 {
		return fmt.Errorf("audio: channels must be >= 1, got %d", f.Channels)
	}
	return nil
}

// String returns a human-readable description, e.g. "16000Hz 16-bit mono".
func (f Format) String() string {
	return fmt.Sprintf("%dHz %d-bit %s", f.SampleRate, f.SampleWidth*8, channelName(f.Channels))
}

// EncodeWAV wraps raw little-endian PCM in a RIFF/WAVE container. A trailing
// partial frame is dropped so that the header's data size is exact.
func EncodeWAV(pcm []byte, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeWAV(&buf, pcm, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveWAV writes pcm to path as a WAV file, creating or truncating it.
func SaveWAV(path string, pcm []byte, f Format) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio: create %q: %w", path, err)
	}
	if err := writeWAV(out, pcm, f); err != nil {
		out.Close()
		return fmt.Errorf("audio: write %q: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("audio: close %q: %w", path, err)
	}
	return nil
}

// DecodeWAV extracts the raw PCM payload and its layout from WAV bytes. Only
// uncompressed integer PCM is accepted. 8-bit WAV data is unsigned on disk
// and is converted to signed samples.
func DecodeWAV(data []byte) ([]byte, Format, error) {
	r := wav.NewReader(bytes.NewReader(data))
	wf, err := r.Format()
	if err != nil {
		return nil, Format{}, fmt.Errorf("audio: read wav format: %w", err)
	}
	if wf.AudioFormat != wav.AudioFormatPCM {
		return nil, Format{}, fmt.Errorf("audio: unsupported wav encoding %d (want PCM)", wf.AudioFormat)
	}
	f := Format{
		SampleRate:  int(wf.SampleRate),
		SampleWidth: int(wf.BitsPerSample) / 8,
		Channels:    int(wf.NumChannels),
	}
	if err := f.Validate(); err != nil {
		return nil, Format{}, err
	}
	pcm, err := io.ReadAll(r)
	if err != nil {
		return nil, Format{}, fmt.Errorf("audio: read wav data: %w", err)
	}
	pcm, _ = AlignFrames(pcm, f.Channels, f.SampleWidth)
	if f.SampleWidth == 1 {
		flipSign(pcm)
	}
	return pcm, f, nil
}

// LoadWAV reads and decodes the WAV file at path.
func LoadWAV(path string) ([]byte, Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Format{}, fmt.Errorf("audio: open %q: %w", path, err)
	}
	pcm, f, err := DecodeWAV(data)
	if err != nil {
		return nil, Format{}, fmt.Errorf("audio: decode %q: %w", path, err)
	}
	return pcm, f, nil
}

func writeWAV(w io.Writer, pcm []byte, f Format) error {
	if err := f.Validate(); err != nil {
		return err
	}
	pcm, _ = AlignFrames(pcm, f.Channels, f.SampleWidth)
	frames := len(pcm) / FrameSize(f.Channels, f.SampleWidth)
	if f.SampleWidth == 1 {
		pcm = bytes.Clone(pcm)
		flipSign(pcm)
	}

	// #nosec G115 -- header fields are bounded by Validate and the payload size
	ww := wav.NewWriter(w, uint32(frames), uint16(f.Channels), uint32(f.SampleRate), uint16(f.SampleWidth*8))
	if _, err := ww.Write(pcm); err != nil {
		return err
	}
	return nil
}

// flipSign converts 8-bit samples between signed and offset-binary in place.
func flipSign(pcm []byte) {
	for i := range pcm {
		pcm[i] ^= 0x80
	}
}

// channelName returns "mono", "stereo" or "<n>ch".
func channelName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}
