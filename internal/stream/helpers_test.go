package stream_test

import (
	"encoding/binary"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/rmsvad/internal/config"
	"github.com/MrWong99/rmsvad/internal/observe"
	"github.com/MrWong99/rmsvad/internal/stream"
	"github.com/MrWong99/rmsvad/pkg/vad"
)

// chunkFrames is the number of frames in every test chunk (64 ms at 16 kHz).
const chunkFrames = 1024

func loud() []byte {
	buf := make([]byte, chunkFrames*2)
	for i := 0; i < len(buf); i += 2 {
		binary.LittleEndian.PutUint16(buf[i:], uint16(10000))
	}
	return buf
}

func silence() []byte { return make([]byte, chunkFrames*2) }

// speechPattern yields one segment: onset on chunk 1, end on chunk 7 with a
// release of 0.1s.
func speechPattern() [][]byte {
	return [][]byte{silence(), loud(), loud(), loud(), loud(), loud(), silence(), silence(), silence()}
}

func fastConfig() vad.Config {
	cfg := vad.DefaultConfig()
	cfg.Threshold = 0.01
	cfg.Attack = 0
	cfg.Release = 0.1
	return cfg
}

func newTestMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(t.Context()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func newManager(t *testing.T, eng vad.Engine, segs config.SegmentsConfig) *stream.Manager {
	t.Helper()
	return stream.NewManager(stream.ManagerConfig{
		Engine:   eng,
		VAD:      fastConfig(),
		Segments: segs,
		Metrics:  newTestMetrics(t),
	})
}
