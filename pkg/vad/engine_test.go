package vad_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/MrWong99/rmsvad/pkg/vad"
	"github.com/MrWong99/rmsvad/pkg/vad/mock"
)

func TestEngine_NewSessionInvalidConfig(t *testing.T) {
	cfg := vad.DefaultConfig()
	cfg.AvgWindow = 0
	_, err := vad.NewEngine().NewSession(cfg)
	var ce *vad.ConfigError
	if !errors.As(err, &ce) || ce.Field != "avg_window" {
		t.Fatalf("err = %v, want avg_window ConfigError", err)
	}
}

func TestEngine_SessionLifecycle(t *testing.T) {
	sess, err := vad.NewEngine().NewSession(sensitiveConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sess.ProcessFrame(loud(), 0); err != nil {
		t.Fatal(err)
	}
	evs, err := sess.ProcessFrame(loud(), 0.064)
	if err != nil || len(evs) != 2 {
		t.Fatalf("ProcessFrame = %v, %v", evs, err)
	}
	if st := sess.Stats(); st.TotalChunks != 2 || st.SpeechSegments != 1 {
		t.Errorf("Stats() = %+v", st)
	}

	sess.Reset()
	if st := sess.Stats(); st.TotalChunks != 0 {
		t.Errorf("Stats after Reset = %+v", st)
	}

	if err := sess.Close(); err != nil {
		t.Fatal(err)
	}
	if err := sess.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if _, err := sess.ProcessFrame(loud(), 1); !errors.Is(err, vad.ErrSessionClosed) {
		t.Errorf("ProcessFrame after Close = %v, want ErrSessionClosed", err)
	}
}

func TestEngine_IndependentSessions(t *testing.T) {
	eng := vad.NewEngine()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Go(func() {
			sess, err := eng.NewSession(sensitiveConfig())
			if err != nil {
				t.Error(err)
				return
			}
			defer sess.Close()
			chunk := silence()
			if i%2 == 0 {
				chunk = loud()
			}
			for j := range 20 {
				if _, err := sess.ProcessFrame(chunk, float64(j)*0.064); err != nil {
					t.Error(err)
					return
				}
			}
			st := sess.Stats()
			if want := i%2 == 0; (st.SpeechSegments == 1) != want {
				t.Errorf("session %d: segments = %d", i, st.SpeechSegments)
			}
		})
	}
	wg.Wait()
}

func TestMock_ScriptedSession(t *testing.T) {
	sess := &mock.Session{
		Script: [][]vad.Event{nil, {{Type: vad.EventSpeechStart}}},
	}
	eng := &mock.Engine{Session: sess}
	h, err := eng.NewSession(vad.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if evs, _ := h.ProcessFrame([]byte{1, 2}, 0); evs != nil {
		t.Errorf("first call = %v, want nil", evs)
	}
	if evs, _ := h.ProcessFrame([]byte{3, 4}, 0.5); len(evs) != 1 {
		t.Errorf("second call = %v", evs)
	}
	if evs, _ := h.ProcessFrame(nil, 1); evs != nil {
		t.Errorf("beyond script = %v", evs)
	}
	frames := sess.Frames()
	if len(frames) != 3 || frames[1].Timestamp != 0.5 || frames[1].Frame[0] != 3 {
		t.Errorf("recorded frames = %+v", frames)
	}
	if calls := eng.Calls(); len(calls) != 1 || calls[0].Cfg.SampleRate != 16000 {
		t.Errorf("engine calls = %+v", calls)
	}
}
