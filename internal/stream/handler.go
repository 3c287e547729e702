package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/MrWong99/rmsvad/internal/observe"
	"github.com/MrWong99/rmsvad/pkg/segment"
	"github.com/MrWong99/rmsvad/pkg/vad"
)

// Message types sent to and accepted from WebSocket clients.
const (
	TypeReady         = "ready"
	TypeSpeechStart   = "speech_start"
	TypeSpeechEnd     = "speech_end"
	TypeSpeechTimeout = "speech_timeout"
	TypeSegment       = "segment"
	TypeStats         = "stats"
	TypeReset         = "reset"
	TypeError         = "error"
)

// maxChunkBytes bounds a single binary message.
const maxChunkBytes = 1 << 20

// Message is the JSON envelope exchanged over the stream endpoint. Clients
// send {"type":"reset"} or {"type":"stats"}; everything else is server to
// client.
type Message struct {
	Type   string `json:"type"`
	Stream string `json:"stream,omitempty"`

	Timestamp       float64 `json:"timestamp,omitempty"`
	Level           float64 `json:"level,omitempty"`
	Duration        float64 `json:"duration,omitempty"`
	PreBufferFrames int     `json:"pre_buffer_frames,omitempty"`

	Segment *SegmentInfo `json:"segment,omitempty"`
	Stats   *vad.Stats   `json:"stats,omitempty"`

	// SampleRate, SampleWidth and Channels describe the expected input in
	// the ready message.
	SampleRate  int `json:"sample_rate,omitempty"`
	SampleWidth int `json:"sample_width,omitempty"`
	Channels    int `json:"channels,omitempty"`

	Error string `json:"error,omitempty"`
}

// SegmentInfo describes a completed segment without its audio.
type SegmentInfo struct {
	Index     int     `json:"index"`
	Bytes     int     `json:"bytes"`
	Duration  float64 `json:"duration"`
	Timestamp float64 `json:"timestamp"`
	TimedOut  bool    `json:"timed_out"`
	Path      string  `json:"path,omitempty"`
}

func eventMessage(ev vad.Event) (Message, bool) {
	msg := Message{Timestamp: ev.Timestamp, Level: ev.Level}
	switch ev.Type {
	case vad.EventSpeechStart:
		msg.Type = TypeSpeechStart
		msg.PreBufferFrames = len(ev.PreBuffer)
	case vad.EventSpeechEnd:
		msg.Type = TypeSpeechEnd
		msg.Duration = ev.Duration
	case vad.EventSpeechTimeout:
		msg.Type = TypeSpeechTimeout
		msg.Duration = ev.Duration
	default:
		return Message{}, false
	}
	return msg, true
}

func segmentMessage(seg *segment.Segment, path string) Message {
	return Message{
		Type: TypeSegment,
		Segment: &SegmentInfo{
			Index:     seg.Index,
			Bytes:     seg.NumBytes(),
			Duration:  seg.Duration,
			Timestamp: seg.Timestamp,
			TimedOut:  seg.TimedOut,
			Path:      path,
		},
	}
}

// Handler serves GET /v1/stream. Query parameter id names the stream; a
// random id is assigned when it is absent. Binary messages carry PCM chunks
// in the configured layout; text messages carry control [Message]s.
type Handler struct {
	mgr *Manager

	// AcceptOptions is passed to websocket.Accept. Nil uses the defaults,
	// which reject cross-origin requests.
	AcceptOptions *websocket.AcceptOptions
}

// NewHandler returns a Handler serving streams from mgr.
func NewHandler(mgr *Manager) *Handler {
	return &Handler{mgr: mgr}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		id = uuid.NewString()
	}
	ctx, span := observe.StartStreamSpan(r.Context(), "stream.session", id)
	defer span.End()
	log := observe.Logger(ctx)

	st, err := h.mgr.Open(ctx, id)
	switch {
	case errors.Is(err, ErrInvalidID):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, ErrStreamExists):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		log.Error("stream: open failed", "err", err)
		http.Error(w, "cannot open stream", http.StatusInternalServerError)
		return
	}
	// Use a fresh context for the close; ctx is cancelled once the
	// connection is gone.
	defer func() {
		if err := h.mgr.Close(context.WithoutCancel(ctx), id); err != nil && !errors.Is(err, ErrStreamNotFound) {
			log.Warn("stream: close failed", "err", err)
		}
	}()

	conn, err := websocket.Accept(w, r, h.AcceptOptions)
	if err != nil {
		log.Warn("stream: websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxChunkBytes)
	st.OnClose(func() { conn.Close(websocket.StatusGoingAway, "stream closed") })

	cfg := h.mgr.VADConfig()
	ready := Message{
		Type:        TypeReady,
		Stream:      id,
		SampleRate:  cfg.SampleRate,
		SampleWidth: cfg.SampleWidth,
		Channels:    cfg.Channels,
	}
	if err := wsjson.Write(ctx, conn, ready); err != nil {
		return
	}

	if err := h.serve(ctx, conn, st); err != nil && ctx.Err() == nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		default:
			log.Debug("stream: connection ended", "err", err)
		}
	}
}

// serve reads messages until the connection fails or closes.
func (h *Handler) serve(ctx context.Context, conn *websocket.Conn, st *Stream) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var out []Message
		switch typ {
		case websocket.MessageBinary:
			res, err := st.Process(ctx, data)
			if err != nil {
				out = append(out, Message{Type: TypeError, Error: err.Error()})
				break
			}
			for _, ev := range res.Events {
				if msg, ok := eventMessage(ev); ok {
					out = append(out, msg)
				}
			}
			for i, seg := range res.Segments {
				out = append(out, segmentMessage(seg, res.Paths[i]))
			}
		case websocket.MessageText:
			out = append(out, h.control(st, data))
		}

		for _, msg := range out {
			msg.Stream = st.ID()
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				return err
			}
		}
	}
}

func (h *Handler) control(st *Stream, data []byte) Message {
	var req Message
	if err := json.Unmarshal(data, &req); err != nil {
		return Message{Type: TypeError, Error: fmt.Sprintf("invalid control message: %v", err)}
	}
	switch req.Type {
	case TypeReset:
		st.Reset()
		return Message{Type: TypeReset}
	case TypeStats:
		stats := st.Stats()
		return Message{Type: TypeStats, Stats: &stats, Timestamp: st.Elapsed()}
	default:
		return Message{Type: TypeError, Error: fmt.Sprintf("unknown control message type %q", req.Type)}
	}
}
