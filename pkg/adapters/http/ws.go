package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/canopy/pkg/bridge"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// StatusSessionNotFound closes a stream opened for an unknown session.
const StatusSessionNotFound websocket.StatusCode = 4000

// StreamSession handles GET /ws/sessions/{id}. Each text message {"query": "..."} runs one
// invocation; its events and terminal frame are written back in order. Queries on one
// connection run one at a time, and every queued query gets exactly one terminal frame.
// A query the lane cannot hold is answered at once with {"rejected": query, "reason"},
// which carries no terminal fields.
func (s *Server) StreamSession(w http.ResponseWriter, r *http.Request, id string) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer ws.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ok, err := s.studio.SessionExists(ctx, id)
	if err != nil {
		ws.Close(websocket.StatusInternalError, "failed to look up session")
		return
	}
	if !ok {
		ws.Close(StatusSessionNotFound, domain.ErrSessionNotFound.Error())
		return
	}

	logger := s.logger.With("session_id", id)
	logger.Info("stream connected")

	var writeMu sync.Mutex
	send := func(ctx context.Context, f bridge.Frame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		writeCtx, writeCancel := context.WithTimeout(ctx, s.writeWait)
		defer writeCancel()
		return wsjson.Write(writeCtx, ws, f)
	}

	lane := bridge.NewLane(s.laneDepth)

	for {
		var req ChatRequest
		if err := wsjson.Read(ctx, ws, &req); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				logger.Debug("stream read failed", "err", err)
			}
			break
		}

		query := req.Query
		job := func() {
			_, err := s.studio.Stream(ctx, id, query, send)
			if err == nil {
				return
			}
			var inv *domain.InvocationError
			if errors.As(err, &inv) {
				// The terminal frame already carried the failure.
				return
			}
			if ctx.Err() == nil {
				_ = send(ctx, bridge.ErrorFrame(err.Error()))
			}
		}
		if strings.TrimSpace(query) == "" {
			// Answered in turn, so it cannot split another query's frames.
			job = func() { _ = send(ctx, bridge.ErrorFrame("query is required")) }
		}

		if err := lane.Submit(job); err != nil {
			logger.Warn("query rejected", "err", err)
			_ = send(ctx, bridge.RejectionFrame(query, err.Error()))
		}
	}

	// Queued invocations observe the cancelled context and return early.
	cancel()
	lane.Close()
	logger.Info("stream disconnected")
	ws.Close(websocket.StatusNormalClosure, "")
}
