package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luxury-yacht/dashboard/backend/apperrors"
	"github.com/luxury-yacht/dashboard/backend/config"
	"github.com/luxury-yacht/dashboard/backend/watchstream"
)

// streamErrorType marks an envelope that carries an error instead of an object.
const streamErrorType = "ERROR"

// streamMessage is one websocket frame: a watch envelope or an error.
type streamMessage struct {
	Type   string `json:"type"`
	Object any    `json:"object,omitempty"`
	Error  string `json:"error,omitempty"`

	// final closes the socket once the message is written.
	final bool
}

// Normal view transitions close the websocket without a close status or after we send a close.
func isExpectedCloseError(err error) bool {
	if errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}

// handleStream subscribes before upgrading so open failures surface as plain
// HTTP errors. The subscription ends when either side closes the socket.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	accessor, err := s.app.Resources.Lookup(r.PathValue("kind"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The relay blocks on a full buffer so the initial ADDED burst of a large
	// collection waits for the writer; only a reader stuck for
	// StreamEnqueueTimeout is disconnected.
	outgoing := make(chan streamMessage, config.StreamOutgoingBufferSize)
	overflow := make(chan struct{})
	var overflowOnce sync.Once
	enqueue := func(msg streamMessage) {
		select {
		case <-overflow:
			return
		case outgoing <- msg:
			return
		default:
		}
		timer := time.NewTimer(config.StreamEnqueueTimeout)
		defer timer.Stop()
		select {
		case outgoing <- msg:
		case <-ctx.Done():
		case <-timer.C:
			overflowOnce.Do(func() { close(overflow) })
		}
	}

	unsubscribe, err := accessor.Stream(ctx, namespaceValue(r.URL.Query().Get("namespace")),
		func(ev watchstream.Event[any]) {
			enqueue(streamMessage{Type: string(ev.Type), Object: ev.Object})
		},
		func(err error) {
			// Transport failures end the watch; anything else is per event.
			enqueue(streamMessage{Type: streamErrorType, Error: err.Error(), final: apperrors.IsTransport(err)})
		},
	)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// Cancel first: Unsubscribe waits for a relay that may be blocked in enqueue.
	defer func() {
		cancel()
		unsubscribe()
	}()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.app.Logger.Warn(fmt.Sprintf("[%s] stream upgrade failed: %v", correlationID(r), err), logSource)
		return
	}
	defer conn.Close()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !isExpectedCloseError(err) {
					s.app.Logger.Debug(fmt.Sprintf("[%s] stream read ended: %v", correlationID(r), err), logSource)
				}
				return
			}
		}
	}()

	s.writeStream(ctx, conn, outgoing, overflow)
}

func (s *Server) writeStream(ctx context.Context, conn *websocket.Conn, outgoing <-chan streamMessage, overflow <-chan struct{}) {
	closeWith := func(code int, text string) {
		deadline := time.Now().Add(config.StreamWriteTimeout)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
	}

	for {
		select {
		case <-ctx.Done():
			closeWith(websocket.CloseNormalClosure, "")
			return
		case <-overflow:
			s.app.Logger.Warn("Stream outgoing buffer full, closing the stream", logSource)
			closeWith(websocket.CloseTryAgainLater, "stream backlog exceeded")
			return
		case msg := <-outgoing:
			if err := conn.SetWriteDeadline(time.Now().Add(config.StreamWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				if !isExpectedCloseError(err) {
					s.app.Logger.Warn(fmt.Sprintf("Stream write failed: %v", err), logSource)
				}
				return
			}
			if msg.final {
				closeWith(websocket.CloseInternalServerErr, "watch ended")
				return
			}
		}
	}
}
