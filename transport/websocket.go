package transport

import (
	"context"
	"net/http"
	"sync"

	"dmcore/controller"
	"dmcore/domain"

	"github.com/gorilla/websocket"
)

// controllerFactory builds the per-connection selection controller. Injected
// so tests can observe the controller without a running exchange.
type controllerFactory func(viewer domain.Participant, onUpdate controller.Notify, onError controller.NotifyError) *controller.Controller

// clientFrame is what the browser sends over the socket.
type clientFrame struct {
	Type string `json:"type"` // "select" | "deselect" | "send"
	Peer string `json:"peer,omitempty"`
	Text string `json:"text,omitempty"`
}

// serverFrame carries the full snapshot on every update. Clients replace
// their local list wholesale; frames may repeat but never shrink.
type serverFrame struct {
	Type     string            `json:"type"` // "snapshot" | "error"
	State    string            `json:"state,omitempty"`
	Messages []messageResponse `json:"messages,omitempty"`
	Error    string            `json:"error,omitempty"`
}

type wsSession struct {
	conn *websocket.Conn
	mu   sync.Mutex // gorilla allows a single concurrent writer
}

func (s *wsSession) write(frame serverFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteJSON(frame)
}

func (s *wsSession) pushSnapshot(state controller.State, messages []domain.Message) {
	s.write(serverFrame{
		Type:     "snapshot",
		State:    state.String(),
		Messages: toMessageResponses(messages),
	})
}

func (s *wsSession) pushError(err error) {
	s.write(serverFrame{Type: "error", Error: err.Error()})
}

// HandleWebSocket upgrades the connection and drives one controller per
// socket. Every snapshot of the selected channel is streamed as a JSON
// frame; the subscription is released when the socket closes.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.identify(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "viewer", viewer, "error", err)
		return
	}
	defer conn.Close()

	session := &wsSession{conn: conn}
	ctrl := h.newController(viewer, session.pushSnapshot, session.pushError)
	defer ctrl.Deselect()

	if peer := r.URL.Query().Get("peer"); peer != "" {
		if err := ctrl.Select(domain.Participant(peer)); err != nil {
			session.pushError(err)
		}
	}

	h.log.Info("WebSocket session opened", "viewer", viewer)
	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			// Disconnect or malformed stream: tear the session down
			h.log.Info("WebSocket session closed", "viewer", viewer, "error", err)
			return
		}
		h.dispatch(r.Context(), ctrl, session, frame)
	}
}

func (h *Handler) dispatch(ctx context.Context, ctrl *controller.Controller, session *wsSession, frame clientFrame) {
	switch frame.Type {
	case "select":
		if err := ctrl.Select(domain.Participant(frame.Peer)); err != nil {
			session.pushError(err)
		}
	case "deselect":
		ctrl.Deselect()
		session.write(serverFrame{Type: "snapshot", State: controller.Idle.String()})
	case "send":
		if _, err := ctrl.Send(ctx, frame.Text); err != nil {
			session.pushError(err)
		}
	default:
		session.write(serverFrame{Type: "error", Error: "unknown frame type: " + frame.Type})
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // non-browser clients
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
