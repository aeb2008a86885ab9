package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/terra-clan/interview-engine/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ChatMessage is the frame format for the candidate websocket. Incoming
// frames carry type "answer"; outgoing frames carry "prompt", "report"
// or "error".
type ChatMessage struct {
	Type     string           `json:"type"`
	Text     string           `json:"text,omitempty"`
	Phase    models.Phase     `json:"phase,omitempty"`
	Complete bool             `json:"complete,omitempty"`
	Progress *models.Progress `json:"progress,omitempty"`
}

// handleChatWS runs one interview conversation over a websocket. The
// candidate sends answers, the engine replies with the next prompt; the
// connection closes after the completion frame.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		http.Error(w, "join token required", http.StatusBadRequest)
		return
	}

	session, err := s.manager.GetByToken(r.Context(), token)
	if err != nil {
		slog.Warn("websocket join with unknown token", "error", err)
		http.Error(w, "no interview for this token", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("chat websocket connected", "session_id", session.ID, "phase", session.Phase)

	// Replay the current prompt so reconnects resume mid-interview.
	s.sendChatMessage(conn, ChatMessage{
		Type:     "prompt",
		Text:     session.LastMessage,
		Phase:    session.Phase,
		Complete: session.IsComplete(),
		Progress: s.manager.Progress(session),
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "error", err)
			}
			break
		}

		var msg ChatMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			slog.Debug("invalid chat frame", "error", err)
			s.sendChatError(conn, "invalid message format")
			continue
		}

		if msg.Type != "answer" {
			s.sendChatError(conn, "unsupported message type: "+msg.Type)
			continue
		}

		resp, err := s.manager.ProcessResponse(r.Context(), session.ID, msg.Text)
		if err != nil {
			slog.Error("failed to process websocket answer", "error", err, "session_id", session.ID)
			s.sendChatError(conn, "failed to process answer")
			continue
		}

		outType := "prompt"
		if resp.Complete {
			outType = "report"
		}
		if err := s.sendChatMessage(conn, ChatMessage{
			Type:     outType,
			Text:     resp.Message,
			Phase:    resp.Phase,
			Complete: resp.Complete,
			Progress: resp.Progress,
		}); err != nil {
			break
		}

		if resp.Complete {
			break
		}
	}

	slog.Info("chat websocket disconnected", "session_id", session.ID)
}

func (s *Server) sendChatMessage(conn *websocket.Conn, msg ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal chat message", "error", err)
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send chat message", "error", err)
		return err
	}
	return nil
}

func (s *Server) sendChatError(conn *websocket.Conn, message string) {
	s.sendChatMessage(conn, ChatMessage{
		Type: "error",
		Text: message,
	})
}
