package gateway

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/c360/sousschef/router"
)

// handleChatSocket upgrades the connection and serves a chat session:
// each inbound frame is one routed request, each outbound frame the
// matching response. The session id sticks for the connection once
// chosen.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake failure.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()
	conn.SetReadLimit(s.maxRequestBytes)

	remote := conn.RemoteAddr().String()
	s.logger.Debug("websocket session started", "remote", remote)

	sessionID := ""
	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket closed unexpectedly", "remote", remote, "error", err)
			}
			return
		}

		if provided := strings.TrimSpace(req.SessionID); provided != "" {
			sessionID = provided
		} else if sessionID == "" {
			sessionID = uuid.NewString()
		}

		message := strings.TrimSpace(req.Message)
		if message == "" {
			if err := conn.WriteJSON(errorBody{Error: "message is required", Status: http.StatusBadRequest}); err != nil {
				return
			}
			continue
		}

		resp := s.router.Route(r.Context(), router.Request{Query: message})
		out := chatResponse{
			Response:  resp.Text,
			SessionID: sessionID,
			QueryType: string(resp.Category),
		}
		if err := conn.WriteJSON(out); err != nil {
			s.logger.Debug("websocket write failed", "remote", remote, "error", err)
			return
		}
	}
}
