package devserver

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

// handleWS accepts a realtime connection. The handshake must carry a valid
// session token in the authtoken header; the header is the only
// authentication the transport performs, matching the production backend.
// The dev loop echoes messages back.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("authtoken")
	if token == "" || !s.validToken(token) {
		log.WithField("remote", r.RemoteAddr).Info("Rejecting realtime connection without valid authtoken")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // dev only: no origin policy
	})
	if err != nil {
		log.WithError(err).Error("Failed to accept realtime connection")
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	log.WithField("remote", r.RemoteAddr).Info("Realtime connection accepted")

	ctx := r.Context()
	for {
		readCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		typ, data, err := conn.Read(readCtx)
		cancel()
		if err != nil {
			return
		}
		if err := conn.Write(ctx, typ, data); err != nil {
			return
		}
	}
}
