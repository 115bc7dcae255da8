package http

import (
	"encoding/json"
	"log"
	"net/http"

	"exam-service/internal/app"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// LeaderboardWS streams live ranking snapshots of one test to its admin.
type LeaderboardWS struct {
	service  *app.ExamService
	upgrader websocket.Upgrader
}

func NewLeaderboardWS(service *app.ExamService) *LeaderboardWS {
	return &LeaderboardWS{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are enforced by the CORS layer and the bearer token.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS authorizes the subscription before upgrading, so a rejected caller gets a
// regular JSON error instead of a socket.
func (h *LeaderboardWS) ServeWS(w http.ResponseWriter, r *http.Request) {
	viewer, ok := ViewerFrom(r.Context())
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
		return
	}
	updates, cancel, err := h.service.SubscribeLeaderboard(r.Context(), chi.URLParam(r, "testID"), viewer)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				// Unblock the read loop below.
				_ = conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: "leaderboard", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	reply := func(msg outboundMessage) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if _, isJSON := err.(*json.SyntaxError); isJSON {
				reply(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid message"}})
				continue
			}
			break
		}
		switch inbound.Type {
		case "ping":
			reply(outboundMessage{Type: "pong", Payload: nil})
		default:
			reply(outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
