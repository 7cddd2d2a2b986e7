package http

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"qzone-service/internal/app"
	"qzone-service/internal/auth"
)

// wsHandler streams rank list updates for one quiz over a websocket.
type wsHandler struct {
	ranks    *app.RankService
	auth     *auth.Service
	upgrader websocket.Upgrader
}

func newWSHandler(ranks *app.RankService, authSvc *auth.Service) *wsHandler {
	return &wsHandler{
		ranks: ranks,
		auth:  authSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// serveRanks upgrades the request and pushes the current rank list followed
// by every update until the client disconnects. Browsers cannot set an
// Authorization header on a websocket, so the token rides in the query.
func (h *wsHandler) serveRanks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if _, err := h.auth.ParseToken(query.Get("token")); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	quizID, err := strconv.ParseInt(query.Get("quizId"), 10, 64)
	if err != nil || quizID <= 0 {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	entries, err := h.ranks.RankList(r.Context(), quizID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	updates, cancel := h.ranks.Subscribe(quizID)
	defer cancel()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})
	readerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// Drain the reader so close frames and pings are processed; inbound
	// payloads are ignored.
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send <- outboundMessage{Type: "rankList", Payload: entries}

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				close(send)
				<-writerDone
				return
			}
			select {
			case send <- outboundMessage{Type: "rankList", Payload: update}:
			case <-writerDone:
				return
			}
		case <-readerDone:
			close(send)
			<-writerDone
			return
		case <-writerDone:
			return
		}
	}
}
