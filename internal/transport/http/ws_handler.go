package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"quizgen-service/internal/app"
)

// PlayHandler serves the quiz-play flow over a websocket: clients request
// questions by index and submit their answer sheet on the same connection.
// The session cookie from the quiz start carries over on the upgrade request.
type PlayHandler struct {
	quiz     *app.QuizService
	log      *logrus.Entry
	upgrader websocket.Upgrader
}

func NewPlayHandler(quiz *app.QuizService, log *logrus.Entry) *PlayHandler {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &PlayHandler{
		quiz: quiz,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type questionPayload struct {
	Index int `json:"index"`
}

type submitPayload struct {
	Answers map[string]string `json:"answers"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type wsErrorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and answers question/submit messages until the
// client disconnects. The flow is strictly request/response, so writes happen
// inline on the read loop.
func (h *PlayHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		userID = r.URL.Query().Get("userId") // browsers cannot set headers on ws dials
	}
	sessionID := ""
	if c, err := r.Cookie(sessionCookie); err == nil {
		sessionID = c.Value
	}
	if sessionID == "" {
		sessionID = r.URL.Query().Get("session")
	}
	if userID == "" || sessionID == "" {
		http.Error(w, "missing user or session identity", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "question":
			var payload questionPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.writeError(conn, "invalid question payload")
				continue
			}
			view, err := h.quiz.Question(r.Context(), sessionID, payload.Index)
			if err != nil {
				h.writeError(conn, err.Error())
				continue
			}
			if err := conn.WriteJSON(outboundMessage[any]{Type: "question", Payload: view}); err != nil {
				return
			}
		case "submit":
			var payload submitPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.writeError(conn, "invalid submit payload")
				continue
			}
			result, err := h.quiz.Submit(r.Context(), sessionID, userID, app.ParseAnswers(payload.Answers))
			if err != nil {
				h.writeError(conn, err.Error())
				continue
			}
			if err := conn.WriteJSON(outboundMessage[any]{Type: "result", Payload: result}); err != nil {
				return
			}
		default:
			h.writeError(conn, "unsupported message type")
		}
	}
}

func (h *PlayHandler) writeError(conn *websocket.Conn, message string) {
	_ = conn.WriteJSON(outboundMessage[wsErrorPayload]{Type: "error", Payload: wsErrorPayload{Message: message}})
}
