package http

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"portal-score-service/internal/app"
	"portal-score-service/internal/domain"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.PortalService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.PortalService) *WSHandler {
	return &WSHandler{
		service: service,
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

type votePayload struct {
	PostID    string `json:"postId"`
	ReplyID   string `json:"replyId,omitempty"`
	Direction string `json:"direction"`
}

type voteResult struct {
	PostID    string   `json:"postId"`
	ReplyID   string   `json:"replyId,omitempty"`
	Upvotes   []string `json:"upvotes"`
	Downvotes []string `json:"downvotes"`
	Points    int      `json:"points"`
}

type createPostPayload struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags,omitempty"`
}

type createReplyPayload struct {
	PostID string `json:"postId"`
	Text   string `json:"text"`
}

type startQuizPayload struct {
	QuizID string `json:"quizId"`
}

type answerPayload struct {
	Value string `json:"value"`
}

type navigatePayload struct {
	Delta int `json:"delta"`
}

type setModePayload struct {
	Mode string `json:"mode"`
}

type quizResult struct {
	QuizID      string `json:"quizId"`
	Score       int    `json:"score"`
	TotalPoints int    `json:"totalPoints"`
	TimeSpent   int    `json:"timeSpent"`
	AutoSubmit  bool   `json:"autoSubmit"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the portal
// use cases: a leaderboard stream plus vote and quiz-session commands.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if userID == "" || displayName == "" {
		http.Error(w, "missing userId or name", http.StatusBadRequest)
		return
	}
	mode := domain.ParseRankMode(r.URL.Query().Get("mode"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.service.SubscribeLeaderboard(mode)
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
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
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	var active *app.ActiveQuiz
	var pumps sync.WaitGroup

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "setMode":
			var payload setModePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMsg("invalid setMode payload")
				continue
			}
			h.service.SetLeaderboardMode(updates, domain.ParseRankMode(payload.Mode))

		case "createPost":
			var payload createPostPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMsg("invalid createPost payload")
				continue
			}
			post, err := h.service.CreatePost(r.Context(), displayName, payload.Title, payload.Tags)
			if err != nil {
				send <- errorMsg(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "postCreated", Payload: post}

		case "createReply":
			var payload createReplyPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMsg("invalid createReply payload")
				continue
			}
			reply, err := h.service.CreateReply(r.Context(), payload.PostID, displayName, payload.Text)
			if err != nil {
				send <- errorMsg(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "replyCreated", Payload: reply}

		case "vote":
			var payload votePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMsg("invalid vote payload")
				continue
			}
			dir := domain.VoteUp
			if payload.Direction == string(domain.VoteDown) {
				dir = domain.VoteDown
			}
			result, err := h.service.CastVote(r.Context(), payload.PostID, payload.ReplyID, userID, dir)
			if err != nil {
				send <- errorMsg(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "voteResult", Payload: voteResult{
				PostID:    payload.PostID,
				ReplyID:   payload.ReplyID,
				Upvotes:   result.Upvotes,
				Downvotes: result.Downvotes,
				Points:    result.Points,
			}}

		case "startQuiz":
			var payload startQuizPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMsg("invalid startQuiz payload")
				continue
			}
			if active != nil && !active.Session.Submitted() {
				send <- errorMsg("quiz already in progress")
				continue
			}
			started, err := h.service.StartQuiz(r.Context(), payload.QuizID, userID, displayName)
			if err != nil {
				send <- errorMsg(err.Error())
				continue
			}
			active = started
			pumps.Add(1)
			go func(a *app.ActiveQuiz) {
				defer pumps.Done()
				select {
				case attempt := <-a.AutoSubmitted:
					select {
					case send <- outboundMessage[any]{Type: "quizResult", Payload: quizResult{
						QuizID:      attempt.QuizID,
						Score:       attempt.Score,
						TotalPoints: attempt.TotalPoints,
						TimeSpent:   attempt.TimeSpent,
						AutoSubmit:  true,
					}}:
					case <-closeSignals:
					}
				case <-closeSignals:
				}
			}(active)
			send <- outboundMessage[any]{Type: "quizState", Payload: active.Session.State()}

		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMsg("invalid answer payload")
				continue
			}
			if active == nil {
				send <- errorMsg(domain.ErrSessionNotFound.Error())
				continue
			}
			if err := active.Session.Answer(payload.Value); err != nil {
				send <- errorMsg(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "quizState", Payload: active.Session.State()}

		case "navigate":
			var payload navigatePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMsg("invalid navigate payload")
				continue
			}
			if active == nil {
				send <- errorMsg(domain.ErrSessionNotFound.Error())
				continue
			}
			if _, err := active.Session.Navigate(payload.Delta); err != nil {
				send <- errorMsg(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "quizState", Payload: active.Session.State()}

		case "submitQuiz":
			if active == nil {
				send <- errorMsg(domain.ErrSessionNotFound.Error())
				continue
			}
			attempt, err := active.Session.Submit(r.Context())
			if err != nil {
				send <- errorMsg(err.Error())
				continue
			}
			active.Close()
			send <- outboundMessage[any]{Type: "quizResult", Payload: quizResult{
				QuizID:      attempt.QuizID,
				Score:       attempt.Score,
				TotalPoints: attempt.TotalPoints,
				TimeSpent:   attempt.TimeSpent,
			}}

		case "cancelQuiz":
			if active == nil {
				send <- errorMsg(domain.ErrSessionNotFound.Error())
				continue
			}
			active.Abandon()
			active = nil
			send <- outboundMessage[any]{Type: "quizCanceled", Payload: struct{}{}}

		default:
			send <- errorMsg("unsupported message type")
		}
	}

	// Dropping the connection mid-quiz is a cancellation, not a submission.
	if active != nil && !active.Session.Submitted() {
		active.Abandon()
	}

	close(closeSignals)
	<-updatesDone
	pumps.Wait()
	close(send)
	<-writerDone
}

func errorMsg(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}
