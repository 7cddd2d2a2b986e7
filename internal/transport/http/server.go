// Package http exposes the application services over a JSON REST API plus a
// websocket feed for live rank lists.
package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"qzone-service/internal/app"
	"qzone-service/internal/auth"
	"qzone-service/internal/domain"
)

// Services bundles everything the handlers need.
type Services struct {
	Auth      *auth.Service
	Topics    *app.TopicService
	Questions *app.QuestionService
	Quizzes   *app.QuizService
	Sheets    *app.SheetService
	Ranks     *app.RankService
}

// NewHandler builds the route table. Everything except /healthz and the
// token endpoint sits behind the bearer-token middleware.
func NewHandler(s Services) http.Handler {
	topics := &topicHandler{svc: s.Topics}
	questions := &questionHandler{svc: s.Questions}
	quizzes := &quizHandler{svc: s.Quizzes}
	sheets := &sheetHandler{svc: s.Sheets}
	ranks := &rankHandler{svc: s.Ranks}
	ws := newWSHandler(s.Ranks, s.Auth)

	api := http.NewServeMux()

	api.HandleFunc("POST /topics", topics.create)
	api.HandleFunc("GET /topics", topics.list)
	api.HandleFunc("GET /topics/{id}", topics.get)
	api.HandleFunc("PUT /topics/{id}/name", topics.rename)
	api.HandleFunc("DELETE /topics/{id}", topics.remove)
	api.HandleFunc("POST /topics/{id}/questions", questions.create)
	api.HandleFunc("GET /topics/{id}/questions", questions.list)

	api.HandleFunc("GET /questions/{id}", questions.get)
	api.HandleFunc("PUT /questions/{id}/text", questions.setText)
	api.HandleFunc("PUT /questions/{id}/difficulty", questions.setDifficulty)
	api.HandleFunc("PUT /questions/{id}/options/{optionId}", questions.setOptionText)
	api.HandleFunc("DELETE /questions/{id}", questions.remove)

	api.HandleFunc("POST /quizzes", quizzes.create)
	api.HandleFunc("GET /quizzes", quizzes.list)
	api.HandleFunc("GET /quizzes/{id}", quizzes.get)
	api.HandleFunc("PUT /quizzes/{id}/name", quizzes.rename)
	api.HandleFunc("PUT /quizzes/{id}/start", quizzes.setStart)
	api.HandleFunc("PUT /quizzes/{id}/duration", quizzes.setDuration)
	api.HandleFunc("PUT /quizzes/{id}/visibility", quizzes.setVisibility)
	api.HandleFunc("POST /quizzes/{id}/questions", quizzes.addQuestion)
	api.HandleFunc("DELETE /quizzes/{id}/questions/{questionId}", quizzes.removeQuestion)
	api.HandleFunc("PUT /quizzes/{id}/questions/order", quizzes.reorder)
	api.HandleFunc("GET /quizzes/{id}/questions/random", quizzes.random)
	api.HandleFunc("DELETE /quizzes/{id}", quizzes.remove)

	api.HandleFunc("POST /quizzes/{id}/sheet", sheets.open)
	api.HandleFunc("PUT /quizzes/{id}/sheet/answers/{questionId}", sheets.giveAnswer)
	api.HandleFunc("GET /quizzes/{id}/sheet/answers/{questionId}", sheets.givenAnswer)
	api.HandleFunc("POST /quizzes/{id}/sheet/submit", sheets.submit)

	api.HandleFunc("GET /quizzes/{id}/ranks", ranks.list)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /auth/token", tokenHandler(s.Auth))
	mux.HandleFunc("GET /ws/ranks", ws.serveRanks)
	mux.Handle("/", s.Auth.Middleware(api))
	return mux
}

// tokenHandler mints a bearer token for the given user id. There is no user
// directory; identity management lives outside this service.
func tokenHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID int64 `json:"userId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID <= 0 {
			http.Error(w, "userId required", http.StatusBadRequest)
			return
		}
		token, err := svc.IssueToken(req.UserID)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"accessToken": token})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps the domain error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

func decode(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
