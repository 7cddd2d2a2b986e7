package http

import (
	"net/http"
	"strconv"
	"time"

	"qzone-service/internal/app"
	"qzone-service/internal/auth"
	"qzone-service/internal/domain"
)

type quizHandler struct {
	svc *app.QuizService
}

// quizView adds the wall-clock-derived fields to the stored quiz row.
type quizView struct {
	domain.Quiz
	State            string `json:"state"`
	SpentSeconds     int    `json:"spentSeconds"`
	RemainingSeconds int    `json:"remainingSeconds"`
}

func newQuizView(q domain.Quiz) quizView {
	now := time.Now()
	return quizView{
		Quiz:             q,
		State:            q.State(now).String(),
		SpentSeconds:     q.SpentSeconds(now),
		RemainingSeconds: q.RemainingSeconds(now),
	}
}

func newQuizViews(quizzes []domain.Quiz) []quizView {
	views := make([]quizView, 0, len(quizzes))
	for _, q := range quizzes {
		views = append(views, newQuizView(q))
	}
	return views
}

func (h *quizHandler) create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TopicID int64 `json:"topicId"`
	}
	if err := decode(r, &req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	quiz, err := h.svc.Create(r.Context(), auth.CallerID(r.Context()), req.TopicID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newQuizView(quiz))
}

func (h *quizHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	quiz, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuizView(quiz))
}

func (h *quizHandler) rename(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.svc.Rename(r.Context(), auth.CallerID(r.Context()), id, req.Name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *quizHandler) setStart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req struct {
		StartAt time.Time `json:"startAt"`
	}
	if err := decode(r, &req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.svc.SetStart(r.Context(), auth.CallerID(r.Context()), id, req.StartAt); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *quizHandler) setDuration(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req struct {
		DurationSec int `json:"durationSec"`
	}
	if err := decode(r, &req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.svc.SetDuration(r.Context(), auth.CallerID(r.Context()), id, req.DurationSec); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *quizHandler) setVisibility(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req struct {
		Public bool `json:"public"`
	}
	if err := decode(r, &req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.svc.SetPublic(r.Context(), auth.CallerID(r.Context()), id, req.Public); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *quizHandler) addQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req struct {
		QuestionID int64 `json:"questionId"`
	}
	if err := decode(r, &req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.svc.AddQuestion(r.Context(), auth.CallerID(r.Context()), id, req.QuestionID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *quizHandler) removeQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	questionID, err := pathID(r, "questionId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.svc.RemoveQuestion(r.Context(), auth.CallerID(r.Context()), id, questionID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *quizHandler) reorder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if err := decode(r, &req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.svc.Reorder(r.Context(), auth.CallerID(r.Context()), id, req.From, req.To); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *quizHandler) random(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	query := r.URL.Query()
	count, _ := strconv.Atoi(query.Get("count"))
	questions, err := h.svc.RandomQuestions(r.Context(), auth.CallerID(r.Context()), id,
		count, query.Get("phrase"), domain.ParseDifficulty(query.Get("difficulty")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *quizHandler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.svc.Delete(r.Context(), auth.CallerID(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *quizHandler) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	callerID := auth.CallerID(r.Context())

	var (
		quizzes []domain.Quiz
		err     error
	)
	switch view := query.Get("view"); view {
	case "", "owned":
		quizzes, err = h.svc.ListOwned(r.Context(), callerID)
	case "participated":
		quizzes, err = h.svc.ListParticipated(r.Context(), callerID)
	case "started":
		filter := app.QuizFilter{NamePhrase: query.Get("phrase")}
		filter.TopicID, _ = strconv.ParseInt(query.Get("topicId"), 10, 64)
		filter.MinDurationSec, _ = strconv.Atoi(query.Get("minDuration"))
		filter.MaxDurationSec, _ = strconv.Atoi(query.Get("maxDuration"))
		if raw := query.Get("startAfter"); raw != "" {
			filter.StartAfter, _ = time.Parse(time.RFC3339, raw)
		}
		if raw := query.Get("startBefore"); raw != "" {
			filter.StartBefore, _ = time.Parse(time.RFC3339, raw)
		}
		quizzes, err = h.svc.ListStarted(r.Context(), filter)
	default:
		http.Error(w, "unknown view "+view, http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuizViews(quizzes))
}
