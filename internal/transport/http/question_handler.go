package http

import (
	"fmt"
	"net/http"

	"qzone-service/internal/app"
	"qzone-service/internal/auth"
	"qzone-service/internal/domain"
)

type questionHandler struct {
	svc *app.QuestionService
}

func (h *questionHandler) create(w http.ResponseWriter, r *http.Request) {
	topicID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req struct {
		Text             string   `json:"text"`
		CorrectOption    string   `json:"correctOption"`
		IncorrectOptions []string `json:"incorrectOptions"`
		Difficulty       string   `json:"difficulty"`
	}
	if err := decode(r, &req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if len(req.IncorrectOptions) != app.IncorrectOptionCount {
		http.Error(w, fmt.Sprintf("exactly %d incorrect options required", app.IncorrectOptionCount), http.StatusBadRequest)
		return
	}
	var incorrect [app.IncorrectOptionCount]string
	copy(incorrect[:], req.IncorrectOptions)

	question, err := h.svc.Create(r.Context(), auth.CallerID(r.Context()), topicID,
		req.Text, req.CorrectOption, incorrect, domain.ParseDifficulty(req.Difficulty))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

func (h *questionHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	question, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *questionHandler) setText(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(r, &req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.svc.SetText(r.Context(), auth.CallerID(r.Context()), id, req.Text); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *questionHandler) setDifficulty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req struct {
		Difficulty string `json:"difficulty"`
	}
	if err := decode(r, &req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.svc.SetDifficulty(r.Context(), auth.CallerID(r.Context()), id, domain.ParseDifficulty(req.Difficulty)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *questionHandler) setOptionText(w http.ResponseWriter, r *http.Request) {
	questionID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	optionID, err := pathID(r, "optionId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(r, &req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.svc.SetOptionText(r.Context(), auth.CallerID(r.Context()), questionID, optionID, req.Text); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *questionHandler) remove(w http.ResponseWriter, r *http.Request) {
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

func (h *questionHandler) list(w http.ResponseWriter, r *http.Request) {
	topicID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	query := r.URL.Query()
	questions, err := h.svc.List(r.Context(), auth.CallerID(r.Context()), topicID,
		query.Get("phrase"), domain.ParseDifficulty(query.Get("difficulty")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}
