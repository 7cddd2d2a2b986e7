package http

import (
	"net/http"

	"qzone-service/internal/app"
	"qzone-service/internal/auth"
)

type sheetHandler struct {
	svc *app.SheetService
}

func (h *sheetHandler) open(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	view, err := h.svc.Open(r.Context(), auth.CallerID(r.Context()), quizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// giveAnswer stages the option named in the body; an empty option clears the
// staged answer for the question.
func (h *sheetHandler) giveAnswer(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	questionID, err := pathID(r, "questionId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req struct {
		Option string `json:"option"`
	}
	if err := decode(r, &req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.svc.GiveAnswer(r.Context(), auth.CallerID(r.Context()), quizID, questionID, req.Option); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *sheetHandler) givenAnswer(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	questionID, err := pathID(r, "questionId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	option, err := h.svc.GivenAnswer(r.Context(), auth.CallerID(r.Context()), quizID, questionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"option": option})
}

// submit is the one-shot submission; a second call reports the conflict and
// leaves the first result standing.
func (h *sheetHandler) submit(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := h.svc.Submit(r.Context(), auth.CallerID(r.Context()), quizID)
	if err != nil {
		// A non-zero result id means the submission stands even though some
		// answer writes were dropped; the caller gets the result, not a 5xx.
		if result.ID == 0 {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, result)
}
