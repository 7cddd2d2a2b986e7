package http

import (
	"net/http"

	"qzone-service/internal/app"
)

type rankHandler struct {
	svc *app.RankService
}

func (h *rankHandler) list(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entries, err := h.svc.RankList(r.Context(), quizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
