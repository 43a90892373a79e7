package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/markdave123-py/phiscan/internal/core/batchjob"
)

type BatchHandler struct {
	invocations *batchjob.Handler
}

func NewBatchHandler(invocations *batchjob.Handler) *BatchHandler {
	return &BatchHandler{invocations: invocations}
}

// Invoke answers one S3 Batch Operations invocation.
func (h *BatchHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	var ev batchjob.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid invocation")
		return
	}

	resp, err := h.invocations.Handle(r.Context(), ev)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
