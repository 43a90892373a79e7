package handlers

import (
	"net/http"

	"github.com/markdave123-py/phiscan/internal/core/detector"
)

func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func EntityTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, detector.EntityTypes())
}
