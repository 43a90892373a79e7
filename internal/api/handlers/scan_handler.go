package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/phiscan/internal/core"
	"github.com/markdave123-py/phiscan/internal/core/batchjob"
	"github.com/markdave123-py/phiscan/internal/core/report"
	"github.com/markdave123-py/phiscan/internal/core/router"
	"github.com/markdave123-py/phiscan/internal/core/scanjob"
	"github.com/markdave123-py/phiscan/internal/models"
	"github.com/markdave123-py/phiscan/internal/observability"
)

type ScanHandler struct {
	queue    *scanjob.Queue
	objects  batchjob.ObjectScanner
	redactor *report.Redactor
	logger   *slog.Logger
}

// NewScanHandler builds the scan endpoints. redactor may be nil.
func NewScanHandler(queue *scanjob.Queue, objects batchjob.ObjectScanner, redactor *report.Redactor, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{queue: queue, objects: objects, redactor: redactor, logger: observability.Component(logger, "api")}
}

// ScanRequest names a bucket and prefix (or key) directly or through a
// location such as s3://bucket/prefix.
type ScanRequest struct {
	Location   string `json:"location,omitempty"`
	Bucket     string `json:"bucket,omitempty"`
	Prefix     string `json:"prefix,omitempty"`
	Key        string `json:"key,omitempty"`
	StartAfter string `json:"start_after,omitempty"`
}

func (req *ScanRequest) resolve() error {
	if req.Location != "" {
		bucket, path, err := router.ParseLocation(req.Location)
		if err != nil {
			return err
		}
		req.Bucket = bucket
		if req.Prefix == "" {
			req.Prefix = path
		}
		if req.Key == "" {
			req.Key = path
		}
	}
	if req.Bucket == "" {
		return errors.New("bucket or location is required")
	}
	return nil
}

// CreateScan starts an asynchronous prefix scan.
func (h *ScanHandler) CreateScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := req.resolve(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.queue.Enqueue(scanjob.Request{Bucket: req.Bucket, Prefix: req.Prefix, StartAfter: req.StartAfter})
	if errors.Is(err, scanjob.ErrQueueFull) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.logger.Info("Scan queued", "job_id", job.ID, "bucket", job.Bucket, "prefix", job.Prefix)

	w.Header().Set("Location", "/api/scans/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

func (h *ScanHandler) GetScan(w http.ResponseWriter, r *http.Request) {
	job, ok := h.queue.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *ScanHandler) GetFindings(w http.ResponseWriter, r *http.Request) {
	findings, ok := h.queue.Findings(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	writeJSON(w, http.StatusOK, findings)
}

// ObjectScanResponse is the synchronous result of scanning one object.
type ObjectScanResponse struct {
	Bucket   string           `json:"bucket"`
	Key      string           `json:"key"`
	Skipped  bool             `json:"skipped"`
	Findings []models.Finding `json:"findings"`
	Error    string           `json:"error,omitempty"`
}

// ScanObject scans a single object and answers with its findings.
func (h *ScanHandler) ScanObject(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := req.resolve(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	findings, err := h.objects.ScanObject(r.Context(), req.Bucket, req.Key)
	resp := ObjectScanResponse{Bucket: req.Bucket, Key: req.Key, Findings: make([]models.Finding, 0, len(findings))}
	for _, f := range findings {
		if h.redactor != nil {
			f = h.redactor.Redact(f)
		}
		resp.Findings = append(resp.Findings, f)
	}

	switch {
	case err == nil:
	case errors.Is(err, router.ErrSkipped):
		resp.Skipped = true
	case core.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case len(findings) > 0:
		resp.Error = err.Error()
	default:
		h.logger.Error("Object scan failed", "bucket", req.Bucket, "key", req.Key, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
