package batchjob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/markdave123-py/phiscan/internal/core"
	"github.com/markdave123-py/phiscan/internal/core/report"
	"github.com/markdave123-py/phiscan/internal/core/router"
	"github.com/markdave123-py/phiscan/internal/models"
	"github.com/markdave123-py/phiscan/internal/observability"
)

// Task result codes understood by S3 Batch Operations.
const (
	ResultSucceeded        = "Succeeded"
	ResultTemporaryFailure = "TemporaryFailure"
	ResultPermanentFailure = "PermanentFailure"
)

// Event is the payload S3 Batch Operations sends for each invocation.
type Event struct {
	InvocationSchemaVersion string `json:"invocationSchemaVersion"`
	InvocationID            string `json:"invocationId"`
	Job                     struct {
		ID            string            `json:"id"`
		UserArguments map[string]string `json:"userArguments,omitempty"`
	} `json:"job"`
	Tasks []Task `json:"tasks"`
}

// Task names one object. Schema 1.0 carries the bucket ARN and a
// URL-encoded key; schema 2.0 carries the bucket name and the raw key.
type Task struct {
	TaskID      string `json:"taskId"`
	S3Key       string `json:"s3Key"`
	S3VersionID string `json:"s3VersionId,omitempty"`
	S3BucketArn string `json:"s3BucketArn,omitempty"`
	S3Bucket    string `json:"s3Bucket,omitempty"`
}

type Response struct {
	InvocationSchemaVersion string       `json:"invocationSchemaVersion"`
	TreatMissingKeysAs      string       `json:"treatMissingKeysAs"`
	InvocationID            string       `json:"invocationId"`
	Results                 []TaskResult `json:"results"`
}

type TaskResult struct {
	TaskID       string `json:"taskId"`
	ResultCode   string `json:"resultCode"`
	ResultString string `json:"resultString"`
}

// ObjectScanner scans a single object.
type ObjectScanner interface {
	ScanObject(ctx context.Context, bucket, key string) ([]models.Finding, error)
}

// Handler answers batch invocations by scanning each task's object.
type Handler struct {
	scanner  ObjectScanner
	redactor *report.Redactor
	logger   *slog.Logger
}

// NewHandler builds a handler. redactor may be nil.
func NewHandler(scanner ObjectScanner, redactor *report.Redactor, logger *slog.Logger) *Handler {
	return &Handler{scanner: scanner, redactor: redactor, logger: observability.Component(logger, "batchjob")}
}

// Handle scans every task in the event. Task failures become result codes;
// only a malformed event is returned as an error.
func (h *Handler) Handle(ctx context.Context, ev Event) (*Response, error) {
	if ev.InvocationID == "" || len(ev.Tasks) == 0 {
		return nil, errors.New("invocation has no id or no tasks")
	}

	resp := &Response{
		InvocationSchemaVersion: ev.InvocationSchemaVersion,
		TreatMissingKeysAs:      ResultTemporaryFailure,
		InvocationID:            ev.InvocationID,
		Results:                 make([]TaskResult, 0, len(ev.Tasks)),
	}
	for _, task := range ev.Tasks {
		resp.Results = append(resp.Results, h.handleTask(ctx, ev, task))
	}
	return resp, nil
}

func (h *Handler) handleTask(ctx context.Context, ev Event, task Task) TaskResult {
	res := TaskResult{TaskID: task.TaskID}

	bucket := task.S3Bucket
	if bucket == "" {
		bucket = BucketFromArn(task.S3BucketArn)
	}
	key := task.S3Key
	if ev.InvocationSchemaVersion == "1.0" {
		decoded, err := url.QueryUnescape(key)
		if err != nil {
			res.ResultCode = ResultPermanentFailure
			res.ResultString = fmt.Sprintf("decode key: %v", err)
			return res
		}
		key = decoded
	}

	h.logger.Info("Detecting PII", "job_id", ev.Job.ID, "task_id", task.TaskID, "bucket", bucket, "key", key)
	findings, err := h.scanner.ScanObject(ctx, bucket, key)
	res.ResultCode = resultCode(err)
	if res.ResultCode != ResultSucceeded {
		h.logger.Error("Task failed", "task_id", task.TaskID, "key", key, "code", res.ResultCode, "error", err)
		res.ResultString = err.Error()
		return res
	}

	entities := make([]models.Entity, 0, len(findings))
	for _, f := range findings {
		if h.redactor != nil {
			f = h.redactor.Redact(f)
		}
		entities = append(entities, f.Entity)
	}
	h.logger.Info("Entities", "task_id", task.TaskID, "count", len(entities))

	b, err := json.Marshal(entities)
	if err != nil {
		res.ResultCode = ResultPermanentFailure
		res.ResultString = err.Error()
		return res
	}
	res.ResultString = string(b)
	return res
}

func resultCode(err error) string {
	switch {
	case err == nil, errors.Is(err, router.ErrSkipped):
		return ResultSucceeded
	case core.IsNotFound(err), errors.Is(err, router.ErrInvalidText):
		return ResultPermanentFailure
	}
	return ResultTemporaryFailure
}
