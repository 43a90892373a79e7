package models

import (
	"time"
)

// NoTag labels findings from objects that are scanned as a whole body.
const NoTag = "NoTag"

// TagRecord is a first-page image tag with its value coerced to text.
type TagRecord struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Chunk is one slice of a document handed to the detection service.
//
// Offset is the character offset of the chunk in the document used to
// remap detected entity offsets.
type Chunk struct {
	Index  int
	Text   string
	Offset int
}

// Entity is a detected PII/PHI span. Field names in JSON mirror the
// detection service's response so report lines stay compatible.
type Entity struct {
	BeginOffset      int     `json:"BeginOffset"`
	EndOffset        int     `json:"EndOffset"`
	Type             string  `json:"Type"`
	Score            float64 `json:"Score"`
	ChunkNumber      int     `json:"ChunkNumber"`
	BeginTotalOffset int     `json:"BeginTotalOffset"`
	EndTotalOffset   int     `json:"EndTotalOffset"`
	Result           string  `json:"Result"`
}

// ScanStats summarises one detection run over a document.
type ScanStats struct {
	DataLen   int `json:"data_len"`
	ChunkNum  int `json:"chunk_num"`
	ResultNum int `json:"result_num"`
}

// ChunkError records a chunk whose detection call failed.
type ChunkError struct {
	ChunkIndex int    `json:"chunk_index"`
	Err        string `json:"error"`
}

// ScanResult is the output of scanning a single document.
type ScanResult struct {
	Entities    []Entity     `json:"entities"`
	Stats       ScanStats    `json:"stats"`
	ChunkErrors []ChunkError `json:"chunk_errors,omitempty"`
}

// Finding is one entity located in one object (and tag, for images).
type Finding struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Tag    string `json:"tag"`
	Entity Entity `json:"entity"`
}

// BatchSummary counts what a prefix scan did.
type BatchSummary struct {
	Listed   int `json:"listed"`
	Scanned  int `json:"scanned"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
	Findings int `json:"findings"`
}

// Scan job states.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
)

// ScanJob is an asynchronous prefix scan started through the API.
type ScanJob struct {
	ID         string       `json:"id"`
	Bucket     string       `json:"bucket"`
	Prefix     string       `json:"prefix"`
	Status     string       `json:"status"`
	Error      string       `json:"error,omitempty"`
	Summary    BatchSummary `json:"summary"`
	Findings   []Finding    `json:"-"`
	CreatedAt  time.Time    `json:"created_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}
