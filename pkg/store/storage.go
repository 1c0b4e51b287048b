// Package store defines the persistence interface for analysis runs and
// shared bulk helpers. The pgx subpackage implements it on PostgreSQL
// with pgvector for the document embedding columns.
package store

import (
	"context"
	"errors"

	"github.com/bitshield/procurement/backend/pkg/tender"
)

// ErrNotFound indicates the requested analysis run does not exist (or
// has not completed yet).
var ErrNotFound = errors.New("analysis not found")

// Run is one persisted analysis run. Status moves from "pending" to
// "done" when the worker stores the assessment, or "failed" when the
// input was rejected.
type Run struct {
	ID         string             `json:"id"`
	TenderID   string             `json:"tender_id"`
	Status     string             `json:"status"`
	Error      string             `json:"error,omitempty"`
	Assessment *tender.Assessment `json:"assessment,omitempty"`
}

// AssessmentStorage persists analysis runs, their risk signals and the
// per-document embedding vectors.
type AssessmentStorage interface {
	// CreateRun registers a pending run for a tender.
	CreateRun(ctx context.Context, runID string, tenderID string) error

	// SaveAssessment stores the completed assessment and its signals,
	// marking the run done.
	SaveAssessment(ctx context.Context, runID string, assessment *tender.Assessment) error

	// FailRun marks the run failed with a reason.
	FailRun(ctx context.Context, runID string, reason string) error

	// GetRun loads a run by id. Returns ErrNotFound for unknown ids.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// SaveDocumentVectors stores the per-document embeddings of a run so
	// later cross-tender similarity queries can reuse them.
	SaveDocumentVectors(ctx context.Context, runID string, vectors []tender.DocumentVector) error
}

// ChunkRange calls fn over [start, end) windows of at most chunkSize
// until total is covered.
func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

// DedupeStrings removes empty strings and duplicates, keeping first
// occurrence order.
func DedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
