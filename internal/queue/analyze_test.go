package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/bitshield/procurement/backend/pkg/ai"
	"github.com/bitshield/procurement/backend/pkg/engine"
	"github.com/bitshield/procurement/backend/pkg/store"
	"github.com/bitshield/procurement/backend/pkg/tender"
)

type memStorage struct {
	runs    map[string]*store.Run
	vectors map[string][]tender.DocumentVector
}

func newMemStorage() *memStorage {
	return &memStorage{
		runs:    map[string]*store.Run{},
		vectors: map[string][]tender.DocumentVector{},
	}
}

func (m *memStorage) CreateRun(ctx context.Context, runID string, tenderID string) error {
	m.runs[runID] = &store.Run{ID: runID, TenderID: tenderID, Status: "pending"}
	return nil
}

func (m *memStorage) SaveAssessment(ctx context.Context, runID string, assessment *tender.Assessment) error {
	run, ok := m.runs[runID]
	if !ok {
		return store.ErrNotFound
	}
	run.Status = "done"
	run.Assessment = assessment
	return nil
}

func (m *memStorage) FailRun(ctx context.Context, runID string, reason string) error {
	run, ok := m.runs[runID]
	if !ok {
		run = &store.Run{ID: runID}
		m.runs[runID] = run
	}
	run.Status = "failed"
	run.Error = reason
	return nil
}

func (m *memStorage) GetRun(ctx context.Context, runID string) (*store.Run, error) {
	run, ok := m.runs[runID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return run, nil
}

func (m *memStorage) SaveDocumentVectors(ctx context.Context, runID string, vectors []tender.DocumentVector) error {
	m.vectors[runID] = vectors
	return nil
}

type fixedEmbedder struct{}

func (fixedEmbedder) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return []float32{1, 0.5, 0}, nil
}

func (fixedEmbedder) ResetMetrics() {}

func (fixedEmbedder) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func TestProcessAnalyzeMessage(t *testing.T) {
	eng := engine.NewEngine(engine.EngineParams{Embedder: fixedEmbedder{}})
	storage := newMemStorage()
	storage.runs["r1"] = &store.Run{ID: "r1", TenderID: "t1", Status: "pending"}

	job := AnalysisJob{
		RunID:    "r1",
		TenderID: "t1",
		Bidders: []tender.Bidder{
			{ID: "b1", Price: 100000},
			{ID: "b2", Price: 105000},
		},
		Documents: []tender.Document{
			{BidderID: "b1", DocID: "d1", Text: "First proposal text."},
			{BidderID: "b2", DocID: "d2", Text: "Second proposal text."},
		},
	}
	body, _ := json.Marshal(job)

	if err := ProcessAnalyzeMessage(context.Background(), eng, storage, string(body)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	run := storage.runs["r1"]
	if run.Status != "done" {
		t.Errorf("expected run done, got %s", run.Status)
	}
	if run.Assessment == nil || run.Assessment.TenderID != "t1" {
		t.Errorf("expected stored assessment for t1, got %+v", run.Assessment)
	}
	if len(storage.vectors["r1"]) != 2 {
		t.Errorf("expected 2 stored embeddings, got %d", len(storage.vectors["r1"]))
	}
}

func TestProcessAnalyzeMessageInvalidInputIsTerminal(t *testing.T) {
	eng := engine.NewEngine(engine.EngineParams{Embedder: fixedEmbedder{}})
	storage := newMemStorage()
	storage.runs["r2"] = &store.Run{ID: "r2", TenderID: "t2", Status: "pending"}

	job := AnalysisJob{RunID: "r2", TenderID: "t2"}
	body, _ := json.Marshal(job)

	// No bidders and no documents: the job must be acked, not retried.
	if err := ProcessAnalyzeMessage(context.Background(), eng, storage, string(body)); err != nil {
		t.Fatalf("invalid input must not be retried: %v", err)
	}
	if storage.runs["r2"].Status != "failed" {
		t.Errorf("expected failed run, got %s", storage.runs["r2"].Status)
	}
	if storage.runs["r2"].Error == "" {
		t.Error("expected a failure reason on the run")
	}
}

func TestProcessAnalyzeMessageMalformedPayload(t *testing.T) {
	eng := engine.NewEngine(engine.EngineParams{Embedder: fixedEmbedder{}})
	storage := newMemStorage()

	if err := ProcessAnalyzeMessage(context.Background(), eng, storage, "{not json"); err == nil {
		t.Error("expected an error for a malformed payload")
	}
}
