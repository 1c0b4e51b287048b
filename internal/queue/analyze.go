package queue

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rabbitmq/amqp091-go"

	"github.com/bitshield/procurement/backend/pkg/engine"
	"github.com/bitshield/procurement/backend/pkg/logger"
	"github.com/bitshield/procurement/backend/pkg/store"
	"github.com/bitshield/procurement/backend/pkg/tender"
)

// AnalysisJob is the analyze_queue message payload.
type AnalysisJob struct {
	RunID     string            `json:"run_id"`
	TenderID  string            `json:"tender_id"`
	Bidders   []tender.Bidder   `json:"bidders"`
	Documents []tender.Document `json:"documents"`
}

// PublishAnalysisJob enqueues one job on analyze_queue.
func PublishAnalysisJob(ch *amqp091.Channel, job AnalysisJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return PublishFIFO(ch, AnalyzeQueue, data)
}

// ProcessAnalyzeMessage runs the engine for one job and persists the
// outcome. A returned error sends the message to the retry queue;
// invalid input is terminal and acked after the run is marked failed.
func ProcessAnalyzeMessage(
	ctx context.Context,
	eng *engine.Engine,
	storage store.AssessmentStorage,
	msg string,
) error {
	data := new(AnalysisJob)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return err
	}

	logger.Info("[Queue] Analyzing tender", "run", data.RunID, "tender", data.TenderID,
		"bidders", len(data.Bidders), "documents", len(data.Documents))

	assessment, vectors, err := eng.AnalyzeWithVectors(ctx, engine.Request{
		TenderID:  data.TenderID,
		Bidders:   data.Bidders,
		Documents: data.Documents,
	})
	if err != nil {
		// Input the engine will never accept: mark the run failed and
		// ack, retrying cannot help.
		if errors.Is(err, tender.ErrNoBidders) || errors.Is(err, tender.ErrNoDocuments) {
			logger.Error("[Queue] Rejecting analysis job", "run", data.RunID, "err", err)
			if failErr := storage.FailRun(ctx, data.RunID, err.Error()); failErr != nil {
				return failErr
			}
			return nil
		}
		return err
	}

	if err := storage.SaveAssessment(ctx, data.RunID, assessment); err != nil {
		return err
	}
	if err := storage.SaveDocumentVectors(ctx, data.RunID, vectors); err != nil {
		return err
	}

	logger.Info("[Queue] Analysis complete", "run", data.RunID,
		"overall", assessment.OverallRiskScore, "signals", len(assessment.Signals))
	return nil
}
