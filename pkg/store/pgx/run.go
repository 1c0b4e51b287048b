package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/bitshield/procurement/backend/pkg/logger"
	"github.com/bitshield/procurement/backend/pkg/store"
	"github.com/bitshield/procurement/backend/pkg/tender"
)

// CreateRun registers a pending run.
func (s *AssessmentDBStorage) CreateRun(ctx context.Context, runID string, tenderID string) error {
	_, err := s.conn.Exec(ctx,
		`INSERT INTO analysis_runs (id, tender_id, status) VALUES ($1, $2, 'pending')`,
		runID, tenderID,
	)
	if err != nil {
		return fmt.Errorf("create run %s: %w", runID, err)
	}
	return nil
}

// SaveAssessment stores the completed assessment and replaces the run's
// signal rows in one transaction.
func (s *AssessmentDBStorage) SaveAssessment(ctx context.Context, runID string, assessment *tender.Assessment) error {
	payload, err := json.Marshal(assessment)
	if err != nil {
		return fmt.Errorf("marshal assessment for run %s: %w", runID, err)
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE analysis_runs
		 SET status = 'done', error = '', overall_risk_score = $2,
		     confidence = $3, assessment = $4, updated_at = now()
		 WHERE id = $1`,
		runID, assessment.OverallRiskScore, assessment.Confidence, payload,
	)
	if err != nil {
		return fmt.Errorf("save assessment for run %s: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save assessment for run %s: %w", runID, store.ErrNotFound)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM risk_signals WHERE run_id = $1`, runID); err != nil {
		return err
	}

	chunkSize := 500
	err = store.ChunkRange(len(assessment.Signals), chunkSize, func(start, end int) error {
		for _, signal := range assessment.Signals[start:end] {
			evidence, err := json.Marshal(signal.Evidence)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx,
				`INSERT INTO risk_signals
				 (run_id, signal_type, severity, score, description, evidence, affected_bidders)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				runID, string(signal.Type), string(signal.Severity), signal.Score,
				signal.Description, evidence, signal.AffectedBidders,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save signals for run %s: %w", runID, err)
	}

	logger.Debug("[Store][SaveAssessment] Run persisted", "run", runID, "signals", len(assessment.Signals))
	return tx.Commit(ctx)
}

// FailRun marks the run failed with a reason.
func (s *AssessmentDBStorage) FailRun(ctx context.Context, runID string, reason string) error {
	_, err := s.conn.Exec(ctx,
		`UPDATE analysis_runs SET status = 'failed', error = $2, updated_at = now() WHERE id = $1`,
		runID, reason,
	)
	if err != nil {
		return fmt.Errorf("fail run %s: %w", runID, err)
	}
	return nil
}

// GetRun loads a run by id.
func (s *AssessmentDBStorage) GetRun(ctx context.Context, runID string) (*store.Run, error) {
	run := &store.Run{ID: runID}
	var payload []byte

	err := s.conn.QueryRow(ctx,
		`SELECT tender_id, status, error, assessment FROM analysis_runs WHERE id = $1`,
		runID,
	).Scan(&run.TenderID, &run.Status, &run.Error, &payload)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	if len(payload) > 0 {
		run.Assessment = &tender.Assessment{}
		if err := json.Unmarshal(payload, run.Assessment); err != nil {
			return nil, fmt.Errorf("unmarshal assessment for run %s: %w", runID, err)
		}
	}
	return run, nil
}
