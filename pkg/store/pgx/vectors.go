package pgx

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/bitshield/procurement/backend/pkg/logger"
	"github.com/bitshield/procurement/backend/pkg/store"
	"github.com/bitshield/procurement/backend/pkg/tender"
)

// SaveDocumentVectors bulk upserts the per-document embeddings of a run
// in chunked transactions.
func (s *AssessmentDBStorage) SaveDocumentVectors(ctx context.Context, runID string, vectors []tender.DocumentVector) error {
	if len(vectors) == 0 {
		return nil
	}

	logger.Debug("[Store][SaveDocumentVectors] Bulk upserting embeddings", "run", runID, "vectors", len(vectors))

	chunkSize := 500
	err := store.ChunkRange(len(vectors), chunkSize, func(start, end int) error {
		tx, err := s.conn.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		for _, v := range vectors[start:end] {
			_, err := tx.Exec(ctx,
				`INSERT INTO document_embeddings (run_id, bidder_id, doc_id, embedding)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT (run_id, bidder_id, doc_id) DO UPDATE SET embedding = EXCLUDED.embedding`,
				runID, v.BidderID, v.DocID, pgvector.NewVector(v.Vector),
			)
			if err != nil {
				return err
			}
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return fmt.Errorf("save document vectors for run %s: %w", runID, err)
	}
	return nil
}
