package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/bitshield/procurement/backend/internal/queue"
	"github.com/bitshield/procurement/backend/internal/server/middleware"
	"github.com/bitshield/procurement/backend/pkg/logger"
	pgxstore "github.com/bitshield/procurement/backend/pkg/store/pgx"
	"github.com/bitshield/procurement/backend/pkg/tender"
)

// CreateAnalysisHandler accepts a tender with its bidders and extracted
// document texts, registers a pending run and enqueues the analysis job.
func CreateAnalysisHandler(c echo.Context) error {
	type contactBody struct {
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
	}

	type bidderBody struct {
		ID      string      `json:"id" validate:"required"`
		Name    string      `json:"name"`
		Price   float64     `json:"declared_price" validate:"gte=0"`
		Contact contactBody `json:"contact"`
	}

	type documentBody struct {
		BidderID string `json:"bidder_id" validate:"required"`
		DocID    string `json:"doc_id" validate:"required"`
		Text     string `json:"text" validate:"required"`
	}

	type createAnalysisBody struct {
		TenderID  string         `json:"tender_id" validate:"required"`
		Bidders   []bidderBody   `json:"bidders" validate:"required,min=1,dive"`
		Documents []documentBody `json:"documents" validate:"required,min=1,dive"`
	}

	type createAnalysisResponse struct {
		Message string `json:"message"`
		ID      string `json:"id,omitempty"`
		Status  string `json:"status,omitempty"`
	}

	data := new(createAnalysisBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createAnalysisResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createAnalysisResponse{
			Message: "Invalid request body",
		})
	}

	bidders := make([]tender.Bidder, 0, len(data.Bidders))
	for _, b := range data.Bidders {
		bidders = append(bidders, tender.Bidder{
			ID:    b.ID,
			Name:  b.Name,
			Price: b.Price,
			Contact: tender.Contact{
				Email:   b.Contact.Email,
				Phone:   b.Contact.Phone,
				Address: b.Contact.Address,
			},
		})
	}
	documents := make([]tender.Document, 0, len(data.Documents))
	for _, d := range data.Documents {
		documents = append(documents, tender.Document{
			BidderID: d.BidderID,
			DocID:    d.DocID,
			Text:     d.Text,
		})
	}

	runID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createAnalysisResponse{
			Message: "Internal server error",
		})
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn
	storage := pgxstore.NewAssessmentDBStorageWithConnection(conn)

	if err := storage.CreateRun(ctx, runID, data.TenderID); err != nil {
		logger.Error("Failed to create analysis run", "err", err)
		return c.JSON(http.StatusInternalServerError, createAnalysisResponse{
			Message: "Internal server error",
		})
	}

	ch := c.(*middleware.AppContext).App.Queue
	err = queue.PublishAnalysisJob(ch, queue.AnalysisJob{
		RunID:     runID,
		TenderID:  data.TenderID,
		Bidders:   bidders,
		Documents: documents,
	})
	if err != nil {
		logger.Error("Failed to publish analysis job", "run", runID, "err", err)
		if failErr := storage.FailRun(ctx, runID, "failed to enqueue analysis"); failErr != nil {
			logger.Error("Failed to mark run as failed", "run", runID, "err", failErr)
		}
		return c.JSON(http.StatusInternalServerError, createAnalysisResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, createAnalysisResponse{
		Message: "Analysis queued",
		ID:      runID,
		Status:  "pending",
	})
}
