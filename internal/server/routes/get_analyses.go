package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bitshield/procurement/backend/internal/server/middleware"
	"github.com/bitshield/procurement/backend/pkg/logger"
	"github.com/bitshield/procurement/backend/pkg/store"
	pgxstore "github.com/bitshield/procurement/backend/pkg/store/pgx"
)

// GetAnalysisHandler returns one analysis run with its assessment once
// the worker has stored it.
func GetAnalysisHandler(c echo.Context) error {
	type getAnalysisParams struct {
		ID string `param:"id" validate:"required"`
	}

	params := new(getAnalysisParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request"})
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn
	storage := pgxstore.NewAssessmentDBStorageWithConnection(conn)

	run, err := storage.GetRun(ctx, params.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Analysis not found"})
		}
		logger.Error("Failed to load analysis run", "run", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	return c.JSON(http.StatusOK, run)
}
