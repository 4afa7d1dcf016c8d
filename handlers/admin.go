package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
	"github.com/OpenStreetlifting/openstreetlifting-backend/importer"
)

type recomputeRequest struct {
	// Year of the formula version; 0 means the current one.
	Year int `json:"year"`
}

type rejection struct {
	Error  string            `json:"error"`
	Issues []canonical.Issue `json:"issues,omitempty"`
}

// Import ingests the canonical document in the request body.
func (h *Handler) Import(c echo.Context) error {
	doc, err := canonical.Decode(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.importer.IngestWithRetry(c.Request().Context(), doc)
	if err != nil {
		var verr *canonical.ValidationError
		var rerr *importer.ResolutionError
		switch {
		case errors.As(err, &verr):
			return c.JSON(http.StatusUnprocessableEntity, rejection{Error: "validation failed", Issues: verr.Issues})
		case errors.As(err, &rerr):
			return c.JSON(http.StatusUnprocessableEntity, rejection{Error: rerr.Error()})
		case importer.IsRetryable(err):
			return c.JSON(http.StatusConflict, rejection{Error: err.Error()})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	requester, _ := c.Get("username").(string)
	h.log.Info("import via api",
		zap.String("username", requester),
		zap.String("import_id", res.ImportID.String()),
		zap.String("competition", res.CompetitionSlug),
	)
	return c.JSON(http.StatusOK, res)
}

// Recompute rescores every participant under one formula version.
func (h *Handler) Recompute(c echo.Context) error {
	var req recomputeRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if req.Year < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "year must be positive")
	}

	res, err := h.importer.Recompute(c.Request().Context(), req.Year)
	if err != nil {
		return formulaError(err)
	}
	return c.JSON(http.StatusOK, res)
}
