package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
	"github.com/OpenStreetlifting/openstreetlifting-backend/formula"
	"github.com/OpenStreetlifting/openstreetlifting-backend/models"
	"github.com/OpenStreetlifting/openstreetlifting-backend/ris"
)

type computeRequest struct {
	Total      decimal.Decimal `json:"total"`
	Bodyweight decimal.Decimal `json:"bodyweight"`
	Gender     string          `json:"gender"`
	// Date selects the version covering it instead of the current one.
	Date string `json:"date,omitempty"`
}

type computeResponse struct {
	Score       decimal.Decimal `json:"ris_score"`
	Gender      string          `json:"gender"`
	FormulaYear int             `json:"formula_year"`
}

// CurrentFormula returns the version flagged current.
func (h *Handler) CurrentFormula(c echo.Context) error {
	ledger, err := h.ledger(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	fv, err := ledger.Current()
	if err != nil {
		return formulaError(err)
	}
	return c.JSON(http.StatusOK, fv)
}

// ResolveFormula returns the version whose window contains ?date=YYYY-MM-DD.
func (h *Handler) ResolveFormula(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing date param")
	}
	d, err := time.Parse(canonical.DateLayout, date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	ledger, err := h.ledger(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	fv, err := ledger.ForDate(d)
	if err != nil {
		return formulaError(err)
	}
	return c.JSON(http.StatusOK, fv)
}

// Compute scores a total outside of any import. The current version is
// used unless the request names a date.
func (h *Handler) Compute(c echo.Context) error {
	var req computeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ledger, err := h.ledger(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var fv models.FormulaVersion
	if req.Date != "" {
		d, perr := time.Parse(canonical.DateLayout, req.Date)
		if perr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		fv, err = ledger.ForDate(d)
	} else {
		fv, err = ledger.Current()
	}
	if err != nil {
		return formulaError(err)
	}

	gender := strings.ToUpper(strings.TrimSpace(req.Gender))
	score, err := ris.ComputeFor(req.Total, req.Bodyweight, gender, fv.Formula())
	if err != nil {
		if errors.Is(err, ris.ErrDomain) || errors.Is(err, ris.ErrUnknownGender) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, computeResponse{
		Score:       score,
		Gender:      gender,
		FormulaYear: fv.Year,
	})
}

func formulaError(err error) error {
	switch {
	case errors.Is(err, formula.ErrNoFormulaForDate), errors.Is(err, formula.ErrNoCurrentFormula),
		errors.Is(err, formula.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, formula.ErrAmbiguousCurrent):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
