package formula

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/OpenStreetlifting/openstreetlifting-backend/models"
)

// Seeds returns the formula versions installed on a fresh database.
//
// The women's 2025 constants are provisional seed values: they are fitted
// to the published reference scores and must be replaced once the official
// set is released.
func Seeds() []models.FormulaVersion {
	notes := "Women's constants provisional."
	return []models.FormulaVersion{
		{
			Year:          2025,
			EffectiveFrom: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
			IsCurrent:     true,
			MenA:          decimal.RequireFromString("338"),
			MenK:          decimal.RequireFromString("549"),
			MenB:          decimal.RequireFromString("0.11354"),
			MenV:          decimal.RequireFromString("74.777"),
			MenQ:          decimal.RequireFromString("0.53096"),
			WomenA:        decimal.RequireFromString("164"),
			WomenK:        decimal.RequireFromString("296"),
			WomenB:        decimal.RequireFromString("0.13776"),
			WomenV:        decimal.RequireFromString("57.855"),
			WomenQ:        decimal.RequireFromString("0.37089"),
			Notes:         &notes,
		},
	}
}
