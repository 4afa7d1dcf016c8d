package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/OpenStreetlifting/openstreetlifting-backend/ris"
)

// FormulaVersion holds the RIS constants of one formula revision.
// The row is valid on [EffectiveFrom, EffectiveUntil); a nil EffectiveUntil
// is open-ended.
type FormulaVersion struct {
	bun.BaseModel `bun:"table:ris_formula_versions,alias:fv"`

	ID             uuid.UUID  `bun:"formula_id,pk,type:uuid,nullzero,default:gen_random_uuid()" json:"formulaID"`
	Year           int        `bun:"year,notnull,unique" json:"year"`
	EffectiveFrom  time.Time  `bun:"effective_from,notnull,type:date" json:"effectiveFrom"`
	EffectiveUntil *time.Time `bun:"effective_until,type:date" json:"effectiveUntil,omitempty"`
	IsCurrent      bool       `bun:"is_current,notnull,default:false" json:"isCurrent"`

	MenA decimal.Decimal `bun:"men_a,notnull,type:numeric(12,6)" json:"menA"`
	MenK decimal.Decimal `bun:"men_k,notnull,type:numeric(12,6)" json:"menK"`
	MenB decimal.Decimal `bun:"men_b,notnull,type:numeric(12,6)" json:"menB"`
	MenV decimal.Decimal `bun:"men_v,notnull,type:numeric(12,6)" json:"menV"`
	MenQ decimal.Decimal `bun:"men_q,notnull,type:numeric(12,6)" json:"menQ"`

	WomenA decimal.Decimal `bun:"women_a,notnull,type:numeric(12,6)" json:"womenA"`
	WomenK decimal.Decimal `bun:"women_k,notnull,type:numeric(12,6)" json:"womenK"`
	WomenB decimal.Decimal `bun:"women_b,notnull,type:numeric(12,6)" json:"womenB"`
	WomenV decimal.Decimal `bun:"women_v,notnull,type:numeric(12,6)" json:"womenV"`
	WomenQ decimal.Decimal `bun:"women_q,notnull,type:numeric(12,6)" json:"womenQ"`

	Notes     *string   `bun:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}

// Formula returns the constant sets for scoring.
func (f *FormulaVersion) Formula() ris.Formula {
	return ris.Formula{
		Men:   ris.Constants{A: f.MenA, K: f.MenK, B: f.MenB, V: f.MenV, Q: f.MenQ},
		Women: ris.Constants{A: f.WomenA, K: f.WomenK, B: f.WomenB, V: f.WomenV, Q: f.WomenQ},
	}
}

// Covers reports whether d falls inside [EffectiveFrom, EffectiveUntil).
// Only the calendar day of each value is compared.
func (f *FormulaVersion) Covers(d time.Time) bool {
	d = Day(d)
	if d.Before(Day(f.EffectiveFrom)) {
		return false
	}
	return f.EffectiveUntil == nil || d.Before(Day(*f.EffectiveUntil))
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ScoreHistory is the score of one participant under one formula version.
type ScoreHistory struct {
	bun.BaseModel `bun:"table:ris_scores_history,alias:sh"`

	ID            uuid.UUID       `bun:"ris_score_id,pk,type:uuid,nullzero,default:gen_random_uuid()" json:"risScoreID"`
	ParticipantID uuid.UUID       `bun:"participant_id,notnull,type:uuid,unique:ris_scores_participant_formula" json:"participantID"`
	FormulaID     uuid.UUID       `bun:"formula_id,notnull,type:uuid,unique:ris_scores_participant_formula" json:"formulaID"`
	Score         decimal.Decimal `bun:"ris_score,notnull,type:numeric(8,2)" json:"risScore"`
	Bodyweight    decimal.Decimal `bun:"bodyweight,notnull,type:numeric(6,2)" json:"bodyweight"`
	TotalWeight   decimal.Decimal `bun:"total_weight,notnull,type:numeric(8,2)" json:"totalWeight"`
	ComputedAt    time.Time       `bun:"computed_at,notnull,default:current_timestamp" json:"computedAt"`
}
