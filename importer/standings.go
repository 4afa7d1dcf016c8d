package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
	"github.com/OpenStreetlifting/openstreetlifting-backend/formula"
	"github.com/OpenStreetlifting/openstreetlifting-backend/models"
	"github.com/OpenStreetlifting/openstreetlifting-backend/ris"
)

// standing is a participant as stored, with its total summed afresh from
// the lifts table.
type standing struct {
	ParticipantID  uuid.UUID        `bun:"participant_id"`
	CategoryID     uuid.UUID        `bun:"category_id"`
	Gender         string           `bun:"gender"`
	Bodyweight     *decimal.Decimal `bun:"bodyweight"`
	IsDisqualified bool             `bun:"is_disqualified"`
	Total          decimal.Decimal  `bun:"total"`
	StoredTotal    decimal.Decimal  `bun:"stored_total"`
	Rank           *int             `bun:"rank"`
	RISScore       *decimal.Decimal `bun:"ris_score"`
}

// Every participant of the competition is included, not only those of the
// current document, so sessions imported separately rank together.
const standingsSQL = `
SELECT
	p.participant_id, p.category_id, a.gender, p.bodyweight, p.is_disqualified,
	COALESCE(SUM(l.best_weight), 0) AS total,
	p.total AS stored_total, p.rank, p.ris_score
FROM participants p
INNER JOIN athletes a ON a.athlete_id = p.athlete_id
LEFT JOIN lifts l ON l.participant_id = p.participant_id
WHERE p.competition_id = ?
GROUP BY p.participant_id, a.gender
ORDER BY p.participant_id`

const upsertScoreSQL = `
INSERT INTO ris_scores_history AS sh (participant_id, formula_id, ris_score, bodyweight, total_weight)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (participant_id, formula_id) DO UPDATE SET
	ris_score = EXCLUDED.ris_score,
	bodyweight = EXCLUDED.bodyweight,
	total_weight = EXCLUDED.total_weight,
	computed_at = current_timestamp
WHERE (sh.ris_score, sh.bodyweight, sh.total_weight)
	IS DISTINCT FROM (EXCLUDED.ris_score, EXCLUDED.bodyweight, EXCLUDED.total_weight)`

// derive recomputes totals, ranks and scores for the whole competition.
func (w *writer) derive(ctx context.Context, strict bool) error {
	var rows []standing
	if err := w.tx.NewRaw(standingsSQL, w.competitionID).Scan(ctx, &rows); err != nil {
		return fmt.Errorf("reading standings: %w", err)
	}
	ranks := assignRanks(rows)

	fv, ok, err := w.resolveFormula(ctx, strict)
	if err != nil {
		return err
	}
	var f ris.Formula
	if ok {
		year := fv.Year
		w.res.FormulaYear = &year
		f = fv.Formula()
	}

	for _, s := range rows {
		var rank *int
		if r, ranked := ranks[s.ParticipantID]; ranked {
			rank = &r
		}

		var score *decimal.Decimal
		if ok {
			score, err = scoreStanding(s, f)
			if err != nil {
				return fmt.Errorf("scoring participant %s: %w", s.ParticipantID, err)
			}
			if score == nil {
				w.res.ScoreSkipped++
				if err := deleteScore(ctx, w.tx, s.ParticipantID, fv.ID); err != nil {
					return err
				}
			} else {
				w.res.Scored++
				if _, err := w.tx.ExecContext(ctx, upsertScoreSQL,
					s.ParticipantID, fv.ID, *score, *s.Bodyweight, s.Total,
				); err != nil {
					return fmt.Errorf("writing score for participant %s: %w", s.ParticipantID, err)
				}
			}
		}

		if s.Total.Equal(s.StoredTotal) && intPtrEqual(rank, s.Rank) && decimalPtrEqual(score, s.RISScore) {
			continue
		}
		if _, err := w.tx.ExecContext(ctx,
			`UPDATE participants SET total = ?, rank = ?, ris_score = ? WHERE participant_id = ?`,
			s.Total, rank, nullDecimal(score), s.ParticipantID,
		); err != nil {
			return fmt.Errorf("updating participant %s: %w", s.ParticipantID, err)
		}
	}
	return nil
}

// resolveFormula picks the version covering the competition start date.
// Without a match the import still commits unscored, unless strict.
func (w *writer) resolveFormula(ctx context.Context, strict bool) (models.FormulaVersion, bool, error) {
	start, _, err := w.doc.Competition.Dates()
	if err != nil {
		return models.FormulaVersion{}, false, err
	}
	ledger, err := formula.Load(ctx, w.tx)
	if err != nil {
		return models.FormulaVersion{}, false, err
	}
	fv, err := ledger.ForDate(start)
	if err == nil {
		return fv, true, nil
	}
	if !errors.Is(err, formula.ErrNoFormulaForDate) {
		return models.FormulaVersion{}, false, err
	}
	resErr := &ResolutionError{Date: start, Err: err}
	if strict {
		return models.FormulaVersion{}, false, resErr
	}
	w.log.Warn("competition left unscored", zap.Error(resErr))
	w.res.Warnings = append(w.res.Warnings, canonical.Issue{
		Path:    "competition.start_date",
		Message: resErr.Error() + "; scores not computed",
	})
	return models.FormulaVersion{}, false, nil
}

// scoreStanding returns nil for participants that cannot be scored: no
// usable bodyweight or a zero total. It never hands those to the engine.
func scoreStanding(s standing, f ris.Formula) (*decimal.Decimal, error) {
	if s.Bodyweight == nil || !s.Bodyweight.IsPositive() || !s.Total.IsPositive() {
		return nil, nil
	}
	score, err := ris.ComputeFor(s.Total, *s.Bodyweight, s.Gender, f)
	if err != nil {
		return nil, err
	}
	return &score, nil
}

func deleteScore(ctx context.Context, db bun.IDB, participantID, formulaID uuid.UUID) error {
	if _, err := db.ExecContext(ctx,
		`DELETE FROM ris_scores_history WHERE participant_id = ? AND formula_id = ?`,
		participantID, formulaID,
	); err != nil {
		return fmt.Errorf("clearing score for participant %s: %w", participantID, err)
	}
	return nil
}

// assignRanks ranks each category independently. Disqualified participants
// and those with a zero total are left unranked. Order is total descending,
// then lighter bodyweight first with unknown bodyweight last. Participants
// level on both share a rank and the next rank is skipped.
func assignRanks(rows []standing) map[uuid.UUID]int {
	byCategory := make(map[uuid.UUID][]standing)
	for _, s := range rows {
		if s.IsDisqualified || !s.Total.IsPositive() {
			continue
		}
		byCategory[s.CategoryID] = append(byCategory[s.CategoryID], s)
	}

	ranks := make(map[uuid.UUID]int, len(rows))
	for _, group := range byCategory {
		sort.Slice(group, func(i, j int) bool {
			a, b := group[i], group[j]
			if c := a.Total.Cmp(b.Total); c != 0 {
				return c > 0
			}
			if c := compareBodyweight(a.Bodyweight, b.Bodyweight); c != 0 {
				return c < 0
			}
			return a.ParticipantID.String() < b.ParticipantID.String()
		})
		for i, s := range group {
			rank := i + 1
			if i > 0 {
				prev := group[i-1]
				if s.Total.Equal(prev.Total) && compareBodyweight(s.Bodyweight, prev.Bodyweight) == 0 {
					rank = ranks[prev.ParticipantID]
				}
			}
			ranks[s.ParticipantID] = rank
		}
	}
	return ranks
}

// compareBodyweight orders known weights ascending before unknown ones.
func compareBodyweight(a, b *decimal.Decimal) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return a.Cmp(*b)
	}
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func decimalPtrEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
