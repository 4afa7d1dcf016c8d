package importer

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
)

// writer carries the state of one ingest transaction.
type writer struct {
	tx  bun.Tx
	doc *canonical.Document
	res *ImportResult
	log *zap.Logger

	federationID  uuid.UUID
	competitionID uuid.UUID
	movements     map[string]uuid.UUID
	categories    map[string]uuid.UUID
}

// lock serialises ingests of the same competition slug until commit.
func (w *writer) lock(ctx context.Context) error {
	if _, err := w.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext(?))`, w.doc.Competition.Slug); err != nil {
		return fmt.Errorf("locking competition %q: %w", w.doc.Competition.Slug, err)
	}
	return nil
}

const upsertFederationSQL = `
INSERT INTO federations AS f (name, abbreviation, country)
VALUES (?, ?, ?)
ON CONFLICT (name) DO UPDATE SET
	abbreviation = COALESCE(EXCLUDED.abbreviation, f.abbreviation),
	country = COALESCE(EXCLUDED.country, f.country)
RETURNING federation_id`

const upsertMovementSQL = `
INSERT INTO movements AS m (name, display_order)
VALUES (?, ?)
ON CONFLICT (name) DO UPDATE SET display_order = EXCLUDED.display_order
RETURNING movement_id`

const upsertCompetitionSQL = `
INSERT INTO competitions AS c (
	name, slug, status, federation_id, start_date, end_date, venue, city, country,
	number_of_judges, source_type, source_url, extracted_at
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (slug) DO UPDATE SET
	name = EXCLUDED.name,
	status = EXCLUDED.status,
	federation_id = EXCLUDED.federation_id,
	start_date = EXCLUDED.start_date,
	end_date = EXCLUDED.end_date,
	venue = EXCLUDED.venue,
	city = EXCLUDED.city,
	country = EXCLUDED.country,
	number_of_judges = EXCLUDED.number_of_judges,
	source_type = EXCLUDED.source_type,
	source_url = EXCLUDED.source_url,
	extracted_at = EXCLUDED.extracted_at,
	updated_at = CASE
		WHEN (c.name, c.status, c.federation_id, c.start_date, c.end_date, c.venue, c.city, c.country, c.number_of_judges)
			IS DISTINCT FROM
			(EXCLUDED.name, EXCLUDED.status, EXCLUDED.federation_id, EXCLUDED.start_date, EXCLUDED.end_date,
			 EXCLUDED.venue, EXCLUDED.city, EXCLUDED.country, EXCLUDED.number_of_judges)
		THEN current_timestamp
		ELSE c.updated_at
	END
RETURNING competition_id`

const upsertCompetitionMovementSQL = `
INSERT INTO competition_movements AS cm (competition_id, movement_id, display_order, is_required)
VALUES (?, ?, ?, ?)
ON CONFLICT (competition_id, movement_id) DO UPDATE SET
	display_order = EXCLUDED.display_order,
	is_required = EXCLUDED.is_required`

const upsertCategorySQL = `
INSERT INTO categories AS cat (name, gender, weight_class_min, weight_class_max)
VALUES (?, ?, ?, ?)
ON CONFLICT (name, gender) DO UPDATE SET
	weight_class_min = EXCLUDED.weight_class_min,
	weight_class_max = EXCLUDED.weight_class_max
RETURNING category_id`

// references upserts federation, movements, the competition, its movement
// list and the categories, in foreign key order.
func (w *writer) references(ctx context.Context) error {
	comp := w.doc.Competition
	fed := comp.Federation
	if err := w.tx.QueryRowContext(ctx, upsertFederationSQL, fed.Name, fed.Abbreviation, fed.Country).
		Scan(&w.federationID); err != nil {
		return fmt.Errorf("upserting federation %q: %w", fed.Name, err)
	}

	w.movements = make(map[string]uuid.UUID, len(w.doc.Movements))
	for _, m := range w.doc.Movements {
		var id uuid.UUID
		order := slices.Index(canonical.Vocabulary, m.Name) + 1
		if err := w.tx.QueryRowContext(ctx, upsertMovementSQL, m.Name, order).Scan(&id); err != nil {
			return fmt.Errorf("upserting movement %q: %w", m.Name, err)
		}
		w.movements[m.Name] = id
	}

	var judges *int16
	if comp.NumberOfJudges != nil {
		n := int16(*comp.NumberOfJudges)
		judges = &n
	}
	src := w.doc.Source
	if err := w.tx.QueryRowContext(ctx, upsertCompetitionSQL,
		comp.Name, comp.Slug, comp.StatusOrDefault(), w.federationID,
		comp.StartDate, comp.EndDate, comp.Venue, comp.City, comp.Country,
		judges, src.Type, src.URL, src.ExtractedAt.UTC(),
	).Scan(&w.competitionID); err != nil {
		return fmt.Errorf("upserting competition %q: %w", comp.Slug, err)
	}
	w.res.CompetitionID = w.competitionID

	for _, m := range w.doc.Movements {
		if _, err := w.tx.ExecContext(ctx, upsertCompetitionMovementSQL,
			w.competitionID, w.movements[m.Name], m.Order, m.IsRequiredOrDefault(),
		); err != nil {
			return fmt.Errorf("linking movement %q: %w", m.Name, err)
		}
	}

	w.categories = make(map[string]uuid.UUID, len(w.doc.Categories))
	for _, cat := range w.doc.Categories {
		var id uuid.UUID
		if err := w.tx.QueryRowContext(ctx, upsertCategorySQL,
			cat.Name, cat.Gender, nullDecimal(cat.WeightClassMin), nullDecimal(cat.WeightClassMax),
		).Scan(&id); err != nil {
			return fmt.Errorf("upserting category %q/%s: %w", cat.Name, cat.Gender, err)
		}
		w.categories[categoryKey(cat)] = id
	}
	return nil
}

const upsertParticipantSQL = `
INSERT INTO participants AS p (competition_id, category_id, athlete_id, bodyweight, is_disqualified, disqualified_reason)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (competition_id, category_id, athlete_id) DO UPDATE SET
	bodyweight = EXCLUDED.bodyweight,
	is_disqualified = EXCLUDED.is_disqualified,
	disqualified_reason = EXCLUDED.disqualified_reason
RETURNING participant_id`

const upsertLiftSQL = `
INSERT INTO lifts AS l (participant_id, movement_id, best_weight)
VALUES (?, ?, ?)
ON CONFLICT (participant_id, movement_id) DO UPDATE SET best_weight = EXCLUDED.best_weight
RETURNING lift_id`

const upsertAttemptSQL = `
INSERT INTO attempts AS at (lift_id, attempt_number, weight, is_successful, no_rep_reason)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (lift_id, attempt_number) DO UPDATE SET
	weight = EXCLUDED.weight,
	is_successful = EXCLUDED.is_successful,
	no_rep_reason = EXCLUDED.no_rep_reason`

// entries writes every athlete, participant, lift and attempt.
func (w *writer) entries(ctx context.Context) error {
	for ci, cat := range w.doc.Categories {
		categoryID := w.categories[categoryKey(cat)]
		for ai, a := range w.doc.Categories[ci].Athletes {
			athleteID, err := w.athlete(ctx, a, a.GenderIn(cat))
			if err != nil {
				return fmt.Errorf("categories[%d].athletes[%d]: %w", ci, ai, err)
			}

			var participantID uuid.UUID
			if err := w.tx.QueryRowContext(ctx, upsertParticipantSQL,
				w.competitionID, categoryID, athleteID,
				nullDecimal(a.Bodyweight), a.Disqualified(), a.DisqualifiedReason,
			).Scan(&participantID); err != nil {
				return fmt.Errorf("categories[%d].athletes[%d]: upserting participant: %w", ci, ai, err)
			}
			w.res.Participants++

			if err := w.lifts(ctx, participantID, a.Lifts); err != nil {
				return fmt.Errorf("categories[%d].athletes[%d]: %w", ci, ai, err)
			}
		}
	}
	return nil
}

// lifts replaces a participant's lifts and attempts with those of the
// document. Rows the document no longer mentions are deleted.
func (w *writer) lifts(ctx context.Context, participantID uuid.UUID, lifts []canonical.Lift) error {
	keep := make([]uuid.UUID, 0, len(lifts))
	for _, l := range lifts {
		var liftID uuid.UUID
		if err := w.tx.QueryRowContext(ctx, upsertLiftSQL,
			participantID, w.movements[l.Movement], l.BestWeight(),
		).Scan(&liftID); err != nil {
			return fmt.Errorf("upserting %s lift: %w", l.Movement, err)
		}
		keep = append(keep, liftID)
		w.res.Lifts++

		numbers := make([]int, 0, len(l.Attempts))
		for _, at := range l.Attempts {
			if _, err := w.tx.ExecContext(ctx, upsertAttemptSQL,
				liftID, at.AttemptNumber, at.Weight, at.Successful(), at.NoRepReason,
			); err != nil {
				return fmt.Errorf("upserting %s attempt %d: %w", l.Movement, at.AttemptNumber, err)
			}
			numbers = append(numbers, at.AttemptNumber)
			w.res.Attempts++
		}
		q, args := `DELETE FROM attempts WHERE lift_id = ?`, []any{liftID}
		if len(numbers) > 0 {
			q += ` AND attempt_number NOT IN (?)`
			args = append(args, bun.In(numbers))
		}
		if _, err := w.tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("pruning %s attempts: %w", l.Movement, err)
		}
	}

	q, args := `DELETE FROM lifts WHERE participant_id = ?`, []any{participantID}
	if len(keep) > 0 {
		q += ` AND lift_id NOT IN (?)`
		args = append(args, bun.In(keep))
	}
	if _, err := w.tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("pruning lifts: %w", err)
	}
	return nil
}

func categoryKey(c canonical.Category) string {
	return c.Name + "|" + c.Gender
}

// nullDecimal turns a missing value into SQL NULL.
func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return *d
}
