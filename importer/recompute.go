package importer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/OpenStreetlifting/openstreetlifting-backend/formula"
	"github.com/OpenStreetlifting/openstreetlifting-backend/models"
	"github.com/OpenStreetlifting/openstreetlifting-backend/ris"
)

// RecomputeResult summarises a batch recomputation.
type RecomputeResult struct {
	FormulaYear  int           `json:"formula_year"`
	Participants int           `json:"participants"`
	Written      int           `json:"written"`
	Unchanged    int           `json:"unchanged"`
	Refreshed    int           `json:"refreshed"`
	Duration     time.Duration `json:"duration"`
}

type scorable struct {
	ParticipantID uuid.UUID       `bun:"participant_id"`
	Gender        string          `bun:"gender"`
	Bodyweight    decimal.Decimal `bun:"bodyweight"`
	Total         decimal.Decimal `bun:"total"`
	StartDate     time.Time       `bun:"start_date"`
}

const scorableSQL = `
SELECT p.participant_id, a.gender, p.bodyweight, p.total, c.start_date
FROM participants p
INNER JOIN athletes a ON a.athlete_id = p.athlete_id
INNER JOIN competitions c ON c.competition_id = p.competition_id
WHERE p.bodyweight > 0 AND p.total > 0
ORDER BY p.participant_id`

// Recompute scores every scorable participant under the formula version of
// the given year, or the current version when year is 0. Each participant
// is written on its own transaction, so the batch can run in any order and
// be re-run safely. The cached score on a participant is only refreshed
// when the ledger resolves its competition date to this version.
func (im *Importer) Recompute(ctx context.Context, year int) (*RecomputeResult, error) {
	started := time.Now()
	ledger, err := formula.Load(ctx, im.db)
	if err != nil {
		return nil, err
	}
	var fv models.FormulaVersion
	if year == 0 {
		fv, err = ledger.Current()
	} else {
		fv, err = ledger.ByYear(year)
	}
	if err != nil {
		return nil, fmt.Errorf("selecting formula version: %w", err)
	}

	var rows []scorable
	if err := im.db.NewRaw(scorableSQL).Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("reading scorable participants: %w", err)
	}

	log := im.log.With(zap.Int("formula_year", fv.Year))
	log.Info("recompute started", zap.Int("participants", len(rows)), zap.Int("workers", im.workers))

	f := fv.Formula()
	var written, unchanged, refreshed atomic.Int64
	p := pool.New().WithMaxGoroutines(im.workers).WithContext(ctx).WithCancelOnError()
	for _, row := range rows {
		p.Go(func(ctx context.Context) error {
			owner, err := ledger.ForDate(row.StartDate)
			refresh := err == nil && owner.ID == fv.ID
			changed, cached, err := im.rescore(ctx, row, fv, f, refresh)
			if err != nil {
				return fmt.Errorf("participant %s: %w", row.ParticipantID, err)
			}
			if changed {
				written.Add(1)
			} else {
				unchanged.Add(1)
			}
			if cached {
				refreshed.Add(1)
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		log.Error("recompute failed", zap.Error(err))
		return nil, err
	}

	res := &RecomputeResult{
		FormulaYear:  fv.Year,
		Participants: len(rows),
		Written:      int(written.Load()),
		Unchanged:    int(unchanged.Load()),
		Refreshed:    int(refreshed.Load()),
		Duration:     time.Since(started),
	}
	im.metrics.ScoresComputed("recompute", res.Written)
	log.Info("recompute finished",
		zap.Int("written", res.Written),
		zap.Int("unchanged", res.Unchanged),
		zap.Int("refreshed", res.Refreshed),
		zap.Duration("took", res.Duration),
	)
	return res, nil
}

// rescore upserts one history row. changed is false when the stored row
// already held the same values and was left untouched.
func (im *Importer) rescore(ctx context.Context, row scorable, fv models.FormulaVersion, f ris.Formula, refresh bool) (changed, cached bool, err error) {
	score, err := ris.ComputeFor(row.Total, row.Bodyweight, row.Gender, f)
	if err != nil {
		return false, false, err
	}
	err = inTx(ctx, im.db, func(tx bun.Tx) error {
		res, err := tx.ExecContext(ctx, upsertScoreSQL,
			row.ParticipantID, fv.ID, score, row.Bodyweight, row.Total,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		changed = n > 0

		if !refresh {
			return nil
		}
		res, err = tx.ExecContext(ctx,
			`UPDATE participants SET ris_score = ? WHERE participant_id = ? AND ris_score IS DISTINCT FROM ?`,
			score, row.ParticipantID, score,
		)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		if err != nil {
			return err
		}
		cached = n > 0
		return nil
	})
	return changed, cached, err
}
