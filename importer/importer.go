// Package importer writes canonical documents into the store.
//
// An ingest runs on a single transaction: reference rows, the competition,
// athletes, participants, lifts and attempts are upserted on their natural
// keys, then totals, ranks and scores are derived from what was written.
// Either all of it commits or nothing does.
package importer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
	"github.com/OpenStreetlifting/openstreetlifting-backend/metrics"
)

// Importer ingests documents into a Postgres store.
type Importer struct {
	db        *bun.DB
	log       *zap.Logger
	metrics   *metrics.Metrics
	validator *canonical.Validator
	strict    bool
	retries   int
	workers   int
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(im *Importer) { im.log = l }
}

// WithMetrics records ingest outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(im *Importer) { im.metrics = m }
}

// WithValidator replaces the default validator.
func WithValidator(v *canonical.Validator) Option {
	return func(im *Importer) { im.validator = v }
}

// WithStrictFormula makes a competition date without a formula version a
// fatal error instead of a warning.
func WithStrictFormula(strict bool) Option {
	return func(im *Importer) { im.strict = strict }
}

// WithRetries sets how many times IngestWithRetry retries a conflict.
func WithRetries(n int) Option {
	return func(im *Importer) { im.retries = n }
}

// WithWorkers bounds the goroutines used by Recompute.
func WithWorkers(n int) Option {
	return func(im *Importer) { im.workers = n }
}

// New returns an Importer writing to db.
func New(db *bun.DB, opts ...Option) *Importer {
	im := &Importer{
		db:        db,
		log:       zap.NewNop(),
		validator: canonical.NewValidator(),
		retries:   3,
		workers:   8,
	}
	for _, o := range opts {
		o(im)
	}
	if im.workers < 1 {
		im.workers = 1
	}
	return im
}

// ImportResult summarises a committed ingest.
type ImportResult struct {
	ImportID        uuid.UUID         `json:"import_id"`
	CompetitionID   uuid.UUID         `json:"competition_id"`
	CompetitionSlug string            `json:"competition_slug"`
	FormulaYear     *int              `json:"formula_year,omitempty"`
	Participants    int               `json:"participants"`
	AthletesCreated int               `json:"athletes_created"`
	Lifts           int               `json:"lifts"`
	Attempts        int               `json:"attempts"`
	Scored          int               `json:"scored"`
	ScoreSkipped    int               `json:"score_skipped"`
	Warnings        []canonical.Issue `json:"warnings"`
	Duration        time.Duration     `json:"duration"`
}

// Ingest validates doc and writes it in one transaction. A document with
// validation errors returns a *canonical.ValidationError before anything is
// written.
func (im *Importer) Ingest(ctx context.Context, doc *canonical.Document) (*ImportResult, error) {
	started := time.Now()
	res := &ImportResult{
		ImportID:        uuid.New(),
		CompetitionSlug: doc.Competition.Slug,
	}
	log := im.log.With(
		zap.String("import_id", res.ImportID.String()),
		zap.String("competition", doc.Competition.Slug),
	)

	report := im.validator.Validate(doc)
	im.metrics.Validation(report)
	if err := report.Err(); err != nil {
		for _, is := range report.Errors {
			log.Debug("validation error", zap.String("path", is.Path), zap.String("message", is.Message))
		}
		im.metrics.ImportFinished(metrics.OutcomeInvalid, time.Since(started))
		return nil, err
	}
	for _, is := range report.Warnings {
		log.Warn("validation warning", zap.String("path", is.Path), zap.String("message", is.Message))
	}
	res.Warnings = append(res.Warnings, report.Warnings...)

	err := im.ingest(ctx, doc, res, log)
	res.Duration = time.Since(started)
	im.metrics.ImportFinished(outcome(err), res.Duration)
	if err != nil {
		log.Error("import failed", zap.Error(err), zap.Duration("took", res.Duration))
		return nil, err
	}
	im.metrics.ScoresComputed("import", res.Scored)
	im.metrics.ScoresSkipped(res.ScoreSkipped)

	log.Info("import committed",
		zap.String("competition_id", res.CompetitionID.String()),
		zap.Int("participants", res.Participants),
		zap.Int("athletes_created", res.AthletesCreated),
		zap.Int("lifts", res.Lifts),
		zap.Int("attempts", res.Attempts),
		zap.Int("scored", res.Scored),
		zap.Int("score_skipped", res.ScoreSkipped),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("took", res.Duration),
	)
	return res, nil
}

// IngestWithRetry calls Ingest again when it fails with a persistence
// conflict, up to the configured number of retries.
func (im *Importer) IngestWithRetry(ctx context.Context, doc *canonical.Document) (*ImportResult, error) {
	var err error
	for attempt := 0; attempt <= im.retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * 100 * time.Millisecond
			im.log.Warn("retrying import after conflict",
				zap.String("competition", doc.Competition.Slug),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		var res *ImportResult
		res, err = im.Ingest(ctx, doc)
		if err == nil || !IsRetryable(err) {
			return res, err
		}
	}
	return nil, err
}

// ingest runs the write phase. It assumes doc already passed validation.
func (im *Importer) ingest(ctx context.Context, doc *canonical.Document, res *ImportResult, log *zap.Logger) error {
	return inTx(ctx, im.db, func(tx bun.Tx) error {
		w := &writer{tx: tx, doc: doc, res: res, log: log}
		if err := w.lock(ctx); err != nil {
			return err
		}
		if err := w.references(ctx); err != nil {
			return err
		}
		if err := w.entries(ctx); err != nil {
			return err
		}
		return w.derive(ctx, im.strict)
	})
}

func outcome(err error) string {
	var resErr *ResolutionError
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case IsRetryable(err):
		return metrics.OutcomeConflict
	case errors.As(err, &resErr):
		return metrics.OutcomeResolution
	default:
		return metrics.OutcomeError
	}
}
