package importer

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
	"github.com/OpenStreetlifting/openstreetlifting-backend/db"
	"github.com/OpenStreetlifting/openstreetlifting-backend/models"
)

// These tests need a disposable Postgres database: its public schema is
// dropped and recreated for every test.
func openTestDB(t *testing.T) *bun.DB {
	t.Helper()
	dsn := os.Getenv("OSL_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("OSL_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	bdb, err := db.Open(ctx, dsn, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bdb.Close() })

	_, err = bdb.ExecContext(ctx, `DROP SCHEMA public CASCADE; CREATE SCHEMA public`)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, bdb))
	return bdb
}

func loadDoc(t *testing.T) *canonical.Document {
	t.Helper()
	doc, err := canonical.LoadFile("../canonical/testdata/valid.json")
	require.NoError(t, err)
	return doc
}

func athleteDoc(first, last string, bw string, pullUps ...string) canonical.Athlete {
	b := decimal.RequireFromString(bw)
	a := canonical.Athlete{FirstName: first, LastName: last, Country: "FR", Bodyweight: &b}
	var attempts []canonical.Attempt
	ok := true
	for i, w := range pullUps {
		attempts = append(attempts, canonical.Attempt{
			AttemptNumber: i + 1,
			Weight:        decimal.RequireFromString(w),
			IsSuccessful:  &ok,
		})
	}
	a.Lifts = []canonical.Lift{{Movement: canonical.PullUp, Attempts: attempts}}
	return a
}

func count(t *testing.T, bdb *bun.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, bdb.QueryRowContext(context.Background(), "SELECT count(*) FROM "+table).Scan(&n))
	return n
}

var allTables = []string{
	"federations", "movements", "competitions", "competition_movements", "categories",
	"athletes", "participants", "lifts", "attempts", "ris_scores_history",
}

func counts(t *testing.T, bdb *bun.DB) map[string]int {
	t.Helper()
	out := make(map[string]int, len(allTables))
	for _, tbl := range allTables {
		out[tbl] = count(t, bdb, tbl)
	}
	return out
}

func newTestImporter(bdb *bun.DB, opts ...Option) *Importer {
	return New(bdb, append([]Option{WithLogger(zap.NewNop())}, opts...)...)
}

func TestIngestWritesAndDerives(t *testing.T) {
	bdb := openTestDB(t)
	ctx := context.Background()

	res, err := newTestImporter(bdb).Ingest(ctx, loadDoc(t))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Participants)
	assert.Equal(t, 1, res.AthletesCreated)
	assert.Equal(t, 2, res.Lifts)
	assert.Equal(t, 5, res.Attempts)
	assert.Equal(t, 1, res.Scored)
	require.NotNil(t, res.FormulaYear)
	assert.Equal(t, 2025, *res.FormulaYear)

	var p models.Participant
	require.NoError(t, bdb.NewSelect().Model(&p).Scan(ctx))
	assert.Equal(t, "165.00", p.Total.StringFixed(2))
	require.NotNil(t, p.Rank)
	assert.Equal(t, 1, *p.Rank)
	require.NotNil(t, p.RISScore)

	var sh models.ScoreHistory
	require.NoError(t, bdb.NewSelect().Model(&sh).Scan(ctx))
	assert.True(t, sh.Score.Equal(*p.RISScore))
	assert.Equal(t, "165.00", sh.TotalWeight.StringFixed(2))

	var a models.Athlete
	require.NoError(t, bdb.NewSelect().Model(&a).Scan(ctx))
	assert.Equal(t, "jean-dupont", a.Slug)
}

func TestIngestIsIdempotent(t *testing.T) {
	bdb := openTestDB(t)
	ctx := context.Background()
	im := newTestImporter(bdb)

	_, err := im.Ingest(ctx, loadDoc(t))
	require.NoError(t, err)
	first := counts(t, bdb)
	var before models.ScoreHistory
	require.NoError(t, bdb.NewSelect().Model(&before).Scan(ctx))

	res, err := im.Ingest(ctx, loadDoc(t))
	require.NoError(t, err)
	assert.Equal(t, 0, res.AthletesCreated)
	assert.Equal(t, first, counts(t, bdb))

	var after models.ScoreHistory
	require.NoError(t, bdb.NewSelect().Model(&after).Scan(ctx))
	assert.Equal(t, before, after)
}

func TestIngestDedupsPermutedNames(t *testing.T) {
	bdb := openTestDB(t)
	ctx := context.Background()
	im := newTestImporter(bdb)

	_, err := im.Ingest(ctx, loadDoc(t))
	require.NoError(t, err)

	doc := loadDoc(t)
	doc.Competition.Slug = "street-open-2025-b"
	doc.Categories[0].Athletes[0].FirstName = "DUPONT"
	doc.Categories[0].Athletes[0].LastName = "jean"
	res, err := im.Ingest(ctx, doc)
	require.NoError(t, err)

	assert.Equal(t, 0, res.AthletesCreated)
	assert.Equal(t, 1, count(t, bdb, "athletes"))
	assert.Equal(t, 2, count(t, bdb, "participants"))

	var a models.Athlete
	require.NoError(t, bdb.NewSelect().Model(&a).Scan(ctx))
	assert.Equal(t, "dupont-jean", a.Slug)
	assert.Equal(t, []string{"jean-dupont"}, a.SlugHistory)
}

func TestIngestSlugCollision(t *testing.T) {
	bdb := openTestDB(t)
	ctx := context.Background()

	doc := loadDoc(t)
	twin := doc.Categories[0].Athletes[0]
	twin.Country = "BE"
	doc.Categories[0].Athletes = append(doc.Categories[0].Athletes, twin)

	_, err := newTestImporter(bdb).Ingest(ctx, doc)
	require.NoError(t, err)

	var slugs []string
	require.NoError(t, bdb.NewSelect().Model((*models.Athlete)(nil)).Column("slug").Order("slug").Scan(ctx, &slugs))
	assert.Equal(t, []string{"jean-dupont", "jean-dupont-2"}, slugs)
}

func TestIngestRejectsInvalidWithoutWriting(t *testing.T) {
	bdb := openTestDB(t)
	ctx := context.Background()

	doc := loadDoc(t)
	doc.Categories[0].Athletes[0].Lifts[0].Attempts[1].Weight = decimal.Zero

	_, err := newTestImporter(bdb).Ingest(ctx, doc)
	var verr *canonical.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, count(t, bdb, "competitions"))
	assert.Equal(t, 0, count(t, bdb, "athletes"))
}

func TestIngestRollsBackOnWriteFailure(t *testing.T) {
	bdb := openTestDB(t)
	ctx := context.Background()
	before := counts(t, bdb)

	doc := loadDoc(t)
	doc.Categories[0].Athletes = append(doc.Categories[0].Athletes,
		athleteDoc("Paul", "Martin", "79", "60", "0"))

	// Skip validation so the bad weight reaches the store.
	err := newTestImporter(bdb).ingest(ctx, doc, &ImportResult{}, zap.NewNop())
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, before, counts(t, bdb))
}

func TestIngestReplacesLiftsAndAttempts(t *testing.T) {
	bdb := openTestDB(t)
	ctx := context.Background()
	im := newTestImporter(bdb)

	_, err := im.Ingest(ctx, loadDoc(t))
	require.NoError(t, err)

	doc := loadDoc(t)
	a := &doc.Categories[0].Athletes[0]
	a.Lifts = a.Lifts[:1]
	a.Lifts[0].Attempts = a.Lifts[0].Attempts[:2]
	_, err = im.Ingest(ctx, doc)
	require.NoError(t, err)

	assert.Equal(t, 1, count(t, bdb, "lifts"))
	assert.Equal(t, 2, count(t, bdb, "attempts"))

	var p models.Participant
	require.NoError(t, bdb.NewSelect().Model(&p).Scan(ctx))
	assert.Equal(t, "75.00", p.Total.StringFixed(2))
}

func TestIngestRanksCompetition(t *testing.T) {
	bdb := openTestDB(t)
	ctx := context.Background()

	doc := loadDoc(t)
	cat := &doc.Categories[0]
	cat.Athletes = append(cat.Athletes,
		athleteDoc("Paul", "Martin", "79", "100", "110"),
		athleteDoc("Luc", "Bernard", "76", "100", "110"),
	)
	dq := athleteDoc("Marc", "Petit", "77", "200")
	yes := true
	dq.IsDisqualified = &yes
	cat.Athletes = append(cat.Athletes, dq)

	_, err := newTestImporter(bdb).Ingest(ctx, doc)
	require.NoError(t, err)

	type row struct {
		LastName string `bun:"last_name"`
		Rank     *int   `bun:"rank"`
	}
	var rows []row
	require.NoError(t, bdb.NewRaw(`
SELECT a.last_name, p.rank FROM participants p
JOIN athletes a ON a.athlete_id = p.athlete_id
ORDER BY a.last_name`).Scan(ctx, &rows))

	ranks := map[string]*int{}
	for _, r := range rows {
		ranks[r.LastName] = r.Rank
	}
	require.NotNil(t, ranks["Dupont"])
	assert.Equal(t, 1, *ranks["Dupont"])
	assert.Equal(t, 2, *ranks["Bernard"])
	assert.Equal(t, 3, *ranks["Martin"])
	assert.Nil(t, ranks["Petit"])
}

func TestIngestWithoutFormulaForDate(t *testing.T) {
	bdb := openTestDB(t)
	ctx := context.Background()

	doc := loadDoc(t)
	doc.Competition.StartDate = "2019-06-01"
	doc.Competition.EndDate = "2019-06-01"

	_, err := newTestImporter(bdb, WithStrictFormula(true)).Ingest(ctx, doc)
	var rerr *ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 0, count(t, bdb, "competitions"))

	res, err := newTestImporter(bdb).Ingest(ctx, doc)
	require.NoError(t, err)
	assert.Nil(t, res.FormulaYear)
	assert.Equal(t, 0, res.Scored)
	assert.Equal(t, 0, count(t, bdb, "ris_scores_history"))

	var found bool
	for _, w := range res.Warnings {
		if w.Path == "competition.start_date" {
			found = true
		}
	}
	assert.True(t, found, "resolution warning expected")

	var p models.Participant
	require.NoError(t, bdb.NewSelect().Model(&p).Scan(ctx))
	assert.Nil(t, p.RISScore)
	assert.Equal(t, "165.00", p.Total.StringFixed(2))
}

func TestIngestResolvesFormulaByDate(t *testing.T) {
	bdb := openTestDB(t)
	ctx := context.Background()

	v2024 := models.FormulaVersion{
		Year:           2024,
		EffectiveFrom:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EffectiveUntil: func() *time.Time { d := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC); return &d }(),
		MenA:           decimal.RequireFromString("330"),
		MenK:           decimal.RequireFromString("540"),
		MenB:           decimal.RequireFromString("0.11"),
		MenV:           decimal.RequireFromString("74"),
		MenQ:           decimal.RequireFromString("0.5"),
		WomenA:         decimal.RequireFromString("160"),
		WomenK:         decimal.RequireFromString("290"),
		WomenB:         decimal.RequireFromString("0.13"),
		WomenV:         decimal.RequireFromString("57"),
		WomenQ:         decimal.RequireFromString("0.37"),
	}
	_, err := bdb.NewInsert().Model(&v2024).Exec(ctx)
	require.NoError(t, err)

	doc := loadDoc(t)
	doc.Competition.StartDate = "2024-12-31"
	doc.Competition.EndDate = "2025-01-01"
	res, err := newTestImporter(bdb).Ingest(ctx, doc)
	require.NoError(t, err)
	require.NotNil(t, res.FormulaYear)
	assert.Equal(t, 2024, *res.FormulaYear)

	doc = loadDoc(t)
	doc.Competition.Slug = "street-open-2025-b"
	res, err = newTestImporter(bdb).Ingest(ctx, doc)
	require.NoError(t, err)
	require.NotNil(t, res.FormulaYear)
	assert.Equal(t, 2025, *res.FormulaYear)
}

func TestDeletingCompetitionCascades(t *testing.T) {
	bdb := openTestDB(t)
	ctx := context.Background()

	_, err := newTestImporter(bdb).Ingest(ctx, loadDoc(t))
	require.NoError(t, err)

	_, err = bdb.NewDelete().Model((*models.Competition)(nil)).Where("slug = ?", "street-open-2025").Exec(ctx)
	require.NoError(t, err)

	for _, tbl := range []string{"participants", "lifts", "attempts", "ris_scores_history", "competition_movements"} {
		assert.Zero(t, count(t, bdb, tbl), tbl)
	}
	assert.Equal(t, 1, count(t, bdb, "athletes"))
	assert.Equal(t, 4, count(t, bdb, "movements"))
}

func TestRecomputeIsStable(t *testing.T) {
	bdb := openTestDB(t)
	ctx := context.Background()
	im := newTestImporter(bdb, WithWorkers(4))

	doc := loadDoc(t)
	doc.Categories[0].Athletes = append(doc.Categories[0].Athletes,
		athleteDoc("Paul", "Martin", "79", "100", "110"),
		athleteDoc("Luc", "Bernard", "76", "90"),
	)
	_, err := im.Ingest(ctx, doc)
	require.NoError(t, err)

	var before []models.ScoreHistory
	require.NoError(t, bdb.NewSelect().Model(&before).Order("participant_id").Scan(ctx))

	res, err := im.Recompute(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2025, res.FormulaYear)
	assert.Equal(t, 3, res.Participants)
	assert.Equal(t, 0, res.Written)
	assert.Equal(t, 3, res.Unchanged)
	assert.Equal(t, 0, res.Refreshed)

	var after []models.ScoreHistory
	require.NoError(t, bdb.NewSelect().Model(&after).Order("participant_id").Scan(ctx))
	assert.Equal(t, before, after)

	_, err = bdb.ExecContext(ctx, `DELETE FROM ris_scores_history`)
	require.NoError(t, err)
	res, err = im.Recompute(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Written)
	assert.Equal(t, 3, count(t, bdb, "ris_scores_history"))

	_, err = im.Recompute(ctx, 1999)
	assert.Error(t, err)
}
