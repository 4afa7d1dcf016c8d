package legacydb

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
	"github.com/OpenStreetlifting/openstreetlifting-backend/sources"
)

var clock = func() time.Time { return time.Date(2025, time.April, 2, 9, 0, 0, 0, time.UTC) }

func convertFixture(t *testing.T) *canonical.Document {
	t.Helper()
	raw, err := os.ReadFile("testdata/meet_lb.json")
	require.NoError(t, err)
	doc, err := New(nil, WithClock(clock)).Convert(context.Background(), raw)
	require.NoError(t, err)
	return doc
}

func TestConvertPoundsMeet(t *testing.T) {
	doc := convertFixture(t)

	assert.Equal(t, "texas-street-classic-2019", doc.Competition.Slug)
	assert.Equal(t, "2019-08-10", doc.Competition.StartDate)
	assert.Equal(t, "2019-08-10", doc.Competition.EndDate)
	assert.Equal(t, canonical.SourceLegacyDB, doc.Source.Type)
	assert.Equal(t, clock(), doc.Source.ExtractedAt)

	require.Len(t, doc.Movements, 2)
	assert.Equal(t, canonical.Movement{Name: canonical.PullUp, Order: 1}, doc.Movements[0])
	assert.Equal(t, canonical.Movement{Name: canonical.Dips, Order: 2}, doc.Movements[1])

	require.Len(t, doc.Categories, 2)
	men := doc.Categories[0]
	assert.Equal(t, "M", men.Gender)
	assert.Equal(t, "-82.1kg", men.Name)
	require.NotNil(t, men.WeightClassMax)
	assert.Equal(t, "82.1", men.WeightClassMax.String())

	marcus := men.Athletes[0]
	assert.Equal(t, "Marcus", marcus.FirstName)
	assert.Equal(t, "Holt", marcus.LastName)
	assert.Equal(t, "US", marcus.Country)
	assert.Equal(t, "80.01", marcus.Bodyweight.String())

	pull := marcus.Lifts[0]
	assert.Equal(t, canonical.PullUp, pull.Movement)
	require.Len(t, pull.Attempts, 2)
	assert.Equal(t, "40.01", pull.Attempts[0].Weight.String())
	assert.True(t, pull.Attempts[0].Successful())
	assert.Equal(t, "45", pull.Attempts[1].Weight.String())
	assert.False(t, pull.Attempts[1].Successful())

	women := doc.Categories[1]
	assert.Equal(t, "F", women.Gender)
	assert.Equal(t, "+67.13kg", women.Name)
	assert.Nil(t, women.WeightClassMax)
	require.Len(t, women.Athletes, 2)

	dana := women.Athletes[0]
	assert.Equal(t, "Dana", dana.FirstName)
	assert.Equal(t, "Price", dana.LastName)
	assert.Equal(t, "US", dana.Country, "falls back to the meet country")
	assert.Nil(t, dana.Bodyweight)
	assert.True(t, dana.Disqualified())
	assert.Equal(t, 2, dana.Lifts[0].Attempts[1].AttemptNumber)

	assert.Empty(t, women.Athletes[1].Lifts)
}

func TestConvertedDocumentValidates(t *testing.T) {
	r := canonical.Validate(convertFixture(t))
	assert.True(t, r.Valid(), "errors: %v", r.Errors)
}

func TestConvertFailures(t *testing.T) {
	tests := map[string]string{
		"malformed":    `{`,
		"units":        `{"meet": {"units": "stone"}, "entries": []}`,
		"sex":          `{"meet": {"units": "kg"}, "entries": [{"id": 1, "name": "A B", "sex": "X", "weight_class": "80"}]}`,
		"weight class": `{"meet": {"units": "kg"}, "entries": [{"id": 1, "name": "A B", "sex": "M", "weight_class": "heavy"}]}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			doc, err := New(nil).Convert(context.Background(), []byte(raw))
			assert.Nil(t, doc)
			var te *sources.TransformationError
			assert.True(t, errors.As(err, &te), "got %v", err)
		})
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct{ in, first, last string }{
		{"DUPONT, Jean", "Jean", "Dupont"},
		{"  van der Berg,  Anna ", "Anna", "van der Berg"},
		{"Jean  Dupont", "Jean", "Dupont"},
		{"Madonna", "", "Madonna"},
	}
	for _, tt := range tests {
		first, last := SplitName(tt.in)
		assert.Equal(t, tt.first, first, tt.in)
		assert.Equal(t, tt.last, last, tt.in)
	}
}

func TestWeightClass(t *testing.T) {
	one := decimal.NewFromInt(1)
	name, lo, hi, err := weightClass("80kg", one)
	require.NoError(t, err)
	assert.Equal(t, "-80kg", name)
	assert.Nil(t, lo)
	assert.Equal(t, "80", hi.String())

	name, lo, hi, err = weightClass("100+", one)
	require.NoError(t, err)
	assert.Equal(t, "+100kg", name)
	assert.Equal(t, "100", lo.String())
	assert.Nil(t, hi)

	name, _, _, err = weightClass("", one)
	require.NoError(t, err)
	assert.Equal(t, "Open", name)
}

func TestFetchWithoutDatabase(t *testing.T) {
	_, err := New(nil).Fetch(context.Background(), "1")
	assert.Error(t, err)
}

func TestFetchFromMySQL(t *testing.T) {
	dsn := os.Getenv("OSL_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("OSL_TEST_MYSQL_DSN not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meets (id INT PRIMARY KEY, name VARCHAR(200) NOT NULL,
			federation VARCHAR(200) NOT NULL, federation_abbr VARCHAR(20), date DATE NOT NULL, end_date DATE,
			town VARCHAR(100), country VARCHAR(3), units VARCHAR(3) NOT NULL DEFAULT 'kg', judges INT)`,
		`CREATE TABLE IF NOT EXISTS entries (id INT PRIMARY KEY, meet_id INT NOT NULL, name VARCHAR(200) NOT NULL,
			sex CHAR(1) NOT NULL, country VARCHAR(3), bodyweight DECIMAL(6,2), weight_class VARCHAR(10) NOT NULL,
			dq TINYINT(1) NOT NULL DEFAULT 0, dq_reason VARCHAR(200),
			muscleup1 DECIMAL(6,2), muscleup2 DECIMAL(6,2), muscleup3 DECIMAL(6,2),
			pullup1 DECIMAL(6,2), pullup2 DECIMAL(6,2), pullup3 DECIMAL(6,2),
			dips1 DECIMAL(6,2), dips2 DECIMAL(6,2), dips3 DECIMAL(6,2),
			squat1 DECIMAL(6,2), squat2 DECIMAL(6,2), squat3 DECIMAL(6,2))`,
		`DELETE FROM entries WHERE meet_id = 990001`,
		`DELETE FROM meets WHERE id = 990001`,
		`INSERT INTO meets (id, name, federation, date, country, units, judges)
			VALUES (990001, 'Legacy Test Meet 2018', 'Test Federation', '2018-05-05', 'FR', 'kg', 1)`,
		`INSERT INTO entries (id, meet_id, name, sex, country, bodyweight, weight_class, pullup1, pullup2, pullup3)
			VALUES (990001, 990001, 'MARTIN, Paul', 'M', 'FR', 74.5, '75', 40, -45, 0)`,
	}
	for _, q := range stmts {
		_, err := db.ExecContext(ctx, q)
		require.NoError(t, err, q)
	}

	s := New(db, WithClock(clock))
	doc, err := sources.Pull(ctx, s, "990001")
	require.NoError(t, err)
	require.Len(t, doc.Categories, 1)
	paul := doc.Categories[0].Athletes[0]
	assert.Equal(t, "Paul", paul.FirstName)
	require.Len(t, paul.Lifts, 1)
	assert.Len(t, paul.Lifts[0].Attempts, 2)

	_, err = sources.Pull(ctx, s, "990002")
	assert.Error(t, err)
}
