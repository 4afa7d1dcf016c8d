package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/OpenStreetlifting/openstreetlifting-backend/config"
	"github.com/OpenStreetlifting/openstreetlifting-backend/formula"
	"github.com/OpenStreetlifting/openstreetlifting-backend/models"
)

// Setup opens a PostgreSQL connection using the provided config.
func Setup(ctx context.Context, cfg *config.Config) (*bun.DB, error) {
	return Open(ctx, cfg.PostgresDSN(), cfg.Debug)
}

// Open connects to dsn and pings it. Debug logs every query.
func Open(ctx context.Context, dsn string, debug bool) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

type table struct {
	model       any
	foreignKeys []string
}

// tables are listed in dependency order.
var tables = []table{
	{model: (*models.Operator)(nil)},
	{model: (*models.Federation)(nil)},
	{model: (*models.Movement)(nil)},
	{model: (*models.FormulaVersion)(nil)},
	{model: (*models.Athlete)(nil)},
	{model: (*models.Category)(nil)},
	{model: (*models.Competition)(nil), foreignKeys: []string{
		`("federation_id") REFERENCES "federations" ("federation_id") ON DELETE RESTRICT`,
	}},
	{model: (*models.CompetitionMovement)(nil), foreignKeys: []string{
		`("competition_id") REFERENCES "competitions" ("competition_id") ON DELETE CASCADE`,
		`("movement_id") REFERENCES "movements" ("movement_id") ON DELETE RESTRICT`,
	}},
	{model: (*models.Participant)(nil), foreignKeys: []string{
		`("competition_id") REFERENCES "competitions" ("competition_id") ON DELETE CASCADE`,
		`("category_id") REFERENCES "categories" ("category_id") ON DELETE RESTRICT`,
		`("athlete_id") REFERENCES "athletes" ("athlete_id") ON DELETE RESTRICT`,
	}},
	{model: (*models.Lift)(nil), foreignKeys: []string{
		`("participant_id") REFERENCES "participants" ("participant_id") ON DELETE CASCADE`,
		`("movement_id") REFERENCES "movements" ("movement_id") ON DELETE RESTRICT`,
	}},
	{model: (*models.Attempt)(nil), foreignKeys: []string{
		`("lift_id") REFERENCES "lifts" ("lift_id") ON DELETE CASCADE`,
	}},
	{model: (*models.ScoreHistory)(nil), foreignKeys: []string{
		`("participant_id") REFERENCES "participants" ("participant_id") ON DELETE CASCADE`,
		`("formula_id") REFERENCES "ris_formula_versions" ("formula_id") ON DELETE RESTRICT`,
	}},
}

// checks maps constraint name to table and expression.
var checks = []struct{ name, table, expr string }{
	{"athletes_gender", "athletes", `gender IN ('M', 'F')`},
	{"categories_gender", "categories", `gender IN ('M', 'F')`},
	{"categories_bounds", "categories", `weight_class_min IS NULL OR weight_class_max IS NULL OR weight_class_max > weight_class_min`},
	{"competitions_status", "competitions", `status IN ('draft', 'upcoming', 'live', 'completed', 'cancelled')`},
	{"competitions_dates", "competitions", `end_date >= start_date`},
	{"competitions_judges", "competitions", `number_of_judges IS NULL OR number_of_judges IN (1, 3)`},
	{"competition_movements_order", "competition_movements", `display_order >= 1`},
	{"participants_bodyweight", "participants", `bodyweight IS NULL OR bodyweight > 0`},
	{"participants_total", "participants", `total >= 0`},
	{"lifts_best_weight", "lifts", `best_weight >= 0`},
	{"attempts_number", "attempts", `attempt_number BETWEEN 1 AND 3`},
	{"attempts_weight", "attempts", `weight > 0`},
	{"ris_formula_versions_window", "ris_formula_versions", `effective_until IS NULL OR effective_until > effective_from`},
}

var indexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ris_formula_versions_one_current ON ris_formula_versions (is_current) WHERE is_current`,
	`CREATE INDEX IF NOT EXISTS participants_competition ON participants (competition_id)`,
	`CREATE INDEX IF NOT EXISTS participants_athlete ON participants (athlete_id)`,
	`CREATE INDEX IF NOT EXISTS athletes_slug_history ON athletes USING GIN (slug_history)`,
}

// CreateTables creates all tables in dependency order, then the check
// constraints and indexes. It is safe to run against an existing schema.
func CreateTables(ctx context.Context, db *bun.DB) error {
	for _, t := range tables {
		q := db.NewCreateTable().Model(t.model).IfNotExists()
		for _, fk := range t.foreignKeys {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", t.model, err)
		}
	}

	for _, c := range checks {
		stmt := fmt.Sprintf(
			`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s); END IF; END $$`,
			c.name, c.table, c.name, c.expr,
		)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("constraint %s: %w", c.name, err)
		}
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("index: %w", err)
		}
	}
	return nil
}

// SeedFormulaVersions installs the built-in formula versions. Existing
// years are left as they are.
func SeedFormulaVersions(ctx context.Context, db bun.IDB) error {
	seeds := formula.Seeds()
	if _, err := db.NewInsert().Model(&seeds).On("CONFLICT (year) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("seeding formula versions: %w", err)
	}
	return nil
}

// Migrate creates the schema and seeds reference data.
func Migrate(ctx context.Context, db *bun.DB) error {
	if err := CreateTables(ctx, db); err != nil {
		return err
	}
	return SeedFormulaVersions(ctx, db)
}
