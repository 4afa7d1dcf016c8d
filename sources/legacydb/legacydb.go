// Package legacydb imports meets from the legacy MySQL results database.
//
// The legacy schema stores one row per entry with wide attempt columns
// (squat1..squat3 and so on). A negative weight records a missed attempt,
// zero or NULL an attempt that was not taken. Weights are in the meet's
// units, kilograms or pounds.
package legacydb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
	"github.com/OpenStreetlifting/openstreetlifting-backend/sources"
)

// Name is the source name of legacy documents.
const Name = canonical.SourceLegacyDB

const extractor = "legacydb-mysql-v1"

var poundsToKilograms = decimal.RequireFromString("0.45359237")

// liftColumns maps column prefixes to vocabulary movements, in display order.
var liftColumns = []struct {
	prefix   string
	movement string
}{
	{"muscleup", canonical.MuscleUp},
	{"pullup", canonical.PullUp},
	{"dips", canonical.Dips},
	{"squat", canonical.Squat},
}

// Export is the raw payload of one meet as read from MySQL.
type Export struct {
	Meet    Meet    `json:"meet"`
	Entries []Entry `json:"entries"`
}

// Meet is one row of the meets table.
type Meet struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	Federation     string  `json:"federation"`
	FederationAbbr *string `json:"federation_abbr,omitempty"`
	Date           string  `json:"date"`
	EndDate        *string `json:"end_date,omitempty"`
	Town           *string `json:"town,omitempty"`
	Country        *string `json:"country,omitempty"`
	Units          string  `json:"units"`
	Judges         *int    `json:"judges,omitempty"`
}

// Entry is one lifter's row in a meet, with attempts as wide columns.
type Entry struct {
	ID          int                            `json:"id"`
	Name        string                         `json:"name"`
	Sex         string                         `json:"sex"`
	Country     *string                        `json:"country,omitempty"`
	Bodyweight  *decimal.Decimal               `json:"bodyweight,omitempty"`
	WeightClass string                         `json:"weight_class"`
	Attempts    map[string][3]*decimal.Decimal `json:"attempts"`
	DQ          bool                           `json:"dq"`
	DQReason    *string                        `json:"dq_reason,omitempty"`
}

// Querier is the subset of *sql.DB the fetcher needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects to the legacy database. parseTime is forced on so DATE
// columns scan into time.Time.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing MYSQL_DSN: %w", err)
	}
	cfg.ParseTime = true
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(4)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

// Source reads and converts legacy meets.
type Source struct {
	db  Querier
	now func() time.Time
	log *zap.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithClock overrides the extraction timestamp source.
func WithClock(now func() time.Time) Option { return func(s *Source) { s.now = now } }

// WithLogger sets the logger for fetch summaries.
func WithLogger(l *zap.Logger) Option { return func(s *Source) { s.log = l } }

// New returns a Source. db may be nil when only Convert is used.
func New(db Querier, opts ...Option) *Source {
	s := &Source{db: db, now: time.Now, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Name returns the source name used in canonical documents.
func (s *Source) Name() string { return Name }

// Fetch reads meet ref (its numeric id) and all its entries as JSON.
func (s *Source) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if s.db == nil {
		return nil, fmt.Errorf("no legacy database configured")
	}
	id, err := strconv.Atoi(strings.TrimSpace(ref))
	if err != nil {
		return nil, fmt.Errorf("meet id %q: %w", ref, err)
	}

	meet, err := s.fetchMeet(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.fetchEntries(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Debug("legacy meet fetched", zap.Int("meet", id), zap.Int("entries", len(entries)))
	return json.Marshal(Export{Meet: meet, Entries: entries})
}

func (s *Source) fetchMeet(ctx context.Context, id int) (Meet, error) {
	var (
		m       Meet
		abbr    sql.NullString
		date    time.Time
		endDate sql.NullTime
		town    sql.NullString
		country sql.NullString
		judges  sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, federation, federation_abbr, date, end_date, town, country, units, judges
		 FROM meets WHERE id = ?`, id).
		Scan(&m.ID, &m.Name, &m.Federation, &abbr, &date, &endDate, &town, &country, &m.Units, &judges)
	if errors.Is(err, sql.ErrNoRows) {
		return m, fmt.Errorf("meet %d not found", id)
	}
	if err != nil {
		return m, fmt.Errorf("reading meet %d: %w", id, err)
	}
	m.FederationAbbr = nullStr(abbr)
	m.Date = date.Format(canonical.DateLayout)
	if endDate.Valid {
		d := endDate.Time.Format(canonical.DateLayout)
		m.EndDate = &d
	}
	m.Town = nullStr(town)
	m.Country = nullStr(country)
	if judges.Valid {
		n := int(judges.Int64)
		m.Judges = &n
	}
	return m, nil
}

func (s *Source) fetchEntries(ctx context.Context, meetID int) ([]Entry, error) {
	cols := []string{"id", "name", "sex", "country", "bodyweight", "weight_class", "dq", "dq_reason"}
	for _, lc := range liftColumns {
		for n := 1; n <= 3; n++ {
			cols = append(cols, fmt.Sprintf("%s%d", lc.prefix, n))
		}
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+strings.Join(cols, ", ")+" FROM entries WHERE meet_id = ? ORDER BY sex, weight_class, id", meetID)
	if err != nil {
		return nil, fmt.Errorf("reading entries of meet %d: %w", meetID, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			country  sql.NullString
			bw       decimal.NullDecimal
			dqReason sql.NullString
			attempts = make([]decimal.NullDecimal, 3*len(liftColumns))
		)
		dest := []any{&e.ID, &e.Name, &e.Sex, &country, &bw, &e.WeightClass, &e.DQ, &dqReason}
		for i := range attempts {
			dest = append(dest, &attempts[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.Country = nullStr(country)
		e.DQReason = nullStr(dqReason)
		if bw.Valid {
			e.Bodyweight = &bw.Decimal
		}
		e.Attempts = map[string][3]*decimal.Decimal{}
		for i, lc := range liftColumns {
			var triple [3]*decimal.Decimal
			taken := false
			for n := 0; n < 3; n++ {
				if v := attempts[3*i+n]; v.Valid && !v.Decimal.IsZero() {
					w := v.Decimal
					triple[n] = &w
					taken = true
				}
			}
			if taken {
				e.Attempts[lc.movement] = triple
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Convert maps a legacy export to a canonical document.
func (s *Source) Convert(_ context.Context, raw []byte) (*canonical.Document, error) {
	var ex Export
	if err := json.Unmarshal(raw, &ex); err != nil {
		return nil, sources.Errorf(Name, "decoding payload: %w", err)
	}
	factor, err := unitFactor(ex.Meet.Units)
	if err != nil {
		return nil, sources.Wrap(Name, err)
	}

	m := ex.Meet
	status := "completed"
	doc := &canonical.Document{
		FormatVersion: canonical.FormatVersion,
		Source: canonical.Source{
			Type:        canonical.SourceLegacyDB,
			ExtractedAt: s.now().UTC().Truncate(time.Second),
			Extractor:   extractor,
		},
		Competition: canonical.Competition{
			Name: m.Name,
			Slug: canonical.Slugify(m.Name),
			Federation: canonical.Federation{
				Name:         m.Federation,
				Abbreviation: m.FederationAbbr,
				Country:      m.Country,
			},
			StartDate:      m.Date,
			EndDate:        m.Date,
			City:           m.Town,
			Country:        m.Country,
			NumberOfJudges: m.Judges,
			Status:         &status,
		},
		Categories: []canonical.Category{},
	}
	if m.EndDate != nil {
		doc.Competition.EndDate = *m.EndDate
	}

	used := map[string]bool{}
	index := map[string]int{}
	for _, e := range ex.Entries {
		gender, err := mapSex(e.Sex)
		if err != nil {
			return nil, sources.Errorf(Name, "entry %d: %w", e.ID, err)
		}
		name, lo, hi, err := weightClass(e.WeightClass, factor)
		if err != nil {
			return nil, sources.Errorf(Name, "entry %d: %w", e.ID, err)
		}
		key := name + "|" + gender
		ci, ok := index[key]
		if !ok {
			doc.Categories = append(doc.Categories, canonical.Category{
				Name: name, Gender: gender, WeightClassMin: lo, WeightClassMax: hi,
				Athletes: []canonical.Athlete{},
			})
			ci = len(doc.Categories) - 1
			index[key] = ci
		}

		a := athlete(e, m, factor)
		for _, l := range a.Lifts {
			used[l.Movement] = true
		}
		doc.Categories[ci].Athletes = append(doc.Categories[ci].Athletes, a)
	}

	for _, lc := range liftColumns {
		if used[lc.movement] {
			doc.Movements = append(doc.Movements, canonical.Movement{Name: lc.movement, Order: len(doc.Movements) + 1})
		}
	}
	return doc, nil
}

func athlete(e Entry, m Meet, factor decimal.Decimal) canonical.Athlete {
	first, last := SplitName(e.Name)
	a := canonical.Athlete{
		FirstName: first,
		LastName:  last,
		Lifts:     []canonical.Lift{},
	}
	switch {
	case e.Country != nil && *e.Country != "":
		a.Country = strings.ToUpper(*e.Country)
	case m.Country != nil:
		a.Country = strings.ToUpper(*m.Country)
	}
	if e.Bodyweight != nil && e.Bodyweight.IsPositive() {
		bw := convert(*e.Bodyweight, factor)
		a.Bodyweight = &bw
	}
	if e.DQ {
		dq := true
		a.IsDisqualified = &dq
		a.DisqualifiedReason = e.DQReason
	}
	for _, lc := range liftColumns {
		triple, ok := e.Attempts[lc.movement]
		if !ok {
			continue
		}
		lift := canonical.Lift{Movement: lc.movement}
		for n, w := range triple {
			if w == nil || w.IsZero() {
				continue
			}
			ok := w.IsPositive()
			lift.Attempts = append(lift.Attempts, canonical.Attempt{
				AttemptNumber: n + 1,
				Weight:        convert(w.Abs(), factor),
				IsSuccessful:  &ok,
			})
		}
		if len(lift.Attempts) > 0 {
			a.Lifts = append(a.Lifts, lift)
		}
	}
	return a
}

// SplitName splits a legacy lifter name. "DUPONT, Jean" is the usual form;
// names without a comma are read as "First Last". Shouted surnames are
// title-cased.
func SplitName(name string) (first, last string) {
	name = strings.Join(strings.Fields(name), " ")
	if i := strings.Index(name, ","); i >= 0 {
		last, first = strings.TrimSpace(name[:i]), strings.TrimSpace(name[i+1:])
	} else if i := strings.LastIndex(name, " "); i >= 0 {
		first, last = name[:i], name[i+1:]
	} else {
		return "", name
	}
	if last == strings.ToUpper(last) {
		last = cases.Title(language.Und).String(strings.ToLower(last))
	}
	return first, last
}

func unitFactor(units string) (decimal.Decimal, error) {
	switch strings.ToLower(strings.TrimSpace(units)) {
	case "", "kg", "kgs":
		return decimal.NewFromInt(1), nil
	case "lb", "lbs":
		return poundsToKilograms, nil
	}
	return decimal.Zero, fmt.Errorf("unknown units %q", units)
}

func convert(w, factor decimal.Decimal) decimal.Decimal {
	if factor.Equal(decimal.NewFromInt(1)) {
		return w
	}
	return w.Mul(factor).Round(2)
}

func mapSex(s string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M", "MALE":
		return "M", nil
	case "F", "W", "FEMALE":
		return "F", nil
	}
	return "", fmt.Errorf("unknown sex %q", s)
}

// weightClass reads "80" as an upper bound and "80+" as a lower bound.
func weightClass(class string, factor decimal.Decimal) (name string, lo, hi *decimal.Decimal, err error) {
	c := strings.TrimSpace(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(class)), "kg"))
	if c == "" {
		return "Open", nil, nil, nil
	}
	open := strings.HasSuffix(c, "+")
	v, err := decimal.NewFromString(strings.TrimSpace(strings.Trim(c, "+-")))
	if err != nil {
		return "", nil, nil, fmt.Errorf("weight class %q: %w", class, err)
	}
	v = convert(v, factor)
	if open {
		return "+" + v.String() + "kg", &v, nil, nil
	}
	return "-" + v.String() + "kg", nil, &v, nil
}

func nullStr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	return &n.String
}
