// Package canonical defines the source-agnostic competition document that
// every source transformer produces and the importer consumes.
//
// The document only carries facts of record: attempts, bodyweights and
// identity fields. Best lifts, totals, ranks and scores are always derived
// downstream and have no place in it.
//
// Importing this package sets decimal.MarshalJSONWithoutQuotes for the whole
// process: every decimal.Decimal encodes as a JSON number, in canonical
// files and in HTTP responses alike.
package canonical

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// FormatVersion is the only document version this build understands.
const FormatVersion = "1.0.0"

// DateLayout is the layout of every calendar date in the document.
const DateLayout = "2006-01-02"

// Source types.
const (
	SourceLiftControl = "liftcontrol"
	SourcePDF         = "pdf"
	SourceHTML        = "html"
	SourceCSV         = "csv"
	SourceManual      = "manual"
	SourceLegacyDB    = "legacydb"
)

// SourceTypes lists the accepted source.type values.
var SourceTypes = []string{SourceLiftControl, SourcePDF, SourceHTML, SourceCSV, SourceManual, SourceLegacyDB}

func init() {
	// Process-wide: weights and scores are JSON numbers everywhere, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Document is one competition's raw results.
type Document struct {
	FormatVersion string      `json:"format_version"`
	Source        Source      `json:"source"`
	Competition   Competition `json:"competition"`
	Movements     []Movement  `json:"movements"`
	Categories    []Category  `json:"categories"`
}

// Source describes where the document came from.
type Source struct {
	Type             string    `json:"type"`
	URL              *string   `json:"url,omitempty"`
	ExtractedAt      time.Time `json:"extracted_at"`
	Extractor        string    `json:"extractor"`
	OriginalFilename *string   `json:"original_filename,omitempty"`
}

// Competition holds the meet-level fields. Dates stay strings until
// validation so a malformed date is reported as a field error rather than
// a decode failure.
type Competition struct {
	Name           string     `json:"name"`
	Slug           string     `json:"slug"`
	Federation     Federation `json:"federation"`
	StartDate      string     `json:"start_date"`
	EndDate        string     `json:"end_date"`
	Venue          *string    `json:"venue,omitempty"`
	City           *string    `json:"city,omitempty"`
	Country        *string    `json:"country,omitempty"`
	NumberOfJudges *int       `json:"number_of_judges,omitempty"`
	Status         *string    `json:"status,omitempty"`
}

// Federation identifies the sanctioning body by name.
type Federation struct {
	Name         string  `json:"name"`
	Abbreviation *string `json:"abbreviation,omitempty"`
	Country      *string `json:"country,omitempty"`
}

// Movement is one contested lift and its display position.
type Movement struct {
	Name       string `json:"name"`
	Order      int    `json:"order"`
	IsRequired *bool  `json:"is_required,omitempty"`
}

// Category groups athletes by gender and weight class.
type Category struct {
	Name           string           `json:"name"`
	Gender         string           `json:"gender"`
	WeightClassMin *decimal.Decimal `json:"weight_class_min,omitempty"`
	WeightClassMax *decimal.Decimal `json:"weight_class_max,omitempty"`
	Athletes       []Athlete        `json:"athletes"`
}

// Athlete is one entry in a category.
type Athlete struct {
	FirstName          string           `json:"first_name"`
	LastName           string           `json:"last_name"`
	Gender             *string          `json:"gender,omitempty"`
	Country            string           `json:"country"`
	Nationality        *string          `json:"nationality,omitempty"`
	Bodyweight         *decimal.Decimal `json:"bodyweight,omitempty"`
	IsDisqualified     *bool            `json:"is_disqualified,omitempty"`
	DisqualifiedReason *string          `json:"disqualified_reason,omitempty"`
	Lifts              []Lift           `json:"lifts"`
}

// Lift is an athlete's attempts at one movement.
type Lift struct {
	Movement string    `json:"movement"`
	Attempts []Attempt `json:"attempts"`
}

// Attempt is a single try; only the final decision is kept.
type Attempt struct {
	AttemptNumber int             `json:"attempt_number"`
	Weight        decimal.Decimal `json:"weight"`
	IsSuccessful  *bool           `json:"is_successful"`
	NoRepReason   *string         `json:"no_rep_reason,omitempty"`
}

// Dates parses the competition date range.
func (c Competition) Dates() (start, end time.Time, err error) {
	start, err = time.Parse(DateLayout, c.StartDate)
	if err != nil {
		return start, end, fmt.Errorf("start_date: %w", err)
	}
	end, err = time.Parse(DateLayout, c.EndDate)
	if err != nil {
		return start, end, fmt.Errorf("end_date: %w", err)
	}
	return start, end, nil
}

// StatusOrDefault returns the declared status, "completed" when absent.
func (c Competition) StatusOrDefault() string {
	if c.Status == nil || *c.Status == "" {
		return "completed"
	}
	return *c.Status
}

// GenderIn returns the athlete's own gender override or the category's.
func (a Athlete) GenderIn(c Category) string {
	if a.Gender != nil && *a.Gender != "" {
		return *a.Gender
	}
	return c.Gender
}

// Disqualified reports the disqualification flag, false when absent.
func (a Athlete) Disqualified() bool {
	return a.IsDisqualified != nil && *a.IsDisqualified
}

// Total sums the best successful attempt of every lift.
func (a Athlete) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range a.Lifts {
		total = total.Add(l.BestWeight())
	}
	return total
}

// Successful reports the final decision. A missing decision counts as a
// miss; the validator rejects documents that omit it.
func (at Attempt) Successful() bool {
	return at.IsSuccessful != nil && *at.IsSuccessful
}

// BestWeight is the heaviest successful attempt, zero if none succeeded.
func (l Lift) BestWeight() decimal.Decimal {
	best := decimal.Zero
	for _, at := range l.Attempts {
		if at.Successful() && at.Weight.GreaterThan(best) {
			best = at.Weight
		}
	}
	return best
}

// IsRequiredOrDefault returns the required flag, true when absent.
func (m Movement) IsRequiredOrDefault() bool {
	return m.IsRequired == nil || *m.IsRequired
}

// Decode reads a document from r.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding canonical document: %w", err)
	}
	return &doc, nil
}

// LoadFile decodes the document stored at path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
