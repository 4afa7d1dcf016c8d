package canonical

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Issue locates one problem in a document. Path uses JSON field names,
// e.g. categories[0].athletes[2].lifts[1].attempts[0].weight.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return i.Path + ": " + i.Message
}

// Report partitions validation findings. Errors block an import, warnings
// are surfaced but do not.
type Report struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Valid reports whether the document has no blocking errors.
func (r Report) Valid() bool { return len(r.Errors) == 0 }

// Err returns a *ValidationError carrying every error, or nil.
func (r Report) Err() error {
	if r.Valid() {
		return nil
	}
	return &ValidationError{Issues: r.Errors}
}

// ValidationError is returned when a document has blocking errors.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.String()
	}
	return fmt.Sprintf("validation failed with %d error(s): %s", len(e.Issues), strings.Join(parts, "; "))
}

// Validator checks documents. The plausibility bounds only produce warnings.
type Validator struct {
	MinAttemptWeight decimal.Decimal
	MaxAttemptWeight decimal.Decimal
	MinBodyweight    decimal.Decimal
	MaxBodyweight    decimal.Decimal
}

// NewValidator returns a Validator with the default plausibility bounds.
func NewValidator() *Validator {
	return &Validator{
		MinAttemptWeight: decimal.NewFromInt(1),
		MaxAttemptWeight: decimal.NewFromInt(500),
		MinBodyweight:    decimal.NewFromInt(30),
		MaxBodyweight:    decimal.NewFromInt(250),
	}
}

// Validate checks doc with the default bounds.
func Validate(doc *Document) Report {
	return NewValidator().Validate(doc)
}

var (
	validGenders  = []string{"M", "F"}
	validStatuses = []string{"draft", "upcoming", "live", "completed", "cancelled"}
)

type collector struct {
	report Report
}

func (c *collector) errorf(path, format string, args ...any) {
	c.report.Errors = append(c.report.Errors, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (c *collector) warnf(path, format string, args ...any) {
	c.report.Warnings = append(c.report.Warnings, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (c *collector) required(path, value string) bool {
	if strings.TrimSpace(value) == "" {
		c.errorf(path, "is required")
		return false
	}
	return true
}

// Validate never mutates doc.
func (v *Validator) Validate(doc *Document) Report {
	c := &collector{}
	if doc == nil {
		c.errorf("", "document is empty")
		return c.report
	}

	if doc.FormatVersion != FormatVersion {
		c.errorf("format_version", "unsupported version %q, expected %q", doc.FormatVersion, FormatVersion)
	}
	v.source(c, doc.Source)
	v.competition(c, doc.Competition)
	declared := v.movements(c, doc.Movements)

	if len(doc.Categories) == 0 {
		c.errorf("categories", "at least one category is required")
	}
	seen := map[string]string{}
	for i, cat := range doc.Categories {
		v.category(c, fmt.Sprintf("categories[%d]", i), cat, declared, seen)
	}
	return c.report
}

func (v *Validator) source(c *collector, s Source) {
	if c.required("source.type", s.Type) && !slices.Contains(SourceTypes, s.Type) {
		c.errorf("source.type", "unknown source type %q", s.Type)
	}
	if s.ExtractedAt.IsZero() {
		c.errorf("source.extracted_at", "is required")
	}
	c.required("source.extractor", s.Extractor)
}

func (v *Validator) competition(c *collector, comp Competition) {
	c.required("competition.name", comp.Name)
	if c.required("competition.slug", comp.Slug) && Slugify(comp.Slug) != comp.Slug {
		c.errorf("competition.slug", "%q is not a valid slug", comp.Slug)
	}
	c.required("competition.federation.name", comp.Federation.Name)

	var start, end time.Time
	var startOK, endOK bool
	if c.required("competition.start_date", comp.StartDate) {
		var err error
		if start, err = time.Parse(DateLayout, comp.StartDate); err != nil {
			c.errorf("competition.start_date", "invalid date %q, expected YYYY-MM-DD", comp.StartDate)
		} else {
			startOK = true
		}
	}
	if c.required("competition.end_date", comp.EndDate) {
		var err error
		if end, err = time.Parse(DateLayout, comp.EndDate); err != nil {
			c.errorf("competition.end_date", "invalid date %q, expected YYYY-MM-DD", comp.EndDate)
		} else {
			endOK = true
		}
	}
	if startOK && endOK && end.Before(start) {
		c.errorf("competition.end_date", "end date %s is before start date %s", comp.EndDate, comp.StartDate)
	}

	if comp.NumberOfJudges == nil {
		c.warnf("competition.number_of_judges", "not provided")
	} else if n := *comp.NumberOfJudges; n != 1 && n != 3 {
		c.errorf("competition.number_of_judges", "must be 1 or 3, got %d", n)
	}
	if comp.Status != nil && !slices.Contains(validStatuses, *comp.Status) {
		c.errorf("competition.status", "unknown status %q", *comp.Status)
	}
	if comp.Venue == nil || *comp.Venue == "" {
		c.warnf("competition.venue", "not provided")
	}
	if comp.City == nil || *comp.City == "" {
		c.warnf("competition.city", "not provided")
	}
}

// movements returns the set of declared, valid movement names.
func (v *Validator) movements(c *collector, ms []Movement) map[string]struct{} {
	declared := make(map[string]struct{}, len(ms))
	if len(ms) == 0 {
		c.errorf("movements", "at least one movement is required")
	}
	for i, m := range ms {
		path := fmt.Sprintf("movements[%d]", i)
		if !c.required(path+".name", m.Name) {
			continue
		}
		if !IsCanonicalMovement(m.Name) {
			c.errorf(path+".name", "%q is not a canonical movement (expected one of %s)", m.Name, strings.Join(Vocabulary, ", "))
		}
		if _, dup := declared[m.Name]; dup {
			c.errorf(path+".name", "movement %q is listed more than once", m.Name)
		}
		if m.Order < 1 {
			c.errorf(path+".order", "must be at least 1, got %d", m.Order)
		}
		declared[m.Name] = struct{}{}
	}
	return declared
}

func (v *Validator) category(c *collector, path string, cat Category, declared map[string]struct{}, seen map[string]string) {
	c.required(path+".name", cat.Name)
	if !slices.Contains(validGenders, cat.Gender) {
		c.errorf(path+".gender", "must be M or F, got %q", cat.Gender)
	}
	if cat.WeightClassMin != nil && cat.WeightClassMax != nil && !cat.WeightClassMax.GreaterThan(*cat.WeightClassMin) {
		c.errorf(path+".weight_class_max", "must be greater than weight_class_min (%s <= %s)",
			cat.WeightClassMax, cat.WeightClassMin)
	}
	if len(cat.Athletes) == 0 {
		c.warnf(path+".athletes", "category has no athletes")
	}
	for j, a := range cat.Athletes {
		v.athlete(c, fmt.Sprintf("%s.athletes[%d]", path, j), cat, a, declared, seen)
	}
}

func (v *Validator) athlete(c *collector, path string, cat Category, a Athlete, declared map[string]struct{}, seen map[string]string) {
	first := c.required(path+".first_name", a.FirstName)
	last := c.required(path+".last_name", a.LastName)
	country := c.required(path+".country", a.Country)

	gender := a.GenderIn(cat)
	if a.Gender != nil && !slices.Contains(validGenders, *a.Gender) {
		c.errorf(path+".gender", "must be M or F, got %q", *a.Gender)
	}

	if a.Bodyweight == nil {
		c.warnf(path+".bodyweight", "not provided, score will not be computed")
	} else if !a.Bodyweight.IsPositive() {
		c.errorf(path+".bodyweight", "must be positive, got %s", a.Bodyweight)
	} else if a.Bodyweight.LessThan(v.MinBodyweight) || a.Bodyweight.GreaterThan(v.MaxBodyweight) {
		c.warnf(path+".bodyweight", "%s kg is outside the plausible range %s-%s", a.Bodyweight, v.MinBodyweight, v.MaxBodyweight)
	}
	if a.Nationality == nil || *a.Nationality == "" {
		c.warnf(path+".nationality", "not provided")
	}

	if first && last && country {
		key := DedupKey(a.FirstName, a.LastName, gender, a.Country)
		if other, ok := seen[key]; ok {
			c.warnf(path, "%s %s shares an identity with %s and will be merged into one athlete", a.FirstName, a.LastName, other)
		} else {
			seen[key] = path
		}
	}

	if len(a.Lifts) == 0 {
		c.warnf(path+".lifts", "athlete has no lifts")
	}
	lifted := map[string]int{}
	for k, l := range a.Lifts {
		lp := fmt.Sprintf("%s.lifts[%d]", path, k)
		if c.required(lp+".movement", l.Movement) {
			if !IsCanonicalMovement(l.Movement) {
				c.errorf(lp+".movement", "%q is not a canonical movement", l.Movement)
			} else if _, ok := declared[l.Movement]; !ok {
				c.errorf(lp+".movement", "%q is not in the competition movement list", l.Movement)
			}
			if prev, dup := lifted[l.Movement]; dup {
				c.errorf(lp+".movement", "duplicate movement %q (already at lifts[%d])", l.Movement, prev)
			} else {
				lifted[l.Movement] = k
			}
		}
		v.attempts(c, lp, l.Attempts)
	}
}

func (v *Validator) attempts(c *collector, path string, attempts []Attempt) {
	if len(attempts) == 0 {
		c.errorf(path+".attempts", "at least one attempt is required")
	}
	if len(attempts) > 3 {
		c.errorf(path+".attempts", "at most 3 attempts are allowed, got %d", len(attempts))
	}
	numbers := map[int]int{}
	for n, at := range attempts {
		ap := fmt.Sprintf("%s.attempts[%d]", path, n)
		if at.AttemptNumber < 1 || at.AttemptNumber > 3 {
			c.errorf(ap+".attempt_number", "must be 1, 2 or 3, got %d", at.AttemptNumber)
		} else if prev, dup := numbers[at.AttemptNumber]; dup {
			c.errorf(ap+".attempt_number", "duplicate attempt number %d (already at attempts[%d])", at.AttemptNumber, prev)
		} else {
			numbers[at.AttemptNumber] = n
		}
		if at.IsSuccessful == nil {
			c.errorf(ap+".is_successful", "is required")
		}
		switch {
		case !at.Weight.IsPositive():
			c.errorf(ap+".weight", "must be positive, got %s", at.Weight)
		case at.Weight.LessThan(v.MinAttemptWeight) || at.Weight.GreaterThan(v.MaxAttemptWeight):
			c.warnf(ap+".weight", "%s kg is outside the plausible range %s-%s", at.Weight, v.MinAttemptWeight, v.MaxAttemptWeight)
		}
	}
}
