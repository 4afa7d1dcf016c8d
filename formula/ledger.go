// Package formula is the ledger of RIS formula versions. A Ledger is an
// immutable snapshot: "current" is an attribute of a version, never a
// pointer that gets swapped.
package formula

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
	"github.com/OpenStreetlifting/openstreetlifting-backend/models"
)

var (
	// ErrNoFormulaForDate means no version's validity window contains the date.
	ErrNoFormulaForDate = errors.New("no formula version for date")
	// ErrNoCurrentFormula means no version carries the current flag.
	ErrNoCurrentFormula = errors.New("no current formula version")
	// ErrAmbiguousCurrent means more than one version carries the current
	// flag. Which one should win is an open policy question, so it is
	// reported instead of picked.
	ErrAmbiguousCurrent = errors.New("more than one formula version is flagged current")
	// ErrNotFound is returned by the year and id lookups.
	ErrNotFound = errors.New("formula version not found")
)

// Ledger is a read-only, ordered list of formula versions.
type Ledger struct {
	versions []models.FormulaVersion
}

// NewLedger copies versions and orders them by effective_from.
func NewLedger(versions []models.FormulaVersion) *Ledger {
	vs := make([]models.FormulaVersion, len(versions))
	copy(vs, versions)
	sort.SliceStable(vs, func(i, j int) bool {
		return vs[i].EffectiveFrom.Before(vs[j].EffectiveFrom)
	})
	return &Ledger{versions: vs}
}

// Load reads every version from the store.
func Load(ctx context.Context, db bun.IDB) (*Ledger, error) {
	var vs []models.FormulaVersion
	if err := db.NewSelect().Model(&vs).Order("effective_from ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("loading formula versions: %w", err)
	}
	return NewLedger(vs), nil
}

// Versions returns a copy of the versions, oldest first.
func (l *Ledger) Versions() []models.FormulaVersion {
	out := make([]models.FormulaVersion, len(l.versions))
	copy(out, l.versions)
	return out
}

// Len is the number of versions.
func (l *Ledger) Len() int { return len(l.versions) }

// ForDate returns the version whose [effective_from, effective_until) window
// contains d. If windows overlap the latest effective_from wins. It never
// falls back to the current version.
func (l *Ledger) ForDate(d time.Time) (models.FormulaVersion, error) {
	for i := len(l.versions) - 1; i >= 0; i-- {
		if l.versions[i].Covers(d) {
			return l.versions[i], nil
		}
	}
	return models.FormulaVersion{}, fmt.Errorf("%w %s", ErrNoFormulaForDate, d.Format(canonical.DateLayout))
}

// Current returns the single version flagged current.
func (l *Ledger) Current() (models.FormulaVersion, error) {
	var found []models.FormulaVersion
	for _, v := range l.versions {
		if v.IsCurrent {
			found = append(found, v)
		}
	}
	switch len(found) {
	case 0:
		return models.FormulaVersion{}, ErrNoCurrentFormula
	case 1:
		return found[0], nil
	}
	years := make([]int, len(found))
	for i, v := range found {
		years[i] = v.Year
	}
	return models.FormulaVersion{}, fmt.Errorf("%w: years %v", ErrAmbiguousCurrent, years)
}

// ByYear returns the version for year.
func (l *Ledger) ByYear(year int) (models.FormulaVersion, error) {
	for _, v := range l.versions {
		if v.Year == year {
			return v, nil
		}
	}
	return models.FormulaVersion{}, fmt.Errorf("%w: year %d", ErrNotFound, year)
}

// ByID returns the version with id.
func (l *Ledger) ByID(id uuid.UUID) (models.FormulaVersion, error) {
	for _, v := range l.versions {
		if v.ID == id {
			return v, nil
		}
	}
	return models.FormulaVersion{}, fmt.Errorf("%w: id %s", ErrNotFound, id)
}
