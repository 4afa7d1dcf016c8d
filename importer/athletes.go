package importer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
	"github.com/OpenStreetlifting/openstreetlifting-backend/models"
)

const maxSlugSuffix = 1000

// athlete resolves the athlete row for a, creating it when no athlete
// shares its dedup key. A known athlete whose spelling changed gets a new
// slug and keeps the old one in its slug history.
func (w *writer) athlete(ctx context.Context, a canonical.Athlete, gender string) (uuid.UUID, error) {
	first := strings.Join(strings.Fields(a.FirstName), " ")
	last := strings.Join(strings.Fields(a.LastName), " ")
	key := canonical.NormalizeName(first, last).Key()
	country := strings.ToUpper(strings.TrimSpace(a.Country))

	var existing models.Athlete
	err := w.tx.NewSelect().Model(&existing).
		Where("name_key = ?", key).
		Where("gender = ?", gender).
		Where("country = ?", country).
		For("UPDATE").
		Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return w.createAthlete(ctx, first, last, key, gender, country, a.Nationality)
	case err != nil:
		return uuid.Nil, fmt.Errorf("looking up athlete %s %s: %w", first, last, err)
	}

	if existing.FirstName == first && existing.LastName == last {
		if a.Nationality != nil && (existing.Nationality == nil || *existing.Nationality != *a.Nationality) {
			if _, err := w.tx.ExecContext(ctx,
				`UPDATE athletes SET nationality = ?, updated_at = current_timestamp WHERE athlete_id = ?`,
				a.Nationality, existing.ID,
			); err != nil {
				return uuid.Nil, fmt.Errorf("updating athlete %s: %w", existing.Slug, err)
			}
		}
		return existing.ID, nil
	}

	slug, err := w.uniqueSlug(ctx, canonical.Slugify(first+" "+last), existing.ID)
	if err != nil {
		return uuid.Nil, err
	}
	history := existing.SlugHistory
	if slug != existing.Slug && !slices.Contains(history, existing.Slug) {
		history = append(history, existing.Slug)
	}
	if history == nil {
		history = []string{}
	}
	hist, err := json.Marshal(history)
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := w.tx.ExecContext(ctx, `
UPDATE athletes SET
	first_name = ?, last_name = ?, slug = ?, slug_history = ?::jsonb,
	nationality = COALESCE(?, nationality), updated_at = current_timestamp
WHERE athlete_id = ?`,
		first, last, slug, string(hist), a.Nationality, existing.ID,
	); err != nil {
		return uuid.Nil, fmt.Errorf("renaming athlete %s: %w", existing.Slug, err)
	}
	w.log.Info("athlete renamed",
		zap.String("athlete_id", existing.ID.String()),
		zap.String("old_slug", existing.Slug),
		zap.String("new_slug", slug),
	)
	return existing.ID, nil
}

func (w *writer) createAthlete(ctx context.Context, first, last, key, gender, country string, nationality *string) (uuid.UUID, error) {
	slug, err := w.uniqueSlug(ctx, canonical.Slugify(first+" "+last), uuid.Nil)
	if err != nil {
		return uuid.Nil, err
	}
	var id uuid.UUID
	if err := w.tx.QueryRowContext(ctx, `
INSERT INTO athletes (first_name, last_name, name_key, gender, country, nationality, slug)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING athlete_id`,
		first, last, key, gender, country, nationality, slug,
	).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("creating athlete %s: %w", slug, err)
	}
	w.res.AthletesCreated++
	return id, nil
}

// uniqueSlug returns base, or base-N for the smallest free N. A slug is
// taken when another athlete uses it now or used it before.
func (w *writer) uniqueSlug(ctx context.Context, base string, self uuid.UUID) (string, error) {
	for n := 1; n <= maxSlugSuffix; n++ {
		candidate := base
		if n > 1 {
			candidate = base + "-" + strconv.Itoa(n)
		}
		var taken bool
		if err := w.tx.QueryRowContext(ctx, `
SELECT EXISTS (
	SELECT 1 FROM athletes
	WHERE (slug = ? OR slug_history @> jsonb_build_array(?::text))
	AND athlete_id <> ?
)`, candidate, candidate, self).Scan(&taken); err != nil {
			return "", fmt.Errorf("checking slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free slug for %q after %d tries", base, maxSlugSuffix)
}
