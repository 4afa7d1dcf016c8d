package liftcontrol

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
)

var movementNames = map[string]string{
	"traction":  canonical.PullUp,
	"tractions": canonical.PullUp,
	"pull-up":   canonical.PullUp,
	"pull up":   canonical.PullUp,
	"dips":      canonical.Dips,
	"dip":       canonical.Dips,
	"muscle-up": canonical.MuscleUp,
	"muscle up": canonical.MuscleUp,
	"muscleup":  canonical.MuscleUp,
	"squat":     canonical.Squat,
}

// MapMovement maps a LiftControl movement name onto the vocabulary.
func MapMovement(name string) (string, bool) {
	m, ok := movementNames[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}

// MapGender maps a LiftControl "genre" to M or F.
func MapGender(genre string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(genre)) {
	case "homme", "hommes", "men", "man", "male", "m", "h":
		return "M", nil
	case "femme", "femmes", "women", "woman", "female", "f":
		return "F", nil
	}
	return "", fmt.Errorf("unknown gender %q", genre)
}

var (
	upperBound = regexp.MustCompile(`^-\s*(\d+(?:[.,]\d+)?)\s*(?:kg)?$`)
	lowerBound = regexp.MustCompile(`^(?:\+\s*(\d+(?:[.,]\d+)?)\s*(?:kg)?|(\d+(?:[.,]\d+)?)\s*(?:kg)?\s*\+)$`)
	rangeBound = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*-\s*(\d+(?:[.,]\d+)?)\s*(?:kg)?$`)
)

// ParseCategory splits a LiftControl category name such as "-80kg - Hommes"
// into its weight class label and bounds. Unrecognised classes ("Open")
// keep their label and have no bounds.
func ParseCategory(name string) (class string, lo, hi *decimal.Decimal) {
	class = strings.TrimSpace(strings.SplitN(name, " - ", 2)[0])
	lc := strings.ToLower(class)

	if m := upperBound.FindStringSubmatch(lc); m != nil {
		return class, nil, parseWeight(m[1])
	}
	if m := lowerBound.FindStringSubmatch(lc); m != nil {
		v := m[1]
		if v == "" {
			v = m[2]
		}
		return class, parseWeight(v), nil
	}
	if m := rangeBound.FindStringSubmatch(lc); m != nil {
		return class, parseWeight(m[1]), parseWeight(m[2])
	}
	return class, nil, nil
}

func parseWeight(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return nil
	}
	return &d
}
