// Package ris computes the Relative Index for Streetlifting:
//
//	score = T * 100 / (A + (K - A) / (1 + Q * e^(-B * (BW - v))))
//
// It is a pure function of its inputs and knows nothing about storage.
package ris

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrDomain is returned for a non-positive total or bodyweight.
var ErrDomain = errors.New("ris: total and bodyweight must be positive")

// ErrUnknownGender is returned when no constant set matches a gender.
var ErrUnknownGender = errors.New("ris: unknown gender")

// Places is the number of fractional digits a stored score keeps.
const Places = 2

// Constants is one gender's constant set.
type Constants struct {
	A decimal.Decimal `json:"a"`
	K decimal.Decimal `json:"k"`
	B decimal.Decimal `json:"b"`
	V decimal.Decimal `json:"v"`
	Q decimal.Decimal `json:"q"`
}

// Formula pairs the men's and women's constants of one revision.
type Formula struct {
	Men   Constants `json:"men"`
	Women Constants `json:"women"`
}

// For selects the constants for gender (M/F, also accepting male/men and
// female/women in any case).
func (f Formula) For(gender string) (Constants, error) {
	switch strings.ToUpper(strings.TrimSpace(gender)) {
	case "M", "MALE", "MEN":
		return f.Men, nil
	case "F", "FEMALE", "WOMEN":
		return f.Women, nil
	}
	return Constants{}, fmt.Errorf("%w %q", ErrUnknownGender, gender)
}

// Compute returns the score for total and bodyweight under c, rounded to
// Places fractional digits.
func Compute(total, bodyweight decimal.Decimal, c Constants) (decimal.Decimal, error) {
	if !total.IsPositive() || !bodyweight.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: total=%s bodyweight=%s", ErrDomain, total, bodyweight)
	}

	// decimal has no exp; the exponent is small and float64 keeps ~15
	// significant digits, well past the 5 fractional digits needed.
	arg, _ := c.B.Neg().Mul(bodyweight.Sub(c.V)).Float64()
	ex := math.Exp(arg)

	// The sigmoid term tends to 0 as e grows, leaving A.
	tail := decimal.Zero
	switch {
	case math.IsNaN(ex):
		return decimal.Zero, fmt.Errorf("%w: exponent is not a number", ErrDomain)
	case !math.IsInf(ex, 1):
		spread := decimal.NewFromInt(1).Add(c.Q.Mul(decimal.NewFromFloat(ex)))
		if spread.IsZero() {
			return decimal.Zero, fmt.Errorf("%w: sigmoid denominator is zero", ErrDomain)
		}
		tail = c.K.Sub(c.A).Div(spread)
	}

	denom := c.A.Add(tail)
	if !denom.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: non-positive denominator %s", ErrDomain, denom)
	}
	return total.Mul(decimal.NewFromInt(100)).Div(denom).Round(Places), nil
}

// ComputeFor is Compute with the constants picked by gender.
func ComputeFor(total, bodyweight decimal.Decimal, gender string, f Formula) (decimal.Decimal, error) {
	c, err := f.For(gender)
	if err != nil {
		return decimal.Zero, err
	}
	return Compute(total, bodyweight, c)
}
