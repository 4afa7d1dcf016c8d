package liftcontrol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Response is the live general table of one LiftControl session.
type Response struct {
	Contest          Contest `json:"contest"`
	Results          Results `json:"results"`
	RunningAttemptID *int    `json:"runningAttemptId"`
}

type Contest struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Status string `json:"status"`
}

// Results maps are keyed by LiftControl ids rendered as strings:
// Results is category id -> athlete id -> results.
type Results struct {
	Categories map[string]CategoryInfo          `json:"categories"`
	Results    map[string]map[string]AthleteRow `json:"results"`
	Movements  map[string]MovementInfo          `json:"movements"`
}

type CategoryInfo struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Genre string `json:"genre"`
}

type MovementInfo struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// AthleteRow is one athlete's line on the board. Total, RIS and rank are
// computed by LiftControl and are never imported.
type AthleteRow struct {
	AthleteInfo AthleteInfo               `json:"athleteInfo"`
	Results     map[string]MovementResult `json:"results"`
	Total       json.RawMessage           `json:"total,omitempty"`
	RIS         json.RawMessage           `json:"RIS,omitempty"`
	Rank        json.RawMessage           `json:"rank,omitempty"`
}

type AthleteInfo struct {
	ID           int              `json:"id"`
	FirstName    string           `json:"firstName"`
	LastName     string           `json:"lastName"`
	Pesee        *decimal.Decimal `json:"pesee"`
	IsOut        bool             `json:"isOut"`
	ReasonOut    *string          `json:"reasonOut"`
	ReglageDips  *string          `json:"reglageDips"`
	ReglageSquat *string          `json:"reglageSquat"`
}

// MovementResult holds attempts keyed "1".."3"; an attempt not yet taken
// is null.
type MovementResult struct {
	Results map[string]*Attempt `json:"results"`
	Max     json.RawMessage     `json:"max,omitempty"`
}

type Attempt struct {
	ID                 int             `json:"id"`
	NoEssai            int             `json:"noEssai"`
	Charge             decimal.Decimal `json:"charge"`
	DecisionRep        Decision        `json:"decisionRep"`
	JustificationNoRep *string         `json:"justificationNoRep"`
}

// Decision is the judges' verdict, published either as a number or a string.
type Decision struct {
	Number *int
	Text   string
}

func (d *Decision) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*d = Decision{}
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &d.Text)
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decisionRep: %w", err)
	}
	d.Number = &n
	return nil
}

func (d Decision) MarshalJSON() ([]byte, error) {
	if d.Number != nil {
		return json.Marshal(*d.Number)
	}
	if d.Text == "" {
		return []byte("null"), nil
	}
	return json.Marshal(d.Text)
}

// Lights returns the number of white lights, or -1 when the decision is
// not a light count.
//
// A small number (0..3) is the count itself. Longer values are per-judge
// codes such as "110" or 101 where each 1 is a white light.
func (d Decision) Lights() int {
	if d.Number != nil {
		n := *d.Number
		if n >= 0 && n <= 3 {
			return n
		}
		return countOnes(fmt.Sprintf("%03d", n))
	}
	s := strings.TrimSpace(d.Text)
	if n, err := strconv.Atoi(s); err == nil {
		if len(s) == 1 && n <= 3 {
			return n
		}
		return countOnes(s)
	}
	return -1
}

// Successful reports whether the attempt was validated: at least two white
// lights, or an explicit "valide".
func (d Decision) Successful() bool {
	switch strings.ToLower(strings.TrimSpace(d.Text)) {
	case "valide", "validé", "validée", "valid", "good":
		return true
	}
	return d.Lights() >= 2
}

func countOnes(s string) int {
	n := 0
	for _, r := range s {
		switch r {
		case '1':
			n++
		case '0':
		default:
			return -1
		}
	}
	return n
}
