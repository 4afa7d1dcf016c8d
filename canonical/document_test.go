package canonical

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	doc, err := LoadFile("testdata/valid.json")
	require.NoError(t, err)

	assert.Equal(t, FormatVersion, doc.FormatVersion)
	assert.Equal(t, "street-open-2025", doc.Competition.Slug)
	require.Len(t, doc.Categories, 1)
	require.Len(t, doc.Categories[0].Athletes, 1)

	a := doc.Categories[0].Athletes[0]
	assert.True(t, a.Bodyweight.Equal(decimal.RequireFromString("78.4")))
	assert.Equal(t, "M", a.GenderIn(doc.Categories[0]))
	assert.False(t, a.Disqualified())

	start, end, err := doc.Competition.Dates()
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", start.Format(DateLayout))
	assert.Equal(t, start, end)
	assert.Equal(t, "completed", doc.Competition.StatusOrDefault())
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"format_version": `))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding canonical document")
}

func TestBestWeightAndTotal(t *testing.T) {
	doc, err := LoadFile("testdata/valid.json")
	require.NoError(t, err)
	a := doc.Categories[0].Athletes[0]

	assert.True(t, a.Lifts[0].BestWeight().Equal(decimal.NewFromInt(75)), "missed 77.5 must not count")
	assert.True(t, a.Lifts[1].BestWeight().Equal(decimal.NewFromInt(90)))
	assert.True(t, a.Total().Equal(decimal.NewFromInt(165)))

	none := Lift{Movement: Squat, Attempts: []Attempt{{AttemptNumber: 1, Weight: decimal.NewFromInt(100)}}}
	assert.True(t, none.BestWeight().IsZero())
}

func TestDecimalsMarshalAsNumbers(t *testing.T) {
	b, err := json.Marshal(struct {
		Score decimal.Decimal `json:"ris_score"`
	}{decimal.RequireFromString("94.33")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ris_score":94.33}`, string(b))
}

func TestEncodeWritesNumbers(t *testing.T) {
	doc, err := LoadFile("testdata/valid.json")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))
	assert.Contains(t, buf.String(), `"bodyweight": 78.4`)
	assert.Contains(t, buf.String(), `"weight": 77.5`)
	assert.NotContains(t, buf.String(), "best")
}
