package liftcontrol

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
	"github.com/OpenStreetlifting/openstreetlifting-backend/sources"
)

var fixedClock = func() time.Time { return time.Date(2025, time.March, 16, 18, 30, 0, 0, time.UTC) }

func readFixture(t *testing.T) []byte {
	t.Helper()
	raw, err := os.ReadFile("testdata/session.json")
	require.NoError(t, err)
	return raw
}

func TestConvertGolden(t *testing.T) {
	tr := New(DefaultRegistry(), nil, WithClock(fixedClock))
	doc, err := tr.Convert(context.Background(), readFixture(t))
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
		goldie.WithEqualFn(func(actual, expected []byte) bool {
			return bytes.Equal(bytes.TrimSpace(actual), bytes.TrimSpace(expected))
		}),
	)
	g.AssertJson(t, "liftcontrol_session", doc)
}

func TestConvertOutputValidates(t *testing.T) {
	doc, err := New(DefaultRegistry(), nil, WithClock(fixedClock)).Convert(context.Background(), readFixture(t))
	require.NoError(t, err)

	report := canonical.Validate(doc)
	assert.True(t, report.Valid(), "errors: %v", report.Errors)
	// Lucas Martin has neither bodyweight nor lifts.
	assert.NotEmpty(t, report.Warnings)
}

func TestConvertIsDeterministic(t *testing.T) {
	tr := New(DefaultRegistry(), nil, WithClock(fixedClock))
	a, err := tr.Convert(context.Background(), readFixture(t))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		b, err := tr.Convert(context.Background(), readFixture(t))
		require.NoError(t, err)
		require.Equal(t, a, b)
	}
}

func TestConvertFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed", `{"contest": `},
		{"unknown session", `{"contest": {"slug": "somewhere-else"}, "results": {}}`},
		{"unknown movement", `{"contest": {"slug": "annecy-4-lift-2025-dimanche-matin-39"},
			"results": {"movements": {"1": {"id": 1, "name": "Front lever", "order": 1}}}}`},
		{"unknown gender", `{"contest": {"slug": "annecy-4-lift-2025-dimanche-matin-39"},
			"results": {"movements": {}, "categories": {"1": {"id": 1, "name": "Open", "genre": "mixte"}}}}`},
	}
	tr := New(DefaultRegistry(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := tr.Convert(context.Background(), []byte(tt.raw))
			assert.Nil(t, doc)
			var te *sources.TransformationError
			require.True(t, errors.As(err, &te), "got %v", err)
			assert.Equal(t, Name, te.Source)
		})
	}
}

func TestFetchAndPullCompetition(t *testing.T) {
	fixture := readFixture(t)
	afternoon := bytes.Replace(fixture, []byte("dimanche-matin-39"), []byte("dimanche-apres-midi-40"), 1)

	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/evenements-liftcontrol/get-live-data/tableau-general/annecy-4-lift-2025-dimanche-matin-39":
			_, _ = w.Write(fixture)
		case "/evenements-liftcontrol/get-live-data/tableau-general/annecy-4-lift-2025-dimanche-apres-midi-40":
			_, _ = w.Write(afternoon)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, WithRateLimit(100, 10))
	tr := New(DefaultRegistry(), client, WithClock(fixedClock))

	docs, err := tr.PullCompetition(context.Background(), "ANNECY")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	for _, d := range docs {
		assert.Equal(t, "annecy-4-lift-2025", d.Competition.Slug)
		paths = append(paths, *d.Source.URL)
	}
	assert.Equal(t, srv.URL+"/evenements-liftcontrol/get-live-data/tableau-general/annecy-4-lift-2025-dimanche-matin-39", paths[0])
	assert.Equal(t, srv.URL+"/evenements-liftcontrol/get-live-data/tableau-general/annecy-4-lift-2025-dimanche-apres-midi-40", paths[1])

	_, err = tr.Fetch(context.Background(), "missing-session")
	assert.ErrorContains(t, err, "404")
}

func TestFetchWithoutClient(t *testing.T) {
	_, err := New(DefaultRegistry(), nil).Fetch(context.Background(), "x")
	assert.Error(t, err)
}
