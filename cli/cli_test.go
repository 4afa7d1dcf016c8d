package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
	"github.com/OpenStreetlifting/openstreetlifting-backend/importer"
	"github.com/OpenStreetlifting/openstreetlifting-backend/sources"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd(&stdout, &stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func TestValidateValidDocument(t *testing.T) {
	out, err := runCLI(t, "validate", "../canonical/testdata/valid.json")
	require.NoError(t, err)

	var report canonical.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Empty(t, report.Errors)
}

func TestValidateInvalidDocument(t *testing.T) {
	doc, err := canonical.LoadFile("../canonical/testdata/valid.json")
	require.NoError(t, err)
	doc.Categories[0].Gender = "X"

	path := filepath.Join(t.TempDir(), "bad.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, canonical.Encode(f, doc))
	require.NoError(t, f.Close())

	out, err := runCLI(t, "validate", path)
	var verr *canonical.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, out, "categories[0].gender")
}

func TestValidateMissingFile(t *testing.T) {
	_, err := runCLI(t, "validate", "does-not-exist.json")
	assert.Error(t, err)
}

func TestConvertFile(t *testing.T) {
	out, err := runCLI(t, "convert", "file", "--source", "liftcontrol", "../sources/liftcontrol/testdata/session.json")
	require.NoError(t, err)

	doc, err := canonical.Decode(bytes.NewBufferString(out))
	require.NoError(t, err)
	assert.Equal(t, "annecy-4-lift-2025", doc.Competition.Slug)
	assert.True(t, canonical.Validate(doc).Valid())
}

func TestConvertFileToDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, "convert", "file", "-o", dir, "../sources/liftcontrol/testdata/session.json")
	require.NoError(t, err)

	doc, err := canonical.LoadFile(filepath.Join(dir, "session.json"))
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Categories)
}

func TestConvertFileUnknownSource(t *testing.T) {
	_, err := runCLI(t, "convert", "file", "--source", "pdf", "../sources/liftcontrol/testdata/session.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: legacydb, liftcontrol")
}

func TestConvertLiftControlList(t *testing.T) {
	out, err := runCLI(t, "convert", "liftcontrol", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "annecy-4-lift-2025")
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"validation", &canonical.ValidationError{Issues: []canonical.Issue{{Path: "p", Message: "m"}}}, "validation"},
		{"transformation", sources.Errorf("liftcontrol", "unexpected status %d", 502), "transformation"},
		{"resolution", &importer.ResolutionError{Date: time.Now(), Err: errors.New("none")}, "resolution"},
		{"conflict", fmt.Errorf("%w: duplicate key", importer.ErrPersistenceConflict), "conflict"},
		{"other", errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, summarize(tt.err).Kind)
		})
	}
}

func TestWriteFailureIsJSON(t *testing.T) {
	var buf bytes.Buffer
	writeFailure(&buf, &canonical.ValidationError{Issues: []canonical.Issue{{Path: "competition.slug", Message: "is required"}}})

	var f failure
	require.NoError(t, json.Unmarshal(buf.Bytes(), &f))
	assert.Equal(t, "validation", f.Kind)
	require.Len(t, f.Issues, 1)
	assert.Equal(t, "competition.slug", f.Issues[0].Path)
}
