package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNameIsOrderAndCaseIndependent(t *testing.T) {
	a := NormalizeName("John", "Smith")
	b := NormalizeName("smith", "JOHN")
	c := NormalizeName("  Smith ", "John")

	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, a.Key(), c.Key())
	assert.Equal(t, Name{First: "John", Last: "Smith"}, a)
	assert.Equal(t, Name{First: "JOHN", Last: "smith"}, b)
}

func TestNormalizeNameUnicode(t *testing.T) {
	// precomposed vs combining accent
	a := NormalizeName("Jos\u00e9", "Garc\u00eda")
	b := NormalizeName("Garci\u0301a", "Jose\u0301")
	assert.Equal(t, a.Key(), b.Key())
}

func TestDedupKey(t *testing.T) {
	assert.Equal(t,
		DedupKey("John", "Smith", "M", "fr"),
		DedupKey("Smith", "john", "m", "FR"))
	assert.NotEqual(t,
		DedupKey("John", "Smith", "M", "FR"),
		DedupKey("John", "Smith", "M", "BE"))
	assert.NotEqual(t,
		DedupKey("John", "Smith", "M", "FR"),
		DedupKey("John", "Smith", "F", "FR"))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jean Dupont", "jean-dupont"},
		{"Éloïse  Lefèvre", "eloise-lefevre"},
		{"O'Brien, Seán", "o-brien-sean"},
		{"Annecy 4 Lift 2025", "annecy-4-lift-2025"},
		{"  --  ", "athlete"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestNameSlug(t *testing.T) {
	assert.Equal(t, "dupont-jean", NormalizeName("Jean", "Dupont").Slug())
}
