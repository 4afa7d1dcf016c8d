package liftcontrol

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Contains(t, r.IDs(), "annecy-4-lift-2025")

	for _, id := range []string{"annecy-4-lift-2025", "ANNECY", "annecy4lift2025", "Annecy_4_Lift_2025"} {
		c, err := r.Lookup(id)
		require.NoError(t, err, id)
		assert.Equal(t, "annecy-4-lift-2025", c.BaseSlug)
		assert.Len(t, c.Sessions, 2)
	}

	_, err := r.Lookup("paris")
	assert.ErrorContains(t, err, "annecy-4-lift-2025")

	c, ok := r.ForSession("annecy-4-lift-2025-dimanche-apres-midi-40")
	require.True(t, ok)
	assert.Equal(t, "annecy-4-lift-2025", c.ID)
	_, ok = r.ForSession("annecy-4-lift-2025")
	assert.False(t, ok)
}

func TestParseRegistryRejectsBadEntries(t *testing.T) {
	tests := map[string]string{
		"no id":       "competitions:\n  - base_slug: x\n    sessions: [a]\n    metadata: {default_athlete_country: FR}\n",
		"no sessions": "competitions:\n  - id: x\n    base_slug: x\n    metadata: {default_athlete_country: FR}\n",
		"no country":  "competitions:\n  - id: x\n    base_slug: x\n    sessions: [a]\n",
		"dup session": "competitions:\n  - id: x\n    base_slug: x\n    sessions: [a, a]\n    metadata: {default_athlete_country: FR}\n",
		"dup alias": "competitions:\n  - id: x\n    aliases: [y]\n    base_slug: x\n    sessions: [a]\n    metadata: {default_athlete_country: FR}\n" +
			"  - id: y\n    base_slug: y\n    sessions: [b]\n    metadata: {default_athlete_country: FR}\n",
		"not yaml": "competitions: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRegistry([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadRegistryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`competitions:
  - id: lyon-street-2025
    base_slug: lyon-street-2025
    sessions: [lyon-street-2025-samedi-1]
    metadata:
      name: Lyon Street 2025
      start_date: "2025-05-10"
      default_athlete_country: FR
`), 0o600))

	r, err := LoadRegistry(path)
	require.NoError(t, err)
	c, err := r.Lookup("lyon-street-2025")
	require.NoError(t, err)
	assert.Equal(t, "Lyon Street 2025", c.Metadata.Name)

	def, err := LoadRegistry("")
	require.NoError(t, err)
	assert.Contains(t, def.IDs(), "annecy-4-lift-2025")
}
