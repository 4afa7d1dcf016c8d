package liftcontrol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
)

func TestMapMovement(t *testing.T) {
	tests := map[string]string{
		"traction":  canonical.PullUp,
		"Traction":  canonical.PullUp,
		"DIPS":      canonical.Dips,
		"muscle up": canonical.MuscleUp,
		"MuscleUp":  canonical.MuscleUp,
		" squat ":   canonical.Squat,
	}
	for in, want := range tests {
		got, ok := MapMovement(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := MapMovement("front lever")
	assert.False(t, ok)
}

func TestMapGender(t *testing.T) {
	for _, g := range []string{"homme", "Hommes", "men", "male", "M"} {
		got, err := MapGender(g)
		require.NoError(t, err)
		assert.Equal(t, "M", got)
	}
	for _, g := range []string{"femme", "Femmes", "women", "female", "f"} {
		got, err := MapGender(g)
		require.NoError(t, err)
		assert.Equal(t, "F", got)
	}
	_, err := MapGender("mixte")
	assert.Error(t, err)
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in       string
		class    string
		min, max string
	}{
		{"-80kg - Hommes", "-80kg", "", "80"},
		{"-63 kg - Femmes", "-63 kg", "", "63"},
		{"+100kg - Hommes", "+100kg", "100", ""},
		{"100kg+", "100kg+", "100", ""},
		{"73-80kg - Hommes", "73-80kg", "73", "80"},
		{"-57,5kg", "-57,5kg", "", "57.5"},
		{"Open - Hommes", "Open", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			class, lo, hi := ParseCategory(tt.in)
			assert.Equal(t, tt.class, class)
			if tt.min == "" {
				assert.Nil(t, lo)
			} else {
				require.NotNil(t, lo)
				assert.Equal(t, tt.min, lo.String())
			}
			if tt.max == "" {
				assert.Nil(t, hi)
			} else {
				require.NotNil(t, hi)
				assert.Equal(t, tt.max, hi.String())
			}
		})
	}
}

func TestDecision(t *testing.T) {
	tests := []struct {
		raw    string
		lights int
		ok     bool
	}{
		{`3`, 3, true},
		{`2`, 2, true},
		{`1`, 1, false},
		{`0`, 0, false},
		{`110`, 2, true},
		{`100`, 1, false},
		{`11`, 2, true},
		{`"101"`, 2, true},
		{`"001"`, 1, false},
		{`"2"`, 2, true},
		{`"valide"`, -1, true},
		{`"Validé"`, -1, true},
		{`"no rep"`, -1, false},
		{`null`, -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var d Decision
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &d))
			assert.Equal(t, tt.lights, d.Lights())
			assert.Equal(t, tt.ok, d.Successful())
		})
	}
}
