package liftcontrol

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var defaultRegistry []byte

// Competition is a registry entry: the sessions that make up one meet and
// the metadata the live board does not publish.
type Competition struct {
	ID       string   `yaml:"id"`
	Aliases  []string `yaml:"aliases"`
	BaseSlug string   `yaml:"base_slug"`
	Sessions []string `yaml:"sessions"`
	Metadata Metadata `yaml:"metadata"`
}

type Metadata struct {
	Name                      string     `yaml:"name"`
	Federation                Federation `yaml:"federation"`
	StartDate                 string     `yaml:"start_date"`
	EndDate                   string     `yaml:"end_date"`
	Venue                     *string    `yaml:"venue"`
	City                      *string    `yaml:"city"`
	Country                   *string    `yaml:"country"`
	NumberOfJudges            *int       `yaml:"number_of_judges"`
	DefaultAthleteCountry     string     `yaml:"default_athlete_country"`
	DefaultAthleteNationality string     `yaml:"default_athlete_nationality"`
}

type Federation struct {
	Name         string `yaml:"name"`
	Abbreviation string `yaml:"abbreviation"`
	Country      string `yaml:"country"`
}

// Registry resolves competition ids, aliases and session slugs.
type Registry struct {
	competitions []Competition
	byKey        map[string]int
	bySession    map[string]int
}

// ParseRegistry decodes a YAML registry document.
func ParseRegistry(data []byte) (*Registry, error) {
	var doc struct {
		Competitions []Competition `yaml:"competitions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing liftcontrol registry: %w", err)
	}

	r := &Registry{byKey: map[string]int{}, bySession: map[string]int{}}
	for i, c := range doc.Competitions {
		switch {
		case c.ID == "":
			return nil, fmt.Errorf("registry entry %d: id is required", i)
		case c.BaseSlug == "":
			return nil, fmt.Errorf("registry entry %q: base_slug is required", c.ID)
		case len(c.Sessions) == 0:
			return nil, fmt.Errorf("registry entry %q: at least one session is required", c.ID)
		case c.Metadata.DefaultAthleteCountry == "":
			return nil, fmt.Errorf("registry entry %q: default_athlete_country is required", c.ID)
		}
		for _, k := range append([]string{c.ID}, c.Aliases...) {
			k = registryKey(k)
			if _, dup := r.byKey[k]; dup {
				return nil, fmt.Errorf("registry entry %q: duplicate key %q", c.ID, k)
			}
			r.byKey[k] = i
		}
		for _, s := range c.Sessions {
			if _, dup := r.bySession[s]; dup {
				return nil, fmt.Errorf("registry entry %q: session %q listed twice", c.ID, s)
			}
			r.bySession[s] = i
		}
		r.competitions = append(r.competitions, c)
	}
	return r, nil
}

// DefaultRegistry returns the registry compiled into the binary.
func DefaultRegistry() *Registry {
	r, err := ParseRegistry(defaultRegistry)
	if err != nil {
		panic(err)
	}
	return r
}

// LoadRegistry reads a registry file, or the built-in one when path is empty.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRegistry(data)
}

// Lookup finds a competition by id or alias, ignoring case and '_' vs '-'.
func (r *Registry) Lookup(id string) (Competition, error) {
	i, ok := r.byKey[registryKey(id)]
	if !ok {
		return Competition{}, fmt.Errorf("unknown liftcontrol competition %q (available: %s)", id, strings.Join(r.IDs(), ", "))
	}
	return r.competitions[i], nil
}

// ForSession returns the competition a session slug belongs to.
func (r *Registry) ForSession(slug string) (Competition, bool) {
	i, ok := r.bySession[slug]
	if !ok {
		return Competition{}, false
	}
	return r.competitions[i], true
}

// IDs lists competition ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.competitions))
	for i, c := range r.competitions {
		ids[i] = c.ID
	}
	sort.Strings(ids)
	return ids
}

func registryKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
}
