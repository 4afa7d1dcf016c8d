package liftcontrol

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
	"github.com/OpenStreetlifting/openstreetlifting-backend/sources"
)

// Name is the source name of LiftControl documents.
const Name = canonical.SourceLiftControl

const extractor = "liftcontrol-api-v1"

// Transformer converts LiftControl session boards to canonical documents.
// Meet metadata comes from the registry entry owning the session.
type Transformer struct {
	registry *Registry
	client   *Client
	baseURL  string
	now      func() time.Time
	log      *zap.Logger
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithClock overrides the extraction timestamp source.
func WithClock(now func() time.Time) Option {
	return func(t *Transformer) { t.now = now }
}

// WithTransformerLogger sets the logger for conversion summaries.
func WithTransformerLogger(l *zap.Logger) Option {
	return func(t *Transformer) { t.log = l }
}

// New returns a Transformer. client may be nil when only Convert is used.
func New(registry *Registry, client *Client, opts ...Option) *Transformer {
	t := &Transformer{
		registry: registry,
		client:   client,
		baseURL:  DefaultBaseURL,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	if client != nil {
		t.baseURL = client.baseURL
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Name returns the source name used in canonical documents.
func (t *Transformer) Name() string { return Name }

// Registry returns the competition registry sessions are looked up in.
func (t *Transformer) Registry() *Registry { return t.registry }

// Fetch downloads the board of a session.
func (t *Transformer) Fetch(ctx context.Context, session string) ([]byte, error) {
	if t.client == nil {
		return nil, fmt.Errorf("no liftcontrol client configured")
	}
	return t.client.Fetch(ctx, session)
}

// Convert maps one session board to a canonical document.
func (t *Transformer) Convert(_ context.Context, raw []byte) (*canonical.Document, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, sources.Errorf(Name, "decoding payload: %w", err)
	}
	comp, ok := t.registry.ForSession(resp.Contest.Slug)
	if !ok {
		return nil, sources.Errorf(Name, "session %q is not in the competition registry", resp.Contest.Slug)
	}

	movements, err := buildMovements(resp.Results.Movements)
	if err != nil {
		return nil, sources.Wrap(Name, err)
	}
	categories, err := t.buildCategories(resp.Results, movements, comp.Metadata)
	if err != nil {
		return nil, sources.Wrap(Name, err)
	}

	boardURL := BoardURL(t.baseURL, resp.Contest.Slug)
	doc := &canonical.Document{
		FormatVersion: canonical.FormatVersion,
		Source: canonical.Source{
			Type:        canonical.SourceLiftControl,
			URL:         &boardURL,
			ExtractedAt: t.now().UTC().Truncate(time.Second),
			Extractor:   extractor,
		},
		Competition: competition(comp, resp.Contest),
		Categories:  categories,
	}
	for _, m := range movements {
		doc.Movements = append(doc.Movements, m.canonical)
	}
	t.log.Debug("converted liftcontrol session",
		zap.String("session", resp.Contest.Slug),
		zap.String("competition", comp.BaseSlug),
		zap.Int("categories", len(categories)))
	return doc, nil
}

// PullCompetition fetches and converts every session of a registered
// competition, concurrently. Documents come back in session order.
func (t *Transformer) PullCompetition(ctx context.Context, id string) ([]*canonical.Document, error) {
	comp, err := t.registry.Lookup(id)
	if err != nil {
		return nil, sources.Wrap(Name, err)
	}
	docs := make([]*canonical.Document, len(comp.Sessions))
	g, ctx := errgroup.WithContext(ctx)
	for i, session := range comp.Sessions {
		g.Go(func() error {
			doc, err := sources.Pull(ctx, t, session)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func competition(c Competition, contest Contest) canonical.Competition {
	md := c.Metadata
	name := md.Name
	if name == "" {
		name = contest.Name
	}
	out := canonical.Competition{
		Name: name,
		Slug: c.BaseSlug,
		Federation: canonical.Federation{
			Name:         md.Federation.Name,
			Abbreviation: optional(md.Federation.Abbreviation),
			Country:      optional(md.Federation.Country),
		},
		StartDate:      md.StartDate,
		EndDate:        md.EndDate,
		Venue:          md.Venue,
		City:           md.City,
		Country:        md.Country,
		NumberOfJudges: md.NumberOfJudges,
		Status:         mapStatus(contest.Status),
	}
	if out.EndDate == "" {
		out.EndDate = out.StartDate
	}
	return out
}

// mapStatus only maps states LiftControl reports unambiguously; anything
// else is left to the canonical default.
func mapStatus(s string) *string {
	var st string
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "live", "en cours", "in_progress", "started":
		st = "live"
	case "termine", "terminé", "finished", "closed", "completed":
		st = "completed"
	case "a venir", "à venir", "upcoming", "scheduled":
		st = "upcoming"
	default:
		return nil
	}
	return &st
}

type boardMovement struct {
	key       string
	canonical canonical.Movement
}

func buildMovements(in map[string]MovementInfo) ([]boardMovement, error) {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := in[keys[i]], in[keys[j]]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.ID < b.ID
	})

	seen := map[string]bool{}
	out := make([]boardMovement, 0, len(keys))
	for _, k := range keys {
		info := in[k]
		name, ok := MapMovement(info.Name)
		if !ok {
			return nil, fmt.Errorf("unknown movement %q", info.Name)
		}
		if seen[name] {
			return nil, fmt.Errorf("movement %q appears twice on the board", name)
		}
		seen[name] = true
		out = append(out, boardMovement{
			key:       k,
			canonical: canonical.Movement{Name: name, Order: len(out) + 1},
		})
	}
	return out, nil
}

func (t *Transformer) buildCategories(res Results, movements []boardMovement, md Metadata) ([]canonical.Category, error) {
	catKeys := sortedKeys(res.Categories, func(k string) int { return res.Categories[k].ID })

	var out []canonical.Category
	index := map[string]int{}
	for _, ck := range catKeys {
		info := res.Categories[ck]
		gender, err := MapGender(info.Genre)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", info.Name, err)
		}
		class, lo, hi := ParseCategory(info.Name)
		key := class + "|" + gender
		i, ok := index[key]
		if !ok {
			out = append(out, canonical.Category{
				Name:           class,
				Gender:         gender,
				WeightClassMin: lo,
				WeightClassMax: hi,
				Athletes:       []canonical.Athlete{},
			})
			i = len(out) - 1
			index[key] = i
		}

		rows := res.Results[ck]
		for _, ak := range sortedKeys(rows, func(k string) int { return rows[k].AthleteInfo.ID }) {
			out[i].Athletes = append(out[i].Athletes, buildAthlete(rows[ak], movements, md))
		}
	}
	return out, nil
}

func buildAthlete(row AthleteRow, movements []boardMovement, md Metadata) canonical.Athlete {
	info := row.AthleteInfo
	a := canonical.Athlete{
		FirstName:      strings.TrimSpace(info.FirstName),
		LastName:       strings.TrimSpace(info.LastName),
		Country:        md.DefaultAthleteCountry,
		Nationality:    optional(md.DefaultAthleteNationality),
		IsDisqualified: &info.IsOut,
		Lifts:          []canonical.Lift{},
	}
	if info.Pesee != nil && info.Pesee.IsPositive() {
		bw := *info.Pesee
		a.Bodyweight = &bw
	}
	if info.ReasonOut != nil && strings.TrimSpace(*info.ReasonOut) != "" {
		a.DisqualifiedReason = optional(strings.TrimSpace(*info.ReasonOut))
	}

	for _, m := range movements {
		mr, ok := row.Results[m.key]
		if !ok {
			continue
		}
		lift := canonical.Lift{Movement: m.canonical.Name}
		for n := 1; n <= 3; n++ {
			at := mr.Results[strconv.Itoa(n)]
			if at == nil {
				continue
			}
			decided := at.DecisionRep.Number != nil || at.DecisionRep.Text != ""
			if !at.Charge.IsPositive() && !decided {
				continue
			}
			num := at.NoEssai
			if num < 1 || num > 3 {
				num = n
			}
			ok := at.DecisionRep.Successful()
			attempt := canonical.Attempt{AttemptNumber: num, Weight: at.Charge, IsSuccessful: &ok}
			if !ok && at.JustificationNoRep != nil && strings.TrimSpace(*at.JustificationNoRep) != "" {
				attempt.NoRepReason = optional(strings.TrimSpace(*at.JustificationNoRep))
			}
			lift.Attempts = append(lift.Attempts, attempt)
		}
		if len(lift.Attempts) > 0 {
			a.Lifts = append(a.Lifts, lift)
		}
	}
	return a
}

// sortedKeys orders map keys by the numeric id id(k), then by key.
func sortedKeys[V any](m map[string]V, id func(string) int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := id(keys[i]), id(keys[j])
		if a != b {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
