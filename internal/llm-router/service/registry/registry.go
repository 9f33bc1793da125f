// Package registry holds the static description of the configured backends
// and the capability tiers they are grouped into.
package registry

import (
	"fmt"
	"sort"
	"time"

	"llm-router/internal/llm-router/config"
)

type Family string

const (
	FamilyRemote Family = "remote-hosted"
	FamilyLocal  Family = "local-inference"
)

func (f Family) String() string {
	return string(f)
}

// Candidate is one configured backend. It is immutable after the registry is
// built.
type Candidate struct {
	ID      string
	Family  Family
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Headers map[string]string
	Enabled bool
}

type Tier struct {
	ID            string
	BackendIDs    []string
	Priority      int
	MaxComplexity float64
	Description   string
	Premium       bool
}

type Registry struct {
	tiers      []Tier
	candidates map[string]Candidate
	order      []string
	tierOf     map[string]string
}

// New builds a registry. Tiers are sorted by ascending priority value, the
// lowest value being the top tier. Registry order is the tier order followed
// by candidates that belong to no tier, sorted by id.
func New(tiers []Tier, candidates []Candidate) (*Registry, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("registry: at least one tier is required")
	}

	r := &Registry{
		tiers:      append([]Tier(nil), tiers...),
		candidates: make(map[string]Candidate, len(candidates)),
		tierOf:     make(map[string]string),
	}
	for _, c := range candidates {
		if _, dup := r.candidates[c.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate backend %s", c.ID)
		}
		r.candidates[c.ID] = c
	}

	sort.SliceStable(r.tiers, func(i, j int) bool {
		return r.tiers[i].Priority < r.tiers[j].Priority
	})

	seen := make(map[string]bool)
	for _, t := range r.tiers {
		for _, id := range t.BackendIDs {
			if _, ok := r.candidates[id]; !ok {
				return nil, fmt.Errorf("registry: tier %s references unknown backend %s", t.ID, id)
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			r.order = append(r.order, id)
			r.tierOf[id] = t.ID
		}
	}

	var untiered []string
	for id := range r.candidates {
		if !seen[id] {
			untiered = append(untiered, id)
		}
	}
	sort.Strings(untiered)
	r.order = append(r.order, untiered...)

	return r, nil
}

// FromConfig converts the loaded configuration into a registry.
func FromConfig(cfg *config.Config) (*Registry, error) {
	tiers := make([]Tier, 0, len(cfg.Tiers))
	for _, t := range cfg.Tiers {
		tiers = append(tiers, Tier{
			ID:            t.ID,
			BackendIDs:    t.Backends,
			Priority:      t.Priority,
			MaxComplexity: t.MaxComplexity,
			Description:   t.Description,
			Premium:       t.Premium,
		})
	}

	candidates := make([]Candidate, 0, len(cfg.Backends))
	for id, b := range cfg.Backends {
		family := FamilyRemote
		if b.Family == config.FamilyLocal {
			family = FamilyLocal
		}
		candidates = append(candidates, Candidate{
			ID:      id,
			Family:  family,
			BaseURL: b.BaseURL,
			APIKey:  b.Credential(),
			Model:   b.Model,
			Timeout: b.Timeout,
			Headers: b.Headers,
			Enabled: cfg.IsBackendEnabled(id),
		})
	}

	return New(tiers, candidates)
}

func (r *Registry) Tiers() []Tier {
	return append([]Tier(nil), r.tiers...)
}

func (r *Registry) TopTier() Tier {
	return r.tiers[0]
}

// PremiumTier returns the tier flagged premium, if any.
func (r *Registry) PremiumTier() (Tier, bool) {
	for _, t := range r.tiers {
		if t.Premium {
			return t, true
		}
	}
	return Tier{}, false
}

func (r *Registry) Candidate(id string) (Candidate, bool) {
	c, ok := r.candidates[id]
	return c, ok
}

// IDs returns every backend id in registry order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) TierOf(id string) string {
	return r.tierOf[id]
}

// Available returns the enabled backends to route over. A non-empty routing
// order (primary then fallbacks) is used as is; otherwise every enabled
// backend in registry order.
func (r *Registry) Available(routingOrder []string) []string {
	var ids []string
	if len(routingOrder) > 0 {
		ids = routingOrder
	} else {
		ids = r.order
	}

	var out []string
	for _, id := range ids {
		if c, ok := r.candidates[id]; ok && c.Enabled {
			out = append(out, id)
		}
	}
	return out
}
