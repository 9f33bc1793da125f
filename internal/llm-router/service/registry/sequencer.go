package registry

import "llm-router/internal/llm-router/models"

const DefaultPremiumThreshold = 0.7

type Sequencer struct {
	registry         *Registry
	premiumThreshold float64
}

func NewSequencer(r *Registry, premiumThreshold float64) *Sequencer {
	if premiumThreshold <= 0 {
		premiumThreshold = DefaultPremiumThreshold
	}
	return &Sequencer{registry: r, premiumThreshold: premiumThreshold}
}

// BuildSequence orders available into the fallback sequence: the top tier's
// backends first, premium backends next when the score exceeds the threshold,
// then everything else in registry order. The result is a permutation of the
// distinct ids in available.
func (s *Sequencer) BuildSequence(analysis models.ComplexityAnalysis, available []string) []string {
	want := make(map[string]bool, len(available))
	for _, id := range available {
		want[id] = true
	}

	sequence := make([]string, 0, len(want))
	placed := make(map[string]bool, len(want))
	add := func(id string) {
		if want[id] && !placed[id] {
			placed[id] = true
			sequence = append(sequence, id)
		}
	}

	for _, id := range s.registry.TopTier().BackendIDs {
		add(id)
	}

	if analysis.Score > s.premiumThreshold {
		if premium, ok := s.registry.PremiumTier(); ok {
			for _, id := range premium.BackendIDs {
				add(id)
			}
		}
	}

	for _, id := range s.registry.IDs() {
		add(id)
	}

	// Ids the registry does not know keep their caller order.
	for _, id := range available {
		add(id)
	}

	return sequence
}
