package llm

import (
	"net/http"

	"llm-router/internal/llm-router/service/registry"
)

// NewProviders builds one adapter per registered backend, chosen by family.
// Disabled backends still get an adapter so they can be listed.
func NewProviders(reg *registry.Registry, client *http.Client) map[string]Provider {
	providers := make(map[string]Provider)
	for _, id := range reg.IDs() {
		c, ok := reg.Candidate(id)
		if !ok {
			continue
		}
		switch c.Family {
		case registry.FamilyLocal:
			providers[id] = NewLocalProvider(c, client)
		default:
			providers[id] = NewRemoteProvider(c, client)
		}
	}
	return providers
}
