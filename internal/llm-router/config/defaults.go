package config

import "time"

// DefaultBackends is the built-in backend catalogue used when the config file
// does not declare any. Every entry speaks the OpenAI-compatible chat API.
func DefaultBackends() map[string]BackendConfig {
	return map[string]BackendConfig{
		"groq": {
			Family:    FamilyRemote,
			BaseURL:   "https://api.groq.com/openai/v1",
			APIKeyEnv: "GROQ_API_KEY",
			Model:     "llama-3.1-8b-instant",
			Timeout:   30 * time.Second,
			Enabled:   true,
		},
		"ollama": {
			Family:  FamilyLocal,
			BaseURL: "http://localhost:11434/v1",
			Model:   "llama3.1",
			Timeout: 60 * time.Second,
			Enabled: true,
		},
		"lmstudio": {
			Family:  FamilyLocal,
			BaseURL: "http://localhost:1234/v1",
			Model:   "local-model",
			Timeout: 60 * time.Second,
			Enabled: true,
		},
		"openrouter": {
			Family:    FamilyRemote,
			BaseURL:   "https://openrouter.ai/api/v1",
			APIKeyEnv: "OPENROUTER_API_KEY",
			Model:     "meta-llama/llama-3.1-70b-instruct",
			Timeout:   30 * time.Second,
			Enabled:   true,
			Headers: map[string]string{
				"HTTP-Referer": "officekube.io",
				"X-Title":      "LLM Router",
			},
		},
		"together": {
			Family:    FamilyRemote,
			BaseURL:   "https://api.together.xyz/v1",
			APIKeyEnv: "TOGETHER_API_KEY",
			Model:     "meta-llama/Meta-Llama-3.1-70B-Instruct-Turbo",
			Timeout:   30 * time.Second,
			Enabled:   true,
		},
		"mistral": {
			Family:    FamilyRemote,
			BaseURL:   "https://api.mistral.ai/v1",
			APIKeyEnv: "MISTRAL_API_KEY",
			Model:     "mistral-large-latest",
			Timeout:   30 * time.Second,
			Enabled:   true,
		},
		"deepseek": {
			Family:    FamilyRemote,
			BaseURL:   "https://api.deepseek.com/v1",
			APIKeyEnv: "DEEPSEEK_API_KEY",
			Model:     "deepseek-chat",
			Timeout:   45 * time.Second,
			Enabled:   true,
		},
		"openai": {
			Family:    FamilyRemote,
			BaseURL:   "https://api.openai.com/v1",
			APIKeyEnv: "OPENAI_API_KEY",
			Model:     "gpt-4o",
			Timeout:   30 * time.Second,
			Enabled:   true,
		},
	}
}

// DefaultTiers orders the built-in backends by ascending cost and scarcity.
func DefaultTiers() []TierConfig {
	return []TierConfig{
		{
			ID:            "fast",
			Backends:      []string{"groq"},
			Priority:      1,
			MaxComplexity: 0.6,
			Description:   "Fast hosted inference, attempted first for every request",
		},
		{
			ID:            "local",
			Backends:      []string{"ollama", "lmstudio"},
			Priority:      2,
			MaxComplexity: 0.5,
			Description:   "Inference servers on this machine",
		},
		{
			ID:            "aggregator",
			Backends:      []string{"openrouter"},
			Priority:      3,
			MaxComplexity: 0.8,
			Description:   "Multi-provider aggregator",
		},
		{
			ID:            "standard",
			Backends:      []string{"together", "mistral"},
			Priority:      4,
			MaxComplexity: 0.8,
			Description:   "General purpose hosted models",
		},
		{
			ID:            "reasoning",
			Backends:      []string{"deepseek"},
			Priority:      5,
			MaxComplexity: 0.9,
			Description:   "Reasoning-oriented hosted models",
		},
		{
			ID:            "premium",
			Backends:      []string{"openai"},
			Priority:      6,
			MaxComplexity: 1.0,
			Description:   "Most capable and most expensive models",
			Premium:       true,
		},
	}
}
