package llm

import (
	"log"

	"ideaforge/internal/config"
	"ideaforge/ports"
)

// Select chooses the completion strategy once at run start. Credentials
// present means the live client; otherwise the deterministic simulation.
// The choice is never re-examined per call.
func Select(cfg *config.Config, seed int64) (ports.LLMClient, error) {
	if cfg.LiveMode() {
		client, err := NewDeepSeekClient(Config{
			APIKey:  cfg.API.Key,
			BaseURL: cfg.API.BaseURL,
			Model:   cfg.API.Model,
			Timeout: cfg.API.Timeout,
		})
		if err != nil {
			return nil, err
		}
		log.Printf("[LLM] live strategy selected (model=%s)", cfg.API.Model)
		return client, nil
	}

	log.Printf("[LLM] simulation strategy selected (seed=%d)", seed)
	return NewSimClient(seed), nil
}
