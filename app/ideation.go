package app

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"ideaforge/domain/core"
	"ideaforge/domain/hypothesis"
	"ideaforge/domain/run"
	"ideaforge/ports"
)

// ideaSplitPattern separates the numbered idea blocks in a generation response
var ideaSplitPattern = regexp.MustCompile(`(?m)^### Idea\s*\d+`)

// Ideation produces candidate hypotheses from the research-direction
// context. Review feedback never feeds back into generation; revisions go
// through the refiner instead.
type Ideation struct {
	caller *llmCaller
}

// NewIdeation creates the idea generator service
func NewIdeation(caller *llmCaller) *Ideation {
	return &Ideation{caller: caller}
}

// Generate produces the round's candidate hypotheses. Client retry
// exhaustion surfaces as a GenerationFailure; budget denials propagate
// unchanged so the controller can map them.
func (g *Ideation) Generate(ctx context.Context, cfg run.Config, background, references string) ([]*hypothesis.Hypothesis, error) {
	prompt := ideaGenerationPrompt(cfg.Topic, background, references, cfg.NumIdeasPerRound, cfg.Constraints)

	resp, err := g.caller.call(ctx, string(run.StageIdeation), ports.CompletionRequest{
		System:      ideaGenerationSystem,
		Prompt:      prompt,
		Temperature: tempGeneration,
	})
	if err != nil {
		if core.IsBudgetError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", core.ErrGenerationFailed, err)
	}

	texts := splitIdeas(resp.Text)
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: response contained no idea blocks", core.ErrGenerationFailed)
	}
	if len(texts) > cfg.NumIdeasPerRound {
		texts = texts[:cfg.NumIdeasPerRound]
	}

	hs := make([]*hypothesis.Hypothesis, 0, len(texts))
	for _, t := range texts {
		hs = append(hs, hypothesis.New(t))
	}
	log.Printf("[Ideation] generated %d candidate hypotheses", len(hs))
	return hs, nil
}

// splitIdeas cuts the raw generation text into one block per idea. A
// response without the expected headers is treated as a single idea.
func splitIdeas(raw string) []string {
	locs := ideaSplitPattern.FindAllStringIndex(raw, -1)
	if len(locs) == 0 {
		if t := strings.TrimSpace(raw); t != "" {
			return []string{t}
		}
		return nil
	}

	var ideas []string
	for i, loc := range locs {
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if t := strings.TrimSpace(raw[loc[0]:end]); t != "" {
			ideas = append(ideas, t)
		}
	}
	return ideas
}
