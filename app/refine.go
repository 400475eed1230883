package app

import (
	"context"
	"fmt"
	"strings"

	"ideaforge/domain/core"
	"ideaforge/domain/hypothesis"
	"ideaforge/domain/review"
	"ideaforge/domain/run"
	"ideaforge/ports"
)

// Refiner turns a rejection into a new revision. The refinement prompt is
// built from the rejecting round's Meta rationale; Critic and Innovator
// rationales ride along as supplementary signal, never as the primary
// feedback.
type Refiner struct {
	caller *llmCaller
}

// NewRefiner creates the refinement service
func NewRefiner(caller *llmCaller) *Refiner {
	return &Refiner{caller: caller}
}

// Refine requests a revised hypothesis text from the immediately preceding
// round's panel feedback.
func (r *Refiner) Refine(ctx context.Context, topic string, h *hypothesis.Hypothesis, panel *review.PanelResult) (string, error) {
	feedback := metaFeedback(panel)
	supplementary := supplementarySignal(panel)

	resp, err := r.caller.call(ctx, string(run.StageRefine), ports.CompletionRequest{
		System:      ideaRefinementSystem,
		Prompt:      refinementPrompt(topic, h.Text, feedback, supplementary),
		Temperature: tempRefinement,
	})
	if err != nil {
		if core.IsBudgetError(err) {
			return "", err
		}
		return "", fmt.Errorf("%w: refinement: %v", core.ErrGenerationFailed, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("%w: refinement produced empty revision", core.ErrGenerationFailed)
	}
	return text, nil
}

// metaFeedback is the primary refinement signal: the Meta rationale plus
// its combined improvement recommendation and the failed dimensions.
func metaFeedback(panel *review.PanelResult) string {
	var b strings.Builder
	b.WriteString(panel.Meta.Rationale)
	if panel.Meta.Recommendation != "" {
		b.WriteString("\n\nRecommendation: ")
		b.WriteString(panel.Meta.Recommendation)
	}
	return b.String()
}

func supplementarySignal(panel *review.PanelResult) string {
	var parts []string
	if panel.Critic != nil && panel.Critic.Rationale != "" {
		parts = append(parts, "Critic: "+panel.Critic.Rationale)
	}
	if panel.Innovator != nil && panel.Innovator.Rationale != "" {
		parts = append(parts, "Innovator: "+panel.Innovator.Rationale)
	}
	return strings.Join(parts, "\n\n")
}
