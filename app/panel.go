package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"ideaforge/adapters/llm"
	"ideaforge/domain/core"
	"ideaforge/domain/hypothesis"
	"ideaforge/domain/review"
	"ideaforge/domain/run"
	"ideaforge/ports"
)

// Panel runs the adversarial review: Critic and Innovator evaluate
// independently (dispatched concurrently, no shared state), then Meta joins
// on both and produces the authoritative score. Only Meta's score feeds the
// acceptance decision; the other two are retained for audit and refinement
// feedback.
type Panel struct {
	caller *llmCaller
}

// NewPanel creates the review panel service
func NewPanel(caller *llmCaller) *Panel {
	return &Panel{caller: caller}
}

// Review evaluates one hypothesis with all three reviewer roles
func (p *Panel) Review(ctx context.Context, topic, references string, h *hypothesis.Hypothesis) (*review.PanelResult, error) {
	var critic, innovator *review.Score

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := p.askReviewer(gctx, review.RoleCritic, reviewerCriticSystem, reviewPrompt(topic, h.Text, references), h.Round)
		if err != nil {
			return err
		}
		critic = s
		return nil
	})
	g.Go(func() error {
		s, err := p.askReviewer(gctx, review.RoleInnovator, reviewerInnovatorSystem, reviewPrompt(topic, h.Text, references), h.Round)
		if err != nil {
			return err
		}
		innovator = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Meta strictly depends on both reviews having completed; it sees their
	// full scores, not just the prose.
	metaPrompt := metaReviewPrompt(topic, h.Text, references, critic, innovator)
	meta, err := p.askReviewer(ctx, review.RoleMeta, metaReviewerSystem, metaPrompt, h.Round)
	if err != nil {
		return nil, err
	}

	log.Printf("[Panel] round %d hypothesis %s: critic=%.2f innovator=%.2f meta=%.2f",
		h.Round, h.ID, critic.Overall, innovator.Overall, meta.Overall)

	return &review.PanelResult{Critic: critic, Innovator: innovator, Meta: meta}, nil
}

// askReviewer requests one evaluation. An unparseable response is
// re-requested exactly once before escalating to a ReviewFailure.
func (p *Panel) askReviewer(ctx context.Context, role review.Role, system, prompt string, round int) (*review.Score, error) {
	stage := string(run.StageReview)

	for attempt := 1; attempt <= 2; attempt++ {
		resp, err := p.caller.call(ctx, stage, ports.CompletionRequest{
			System:      system,
			Prompt:      prompt,
			Temperature: tempEvaluation,
		})
		if err != nil {
			if core.IsBudgetError(err) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %s: %v", core.ErrReviewFailed, role, err)
		}

		score, err := llm.ParseScore(role, round, resp.Text)
		if err == nil {
			return score, nil
		}
		if !errors.Is(err, core.ErrScoreParse) || attempt == 2 {
			return nil, fmt.Errorf("%w: %s: %v", core.ErrReviewFailed, role, err)
		}
		log.Printf("[Panel] %s response unparseable, re-requesting once: %v", role, err)
	}
	return nil, fmt.Errorf("%w: %s: retries exhausted", core.ErrReviewFailed, role)
}
