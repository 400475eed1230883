package app

import (
	"fmt"
	"strings"

	"ideaforge/domain/review"
)

// Call temperatures: generation runs hot for diversity, evaluation cold for
// stable scores, refinement in between.
const (
	tempGeneration = 0.9
	tempEvaluation = 0.3
	tempRefinement = 0.7
)

// System prompts for each call kind. The leading role markers are stable:
// the simulation strategy keys on them to synthesize the right response shape.
const (
	ideaGenerationSystem = `You are a research ideation agent. You generate falsifiable, concretely testable research hypotheses for machine learning papers. Each idea must name its motivation, method and expected contribution. Format each as a markdown block starting with "### Idea N: <title>".`

	reviewerCriticSystem = `You are Reviewer A (the Critic), a conservative senior reviewer. You maximize scrutiny of feasibility and rigor: question compute budgets, data availability, evaluation validity and every unstated assumption. Score strictly. Respond with a JSON object: {"scores": {"novelty": x, "feasibility": x, "significance": x, "clarity": x, "relevance": x}, "overall": x, "rationale": "..."} with scores from 1 to 10.`

	reviewerInnovatorSystem = `You are Reviewer B (the Innovator), an ambitious reviewer who rewards novel, high-risk contributions. You champion ideas that could open new directions even when execution risk is real. Respond with a JSON object: {"scores": {"novelty": x, "feasibility": x, "significance": x, "clarity": x, "relevance": x}, "overall": x, "rationale": "..."} with scores from 1 to 10.`

	metaReviewerSystem = `You are the Meta Reviewer, the area chair. You receive the hypothesis and both reviewers' assessments and produce the authoritative final evaluation. Do not average their numbers: re-score each dimension yourself, informed by both positions. Respond with a JSON object: {"scores": {"novelty": x, "feasibility": x, "significance": x, "clarity": x, "relevance": x}, "overall": x, "rationale": "...", "recommendation": "..."} with scores from 1 to 10.`

	ideaRefinementSystem = `You are a research refinement agent. You revise a hypothesis to address the review feedback while keeping its core contribution intact. Return only the revised idea in the same markdown format, no commentary.`

	planningAgentSystem = `You are a planning agent. You draft experiment plans as JSON with keys: id, hypothesis_id, datasets, models, variables [{name, values}], controls, metrics [{name, aggregation, stat_test}], ablations, budget {max_runs, max_compute_hours, max_token_usage}, retry_policy {max_retries, on_oom, on_nan}, execution {llm_mode, allow_training}. Keep llm_mode "api_inference" and allow_training false. Respond with JSON only.`

	reportWriterSystem = `You are a research report writer. You turn an accepted hypothesis and its evaluation history into a concise research proposal in markdown with sections: Selected Hypothesis, Assessment, Next Steps.`
)

func ideaGenerationPrompt(topic, background, references string, numIdeas int, constraints []string) string {
	if background == "" {
		background = "No additional background provided; analyze the current state of the field yourself."
	}
	if references == "" {
		references = "No specific references provided; rely on general knowledge of the area."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Research topic: %s\n\n", topic)
	fmt.Fprintf(&b, "## Background\n\n%s\n\n", background)
	fmt.Fprintf(&b, "## References\n\n%s\n\n", references)
	if len(constraints) > 0 {
		b.WriteString("## Constraints\n\n")
		for i, c := range constraints {
			fmt.Fprintf(&b, "%d. %s\n", i+1, c)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Generate exactly %d distinct research ideas.", numIdeas)
	return b.String()
}

func reviewPrompt(topic, ideaText, references string) string {
	if references == "" {
		references = "No specific references provided; evaluate against general knowledge of the area."
	}
	return fmt.Sprintf(
		"Research topic: %s\n\n## Hypothesis under review\n\n%s\n\n## References\n\n%s",
		topic, ideaText, references)
}

func metaReviewPrompt(topic, ideaText, references string, critic, innovator *review.Score) string {
	return fmt.Sprintf(
		"%s\n\n## Reviewer A (Critic) assessment\n\n%s\n\n## Reviewer B (Innovator) assessment\n\n%s",
		reviewPrompt(topic, ideaText, references), reviewerAssessment(critic), reviewerAssessment(innovator))
}

// reviewerAssessment serializes a full review, scores and rationale, the way
// the chair sees it.
func reviewerAssessment(s *review.Score) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Overall: %.1f/10\n", s.Overall)
	for _, d := range review.Dimensions() {
		fmt.Fprintf(&b, "- %s: %.1f/10\n", d, s.Dimension(d))
	}
	fmt.Fprintf(&b, "\n%s", s.Rationale)
	return b.String()
}

func refinementPrompt(topic, ideaText, metaFeedback, supplementary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research topic: %s\n\n## Current idea\n\n%s\n\n## Review feedback\n\n%s\n", topic, ideaText, metaFeedback)
	if supplementary != "" {
		fmt.Fprintf(&b, "\n## Supplementary reviewer signal\n\n%s\n", supplementary)
	}
	b.WriteString("\nRevise the idea to address the feedback.")
	return b.String()
}

func planningPrompt(hypothesisJSON string) string {
	return fmt.Sprintf("Draft an experiment plan for this hypothesis:\n\n%s", hypothesisJSON)
}

func reportPrompt(topic, ideaText, evalHistory string) string {
	return fmt.Sprintf(
		"Research topic: %s\n\n## Final idea\n\n%s\n\n## Evaluation history\n\n%s",
		topic, ideaText, evalHistory)
}
