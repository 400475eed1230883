package llm

import (
	"errors"
	"testing"

	"ideaforge/domain/core"
	"ideaforge/domain/review"
)

func TestParseScoreJSON(t *testing.T) {
	raw := `{
  "scores": {"novelty": 9.1, "feasibility": 8.4, "significance": 8.9, "clarity": 8.2, "relevance": 9.0},
  "overall": 8.72,
  "rationale": "Well grounded.",
  "recommendation": "Pre-register the ablations."
}`
	s, err := ParseScore(review.RoleMeta, 2, raw)
	if err != nil {
		t.Fatal(err)
	}
	if s.Role != review.RoleMeta || s.Round != 2 {
		t.Errorf("role/round lost: %+v", s)
	}
	if s.Overall != 8.72 || s.Dimensions[review.DimNovelty] != 9.1 {
		t.Errorf("scores wrong: %+v", s)
	}
	if s.Recommendation != "Pre-register the ablations." {
		t.Errorf("recommendation lost: %q", s.Recommendation)
	}
}

func TestParseScoreFencedJSON(t *testing.T) {
	raw := "Here is my assessment:\n```json\n" +
		`{"scores": {"novelty": 8, "feasibility": 8, "significance": 8, "clarity": 8, "relevance": 8}, "overall": 8, "rationale": "ok"}` +
		"\n```\nThanks."
	s, err := ParseScore(review.RoleCritic, 1, raw)
	if err != nil {
		t.Fatal(err)
	}
	if s.Overall != 8 {
		t.Errorf("overall = %v", s.Overall)
	}
}

func TestParseScoreProseFallback(t *testing.T) {
	raw := `The idea is strong. Novelty: 9/10. Feasibility: 7.5/10.
Significance comes in at 8/10, clarity 8.5/10 and relevance: 9/10.
Overall: 8.4/10.`
	s, err := ParseScore(review.RoleInnovator, 1, raw)
	if err != nil {
		t.Fatal(err)
	}
	if s.Dimensions[review.DimFeasibility] != 7.5 {
		t.Errorf("feasibility = %v", s.Dimensions[review.DimFeasibility])
	}
	if s.Overall != 8.4 {
		t.Errorf("overall = %v", s.Overall)
	}
}

func TestParseScoreFailure(t *testing.T) {
	for _, raw := range []string{
		"I cannot score this hypothesis.",
		`{"scores": {"novelty": 9}, "overall": 9, "rationale": "missing dims"}`,
		"",
	} {
		if _, err := ParseScore(review.RoleCritic, 1, raw); !errors.Is(err, core.ErrScoreParse) {
			t.Errorf("input %q: expected ErrScoreParse, got %v", raw, err)
		}
	}
}
