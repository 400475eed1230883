package app

import (
	"strings"
	"testing"
)

func TestIdeaGenerationPromptAssembly(t *testing.T) {
	prompt := ideaGenerationPrompt(
		"robustness of chain-of-thought",
		"prior work shows brittleness",
		"Smith et al. 2024",
		3,
		[]string{"inference only", "single GPU"},
	)

	for _, want := range []string{
		"Research topic: robustness of chain-of-thought",
		"## Background\n\nprior work shows brittleness",
		"## References\n\nSmith et al. 2024",
		"## Constraints\n\n1. inference only\n2. single GPU",
		"Generate exactly 3 distinct research ideas.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestIdeaGenerationPromptFallbacksAndNoConstraints(t *testing.T) {
	prompt := ideaGenerationPrompt("topic", "", "", 2, nil)

	if strings.Contains(prompt, "## Constraints") {
		t.Error("constraints section present without constraints")
	}
	if !strings.Contains(prompt, "No additional background provided") {
		t.Error("missing background fallback")
	}
	if !strings.Contains(prompt, "No specific references provided") {
		t.Error("missing references fallback")
	}
}
