package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"ideaforge/domain/core"
	"ideaforge/domain/hypothesis"
	"ideaforge/domain/review"
	"ideaforge/domain/run"
	"ideaforge/ports"
)

// Writer produces the final markdown report for the winning hypothesis
type Writer struct {
	caller *llmCaller
}

// NewWriter creates the report writer service
func NewWriter(caller *llmCaller) *Writer {
	return &Writer{caller: caller}
}

// Write generates the final report markdown for the selected hypothesis
func (w *Writer) Write(ctx context.Context, topic string, h *hypothesis.Hypothesis) (string, error) {
	resp, err := w.caller.call(ctx, string(run.StageWriteup), ports.CompletionRequest{
		System:      reportWriterSystem,
		Prompt:      reportPrompt(topic, h.Text, evaluationHistory(h)),
		Temperature: tempRefinement,
	})
	if err != nil {
		if core.IsBudgetError(err) {
			return "", err
		}
		return "", fmt.Errorf("%w: report: %v", core.ErrGenerationFailed, err)
	}

	md := strings.TrimSpace(resp.Text)
	if md == "" {
		return "", fmt.Errorf("%w: report came back empty", core.ErrGenerationFailed)
	}
	return md, nil
}

// evaluationHistory renders the revision trail as a round-by-round digest
func evaluationHistory(h *hypothesis.Hypothesis) string {
	var b strings.Builder
	for _, rev := range h.Revisions {
		fmt.Fprintf(&b, "Round %d:", rev.Round)
		if rev.Reviews != nil && rev.Reviews.Meta != nil {
			m := rev.Reviews.Meta
			fmt.Fprintf(&b, " overall %.1f", m.Overall)
			for _, d := range review.Dimensions() {
				fmt.Fprintf(&b, ", %s %.1f", d, m.Dimensions[d])
			}
		}
		if rev.Verdict != nil {
			if rev.Verdict.Accepted {
				b.WriteString(" -> accepted")
			} else if len(rev.Verdict.FailedDimensions) > 0 {
				names := make([]string, len(rev.Verdict.FailedDimensions))
				for i, f := range rev.Verdict.FailedDimensions {
					names[i] = string(f.Dimension)
				}
				fmt.Fprintf(&b, " -> rejected on %s", strings.Join(names, ", "))
			} else {
				b.WriteString(" -> rejected")
			}
		}
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "No recorded evaluations."
	}
	return b.String()
}

// RenderHTML converts report markdown to HTML for the API surface
func RenderHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.Render(doc, renderer)
}
