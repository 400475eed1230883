package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ideaforge/domain/core"
	"ideaforge/domain/review"
)

// scorePayload is the structure reviewers are instructed to emit
type scorePayload struct {
	Scores         map[string]float64 `json:"scores"`
	Overall        float64            `json:"overall"`
	Rationale      string             `json:"rationale"`
	Recommendation string             `json:"recommendation"`
}

// ParseScore turns a reviewer's raw response into a Score. JSON is tried
// first; prose responses fall back to "dimension: 8.5/10" pattern matching
// the way live models tend to format scores. Failure returns ErrScoreParse
// so the panel can re-request the evaluation once.
func ParseScore(role review.Role, round int, raw string) (*review.Score, error) {
	score, err := parseJSONScore(role, round, raw)
	if err == nil {
		return score, nil
	}
	score, regexErr := parseProseScore(role, round, raw)
	if regexErr == nil {
		return score, nil
	}
	return nil, fmt.Errorf("%w: %s response: %v", core.ErrScoreParse, role, err)
}

func parseJSONScore(role review.Role, round int, raw string) (*review.Score, error) {
	block := extractJSONObject(raw)
	if block == "" {
		return nil, fmt.Errorf("no JSON object found")
	}

	var payload scorePayload
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		return nil, fmt.Errorf("decode score JSON: %w", err)
	}

	dims := make(map[review.Dimension]float64, len(payload.Scores))
	for k, v := range payload.Scores {
		dims[review.Dimension(strings.ToLower(k))] = v
	}

	score := &review.Score{
		ID:             core.ReviewID(core.NewID()),
		Role:           role,
		Round:          round,
		Overall:        payload.Overall,
		Dimensions:     dims,
		Rationale:      payload.Rationale,
		Recommendation: payload.Recommendation,
		CreatedAt:      core.Now(),
	}
	if err := score.Validate(); err != nil {
		return nil, err
	}
	return score, nil
}

var (
	proseDimPattern     = regexp.MustCompile(`(?i)(novelty|feasibility|significance|clarity|relevance)[^0-9]{0,20}(\d+(?:\.\d+)?)\s*/\s*10`)
	proseOverallPattern = regexp.MustCompile(`(?i)overall[^0-9]{0,20}(\d+(?:\.\d+)?)\s*/?\s*1?0?`)
)

func parseProseScore(role review.Role, round int, raw string) (*review.Score, error) {
	dims := make(map[review.Dimension]float64)
	for _, m := range proseDimPattern.FindAllStringSubmatch(raw, -1) {
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		dims[review.Dimension(strings.ToLower(m[1]))] = v
	}

	overall := 0.0
	if m := proseOverallPattern.FindStringSubmatch(raw); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			overall = v
		}
	} else if len(dims) > 0 {
		sum := 0.0
		for _, v := range dims {
			sum += v
		}
		overall = sum / float64(len(dims))
	}

	score := &review.Score{
		ID:         core.ReviewID(core.NewID()),
		Role:       role,
		Round:      round,
		Overall:    overall,
		Dimensions: dims,
		Rationale:  strings.TrimSpace(raw),
		CreatedAt:  core.Now(),
	}
	if err := score.Validate(); err != nil {
		return nil, err
	}
	return score, nil
}

// extractJSONObject returns the outermost {...} block in the text, tolerant
// of markdown fences and surrounding prose.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
