package review

import (
	"testing"
)

func testScore(overall float64, dims map[Dimension]float64) *Score {
	return &Score{Role: RoleMeta, Round: 1, Overall: overall, Dimensions: dims}
}

func TestEvaluateAcceptsWhenAllBarsClear(t *testing.T) {
	th := Thresholds{
		OverallMin: 8.0,
		DimensionMins: map[Dimension]float64{
			DimNovelty: 9.0, DimFeasibility: 9.0, DimSignificance: 8.0, DimClarity: 8.0, DimRelevance: 8.0,
		},
	}
	s := testScore(9.0, map[Dimension]float64{
		DimNovelty: 9.2, DimFeasibility: 9.0, DimSignificance: 8.5, DimClarity: 8.8, DimRelevance: 9.1,
	})

	v := th.Evaluate(s)
	if !v.Accepted {
		t.Fatalf("expected acceptance, got %+v", v)
	}
	if !v.OverallPassed || len(v.FailedDimensions) != 0 {
		t.Errorf("verdict inconsistent: %+v", v)
	}
}

func TestEvaluateRejectsOnSingleDimensionFailure(t *testing.T) {
	// High overall must not mask one weak dimension
	th := Thresholds{
		OverallMin: 8.0,
		DimensionMins: map[Dimension]float64{
			DimNovelty: 9.0, DimFeasibility: 9.0, DimSignificance: 8.0, DimClarity: 8.0, DimRelevance: 8.0,
		},
	}
	s := testScore(9.4, map[Dimension]float64{
		DimNovelty: 9.8, DimFeasibility: 8.9, DimSignificance: 9.5, DimClarity: 9.5, DimRelevance: 9.3,
	})

	v := th.Evaluate(s)
	if v.Accepted {
		t.Fatal("expected rejection despite passing overall")
	}
	if !v.OverallPassed {
		t.Error("overall bar should have passed")
	}
	if len(v.FailedDimensions) != 1 || v.FailedDimensions[0].Dimension != DimFeasibility {
		t.Errorf("expected feasibility as the only failure, got %+v", v.FailedDimensions)
	}
}

func TestEvaluateRejectsOnOverallAlone(t *testing.T) {
	th := Thresholds{OverallMin: 9.0, DimensionMins: map[Dimension]float64{DimNovelty: 5.0}}
	s := testScore(8.5, map[Dimension]float64{DimNovelty: 9.0})

	v := th.Evaluate(s)
	if v.Accepted {
		t.Fatal("expected rejection on overall minimum")
	}
	if len(v.FailedDimensions) != 0 {
		t.Errorf("no dimension should have failed: %+v", v.FailedDimensions)
	}
}

func TestEvaluateFailedDimensionsSorted(t *testing.T) {
	th := Thresholds{
		OverallMin: 0,
		DimensionMins: map[Dimension]float64{
			DimRelevance: 9.0, DimClarity: 9.0, DimNovelty: 9.0,
		},
	}
	s := testScore(5, map[Dimension]float64{DimRelevance: 1, DimClarity: 1, DimNovelty: 1})

	v := th.Evaluate(s)
	if len(v.FailedDimensions) != 3 {
		t.Fatalf("expected 3 failures, got %d", len(v.FailedDimensions))
	}
	for i := 1; i < len(v.FailedDimensions); i++ {
		if v.FailedDimensions[i-1].Dimension > v.FailedDimensions[i].Dimension {
			t.Errorf("failures not sorted: %+v", v.FailedDimensions)
		}
	}
}

func TestScoreValidateMissingDimension(t *testing.T) {
	s := testScore(8, map[Dimension]float64{
		DimNovelty: 8, DimFeasibility: 8, DimSignificance: 8, DimClarity: 8,
	})
	if err := s.Validate(); err == nil {
		t.Error("expected validation failure for missing relevance")
	}
}

func TestScoreValidateOutOfRange(t *testing.T) {
	dims := map[Dimension]float64{}
	for _, d := range Dimensions() {
		dims[d] = 8
	}
	dims[DimClarity] = 10.5
	if err := testScore(8, dims).Validate(); err == nil {
		t.Error("expected validation failure for out-of-range dimension")
	}
}
