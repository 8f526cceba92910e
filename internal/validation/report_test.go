package validation

import "testing"

func TestReportSuccessRate(t *testing.T) {
	r := NewReport("test")
	r.AddSuccess()
	r.AddSuccess()
	r.AddError(3, NewError(KindOutOfRange, "price", "boom"), true)
	r.Finish()

	if r.TotalRecords != 3 {
		t.Fatalf("expected 3 total records, got %d", r.TotalRecords)
	}
	if got := r.SuccessRate(); got < 0.66 || got > 0.67 {
		t.Fatalf("unexpected success rate %f", got)
	}
	if len(r.DetailedErrors) != 1 {
		t.Fatalf("expected one detailed error, got %d", len(r.DetailedErrors))
	}
}

func TestErrorSummaryTopFive(t *testing.T) {
	var s ErrorSummary
	kinds := []Kind{KindOutOfRange, KindOutOfRange, KindInvalidValue, KindMissingData,
		KindOutOfOrder, KindDuplicateEntry, KindLargeGap}
	for _, k := range kinds {
		s.Add(k)
	}
	if len(s.TopErrors) != 5 {
		t.Fatalf("expected top-5 truncation, got %d entries", len(s.TopErrors))
	}
	if s.TopErrors[0].Kind != KindOutOfRange || s.TopErrors[0].Count != 2 {
		t.Fatalf("expected OutOfRange first with count 2, got %+v", s.TopErrors[0])
	}
}

func TestMergeReportsSumsCounters(t *testing.T) {
	r1 := NewReport("a")
	r1.AddSuccess()
	r1.AddError(1, NewError(KindOutOfRange, "x", "boom"), false)
	r1.Finish()

	r2 := NewReport("b")
	r2.AddSuccess()
	r2.Finish()

	merged := MergeReports([]*Report{r1, r2})
	if merged.TotalRecords != 3 {
		t.Fatalf("expected merged total of 3, got %d", merged.TotalRecords)
	}
	if merged.ValidRecords != 2 {
		t.Fatalf("expected merged valid of 2, got %d", merged.ValidRecords)
	}
}

func TestEmptyMergeReturnsNil(t *testing.T) {
	if MergeReports(nil) != nil {
		t.Fatalf("expected nil for empty merge input")
	}
}
