package scoring

import "testing"

func TestScoreMixedSheet(t *testing.T) {
	key := map[int64]int64{1: 11, 2: 22, 3: 33, 4: 44}
	staged := map[int64]int64{1: 11, 2: 22, 3: 33, 4: 40} // 3 correct, 1 wrong

	out := DefaultScheme().Score(key, staged)

	if out.Correct != 3 || out.Wrong != 1 || out.Unanswered != 0 {
		t.Fatalf("unexpected counts: %+v", out)
	}
	if out.ObtainedMarks != 13 {
		t.Fatalf("expected 13 marks, got %d", out.ObtainedMarks)
	}
	if out.TotalMarks != 20 {
		t.Fatalf("expected total 20, got %d", out.TotalMarks)
	}
	if out.Percentage != 65 {
		t.Fatalf("expected 65%%, got %d", out.Percentage)
	}
}

func TestUnansweredCountNowhere(t *testing.T) {
	key := map[int64]int64{1: 11, 2: 22, 3: 33}
	staged := map[int64]int64{1: 11}

	out := DefaultScheme().Score(key, staged)
	if out.Correct != 1 || out.Wrong != 0 || out.Unanswered != 2 {
		t.Fatalf("unexpected counts: %+v", out)
	}
	if out.ObtainedMarks != 5 {
		t.Fatalf("expected 5 marks, got %d", out.ObtainedMarks)
	}
	// round(5/15*100) = round(33.33) = 33
	if out.Percentage != 33 {
		t.Fatalf("expected 33%%, got %d", out.Percentage)
	}
}

func TestNegativeMarksRoundTowardNearest(t *testing.T) {
	key := map[int64]int64{1: 11, 2: 22, 3: 33, 4: 44}
	staged := map[int64]int64{1: 10, 2: 20, 3: 30} // 3 wrong

	out := DefaultScheme().Score(key, staged)
	if out.ObtainedMarks != -6 {
		t.Fatalf("expected -6 marks, got %d", out.ObtainedMarks)
	}
	// round(-6/20*100) = round(-30) = -30
	if out.Percentage != -30 {
		t.Fatalf("expected -30%%, got %d", out.Percentage)
	}
}

func TestHalfRoundsAwayFromZero(t *testing.T) {
	scheme := Scheme{QuestionMarks: 1, MinusMarks: 0}
	key := map[int64]int64{1: 11, 2: 22, 3: 33, 4: 44, 5: 55, 6: 66, 7: 77, 8: 88}
	staged := map[int64]int64{1: 11, 2: 22, 3: 33, 4: 44} // 4/8 = 50%, then 5/8 = 62.5%

	out := scheme.Score(key, staged)
	if out.Percentage != 50 {
		t.Fatalf("expected 50%%, got %d", out.Percentage)
	}

	staged[5] = 55
	out = scheme.Score(key, staged)
	if out.Percentage != 63 { // 62.5 rounds up, away from zero
		t.Fatalf("expected 63%%, got %d", out.Percentage)
	}
}

func TestEmptyQuizScoresZero(t *testing.T) {
	out := DefaultScheme().Score(nil, nil)
	if out.ObtainedMarks != 0 || out.TotalMarks != 0 || out.Percentage != 0 {
		t.Fatalf("expected zero outcome, got %+v", out)
	}
}
