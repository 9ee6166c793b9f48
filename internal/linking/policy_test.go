package linking

import (
	"math/rand"
	"testing"
)

func floatPtr(v float64) *float64 { return &v }

func TestDecide(t *testing.T) {
	thresholds := Thresholds{Accept: 0.60, Review: 0.75}

	cases := []struct {
		name        string
		confidence  *float64
		assign      bool
		needsReview bool
		note        string
	}{
		{"absent", nil, false, true, "Ambiguous or below accept threshold"},
		{"below accept", floatPtr(0.55), false, true, "Ambiguous or below accept threshold"},
		{"between thresholds", floatPtr(0.65), true, true, "Accepted below review threshold"},
		{"at accept", floatPtr(0.60), true, true, "Accepted below review threshold"},
		{"at review", floatPtr(0.75), true, false, ""},
		{"above review", floatPtr(0.85), true, false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := Decide(tc.confidence, thresholds)
			if decision.AssignQID != tc.assign {
				t.Errorf("AssignQID = %v, want %v", decision.AssignQID, tc.assign)
			}
			if decision.NeedsReview != tc.needsReview {
				t.Errorf("NeedsReview = %v, want %v", decision.NeedsReview, tc.needsReview)
			}
			if decision.Note != tc.note {
				t.Errorf("Note = %q, want %q", decision.Note, tc.note)
			}
		})
	}
}

func TestDecideEqualThresholds(t *testing.T) {
	thresholds := Thresholds{Accept: 0.70, Review: 0.70}
	decision := Decide(floatPtr(0.70), thresholds)
	if !decision.AssignQID || decision.NeedsReview {
		t.Errorf("at shared threshold: AssignQID=%v NeedsReview=%v, want assign without review",
			decision.AssignQID, decision.NeedsReview)
	}
}

func TestDecideNeverAssignsWithoutAcceptableConfidence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		accept := rng.Float64()
		review := accept + (1-accept)*rng.Float64()
		thresholds := Thresholds{Accept: accept, Review: review}
		confidence := rng.Float64()

		decision := Decide(&confidence, thresholds)
		if decision.AssignQID && confidence < accept {
			t.Fatalf("assigned qid at confidence %.3f below accept %.3f", confidence, accept)
		}
		if !decision.AssignQID && confidence >= accept {
			t.Fatalf("withheld qid at confidence %.3f above accept %.3f", confidence, accept)
		}
		if !decision.NeedsReview && confidence < review {
			t.Fatalf("skipped review at confidence %.3f below review %.3f", confidence, review)
		}
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := (Thresholds{Accept: 0.6, Review: 0.75}).Validate(); err != nil {
		t.Errorf("valid thresholds rejected: %v", err)
	}
	if err := (Thresholds{Accept: 0.8, Review: 0.6}).Validate(); err == nil {
		t.Error("review below accept should be rejected")
	}
	if err := (Thresholds{Accept: -0.1, Review: 0.5}).Validate(); err == nil {
		t.Error("negative accept should be rejected")
	}
	if err := (Thresholds{Accept: 0.5, Review: 1.1}).Validate(); err == nil {
		t.Error("review above 1 should be rejected")
	}
}
