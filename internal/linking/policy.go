package linking

import "fmt"

// Thresholds holds the runtime accept/review confidence bounds. The config
// loader guarantees Review >= Accept before a resolver is ever built.
type Thresholds struct {
	Accept float64
	Review float64
}

// Validate rejects threshold orderings the decision policy cannot honor.
func (t Thresholds) Validate() error {
	if t.Accept < 0 || t.Accept > 1 {
		return fmt.Errorf("accept threshold %.2f outside [0,1]", t.Accept)
	}
	if t.Review < 0 || t.Review > 1 {
		return fmt.Errorf("review threshold %.2f outside [0,1]", t.Review)
	}
	if t.Review < t.Accept {
		return fmt.Errorf("review threshold %.2f below accept threshold %.2f", t.Review, t.Accept)
	}
	return nil
}

// Decision is the outcome of applying the thresholds to a confidence value.
type Decision struct {
	AssignQID   bool
	NeedsReview bool
	Note        string
}

// Decide maps a (possibly absent) confidence onto the accept/review policy:
//
//	absent            -> no qid, review
//	c < accept        -> no qid, review
//	accept <= c < review -> qid, review
//	c >= review       -> qid, no review
func Decide(confidence *float64, t Thresholds) Decision {
	if confidence == nil {
		return Decision{NeedsReview: true, Note: "Ambiguous or below accept threshold"}
	}
	c := *confidence
	switch {
	case c < t.Accept:
		return Decision{NeedsReview: true, Note: "Ambiguous or below accept threshold"}
	case c < t.Review:
		return Decision{AssignQID: true, NeedsReview: true, Note: "Accepted below review threshold"}
	default:
		return Decision{AssignQID: true}
	}
}
