package rfm

import "slices"

// Segment is a named business category derived from a customer's scores.
type Segment string

const (
	SegmentChampions          Segment = "Champions"
	SegmentLoyalCustomers     Segment = "Loyal Customers"
	SegmentPotentialLoyalists Segment = "Potential Loyalists"
	SegmentRecentCustomers    Segment = "Recent Customers"
	SegmentPromising          Segment = "Promising"
	SegmentNeedAttention      Segment = "Need Attention"
	SegmentAboutToSleep       Segment = "About to Sleep"
	SegmentAtRisk             Segment = "At Risk"
	SegmentLost               Segment = "Lost"
)

// Rule maps the scores it matches to a segment.
type Rule struct {
	Segment Segment
	Match   func(Scores) bool
}

// rules is evaluated top to bottom and the first match wins. A rule guarded by
// the recency score must precede the unguarded rule with the same total threshold.
var rules = []Rule{
	{SegmentChampions, func(s Scores) bool { return s.Total() >= 13 }},
	{SegmentLoyalCustomers, func(s Scores) bool { return s.Total() >= 11 }},
	{SegmentPotentialLoyalists, func(s Scores) bool { return s.Total() >= 9 && s.R >= 4 }},
	{SegmentRecentCustomers, func(s Scores) bool { return s.Total() >= 9 }},
	{SegmentPromising, func(s Scores) bool { return s.Total() >= 7 && s.R >= 3 }},
	{SegmentNeedAttention, func(s Scores) bool { return s.Total() >= 7 }},
	{SegmentAboutToSleep, func(s Scores) bool { return s.Total() >= 5 && s.R >= 3 }},
	{SegmentAtRisk, func(s Scores) bool { return s.Total() >= 5 }},
	{SegmentLost, func(Scores) bool { return true }},
}

// Rules returns a copy of the ordered decision table.
func Rules() []Rule {
	return slices.Clone(rules)
}

// Classify returns the segment of the first rule matching s.
func Classify(s Scores) Segment {
	for _, r := range rules {
		if r.Match(s) {
			return r.Segment
		}
	}

	return SegmentLost
}

// Segments lists every segment in decision-table order.
func Segments() []Segment {
	out := make([]Segment, len(rules))
	for i, r := range rules {
		out[i] = r.Segment
	}

	return out
}

// IsHighValue reports whether the segment counts towards high-value customers.
func (s Segment) IsHighValue() bool {
	return s == SegmentChampions || s == SegmentLoyalCustomers
}

// IsAtRisk reports whether the segment counts towards at-risk customers.
func (s Segment) IsAtRisk() bool {
	return s == SegmentAtRisk || s == SegmentLost || s == SegmentAboutToSleep
}

// NeedsRetention reports whether the segment belongs on the retention call list.
func (s Segment) NeedsRetention() bool {
	return s == SegmentAtRisk || s == SegmentAboutToSleep || s == SegmentNeedAttention
}

// ParseSegment resolves a segment by its name.
func ParseSegment(name string) (Segment, bool) {
	for _, r := range rules {
		if string(r.Segment) == name {
			return r.Segment, true
		}
	}

	return "", false
}

func (s Segment) order() int {
	for i, r := range rules {
		if r.Segment == s {
			return i
		}
	}

	return len(rules)
}
