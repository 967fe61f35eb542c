package stats

import (
	"math"
	"sort"
)

// Sample is a single labelled detection as seen by the aggregator
type Sample interface {
	EmotionLabel() string
	ConfidenceScore() float64
}

// SessionStats summarises the detections of the most recent non-empty tick
type SessionStats struct {
	TotalDetected   int     `json:"total_detected"`
	AvgConfidence   float64 `json:"avg_confidence"`
	DominantEmotion string  `json:"dominant_emotion,omitempty"` // empty means none
}

// IsZero reports whether no tick has produced stats yet
func (s SessionStats) IsZero() bool {
	return s.TotalDetected == 0 && s.DominantEmotion == ""
}

// LabelCount is one row of the sorted counts view
type LabelCount struct {
	Emotion string `json:"emotion"`
	Count   int    `json:"count"`
}

// Counts is the cumulative per-label tally since the last reset.
// Labels keep their first-seen order. Not safe for concurrent use.
type Counts struct {
	order []string
	n     map[string]int
	last  string
}

// NewCounts returns an empty tally
func NewCounts() *Counts {
	return &Counts{n: make(map[string]int)}
}

// Get returns the count for a label
func (c *Counts) Get(label string) int {
	return c.n[label]
}

// Len returns the number of distinct labels
func (c *Counts) Len() int {
	return len(c.order)
}

// Total returns the sum of all counts
func (c *Counts) Total() int {
	total := 0
	for _, v := range c.n {
		total += v
	}
	return total
}

// Labels returns labels in first-seen order
func (c *Counts) Labels() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// LastFolded returns the label most recently added by Fold, empty if none
func (c *Counts) LastFolded() string {
	return c.last
}

// Map returns a copy of the tally
func (c *Counts) Map() map[string]int {
	out := make(map[string]int, len(c.n))
	for k, v := range c.n {
		out[k] = v
	}
	return out
}

// Sorted returns the tally ordered by count descending; ties keep first-seen order
func (c *Counts) Sorted() []LabelCount {
	out := make([]LabelCount, 0, len(c.order))
	for _, label := range c.order {
		out = append(out, LabelCount{Emotion: label, Count: c.n[label]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Reset clears the tally
func (c *Counts) Reset() {
	c.order = nil
	c.n = make(map[string]int)
	c.last = ""
}

// Clone returns an independent copy
func (c *Counts) Clone() *Counts {
	out := &Counts{
		order: make([]string, len(c.order)),
		n:     c.Map(),
		last:  c.last,
	}
	copy(out.order, c.order)
	return out
}

// Fold adds one per occurrence per label of a tick's detection set.
// This is the only mutation path for the tally besides Reset.
func Fold[S Sample](c *Counts, set []S) {
	for _, s := range set {
		label := s.EmotionLabel()
		if _, seen := c.n[label]; !seen {
			c.order = append(c.order, label)
		}
		c.n[label]++
		c.last = label
	}
}

// Compute derives SessionStats from a single tick's set. The dominant emotion
// is the first entry's label, not a majority vote.
func Compute[S Sample](set []S) SessionStats {
	if len(set) == 0 {
		return SessionStats{}
	}
	sum := 0.0
	for _, s := range set {
		sum += s.ConfidenceScore()
	}
	return SessionStats{
		TotalDetected:   len(set),
		AvgConfidence:   Round3(sum / float64(len(set))),
		DominantEmotion: set[0].EmotionLabel(),
	}
}

// Round3 rounds to three decimal places
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
