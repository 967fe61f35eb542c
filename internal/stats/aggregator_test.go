package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	label string
	conf  float64
}

func (s sample) EmotionLabel() string     { return s.label }
func (s sample) ConfidenceScore() float64 { return s.conf }

func TestFoldAcrossTicks(t *testing.T) {
	counts := NewCounts()
	tick := []sample{{"happy", 0.91}, {"happy", 0.82}, {"sad", 0.4}}

	const n = 7
	var last SessionStats
	for i := 0; i < n; i++ {
		Fold(counts, tick)
		last = Compute(tick)
	}

	assert.Equal(t, 2*n, counts.Get("happy"))
	assert.Equal(t, n, counts.Get("sad"))
	assert.Equal(t, 3*n, counts.Total())
	assert.Equal(t, 3, last.TotalDetected)
	assert.Equal(t, Round3((0.91+0.82+0.4)/3), last.AvgConfidence)
	assert.Equal(t, 0.71, last.AvgConfidence)
}

func TestComputeDominantIsFirstEntry(t *testing.T) {
	st := Compute([]sample{{"sad", 0.5}, {"happy", 0.9}, {"happy", 0.9}})
	assert.Equal(t, "sad", st.DominantEmotion)
}

func TestComputeEmpty(t *testing.T) {
	st := Compute([]sample{})
	assert.True(t, st.IsZero())
}

func TestCountsOrderAndSorting(t *testing.T) {
	counts := NewCounts()
	Fold(counts, []sample{{"neutral", 1}})
	Fold(counts, []sample{{"happy", 1}, {"happy", 1}, {"sad", 1}})

	assert.Equal(t, []string{"neutral", "happy", "sad"}, counts.Labels())
	assert.Equal(t, "sad", counts.LastFolded())

	sorted := counts.Sorted()
	require.Len(t, sorted, 3)
	assert.Equal(t, LabelCount{"happy", 2}, sorted[0])
	assert.Equal(t, LabelCount{"neutral", 1}, sorted[1])
	assert.Equal(t, LabelCount{"sad", 1}, sorted[2])
}

func TestCountsResetAndClone(t *testing.T) {
	counts := NewCounts()
	Fold(counts, []sample{{"fear", 0.3}})
	clone := counts.Clone()

	counts.Reset()
	assert.Equal(t, 0, counts.Len())
	assert.Empty(t, counts.LastFolded())
	assert.Equal(t, 1, clone.Get("fear"))
}

func TestRound3(t *testing.T) {
	assert.Equal(t, 0.667, Round3(2.0/3.0))
	assert.Equal(t, 0.5, Round3(0.5))
}
