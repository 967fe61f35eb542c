package emotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestionsKnownLabels(t *testing.T) {
	for _, label := range Labels() {
		list := Suggestions(label)
		assert.Len(t, list, 2, "label %s", label)
	}

	sad := Suggestions(Sad)
	require.Len(t, sad, 2)
	assert.Equal(t, "Comfort Music", sad[0].Title)
	assert.Equal(t, "Feel-Good Documentary", sad[1].Title)
}

func TestSuggestionsUnknownLabel(t *testing.T) {
	assert.NotNil(t, Suggestions(""))
	assert.Empty(t, Suggestions(""))
	assert.Empty(t, Suggestions("surprised"))
}

func TestSuggestionsReturnsCopy(t *testing.T) {
	list := Suggestions(Happy)
	list[0].Title = "changed"
	assert.Equal(t, "Comedy Movie Night", Suggestions(Happy)[0].Title)
}

func TestColor(t *testing.T) {
	assert.Equal(t, "#4ECDC4", Hex(Color(Happy)))
	assert.Equal(t, "#E74C3C", Hex(Color(Surprise)))
	assert.Equal(t, "#FFFFFF", Hex(Color("contempt")))
}
