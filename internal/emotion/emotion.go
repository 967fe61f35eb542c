// Package emotion holds the fixed emotion label set, its display palette and
// the content suggestions offered for a finalized emotion.
package emotion

import (
	"image/color"
)

// Labels produced by the inference model, in model index order
const (
	Angry    = "angry"
	Disgust  = "disgust"
	Fear     = "fear"
	Happy    = "happy"
	Neutral  = "neutral"
	Sad      = "sad"
	Surprise = "surprise"
)

// Labels returns the supported labels in model index order
func Labels() []string {
	return []string{Angry, Disgust, Fear, Happy, Neutral, Sad, Surprise}
}

// DefaultColor is used for labels outside the palette
var DefaultColor = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}

var palette = map[string]color.RGBA{
	Angry:    {0xFF, 0x6B, 0x6B, 0xFF},
	Disgust:  {0x95, 0xE1, 0xD3, 0xFF},
	Fear:     {0xFF, 0xE6, 0x6D, 0xFF},
	Happy:    {0x4E, 0xCD, 0xC4, 0xFF},
	Neutral:  {0x95, 0xA5, 0xA6, 0xFF},
	Sad:      {0x34, 0x98, 0xDB, 0xFF},
	Surprise: {0xE7, 0x4C, 0x3C, 0xFF},
}

// Color returns the overlay colour for a label
func Color(label string) color.RGBA {
	if c, ok := palette[label]; ok {
		return c
	}
	return DefaultColor
}

// Hex formats a colour as #RRGGBB
func Hex(c color.RGBA) string {
	const digits = "0123456789ABCDEF"
	b := []byte{'#', 0, 0, 0, 0, 0, 0}
	for i, v := range []uint8{c.R, c.G, c.B} {
		b[1+i*2] = digits[v>>4]
		b[2+i*2] = digits[v&0x0F]
	}
	return string(b)
}

// Suggestion is a content entry offered for a finalized emotion
type Suggestion struct {
	Title       string `json:"title"`
	Description string `json:"desc"`
}

var suggestions = map[string][]Suggestion{
	Happy: {
		{Title: "Comedy Movie Night", Description: "Keep the good vibes — watch a light comedy."},
		{Title: "Dance Playlist", Description: "Uplifting tracks to keep you moving."},
	},
	Sad: {
		{Title: "Comfort Music", Description: "Soothing acoustic tracks."},
		{Title: "Feel-Good Documentary", Description: "Stories that uplift and inspire."},
	},
	Angry: {
		{Title: "High-Energy Workout", Description: "Channel energy into motion."},
		{Title: "Meditation Session", Description: "Short guided breathing."},
	},
	Surprise: {
		{Title: "Thriller Short", Description: "Quick suspenseful clip."},
		{Title: "Puzzle Game", Description: "Engaging brain teaser."},
	},
	Fear: {
		{Title: "Relaxing Nature Sounds", Description: "Calming audio for grounding."},
		{Title: "Guided Breath", Description: "2-minute grounding exercise."},
	},
	Disgust: {
		{Title: "Comedy Sketches", Description: "Light content to shift mood."},
		{Title: "Cooking Show", Description: "Satisfying and wholesome."},
	},
	Neutral: {
		{Title: "Popular Series", Description: "Start a trending show episode."},
		{Title: "Explore New Music", Description: "Discover something new."},
	},
}

// Suggestions returns a copy of the content list for a label.
// Unknown and empty labels map to an empty, non-nil list.
func Suggestions(label string) []Suggestion {
	list := suggestions[label]
	out := make([]Suggestion, len(list))
	copy(out, list)
	return out
}
