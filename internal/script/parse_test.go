package script

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nikhilbhutani/podcastai/internal/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []models.DialogueSegment
	}{
		{
			name: "alternating hosts with blank line",
			raw:  "HOST_A: Hi there\nHOST_B: Hello!\n\nHOST_A: Let's begin.",
			want: []models.DialogueSegment{
				{Speaker: models.SpeakerHostA, Text: "Hi there"},
				{Speaker: models.SpeakerHostB, Text: "Hello!"},
				{Speaker: models.SpeakerHostA, Text: "Let's begin."},
			},
		},
		{
			name: "blank lines only",
			raw:  "\n   \n\t\n",
			want: nil,
		},
		{
			name: "noise lines are dropped",
			raw:  "Here is your script:\nHOST_A:   Trimmed text   \n**HOST_B:** bold label\nHOST_C: unknown\nHOST_B:Tight",
			want: []models.DialogueSegment{
				{Speaker: models.SpeakerHostA, Text: "Trimmed text"},
				{Speaker: models.SpeakerHostB, Text: "Tight"},
			},
		},
		{
			name: "empty turns are dropped",
			raw:  "HOST_A:\nHOST_B:    \nHOST_A: Still here",
			want: []models.DialogueSegment{
				{Speaker: models.SpeakerHostA, Text: "Still here"},
			},
		},
		{
			name: "windows line endings",
			raw:  "HOST_A: One\r\nHOST_B: Two\r\n",
			want: []models.DialogueSegment{
				{Speaker: models.SpeakerHostA, Text: "One"},
				{Speaker: models.SpeakerHostB, Text: "Two"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw))
		})
	}
}
