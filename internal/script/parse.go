package script

import (
	"strings"

	"github.com/nikhilbhutani/podcastai/internal/models"
)

var speakerPrefixes = []models.Speaker{models.SpeakerHostA, models.SpeakerHostB}

// Parse turns labeled dialogue lines into segments. Blank lines, lines
// without a recognized speaker prefix and turns with no text are dropped.
func Parse(raw string) []models.DialogueSegment {
	var segments []models.DialogueSegment
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, speaker := range speakerPrefixes {
			rest, ok := strings.CutPrefix(line, string(speaker)+":")
			if !ok {
				continue
			}
			if text := strings.TrimSpace(rest); text != "" {
				segments = append(segments, models.DialogueSegment{Speaker: speaker, Text: text})
			}
			break
		}
	}
	return segments
}
