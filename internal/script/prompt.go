package script

import (
	"fmt"
	"strings"

	"github.com/nikhilbhutani/podcastai/internal/models"
)

const systemTemplate = `You are a podcast script writer. Create a natural, engaging conversation between two podcast hosts about the given topic.
{{context}}{{sources}}
Requirements:
- Duration: {{duration}} minutes (approximately {{min_words}}-{{max_words}} words total)
- Tone: {{tone}}
- Audience: {{audience}}
- Format: Dialogue between Host A and Host B
- Base the discussion on current, accurate information about the topic; do not invent facts, figures or quotes
- Each speaker should talk for 1-3 sentences before switching
- Include natural conversational elements (agreements, follow-up questions, excitement)
- Make it informative but entertaining
- End with a brief wrap-up/conclusion

Output format (strictly follow this, one line per speaker turn):
HOST_A: [dialogue]
HOST_B: [dialogue]
HOST_A: [dialogue]
...

Do NOT include any other text, headers, or formatting. Only output the HOST_A/HOST_B lines.`

// buildMessages returns the system and user messages for a script request.
func buildMessages(req Request) ([]Message, error) {
	words, ok := models.DurationWordCounts[req.Duration]
	if !ok {
		return nil, fmt.Errorf("unknown duration bucket %q", req.Duration)
	}

	var contextBlock string
	if req.Context != "" {
		contextBlock = "\nContext from URLs:\n" + req.Context + "\n"
	}

	var sourcesBlock string
	if len(req.URLs) > 0 {
		var b strings.Builder
		b.WriteString("\nReference URLs (incorporate relevant information from these sources into the discussion):\n")
		for _, u := range req.URLs {
			b.WriteString("- ")
			b.WriteString(u)
			b.WriteString("\n")
		}
		sourcesBlock = b.String()
	}

	system, err := render(systemTemplate, map[string]string{
		"context":   contextBlock,
		"sources":   sourcesBlock,
		"duration":  req.Duration,
		"min_words": fmt.Sprint(words.Min),
		"max_words": fmt.Sprint(words.Max),
		"tone":      label(models.ToneLabels, req.Tone),
		"audience":  label(models.AudienceLabels, req.Audience),
	})
	if err != nil {
		return nil, fmt.Errorf("render system prompt: %w", err)
	}

	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: "Create a podcast script about: " + req.Topic},
	}, nil
}

func label(labels map[string]string, key string) string {
	if l, ok := labels[key]; ok {
		return l
	}
	return key
}
