package models

type Speaker string

const (
	SpeakerHostA Speaker = "HOST_A"
	SpeakerHostB Speaker = "HOST_B"
)

type DialogueSegment struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// PodcastRequest is the validated body of a generation request.
type PodcastRequest struct {
	Topic    string   `json:"topic" validate:"required,min=1,max=500"`
	URLs     []string `json:"urls,omitempty" validate:"omitempty,dive,url"`
	Duration string   `json:"duration" validate:"required,oneof=1-3 3-5 5-10"`
	Tone     string   `json:"tone" validate:"required,oneof=conversational educational professional entertaining deep_dive"`
	Audience string   `json:"audience" validate:"required,oneof=general technical business students enthusiasts"`
}

type PodcastResponse struct {
	Status  string `json:"status"`
	JobID   string `json:"jobId,omitempty"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type WordRange struct {
	Min int
	Max int
}

var DurationWordCounts = map[string]WordRange{
	"1-3":  {Min: 300, Max: 450},
	"3-5":  {Min: 450, Max: 750},
	"5-10": {Min: 750, Max: 1500},
}

var ToneLabels = map[string]string{
	"conversational": "Conversational (friendly, casual discussion)",
	"educational":    "Educational (informative, teaching-focused)",
	"professional":   "Professional (formal, business-oriented)",
	"entertaining":   "Entertaining (fun, engaging, lighthearted)",
	"deep_dive":      "Deep Dive (analytical, detailed exploration)",
}

var AudienceLabels = map[string]string{
	"general":     "General Public (accessible to everyone)",
	"technical":   "Technical/Expert (assumes domain knowledge)",
	"business":    "Business Leaders (strategic, executive perspective)",
	"students":    "Students (educational, learning-focused)",
	"enthusiasts": "Enthusiasts (passionate hobbyists)",
}
