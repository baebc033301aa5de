// Package voice turns a speech transcript into a structured command.
// Recognition and synthesis happen in the browser; only text arrives here.
package voice

import (
	"strings"

	"github.com/krishimitra/advisor/internal/intent"
)

// Unknown labels a transcript that matches no rule.
const Unknown intent.Category = "unknown"

// Confidence is reported for every command. Keyword matching has no
// real score.
const Confidence = 0.85

var table = intent.Table{
	{Category: intent.Weather, Keywords: []string{"weather", "मौसम"}},
	{Category: intent.Crop, Keywords: []string{"crop", "फसल"}},
	{Category: intent.Price, Keywords: []string{"price", "भाव"}},
	{Category: intent.Scheme, Keywords: []string{"scheme", "योजना"}},
}

var classifier = intent.New(table, Unknown)

// Command is a processed voice transcript.
type Command struct {
	Text       string            `json:"text"`
	Confidence float64           `json:"confidence"`
	Intent     string            `json:"intent"`
	Entities   map[string]string `json:"entities"`
}

// Process classifies text. Intents are "<category>_query" or "unknown".
func Process(text string) Command {
	return Command{
		Text:       text,
		Confidence: Confidence,
		Intent:     IntentName(classifier.Classify(strings.TrimSpace(text))),
		Entities:   map[string]string{},
	}
}

// IntentName renders a category as a command intent.
func IntentName(c intent.Category) string {
	if c == Unknown {
		return string(Unknown)
	}
	return string(c) + "_query"
}
