package assistant

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Urgency is the derived time pressure of a message.
type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
)

// Emotion is the derived tone of a message.
type Emotion string

const (
	EmotionNeutral    Emotion = "neutral"
	EmotionFrustrated Emotion = "frustrated"
	EmotionConfused   Emotion = "confused"
)

// Sentiment describes the latest message only; it is not accumulated across turns.
type Sentiment struct {
	Urgency          Urgency `json:"urgency"`
	Emotion          Emotion `json:"emotion"`
	FrustrationLevel int     `json:"frustration_level,omitempty"`
}

// Context is the structured information extracted from a conversation.
type Context struct {
	OS           string    `json:"os,omitempty"`
	Browser      string    `json:"browser,omitempty"`
	Application  string    `json:"application,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ActionsTried []string  `json:"actions_tried,omitempty"`
	Sentiment    Sentiment `json:"sentiment"`
}

const (
	minErrorRunes = 2
	maxErrorRunes = 200
)

// errorCapturePatterns are tried in order; the first acceptable capture wins.
var errorCapturePatterns = []*regexp.Regexp{
	regexp.MustCompile(`"([^"]+)"`),
	regexp.MustCompile(`“([^”]+)”`),
	regexp.MustCompile(`«([^»]+)»`),
	regexp.MustCompile(`(?i)(?:feilmelding|error)[:\s]+([^\n.]+)`),
	regexp.MustCompile(`(?i)får[:\s]+([^\n.]+)`),
	regexp.MustCompile(`(?i)sier[:\s]+([^\n.]+)`),
}

// Extract derives a Context from a single message. Missing signals leave fields empty.
func Extract(message string) Context {
	lowered := strings.ToLower(message)
	return Context{
		OS:           firstNamed(lowered, osTerms),
		Browser:      firstNamed(lowered, browserTerms),
		Application:  firstNamed(lowered, applicationTerms),
		ErrorMessage: extractErrorMessage(message),
		ActionsTried: matchedTerms(lowered, triedTerms),
		Sentiment:    analyzeSentiment(lowered),
	}
}

func analyzeSentiment(lowered string) Sentiment {
	s := Sentiment{Urgency: UrgencyNormal, Emotion: EmotionNeutral}
	if anyWord(lowered, urgentTerms) {
		s.Urgency = UrgencyHigh
	}
	if hits := matchedWords(lowered, frustratedTerms); len(hits) > 0 {
		s.Emotion = EmotionFrustrated
		s.FrustrationLevel = len(hits)
	} else if anyWord(lowered, confusedTerms) {
		s.Emotion = EmotionConfused
	}
	return s
}

func extractErrorMessage(message string) string {
	for _, re := range errorCapturePatterns {
		m := re.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		if captured := strings.TrimSpace(m[1]); plausibleErrorText(captured) {
			return captured
		}
	}
	return ""
}

// plausibleErrorText rejects captures that are too short, too long, or carry no letters or digits.
func plausibleErrorText(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < minErrorRunes || n > maxErrorRunes {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}

// Merge overlays next onto c. Populated fields are never cleared by an empty detection;
// actions accumulate without exact duplicates; sentiment always follows the latest message.
func (c Context) Merge(next Context) Context {
	merged := c.clone()
	if next.OS != "" {
		merged.OS = next.OS
	}
	if next.Browser != "" {
		merged.Browser = next.Browser
	}
	if next.Application != "" {
		merged.Application = next.Application
	}
	if next.ErrorMessage != "" {
		merged.ErrorMessage = next.ErrorMessage
	}
	for _, action := range next.ActionsTried {
		if !slices.Contains(merged.ActionsTried, action) {
			merged.ActionsTried = append(merged.ActionsTried, action)
		}
	}
	merged.Sentiment = next.Sentiment
	return merged
}

// HasSystemInfo reports whether OS, browser or application is known.
func (c Context) HasSystemInfo() bool {
	return c.OS != "" || c.Browser != "" || c.Application != ""
}

func (c Context) clone() Context {
	out := c
	if c.ActionsTried != nil {
		out.ActionsTried = append([]string(nil), c.ActionsTried...)
	}
	return out
}

