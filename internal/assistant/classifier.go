package assistant

import (
	"strings"
)

// Scoring weights, threshold and sticky confidence are fixed behavior, not tunables.
const (
	weightKeyword      = 3
	weightPhrase       = 5
	weightFuzzyKeyword = 1
	weightErrorPattern = 6
	weightContextBonus = 4

	scoreNormalizer = 10.0

	// ConfidenceThreshold separates an answer from a clarification request.
	ConfidenceThreshold = 0.3
	// StickyConfidence is assigned when a follow-up is attributed to the previous topic.
	StickyConfidence = 0.8
)

// Classification is the per-turn topic decision.
type Classification struct {
	Topic      TopicKey
	Confidence float64
	// Sticky is set when the previous topic was carried over by a follow-up message.
	Sticky bool
}

// Unknown reports whether no topic was recognised.
func (c Classification) Unknown() bool {
	return c.Topic == TopicUnknown || c.Topic == ""
}

// Confident reports whether confidence reaches ConfidenceThreshold.
func (c Classification) Confident() bool {
	return !c.Unknown() && c.Confidence >= ConfidenceThreshold
}

// Classifier scores knowledge base topics against free text.
type Classifier struct {
	kb *KnowledgeBase
}

// NewClassifier builds a classifier over kb.
func NewClassifier(kb *KnowledgeBase) *Classifier {
	return &Classifier{kb: kb}
}

// Classify returns the best scoring topic. Ties go to the earliest topic in the knowledge base.
func (c *Classifier) Classify(message string, ctx Context) Classification {
	lowered := strings.ToLower(message)
	content := contentWords(lowered)

	best, bestScore := TopicUnknown, 0
	for _, topic := range c.kb.Topics() {
		if score := c.score(topic, lowered, content, ctx); score > bestScore {
			best, bestScore = topic.Key, score
		}
	}
	if bestScore == 0 {
		return Classification{Topic: TopicUnknown}
	}
	return Classification{Topic: best, Confidence: normalize(bestScore)}
}

// Scores returns the raw score of every topic keyed by topic.
func (c *Classifier) Scores(message string, ctx Context) map[TopicKey]int {
	lowered := strings.ToLower(message)
	content := contentWords(lowered)
	out := make(map[TopicKey]int, len(c.kb.Topics()))
	for _, topic := range c.kb.Topics() {
		out[topic.Key] = c.score(topic, lowered, content, ctx)
	}
	return out
}

// Resolve classifies message and, when the result is weak, carries lastTopic over for
// follow-ups such as "fortsatt samme problem".
func (c *Classifier) Resolve(message string, ctx Context, lastTopic TopicKey) Classification {
	result := c.Classify(message, ctx)
	if result.Confident() || lastTopic == "" || lastTopic == TopicUnknown {
		return result
	}
	if SignalsContinuedFailure(message) {
		return Classification{Topic: lastTopic, Confidence: StickyConfidence, Sticky: true}
	}
	return result
}

func (c *Classifier) score(topic *Topic, lowered string, content []string, ctx Context) int {
	score := 0
	for _, kw := range topic.Keywords {
		if strings.Contains(lowered, kw) {
			score += weightKeyword
		}
	}
	for _, phrase := range topic.Phrases {
		if strings.Contains(lowered, phrase) {
			score += weightPhrase
		}
	}
	for _, kw := range topic.Keywords {
		if fuzzyOverlap(kw, content) {
			score += weightFuzzyKeyword
		}
	}
	switch topic.ContextBonus {
	case BonusApplication:
		if ctx.Application != "" {
			score += weightContextBonus
		}
	case BonusBrowser:
		if ctx.Browser != "" {
			score += weightContextBonus
		}
	}
	if topic.MatchesError(lowered) {
		score += weightErrorPattern
	}
	return score
}

func fuzzyOverlap(keyword string, content []string) bool {
	for _, w := range content {
		if strings.Contains(w, keyword) || strings.Contains(keyword, w) {
			return true
		}
	}
	return false
}

func normalize(score int) float64 {
	conf := float64(score) / scoreNormalizer
	if conf > 1 {
		return 1
	}
	return conf
}
