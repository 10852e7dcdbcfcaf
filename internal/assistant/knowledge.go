package assistant

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed knowledge.yaml
var defaultKnowledge []byte

// TopicKey identifies a support domain.
type TopicKey string

// TopicUnknown is returned when no topic matches a message.
const TopicUnknown TopicKey = "unknown"

// ContextBonus names the context field that earns a topic extra classification weight.
type ContextBonus string

const (
	BonusNone        ContextBonus = ""
	BonusApplication ContextBonus = "application"
	BonusBrowser     ContextBonus = "browser"
)

// ErrorPattern pairs a known error signature with a plain-language explanation.
type ErrorPattern struct {
	Pattern     string `yaml:"pattern"`
	Explanation string `yaml:"explanation"`

	re *regexp.Regexp
}

// Solutions holds remediation steps per tier.
type Solutions struct {
	Basic        []string `yaml:"basic"`
	Intermediate []string `yaml:"intermediate"`
	Advanced     []string `yaml:"advanced"`
}

// Steps returns the steps for a tier.
func (s Solutions) Steps(tier Tier) []string {
	switch tier {
	case TierIntermediate:
		return s.Intermediate
	case TierAdvanced:
		return s.Advanced
	default:
		return s.Basic
	}
}

// Topic is an immutable knowledge base record.
type Topic struct {
	Key           TopicKey       `yaml:"key"`
	Label         string         `yaml:"label"`
	Description   string         `yaml:"description"`
	Example       string         `yaml:"example"`
	Opening       string         `yaml:"opening"`
	ContextBonus  ContextBonus   `yaml:"context_bonus"`
	Keywords      []string       `yaml:"keywords"`
	Phrases       []string       `yaml:"phrases"`
	ErrorPatterns []ErrorPattern `yaml:"error_patterns"`
	Solutions     Solutions      `yaml:"solutions"`
	Questions     []string       `yaml:"questions"`
}

// MatchesError reports whether any known error signature matches lowered text.
func (t *Topic) MatchesError(lowered string) bool {
	for i := range t.ErrorPatterns {
		if t.ErrorPatterns[i].re.MatchString(lowered) {
			return true
		}
	}
	return false
}

// ExplainError returns the explanation of the first error signature matching errText.
func (t *Topic) ExplainError(errText string) (string, bool) {
	if errText == "" {
		return "", false
	}
	lowered := strings.ToLower(errText)
	for i := range t.ErrorPatterns {
		if t.ErrorPatterns[i].re.MatchString(lowered) {
			return t.ErrorPatterns[i].Explanation, true
		}
	}
	return "", false
}

// KnowledgeBase is the ordered, read-only topic catalogue shared by all conversations.
type KnowledgeBase struct {
	topics []*Topic
	byKey  map[TopicKey]*Topic
}

type knowledgeFile struct {
	Topics []*Topic `yaml:"topics"`
}

// DefaultKnowledgeBase decodes the embedded topic catalogue.
func DefaultKnowledgeBase() (*KnowledgeBase, error) {
	return LoadKnowledgeBase(defaultKnowledge)
}

// LoadKnowledgeBaseFile reads a topic catalogue from disk.
func LoadKnowledgeBaseFile(path string) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base %s: %w", path, err)
	}
	return LoadKnowledgeBase(data)
}

// LoadKnowledgeBaseOrDefault loads path, or the embedded catalogue when path is empty.
func LoadKnowledgeBaseOrDefault(path string) (*KnowledgeBase, error) {
	if path == "" {
		return DefaultKnowledgeBase()
	}
	return LoadKnowledgeBaseFile(path)
}

// LoadKnowledgeBase decodes and validates a YAML topic catalogue.
func LoadKnowledgeBase(data []byte) (*KnowledgeBase, error) {
	var file knowledgeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode knowledge base: %w", err)
	}
	if len(file.Topics) == 0 {
		return nil, errors.New("knowledge base has no topics")
	}

	kb := &KnowledgeBase{
		topics: make([]*Topic, 0, len(file.Topics)),
		byKey:  make(map[TopicKey]*Topic, len(file.Topics)),
	}
	for i, topic := range file.Topics {
		if err := prepareTopic(topic); err != nil {
			return nil, fmt.Errorf("topic %d (%s): %w", i, topic.Key, err)
		}
		if _, dup := kb.byKey[topic.Key]; dup {
			return nil, fmt.Errorf("topic %d: duplicate key %q", i, topic.Key)
		}
		kb.topics = append(kb.topics, topic)
		kb.byKey[topic.Key] = topic
	}
	return kb, nil
}

func prepareTopic(t *Topic) error {
	if t == nil {
		return errors.New("empty topic")
	}
	t.Key = TopicKey(strings.TrimSpace(string(t.Key)))
	switch {
	case t.Key == "":
		return errors.New("missing key")
	case t.Key == TopicUnknown:
		return fmt.Errorf("key %q is reserved", TopicUnknown)
	case len(t.Keywords) == 0:
		return errors.New("no keywords")
	case len(t.Solutions.Basic) == 0, len(t.Solutions.Intermediate) == 0, len(t.Solutions.Advanced) == 0:
		return errors.New("every solution tier needs at least one step")
	}
	switch t.ContextBonus {
	case BonusNone, BonusApplication, BonusBrowser:
	default:
		return fmt.Errorf("unknown context_bonus %q", t.ContextBonus)
	}
	if t.Label == "" {
		t.Label = string(t.Key)
	}

	for i := range t.Keywords {
		t.Keywords[i] = strings.ToLower(t.Keywords[i])
	}
	for i := range t.Phrases {
		t.Phrases[i] = strings.ToLower(t.Phrases[i])
	}
	for i := range t.ErrorPatterns {
		re, err := regexp.Compile(t.ErrorPatterns[i].Pattern)
		if err != nil {
			return fmt.Errorf("error pattern %d: %w", i, err)
		}
		t.ErrorPatterns[i].re = re
	}
	return nil
}

// Topics returns the topics in evaluation order. Callers must not mutate them.
func (kb *KnowledgeBase) Topics() []*Topic {
	return kb.topics
}

// Topic looks up a topic by key.
func (kb *KnowledgeBase) Topic(key TopicKey) (*Topic, bool) {
	t, ok := kb.byKey[key]
	return t, ok
}

// Label returns a display label for key, falling back to the key itself.
func (kb *KnowledgeBase) Label(key TopicKey) string {
	if t, ok := kb.byKey[key]; ok {
		return t.Label
	}
	return string(key)
}
