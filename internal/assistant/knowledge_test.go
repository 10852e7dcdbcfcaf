package assistant

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalTopic = `
topics:
  - key: vpn
    label: VPN
    keywords: [VPN, Tunnel]
    phrases: [Kobler Ikke Til]
    error_patterns:
      - pattern: 'handshake'
        explanation: Handshake failed.
    solutions:
      basic: [Reconnect]
      intermediate: [Reinstall client]
      advanced: [Collect logs]
`

func TestDefaultKnowledgeBase(t *testing.T) {
	kb, err := DefaultKnowledgeBase()
	require.NoError(t, err)

	var keys []TopicKey
	for _, topic := range kb.Topics() {
		keys = append(keys, topic.Key)
		assert.NotEmpty(t, topic.Questions, topic.Key)
		assert.NotEmpty(t, topic.Opening, topic.Key)
	}
	assert.Equal(t, []TopicKey{"feide", "wifi", "utskrift", "passord", "m365", "nettleser"}, keys)

	m365, ok := kb.Topic("m365")
	require.True(t, ok)
	assert.Equal(t, BonusApplication, m365.ContextBonus)
	assert.Equal(t, "Microsoft 365", kb.Label("m365"))
	assert.Equal(t, "unknown", kb.Label(TopicUnknown))
}

func TestLoadKnowledgeBase_NormalizesTopic(t *testing.T) {
	kb, err := LoadKnowledgeBase([]byte(minimalTopic))
	require.NoError(t, err)

	topic, ok := kb.Topic("vpn")
	require.True(t, ok)
	assert.Equal(t, []string{"vpn", "tunnel"}, topic.Keywords)
	assert.Equal(t, []string{"kobler ikke til"}, topic.Phrases)

	explanation, ok := topic.ExplainError("TLS Handshake timeout")
	assert.True(t, ok)
	assert.Equal(t, "Handshake failed.", explanation)
	assert.Equal(t, []string{"Collect logs"}, topic.Solutions.Steps(TierAdvanced))
}

func TestLoadKnowledgeBase_Rejects(t *testing.T) {
	tests := map[string]string{
		"no topics":    "topics: []",
		"not yaml":     "topics: [",
		"missing key":  "topics:\n  - keywords: [a]\n    solutions: {basic: [a], intermediate: [b], advanced: [c]}",
		"reserved key": "topics:\n  - key: unknown\n    keywords: [a]\n    solutions: {basic: [a], intermediate: [b], advanced: [c]}",
		"no keywords":  "topics:\n  - key: a\n    solutions: {basic: [a], intermediate: [b], advanced: [c]}",
		"empty tier":   "topics:\n  - key: a\n    keywords: [a]\n    solutions: {basic: [a], intermediate: [], advanced: [c]}",
		"bad bonus":    "topics:\n  - key: a\n    context_bonus: os\n    keywords: [a]\n    solutions: {basic: [a], intermediate: [b], advanced: [c]}",
		"bad pattern":  "topics:\n  - key: a\n    keywords: [a]\n    error_patterns: [{pattern: '(', explanation: x}]\n    solutions: {basic: [a], intermediate: [b], advanced: [c]}",
		"duplicate key": "topics:\n" +
			"  - key: a\n    keywords: [a]\n    solutions: {basic: [a], intermediate: [b], advanced: [c]}\n" +
			"  - key: a\n    keywords: [b]\n    solutions: {basic: [a], intermediate: [b], advanced: [c]}",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadKnowledgeBase([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadKnowledgeBaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalTopic), 0o600))

	kb, err := LoadKnowledgeBaseFile(path)
	require.NoError(t, err)
	assert.Len(t, kb.Topics(), 1)

	_, err = LoadKnowledgeBaseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
