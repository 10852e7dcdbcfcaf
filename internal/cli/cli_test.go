package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/assistant"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123")
	t.Cleanup(func() { SetVersionInfo("dev", "none") })

	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "helpdeskctl 1.2.3\ncommit: abc123\n", out)
}

func TestClassify(t *testing.T) {
	out, err := execute(t, "", "classify", "--scores", "wifi", "fungerer", "ikke")
	require.NoError(t, err)

	assert.Contains(t, out, "topic: wifi\n")
	assert.Contains(t, out, "confidence: 0.40\n")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Greater(t, len(lines), 3)
	assert.Equal(t, "wifi", strings.Fields(lines[3])[0], "highest score is listed first")
}

func TestClassify_RequiresText(t *testing.T) {
	_, err := execute(t, "", "classify")
	assert.Error(t, err)
}

func TestKBList(t *testing.T) {
	out, err := execute(t, "", "kb", "list")
	require.NoError(t, err)

	kb, err := assistant.DefaultKnowledgeBase()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, len(kb.Topics())+1)
	assert.True(t, strings.HasPrefix(lines[0], "KEY"))
	for i, topic := range kb.Topics() {
		assert.Equal(t, string(topic.Key), strings.Fields(lines[i+1])[0])
	}
}

func TestKBCheck(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "kb.yaml")
	require.NoError(t, os.WriteFile(valid, []byte(`topics:
  - key: vpn
    label: VPN
    keywords: [vpn]
    solutions:
      basic: [Reconnect]
      intermediate: [Reinstall the client]
      advanced: [Contact the network team]
`), 0o600))

	out, err := execute(t, "", "kb", "check", valid)
	require.NoError(t, err)
	assert.Equal(t, "ok: 1 topics\n", out)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("topics:\n  - key: vpn\n"), 0o600))
	_, err = execute(t, "", "kb", "check", broken)
	assert.ErrorContains(t, err, "vpn")
}

func TestKBFlag_UsesCustomCatalogue(t *testing.T) {
	_, err := execute(t, "", "--kb", filepath.Join(t.TempDir(), "missing.yaml"), "kb", "list")
	assert.ErrorContains(t, err, "read knowledge base")
}

func TestChat(t *testing.T) {
	out, err := execute(t, "wifi fungerer ikke\n\n/reset\n/quit\nnot read\n", "chat", "--verbose")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, assistant.PromptMessage+"\n"))
	assert.Contains(t, out, "[topic=wifi kind=answer")
	assert.Contains(t, out, assistant.ResetMessage)
	assert.Equal(t, 2, strings.Count(out, assistant.PromptMessage), "blank line gets the prompt again")
	assert.NotContains(t, out, "not read")
}

func TestChat_EndOfInput(t *testing.T) {
	out, err := execute(t, "", "chat")
	require.NoError(t, err)
	assert.Equal(t, assistant.PromptMessage+"\n> \n", out)
}
