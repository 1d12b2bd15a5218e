package agentloop

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSystemPrompt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AGENTS.md"), []byte("Use tabs."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CLAUDE.md"), []byte("Be brief."), 0644))
	env := NewLocalExecutionEnvironment(dir)

	catalog := []ToolSpec{BashTool().Spec, EditFileTool().Spec}
	prompt := BuildSystemPrompt(env, catalog, PromptOptions{
		Provider:         "anthropic",
		Model:            "claude-sonnet-4-5-20250929",
		UserInstructions: "Answer in French.",
		SkipGitContext:   true,
	})

	assert.Contains(t, prompt, "You are a helpful coding assistant with access to the following tools:")
	assert.Contains(t, prompt, "- bash: Execute a shell command")
	assert.Contains(t, prompt, "- edit_file: Edit a file")
	assert.Contains(t, prompt, "Current working directory: "+env.WorkingDirectory())
	assert.Contains(t, prompt, "Operating system: "+env.Platform())
	assert.Contains(t, prompt, "<environment>")
	assert.Contains(t, prompt, "Model: claude-sonnet-4-5-20250929")
	assert.Contains(t, prompt, "Use tabs.")
	assert.Contains(t, prompt, "Be brief.")
	assert.Contains(t, prompt, "# User Instructions\n\nAnswer in French.")
}

func TestDiscoverProjectDocsFiltersByProvider(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AGENTS.md"), []byte("shared"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CLAUDE.md"), []byte("claude only"), 0644))

	docs := DiscoverProjectDocs(dir, "openai")
	assert.Contains(t, docs, "shared")
	assert.NotContains(t, docs, "claude only")

	assert.Empty(t, DiscoverProjectDocs(t.TempDir(), "anthropic"))
}

func TestCollectPathHierarchy(t *testing.T) {
	assert.Equal(t, []string{"/a"}, collectPathHierarchy("/a", "/a"))
	assert.Equal(t, []string{"/a", "/a/b", "/a/b/c"}, collectPathHierarchy("/a", "/a/b/c"))
	assert.Equal(t, []string{"/a"}, collectPathHierarchy("/a", "/other"))
}
