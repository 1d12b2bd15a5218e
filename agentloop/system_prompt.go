package agentloop

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const maxProjectDocBytes = 32 * 1024

const basePrompt = `You are a helpful coding assistant with access to the following tools:

%s

You can use these tools to help users with coding tasks like:
- Reading and editing files
- Executing shell commands
- Searching through codebases
- Listing directory contents
- Reading web pages

When a user asks for help, think about which tools would be most helpful and use them to accomplish the task.

Important guidelines:
- Always use tools when they would be helpful
- Provide clear explanations of what you're doing
- Be careful with destructive operations
- Ask for confirmation before making significant changes

Current working directory: %s
Operating system: %s`

// PromptOptions tunes BuildSystemPrompt.
type PromptOptions struct {
	Provider         string // selects provider-specific instruction files
	Model            string
	UserInstructions string // appended last
	SkipGitContext   bool
}

// BuildSystemPrompt assembles the system prompt: base instructions with
// the tool list, environment context, git context, project instruction
// files and finally user instructions.
func BuildSystemPrompt(env ExecutionEnvironment, catalog []ToolSpec, opts PromptOptions) string {
	toolLines := make([]string, 0, len(catalog))
	for _, spec := range catalog {
		toolLines = append(toolLines, fmt.Sprintf("- %s: %s", spec.Name, spec.Description))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, basePrompt, strings.Join(toolLines, "\n"), env.WorkingDirectory(), env.Platform())
	sb.WriteString("\n\n")
	sb.WriteString(BuildEnvironmentContext(env, opts.Model))

	if !opts.SkipGitContext {
		if gitCtx := GetGitContext(env.WorkingDirectory()); gitCtx != "" {
			sb.WriteString("\n\n")
			sb.WriteString(gitCtx)
		}
	}

	if docs := DiscoverProjectDocs(env.WorkingDirectory(), opts.Provider); docs != "" {
		sb.WriteString("\n\n# Project Instructions\n\n")
		sb.WriteString(docs)
	}

	if opts.UserInstructions != "" {
		sb.WriteString("\n\n# User Instructions\n\n")
		sb.WriteString(opts.UserInstructions)
	}
	return sb.String()
}

// BuildEnvironmentContext renders the <environment> block.
func BuildEnvironmentContext(env ExecutionEnvironment, model string) string {
	dir := env.WorkingDirectory()
	lines := []string{
		"<environment>",
		"Working directory: " + dir,
		fmt.Sprintf("Is git repository: %t", gitRoot(dir) != ""),
		"Platform: " + env.Platform(),
		"OS version: " + env.OSVersion(),
		"Today's date: " + time.Now().Format("2006-01-02"),
	}
	if model != "" {
		lines = append(lines, "Model: "+model)
	}
	lines = append(lines, "</environment>")
	return strings.Join(lines, "\n")
}

// projectDocNames returns the instruction files read for provider.
func projectDocNames(provider string) []string {
	names := []string{"AGENTS.md"}
	switch provider {
	case "anthropic":
		names = append(names, "CLAUDE.md")
	case "openai":
		names = append(names, filepath.Join(".codex", "instructions.md"))
	}
	return names
}

// DiscoverProjectDocs concatenates the project instruction files found in
// each directory from the repository root (or workingDir outside git) down
// to workingDir. Outer directories come first. The total is capped at 32KB.
func DiscoverProjectDocs(workingDir string, provider string) string {
	root := gitRoot(workingDir)
	if root == "" {
		root = workingDir
	}

	const truncated = "[Project instructions truncated at 32KB]"
	budget := maxProjectDocBytes
	var sections []string
	for _, dir := range collectPathHierarchy(root, workingDir) {
		for _, name := range projectDocNames(provider) {
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				continue
			}
			if budget <= 0 {
				return strings.Join(append(sections, truncated), "\n\n---\n\n")
			}
			body := string(data)
			if len(body) > budget {
				body = body[:budget] + "\n" + truncated
			}
			budget -= len(data)
			sections = append(sections, fmt.Sprintf("## %s (from %s)\n\n%s", name, dir, body))
		}
	}
	return strings.Join(sections, "\n\n---\n\n")
}

// GetGitContext summarizes branch, dirty file count and recent commits, or
// returns "" outside a repository.
func GetGitContext(workingDir string) string {
	root := gitRoot(workingDir)
	if root == "" {
		return ""
	}

	lines := []string{"<git_context>"}
	if branch := strings.TrimSpace(runGitCommand(root, "rev-parse", "--abbrev-ref", "HEAD")); branch != "" {
		lines = append(lines, "Branch: "+branch)
	}
	if status := strings.TrimSpace(runGitCommand(root, "status", "--porcelain")); status != "" {
		lines = append(lines, fmt.Sprintf("Modified/untracked files: %d", strings.Count(status, "\n")+1))
	}
	if commits := strings.TrimSpace(runGitCommand(root, "log", "--oneline", "-10")); commits != "" {
		lines = append(lines, "Recent commits:", commits)
	}
	lines = append(lines, "</git_context>")
	return strings.Join(lines, "\n")
}

// collectPathHierarchy lists root and every directory below it on the way
// to target. A target outside root yields just root.
func collectPathHierarchy(root, target string) []string {
	root, target = filepath.Clean(root), filepath.Clean(target)
	var dirs []string
	for dir := target; ; dir = filepath.Dir(dir) {
		dirs = append(dirs, dir)
		if dir == root {
			break
		}
		if parent := filepath.Dir(dir); parent == dir {
			return []string{root}
		}
	}
	for i, j := 0, len(dirs)-1; i < j; i, j = i+1, j-1 {
		dirs[i], dirs[j] = dirs[j], dirs[i]
	}
	return dirs
}

func gitRoot(dir string) string {
	return strings.TrimSpace(runGitCommand(dir, "rev-parse", "--show-toplevel"))
}

// runGitCommand returns git's stdout, or "" on any failure.
func runGitCommand(dir string, args ...string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return string(out)
}
