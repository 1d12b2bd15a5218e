package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

type listFilesInput struct {
	Path string `json:"path,omitempty" jsonschema_description:"The directory path to list files from"`
}

type bashInput struct {
	Command string `json:"command" jsonschema_description:"The bash command to execute"`
}

type editFileInput struct {
	Path   string `json:"path" jsonschema_description:"The file path to edit"`
	OldStr string `json:"old_str" jsonschema_description:"The string to replace (empty for new file)"`
	NewStr string `json:"new_str" jsonschema_description:"The string to replace with"`
}

type codeSearchInput struct {
	Pattern  string `json:"pattern" jsonschema_description:"The search pattern (regex supported)"`
	Path     string `json:"path,omitempty" jsonschema_description:"The directory to search in (default: current directory)"`
	FileType string `json:"file_type,omitempty" jsonschema_description:"File type to filter by (e.g. js, ts, py)"`
}

type webSearchInput struct {
	URL string `json:"url" jsonschema_description:"The http or https URL to fetch"`
}

// CoreTools returns the built-in tools in catalog order.
func CoreTools() []RegisteredTool {
	return []RegisteredTool{
		ListFilesTool(),
		BashTool(),
		EditFileTool(),
		CodeSearchTool(),
		WebSearchTool(),
	}
}

// NewCoreToolRegistry builds a registry of the built-in tools bound to env.
func NewCoreToolRegistry(env ExecutionEnvironment) (*ToolRegistry, error) {
	return NewToolRegistry(env, CoreTools()...)
}

// ListFilesTool lists a directory, marking subdirectories with a trailing
// slash and files with their size.
func ListFilesTool() RegisteredTool {
	return RegisteredTool{
		Spec: ToolSpec{
			Name:        "list_files",
			Description: "List files and directories at a given path. If no path is provided, lists files in the current directory.",
			InputSchema: SchemaFor(&listFilesInput{}),
		},
		Executor: func(ctx context.Context, input json.RawMessage, env ExecutionEnvironment) (string, error) {
			var in listFilesInput
			if err := decodeInput(input, &in); err != nil {
				return "", fmt.Errorf("Failed to list files: %v", err)
			}
			target := in.Path
			if target == "" {
				target = "."
			}
			entries, err := env.ListDirectory(target)
			if err != nil {
				return "", fmt.Errorf("Failed to list files: %v", err)
			}

			lines := make([]string, 0, len(entries))
			for _, e := range entries {
				if e.IsDir {
					lines = append(lines, e.Name+"/")
				} else {
					lines = append(lines, fmt.Sprintf("%s (%d bytes)", e.Name, e.Size))
				}
			}
			return fmt.Sprintf("Files in %s:\n%s", displayPath(env, target), strings.Join(lines, "\n")), nil
		},
	}
}

// BashTool runs a shell command in the working directory. A non-zero exit
// status is a failed outcome carrying stderr.
func BashTool() RegisteredTool {
	return RegisteredTool{
		Spec: ToolSpec{
			Name:        "bash",
			Description: "Execute a shell command and return its output. Use this to run shell commands safely.",
			InputSchema: SchemaFor(&bashInput{}),
		},
		Executor: func(ctx context.Context, input json.RawMessage, env ExecutionEnvironment) (string, error) {
			var in bashInput
			if err := decodeInput(input, &in); err != nil {
				return "", fmt.Errorf("Failed to execute command: %v", err)
			}
			res, err := env.ExecCommand(ctx, in.Command)
			if err != nil {
				return "", fmt.Errorf("Failed to execute command: %v", err)
			}
			if res.ExitCode != 0 {
				detail := res.Stderr
				if detail == "" {
					detail = res.Stdout
				}
				return "", fmt.Errorf("Command failed with exit code %d: %s", res.ExitCode, detail)
			}
			if res.Stdout == "" {
				return "(no output)", nil
			}
			return res.Stdout, nil
		},
	}
}

// EditFileTool replaces the first occurrence of old_str with new_str, or
// creates the file when old_str is empty.
func EditFileTool() RegisteredTool {
	return RegisteredTool{
		Spec: ToolSpec{
			Name:        "edit_file",
			Description: "Edit a file by replacing old_str with new_str. If old_str is empty, creates a new file with new_str content.",
			InputSchema: SchemaFor(&editFileInput{}),
		},
		Executor: func(ctx context.Context, input json.RawMessage, env ExecutionEnvironment) (string, error) {
			var in editFileInput
			if err := decodeInput(input, &in); err != nil {
				return "", fmt.Errorf("Failed to edit file: %v", err)
			}

			if in.OldStr == "" {
				if err := env.WriteFile(in.Path, in.NewStr); err != nil {
					return "", fmt.Errorf("Failed to edit file: %v", err)
				}
				return fmt.Sprintf("Created new file: %s (%d bytes)", in.Path, len(in.NewStr)), nil
			}

			content, err := env.ReadFile(in.Path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return "", fmt.Errorf("File does not exist: %s", in.Path)
				}
				return "", fmt.Errorf("Failed to edit file: %v", err)
			}
			if !strings.Contains(content, in.OldStr) {
				return "", fmt.Errorf("String not found in file: \"%s\"", in.OldStr)
			}
			if err := env.WriteFile(in.Path, strings.Replace(content, in.OldStr, in.NewStr, 1)); err != nil {
				return "", fmt.Errorf("Failed to edit file: %v", err)
			}
			return "Successfully edited file: " + in.Path, nil
		},
	}
}

// CodeSearchTool searches with ripgrep. No matches is a successful outcome.
func CodeSearchTool() RegisteredTool {
	return RegisteredTool{
		Spec: ToolSpec{
			Name:        "code_search",
			Description: "Search for code patterns using ripgrep. Use this to find code patterns, function definitions, variable usage, or any text in the codebase.",
			InputSchema: SchemaFor(&codeSearchInput{}),
		},
		Executor: func(ctx context.Context, input json.RawMessage, env ExecutionEnvironment) (string, error) {
			var in codeSearchInput
			if err := decodeInput(input, &in); err != nil {
				return "", fmt.Errorf("Failed to search code: %v", err)
			}
			res, err := env.Search(ctx, in.Pattern, in.Path, SearchOptions{FileType: in.FileType})
			if err != nil {
				return "", fmt.Errorf("Failed to search code: %v", err)
			}

			switch res.ExitCode {
			case 0:
				lines := strings.Split(strings.TrimSpace(res.Stdout), "\n")
				return fmt.Sprintf("Found %d matches for pattern: %s\n\n%s", len(lines), in.Pattern, res.Stdout), nil
			case 1:
				return "No matches found for pattern: " + in.Pattern, nil
			default:
				detail := res.Stderr
				if detail == "" {
					detail = "Unknown error"
				}
				return "", fmt.Errorf("Search failed: %s", detail)
			}
		},
	}
}

// WebSearchTool fetches a URL and returns its readable text.
func WebSearchTool() RegisteredTool {
	return RegisteredTool{
		Spec: ToolSpec{
			Name:        "web_search",
			Description: "Fetch a web page by URL and return its text content. Use this to read documentation or other online references.",
			InputSchema: SchemaFor(&webSearchInput{}),
		},
		Executor: func(ctx context.Context, input json.RawMessage, env ExecutionEnvironment) (string, error) {
			var in webSearchInput
			if err := decodeInput(input, &in); err != nil {
				return "", fmt.Errorf("Failed to fetch url: %v", err)
			}
			res, err := env.Fetch(ctx, in.URL)
			if err != nil {
				return "", fmt.Errorf("Failed to fetch url: %v", err)
			}
			if res.StatusCode < 200 || res.StatusCode > 299 {
				return "", fmt.Errorf("Fetch failed with status %d", res.StatusCode)
			}
			text := res.Text
			if text == "" {
				text = "(empty response)"
			}
			if res.Truncated {
				text += "\n\n[content truncated]"
			}
			return text, nil
		},
	}
}

// displayPath resolves path against the environment's working directory.
func displayPath(env ExecutionEnvironment, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(env.WorkingDirectory(), path)
}
