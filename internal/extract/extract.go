// Package extract pulls the relevant target string out of a tool-call input
// payload: the command for the shell tool, the file path for file tools.
package extract

import (
	"encoding/json"
	"strings"
)

// Command returns the shell command string from a Bash tool input.
// A missing, empty, or whitespace-only command reports ok=false.
func Command(input json.RawMessage) (string, bool) {
	var payload struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(input, &payload); err != nil {
		return "", false
	}
	cmd := strings.TrimSpace(payload.Command)
	if cmd == "" {
		return "", false
	}
	return cmd, true
}

// pathKeys maps tool names to the input field carrying the target path.
var pathKeys = map[string]string{
	"Read":         "file_path",
	"Write":        "file_path",
	"Edit":         "file_path",
	"NotebookEdit": "notebook_path",
	"Glob":         "path",
	"Grep":         "path",
	"LS":           "path",
}

// FilePath returns the target path from a file-tool input. Unknown tools fall
// back to file_path, then path. A missing or empty field reports ok=false.
func FilePath(toolName string, input json.RawMessage) (string, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(input, &fields); err != nil {
		return "", false
	}

	keys := []string{"file_path", "path"}
	if key, ok := pathKeys[toolName]; ok {
		keys = []string{key}
	}

	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var p string
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		if p = strings.TrimSpace(p); p != "" {
			return p, true
		}
	}
	return "", false
}
