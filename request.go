package toolgate

import "encoding/json"

// Built-in tool names the engine knows how to classify.
const (
	ToolRead         = "Read"
	ToolWrite        = "Write"
	ToolEdit         = "Edit"
	ToolNotebookEdit = "NotebookEdit"
	ToolBash         = "Bash"
	ToolGlob         = "Glob"
	ToolGrep         = "Grep"
	ToolLS           = "LS"
)

// fileModifyTools create or change file contents. The uneditable-file guard
// applies to these.
var fileModifyTools = map[string]bool{
	ToolWrite:        true,
	ToolEdit:         true,
	ToolNotebookEdit: true,
}

// gitIgnoreCheckedTools read, create, or modify file contents. The git-ignore
// protection applies to these; listing/discovery tools are exempt so the
// agent can still see ignored files, just not touch them.
var gitIgnoreCheckedTools = map[string]bool{
	ToolRead:         true,
	ToolWrite:        true,
	ToolEdit:         true,
	ToolNotebookEdit: true,
}

// Request is one tool call under evaluation. It lives only for the duration
// of a single Evaluate and is never persisted.
type Request struct {
	// ToolName identifies the tool the agent wants to invoke.
	ToolName string

	// Input is the tool's arbitrary key/value payload. File tools carry a
	// path field, the shell tool carries a command string.
	Input json.RawMessage
}
