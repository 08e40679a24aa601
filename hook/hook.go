// Package hook defines the payload the host agent writes on stdin when it
// dispatches a lifecycle hook, and the exit-code contract the dispatcher
// answers with.
package hook

import (
	"encoding/json"
	"fmt"
	"io"
)

// Event identifies which hook is being dispatched.
type Event string

const (
	PreToolUse       Event = "PreToolUse"
	PostToolUse      Event = "PostToolUse"
	Stop             Event = "Stop"
	SubagentStop     Event = "SubagentStop"
	Notification     Event = "Notification"
	SessionStart     Event = "SessionStart"
	SessionEnd       Event = "SessionEnd"
	UserPromptSubmit Event = "UserPromptSubmit"
)

// Exit codes the host maps back to a verdict.
const (
	ExitAllow = 0 // tool call may proceed
	ExitBlock = 2 // tool call is blocked; stderr carries the reason
)

// Payload is the JSON document received on stdin for one hook dispatch.
type Payload struct {
	SessionID string `json:"session_id,omitempty"`
	Event     Event  `json:"hook_event_name,omitempty"`
	Cwd       string `json:"cwd,omitempty"`

	// Tool-related events.
	ToolName  string          `json:"tool_name,omitempty"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`

	// Notification.
	Message string `json:"message,omitempty"`
}

// Decode reads one payload from r.
func Decode(r io.Reader) (*Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("hook: decoding payload: %w", err)
	}
	return &p, nil
}
