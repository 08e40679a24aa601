package hook_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armatrix/toolgate/hook"
)

func TestDecode(t *testing.T) {
	in := `{
		"session_id": "sess_1",
		"hook_event_name": "PreToolUse",
		"cwd": "/work/project",
		"tool_name": "Bash",
		"tool_input": {"command": "git status"}
	}`

	p, err := hook.Decode(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "sess_1", p.SessionID)
	assert.Equal(t, hook.PreToolUse, p.Event)
	assert.Equal(t, "/work/project", p.Cwd)
	assert.Equal(t, "Bash", p.ToolName)
	assert.JSONEq(t, `{"command": "git status"}`, string(p.ToolInput))
}

func TestDecode_Malformed(t *testing.T) {
	_, err := hook.Decode(strings.NewReader("not json"))
	require.Error(t, err)
}
