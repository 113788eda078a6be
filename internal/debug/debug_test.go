package debug

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveAndRestoreState() func() {
	originalDebug := EnableDebug
	originalMode := MCPMode
	originalOutput := debugOutput
	originalFile := debugFile
	return func() {
		EnableDebug = originalDebug
		MCPMode = originalMode
		debugOutput = originalOutput
		debugFile = originalFile
	}
}

func TestIsDebugEnabled(t *testing.T) {
	defer saveAndRestoreState()()
	t.Setenv("DEBUG", "")

	EnableDebug = "false"
	MCPMode = false
	assert.False(t, IsDebugEnabled())

	EnableDebug = "true"
	assert.True(t, IsDebugEnabled())

	MCPMode = true
	assert.False(t, IsDebugEnabled(), "MCP mode always wins")
}

func TestIsDebugEnabled_Env(t *testing.T) {
	defer saveAndRestoreState()()
	EnableDebug = "false"
	MCPMode = false

	t.Setenv("DEBUG", "1")
	assert.True(t, IsDebugEnabled())
	t.Setenv("DEBUG", "yes")
	assert.False(t, IsDebugEnabled())
}

func TestLog(t *testing.T) {
	defer saveAndRestoreState()()

	var buf bytes.Buffer
	SetDebugOutput(&buf)
	EnableDebug = "true"
	MCPMode = false

	LogDetect("field %s owner %s\n", "_logger", "MyClass")
	LogRepair("edits=%d\n", 2)

	out := buf.String()
	assert.Contains(t, out, "[DEBUG:DETECT] field _logger owner MyClass")
	assert.Contains(t, out, "[DEBUG:REPAIR] edits=2")
}

func TestLog_MCPModeSilent(t *testing.T) {
	defer saveAndRestoreState()()

	var buf bytes.Buffer
	SetDebugOutput(&buf)
	EnableDebug = "true"
	MCPMode = true

	LogMCP("should not appear")
	Printf("nor this")
	assert.Empty(t, buf.String())
}

func TestFatalReturnsError(t *testing.T) {
	defer saveAndRestoreState()()

	var buf bytes.Buffer
	SetDebugOutput(&buf)
	MCPMode = false

	err := Fatal("cannot %s", "continue")
	require.Error(t, err)
	assert.Equal(t, "fatal error: cannot continue", err.Error())
	assert.Contains(t, buf.String(), "[FATAL] cannot continue")
}

func TestInitDebugLogFile(t *testing.T) {
	defer saveAndRestoreState()()

	path, err := InitDebugLogFile()
	require.NoError(t, err)
	defer os.Remove(path)

	EnableDebug = "true"
	MCPMode = false
	Log(ComponentConfig, "loaded\n")
	require.NoError(t, CloseDebugLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG:CONFIG] loaded")
}
