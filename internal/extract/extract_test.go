package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain string", `"hello world"`, "hello world"},
		{"object with text", `{"text":"from text field"}`, "from text field"},
		{"object with content", `{"content":"from content field"}`, "from content field"},
		{"text wins over content", `{"text":"a","content":"b"}`, "a"},
		{"non-string text ignored", `{"text":42,"content":"fallback"}`, "fallback"},
		{"array", `[1,2,3]`, ""},
		{"number", `42`, ""},
		{"object with neither field", `{"foo":"bar"}`, ""},
		{"malformed", `{not json`, ""},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Text(json.RawMessage(tt.content)))
		})
	}
}

func TestToolCall(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		wantName string
		wantArgs string
	}{
		{"name and args", `{"name":"grep","args":{"pattern":"x"}}`, "grep", `{"pattern":"x"}`},
		{"toolName alias", `{"toolName":"bash"}`, "bash", "{}"},
		{"arguments alias", `{"name":"ls","arguments":{"path":"/"}}`, "ls", `{"path":"/"}`},
		{"input alias", `{"name":"edit","input":"raw"}`, "edit", `"raw"`},
		{"name wins over toolName", `{"name":"a","toolName":"b"}`, "a", "{}"},
		{"empty name skipped", `{"name":"","toolName":"b"}`, "b", "{}"},
		{"nothing recognizable", `{"foo":"bar"}`, UnknownToolName, "{}"},
		{"not an object", `"grep"`, UnknownToolName, "{}"},
		{"malformed", `{{{`, UnknownToolName, "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			name, args := ToolCall(json.RawMessage(tt.content))
			require.Equal(t, tt.wantName, name)
			require.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestToolResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"result field", `{"result":"42 matches"}`, "42 matches"},
		{"output field", `{"output":"done"}`, "done"},
		{"result wins over output", `{"result":"a","output":"b"}`, "a"},
		{"non-string result keeps JSON form", `{"result":{"count":3}}`, `{"count":3}`},
		{"plain string payload", `"just text"`, "just text"},
		{"object without known fields", `{"foo":1}`, `{"foo":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ToolResult(json.RawMessage(tt.content)))
		})
	}
}
