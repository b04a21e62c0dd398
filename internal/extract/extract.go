// Package extract normalizes the polymorphic content payloads plugins attach
// to message parts. Plugins send whatever shape their host tool produces, so
// every function here degrades to an empty or placeholder value instead of
// returning an error.
package extract

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// UnknownToolName is used when a tool-call payload carries no recognizable name.
const UnknownToolName = "Unknown Tool"

// Text flattens a part payload into plain text. A JSON string is returned
// as-is; an object contributes its "text" field, falling back to "content".
// Anything else yields an empty string.
func Text(content json.RawMessage) string {
	v := gjson.ParseBytes(content)
	switch {
	case v.Type == gjson.String:
		return v.String()
	case v.IsObject():
		if text := v.Get("text"); text.Type == gjson.String {
			return text.String()
		}
		if inner := v.Get("content"); inner.Type == gjson.String {
			return inner.String()
		}
	}
	return ""
}

// ToolCall pulls a display-ready (name, args) pair out of a tool-call payload.
// Args are returned as a JSON document, defaulting to an empty object.
func ToolCall(content json.RawMessage) (name, args string) {
	name = UnknownToolName
	args = "{}"

	v := gjson.ParseBytes(content)
	if !v.IsObject() {
		return name, args
	}
	for _, key := range []string{"name", "toolName"} {
		if r := v.Get(key); r.Type == gjson.String && r.String() != "" {
			name = r.String()
			break
		}
	}
	for _, key := range []string{"args", "arguments", "input"} {
		if r := v.Get(key); r.Exists() {
			args = r.Raw
			break
		}
	}
	return name, args
}

// ToolResult flattens a tool-result payload into a string, preferring the
// "result" and "output" fields and falling back to the payload itself.
// Non-string values come back as their JSON form.
func ToolResult(content json.RawMessage) string {
	v := gjson.ParseBytes(content)
	if v.IsObject() {
		for _, key := range []string{"result", "output"} {
			if r := v.Get(key); r.Exists() {
				return stringify(r)
			}
		}
	}
	return stringify(v)
}

func stringify(r gjson.Result) string {
	if r.Type == gjson.String {
		return r.String()
	}
	return r.Raw
}
