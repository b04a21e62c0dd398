package message

import (
	"encoding/json"
	"fmt"

	"github.com/sessionvault/sessionvault/internal/extract"
)

// Part is one ordered content fragment of a message. Payloads are decoded
// into a tagged variant once at ingestion instead of being re-sniffed on
// every read; shapes nothing recognizes survive as RawPart.
type Part interface {
	isPart()
}

type TextPart struct {
	Text string `json:"text"`
}

func (TextPart) isPart() {}

type ToolCallPart struct {
	Name string `json:"name"`
	Args string `json:"args"`
}

func (ToolCallPart) isPart() {}

type ToolResultPart struct {
	Result string `json:"result"`
}

func (ToolResultPart) isPart() {}

type RawPart struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

func (RawPart) isPart() {}

// IncomingPart is the wire shape plugins deliver: a type tag plus an
// arbitrary payload.
type IncomingPart struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

const (
	partTypeText       = "text"
	partTypeToolCall   = "tool_call"
	partTypeToolResult = "tool_result"
)

// DecodePart normalizes an incoming part into its tagged variant via the
// content extractor. It never fails; unknown type tags keep their raw payload.
func DecodePart(p IncomingPart) Part {
	switch p.Type {
	case partTypeText:
		return TextPart{Text: extract.Text(p.Content)}
	case partTypeToolCall, "tool-call", "tool-invocation":
		name, args := extract.ToolCall(p.Content)
		return ToolCallPart{Name: name, Args: args}
	case partTypeToolResult, "tool-result":
		return ToolResultPart{Result: extract.ToolResult(p.Content)}
	default:
		return RawPart{Type: p.Type, Content: append(json.RawMessage(nil), p.Content...)}
	}
}

// encodePart maps a variant to its storage row (canonical type tag plus a
// JSON content column).
func encodePart(p Part) (typ, content string, err error) {
	switch v := p.(type) {
	case TextPart:
		typ = partTypeText
	case ToolCallPart:
		typ = partTypeToolCall
	case ToolResultPart:
		typ = partTypeToolResult
	case RawPart:
		return v.Type, string(v.Content), nil
	default:
		return "", "", fmt.Errorf("unknown part type: %T", p)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", "", err
	}
	return typ, string(data), nil
}

func decodeStoredPart(typ, content string) (Part, error) {
	switch typ {
	case partTypeText:
		var p TextPart
		if err := json.Unmarshal([]byte(content), &p); err != nil {
			return nil, err
		}
		return p, nil
	case partTypeToolCall:
		var p ToolCallPart
		if err := json.Unmarshal([]byte(content), &p); err != nil {
			return nil, err
		}
		return p, nil
	case partTypeToolResult:
		var p ToolResultPart
		if err := json.Unmarshal([]byte(content), &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return RawPart{Type: typ, Content: json.RawMessage(content)}, nil
	}
}
