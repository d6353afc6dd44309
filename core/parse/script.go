package parse

import (
	"strings"
)

// scriptEnvelope is the JSON shape some models use when asked for code.
type scriptEnvelope struct {
	Script string `json:"script"`
	Code   string `json:"code"`
}

// ExtractCodeBlock returns the body of the first fenced code block in
// content. The language tag after the opening fence is dropped. An unclosed
// fence yields everything after it. Without a fence, content is returned
// trimmed.
func ExtractCodeBlock(content string) string {
	start := strings.Index(content, "```")
	if start < 0 {
		return strings.TrimSpace(content)
	}

	body := content[start+3:]
	if newline := strings.IndexByte(body, '\n'); newline >= 0 {
		// first line is the language tag, possibly empty
		if tag := strings.TrimSpace(body[:newline]); !strings.ContainsAny(tag, " \t") {
			body = body[newline+1:]
		}
	}

	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// ExtractScript unwraps a model reply into the script it carries: a JSON
// envelope with a "script" or "code" field is opened first, then code fences
// are stripped. The result is empty when the reply holds no code.
func ExtractScript(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") {
		if env, err := ParseStringAs[scriptEnvelope](trimmed); err == nil {
			switch {
			case strings.TrimSpace(env.Script) != "":
				return ExtractCodeBlock(env.Script)
			case strings.TrimSpace(env.Code) != "":
				return ExtractCodeBlock(env.Code)
			}
		}
	}
	return ExtractCodeBlock(trimmed)
}
