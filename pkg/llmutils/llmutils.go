// Package llmutils cleans model output before it is returned as an agent
// result.
package llmutils

import "strings"

const fence = "```"

// TrimBackticks removes a ``` code fence, with an optional language tag on
// the opening line, from around the text. Text without a fence is returned
// unchanged.
func TrimBackticks(text string) string {
	start := strings.Index(text, fence)
	if start == -1 {
		return text
	}

	inner := text[start+len(fence):]
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		inner = inner[nl+1:]
	}
	if end := strings.LastIndex(inner, fence); end >= 0 {
		inner = inner[:end]
	}
	return strings.TrimSpace(inner)
}
