// Package devjson decodes the JSON-with-comments dialect used by
// devcontainer.json and VS Code's tasks.json: // and /* */ comments plus
// trailing commas before } or ].
package devjson

import (
	"encoding/json"
	"fmt"
)

// Decode strips comments and trailing commas from data and unmarshals the
// result into v.
func Decode(data []byte, v interface{}) error {
	if err := json.Unmarshal(Strip(data), v); err != nil {
		return fmt.Errorf("devjson: %w", err)
	}
	return nil
}

// Strip returns data with comments replaced by spaces (preserving offsets for
// error positions) and trailing commas blanked. String literals are left
// untouched.
func Strip(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)

	const (
		code = iota
		inString
		lineComment
		blockComment
	)
	state := code
	escaped := false

	for i := 0; i < len(out); i++ {
		c := out[i]
		switch state {
		case code:
			switch {
			case c == '"':
				state = inString
			case c == '/' && i+1 < len(out) && out[i+1] == '/':
				state = lineComment
				out[i] = ' '
			case c == '/' && i+1 < len(out) && out[i+1] == '*':
				state = blockComment
				out[i] = ' '
			case c == ',':
				if j := nextCode(out, i+1); j < len(out) && (out[j] == '}' || out[j] == ']') {
					out[i] = ' '
				}
			}
		case inString:
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				state = code
			}
		case lineComment:
			if c == '\n' {
				state = code
			} else {
				out[i] = ' '
			}
		case blockComment:
			if c == '*' && i+1 < len(out) && out[i+1] == '/' {
				out[i] = ' '
				out[i+1] = ' '
				i++
				state = code
			} else if c != '\n' {
				out[i] = ' '
			}
		}
	}
	return out
}

// nextCode returns the index of the next byte that is neither whitespace nor
// part of a comment, starting at i.
func nextCode(data []byte, i int) int {
	for i < len(data) {
		c := data[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == '/' && i+1 < len(data) && data[i+1] == '/':
			for i < len(data) && data[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(data) && data[i+1] == '*':
			i += 2
			for i+1 < len(data) && !(data[i] == '*' && data[i+1] == '/') {
				i++
			}
			i += 2
		default:
			return i
		}
	}
	return i
}

// Valid reports whether data parses as JSON-with-comments.
func Valid(data []byte) bool {
	var v interface{}
	return Decode(data, &v) == nil
}
