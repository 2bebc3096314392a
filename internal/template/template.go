// Package template renders {{key}} placeholders in assistant prompt and
// start-instruction text using caller-supplied session metadata.
//
// The engine is deliberately tolerant: a placeholder whose key is absent from
// the metadata mapping is left in the output as literal text so that malformed
// or partial metadata never blocks a session from starting. Substituted values
// are never rescanned for placeholders, so metadata cannot trigger recursive
// expansion.
package template

import "strings"

// Render replaces every {{key}} occurrence in text with metadata[key].
//
// Rules:
//   - A key not present in metadata leaves the placeholder untouched.
//   - Whitespace inside the braces is trimmed, so {{ name }} and {{name}}
//     resolve the same key.
//   - Substituted values are copied verbatim; they are not scanned for
//     further placeholders.
//
// Render is idempotent on text containing no resolvable placeholders.
func Render(text string, metadata map[string]string) string {
	if text == "" || !strings.Contains(text, "{{") {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	for {
		open := strings.Index(text, "{{")
		if open < 0 {
			b.WriteString(text)
			break
		}
		end := strings.Index(text[open:], "}}")
		if end < 0 {
			// Unterminated placeholder: emit the rest verbatim.
			b.WriteString(text)
			break
		}
		end += open

		b.WriteString(text[:open])

		placeholder := text[open : end+2]
		key := strings.TrimSpace(text[open+2 : end])

		if value, ok := metadata[key]; ok {
			b.WriteString(value)
		} else {
			b.WriteString(placeholder)
		}

		text = text[end+2:]
	}

	return b.String()
}
