package providers

// ExtractJSONObject returns the first complete top-level JSON object found
// in free-form model output. Models wrap structured replies in prose or
// markdown fences, so callers cannot unmarshal the raw text directly; this
// scans for a balanced brace pair instead, respecting string literals and
// escapes. The second return is false when no balanced object exists.
func ExtractJSONObject(text string) (string, bool) {
	for pos := 0; pos < len(text); pos++ {
		if text[pos] != '{' {
			continue
		}
		end := findMatchingBrace(text, pos)
		if end > pos {
			return text[pos:end], true
		}
	}
	return "", false
}

// findMatchingBrace returns the index one past the brace matching the
// opening brace at pos, or pos when the object never closes.
func findMatchingBrace(text string, pos int) int {
	if pos < 0 || pos >= len(text) || text[pos] != '{' {
		return pos
	}

	depth := 0
	inString := false
	escaped := false

	for i := pos; i < len(text); i++ {
		char := text[i]

		if inString {
			if escaped {
				escaped = false
			} else if char == '\\' {
				escaped = true
			} else if char == '"' {
				inString = false
			}
			continue
		}

		if char == '"' {
			inString = true
			continue
		}

		if char == '{' {
			depth++
		} else if char == '}' {
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return pos
}
