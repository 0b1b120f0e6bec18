package normalize

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Text returns the matching form of a user prompt: NFKC-folded, with
// invisible and control characters removed and runs of whitespace
// collapsed to a single space. Fullwidth letters, ligatures and similar
// compatibility forms therefore match the plain ASCII rule literals.
func Text(input string) string {
	folded := norm.NFKC.String(input)

	var sb strings.Builder
	sb.Grow(len(folded))
	space := false
	for _, r := range folded {
		if isInvisible(r) || isUnsafeControl(r) {
			continue
		}
		if unicode.IsSpace(r) {
			if !space && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		sb.WriteRune(r)
	}
	return strings.TrimRight(sb.String(), " ")
}

func isInvisible(r rune) bool {
	switch r {
	case '\u200B', // ZERO WIDTH SPACE
		'\u200C', // ZERO WIDTH NON-JOINER
		'\u200D', // ZERO WIDTH JOINER
		'\uFEFF', // BOM
		'\u2060', // WORD JOINER
		'\u180E', // MONGOLIAN VOWEL SEPARATOR
		'\u200E', // LRM
		'\u200F': // RLM
		return true
	}
	// Bidi embeddings, overrides and isolates
	if (r >= '\u202A' && r <= '\u202E') || (r >= '\u2066' && r <= '\u2069') {
		return true
	}
	// Tag characters
	return r >= 0xE0001 && r <= 0xE007F
}

func isUnsafeControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return r <= 0x1F || r == 0x7F || (r >= 0x80 && r <= 0x9F)
}

// Files turns the file list of a validation request into clean absolute
// paths relative to cwd, expanding "~/" and dropping blanks and duplicates.
// Order of first appearance is preserved.
func Files(files []string, cwd string) []string {
	homeDir, _ := os.UserHomeDir()

	out := make([]string, 0, len(files))
	for _, f := range files {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		out = append(out, expandPath(f, cwd, homeDir))
	}
	return uniqueStrings(out)
}

func expandPath(path, cwd, homeDir string) string {
	if strings.HasPrefix(path, "~/") && homeDir != "" {
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) && cwd != "" {
		path = filepath.Join(cwd, path)
	}

	return filepath.Clean(path)
}

func uniqueStrings(input []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(input))
	for _, s := range input {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}
