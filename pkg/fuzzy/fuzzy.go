package fuzzy

import (
	"strings"
	"unicode"
)

// LevenshteinDistance calculates the edit distance between two strings
// This measures how many single-character edits (insertions, deletions, or substitutions)
// are required to change one string into another
func LevenshteinDistance(s1, s2 string) int {
	// Normalize strings: lowercase and strip combining marks for better matching
	s1 = normalizeString(s1)
	s2 = normalizeString(s2)

	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	d := make([][]int, m+1)
	for i := range d {
		d[i] = make([]int, n+1)
	}

	for i := 0; i <= m; i++ {
		d[i][0] = i
	}
	for j := 0; j <= n; j++ {
		d[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			d[i][j] = min3(
				d[i-1][j]+1,      // deletion
				d[i][j-1]+1,      // insertion
				d[i-1][j-1]+cost, // substitution
			)
		}
	}

	return d[m][n]
}

// SimilarityRatio returns a similarity score in [0,1] between two strings:
// 1.0 for identical strings, 0.0 for completely different ones
func SimilarityRatio(s1, s2 string) float64 {
	a := normalizeString(s1)
	b := normalizeString(s2)
	if a == "" && b == "" {
		return 1.0
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := LevenshteinDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

var replyPrefixes = []string{"re:", "fwd:", "fw:", "aw:"}

// NormalizeSubject strips reply/forward prefixes and whitespace so that
// "Re: Weekly report" and "Weekly report" compare as the same conversation
func NormalizeSubject(subject string) string {
	s := strings.TrimSpace(strings.ToLower(subject))
	for changed := true; changed; {
		changed = false
		for _, prefix := range replyPrefixes {
			if strings.HasPrefix(s, prefix) {
				s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
				changed = true
			}
		}
	}
	return s
}

// SenderDomain extracts the domain part of a sender address like
// "Alice <alice@example.com>" or "alice@example.com"
func SenderDomain(sender string) string {
	s := strings.ToLower(strings.TrimSpace(sender))
	if start := strings.LastIndex(s, "<"); start >= 0 {
		if end := strings.Index(s[start:], ">"); end > 0 {
			s = s[start+1 : start+end]
		}
	}
	if at := strings.LastIndex(s, "@"); at >= 0 && at < len(s)-1 {
		return s[at+1:]
	}
	return ""
}

// normalizeString lowercases and removes combining marks
func normalizeString(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
