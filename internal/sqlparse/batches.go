// ABOUTME: Splits T-SQL scripts into executable batches on GO separators
// ABOUTME: Also recovers statements that were placed in one batch without a separator
package sqlparse

import (
	"regexp"
	"strings"
)

var statementStart = regexp.MustCompile(`(?i)^\s*(SELECT|INSERT|UPDATE|DELETE|CREATE|DROP|ALTER)\b`)

// SplitBatches splits sql on lines consisting only of GO, then starts a new
// batch at every line that begins a statement while one is already open.
// Empty batches are discarded.
func SplitBatches(sql string) []string {
	var batches []string
	for _, segment := range splitOnGO(sql) {
		var current []string
		flush := func() {
			if stmt := strings.TrimSpace(strings.Join(current, "\n")); stmt != "" {
				batches = append(batches, stmt)
			}
			current = nil
		}
		for _, line := range strings.Split(strings.TrimSpace(segment), "\n") {
			if statementStart.MatchString(line) && len(current) > 0 {
				flush()
			}
			current = append(current, line)
		}
		flush()
	}
	return batches
}

func splitOnGO(sql string) []string {
	lines := strings.Split(strings.ReplaceAll(sql, "\r\n", "\n"), "\n")
	var segments []string
	var current []string
	for _, line := range lines {
		if strings.EqualFold(strings.TrimSpace(line), "GO") {
			segments = append(segments, strings.Join(current, "\n"))
			current = nil
			continue
		}
		current = append(current, line)
	}
	return append(segments, strings.Join(current, "\n"))
}

// NormalizeGO moves every standalone GO token onto its own line. Model output
// often writes "...; GO" on the statement line.
func NormalizeGO(sql string) string {
	var sb strings.Builder
	sb.Grow(len(sql) + 8)
	for i := 0; i < len(sql); i++ {
		if isGOAt(sql, i) && i > 0 && sql[i-1] != '\n' && sql[i-1] != '\r' {
			sb.WriteByte('\n')
		}
		sb.WriteByte(sql[i])
	}
	return sb.String()
}

// isGOAt reports whether a whole-word, case-insensitive GO starts at i
func isGOAt(s string, i int) bool {
	if i+2 > len(s) || !strings.EqualFold(s[i:i+2], "GO") {
		return false
	}
	if i > 0 && isWordByte(s[i-1]) {
		return false
	}
	if i+2 < len(s) && isWordByte(s[i+2]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
