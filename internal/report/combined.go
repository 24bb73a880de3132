package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// CombinedEntry is one host's section of the combined result stream: either
// a JSON payload or a plain-text message (e.g. the no-HTTPS note).
type CombinedEntry struct {
	Host    string
	Raw     json.RawMessage // nil when the section was not valid JSON
	Message string          // set when Raw is nil
}

// ParseCombined reads a combined result stream written by Writer: sections
// delimited by "--- host ---" marker lines, each followed by an indented JSON
// document or a plain message.
func ParseCombined(r io.Reader) ([]CombinedEntry, error) {
	var entries []CombinedEntry
	var host string
	var body strings.Builder

	flush := func() {
		if host == "" {
			return
		}
		text := strings.TrimSpace(body.String())
		entry := CombinedEntry{Host: host}
		if strings.HasPrefix(text, "{") && json.Valid([]byte(text)) {
			entry.Raw = json.RawMessage(text)
		} else {
			entry.Message = text
		}
		entries = append(entries, entry)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "---") && strings.HasSuffix(trimmed, "---") && len(trimmed) > 6 {
			flush()
			host = strings.TrimSpace(strings.Trim(trimmed, "- "))
			body.Reset()
			continue
		}
		if host != "" {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read combined results: %w", err)
	}
	flush()
	return entries, nil
}
