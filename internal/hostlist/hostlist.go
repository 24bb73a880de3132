// Package hostlist reads the host name sequence consumed by the assessment
// pipeline: one host per line, blank lines, comment lines and separator lines
// skipped, duplicates removed with first-seen order preserved.
package hostlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Read parses hosts from r.
func Read(r io.Reader) ([]string, error) {
	var hosts []string
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "---") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		hosts = append(hosts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read host list: %w", err)
	}
	return hosts, nil
}

// ReadFile parses hosts from the file at path.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open host list: %w", err)
	}
	defer f.Close()
	return Read(f)
}
