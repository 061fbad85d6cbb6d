// Package accounts loads the scrape target list.
package accounts

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"reelscraper/pkg/instagram"
)

// LoadFromFile reads a newline-delimited username list. Blank lines and
// lines starting with '#' are skipped; a leading '@' is stripped.
// Order is preserved and duplicates keep their first position.
func LoadFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open accounts file: %w", err)
	}
	defer f.Close()

	var usernames []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		usernames = append(usernames, instagram.SanitizeUsername(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}

	return Dedupe(usernames), nil
}

// Dedupe removes repeated usernames, keeping first occurrences in order
func Dedupe(usernames []string) []string {
	seen := make(map[string]struct{}, len(usernames))
	out := make([]string, 0, len(usernames))
	for _, u := range usernames {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// Validate rejects usernames the upstream API would never accept
func Validate(usernames []string) error {
	for _, u := range usernames {
		if !instagram.IsValidUsername(u) {
			return fmt.Errorf("invalid username %q", u)
		}
	}
	return nil
}
