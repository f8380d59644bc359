package fs

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"bt-restic/internal/config"
	"bt-restic/internal/target"
)

// CleanPatterns drops blank lines and lines starting with '#' and trims the rest.
func CleanPatterns(raw []string) []string {
	var patterns []string
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

// ParseExcludeFile reads an exclude file and returns the raw lines.
// Returns nil and no error if the file does not exist.
func ParseExcludeFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening exclude file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading exclude file: %w", err)
	}
	return lines, nil
}

// TargetFromConfig builds a BackupTarget from its config entry. Patterns from
// the exclude file follow the inline exclusions.
func TargetFromConfig(tc config.TargetConfig) (*target.BackupTarget, error) {
	exclusions := CleanPatterns(tc.Exclusions)

	if tc.ExcludeFile != "" {
		lines, err := ParseExcludeFile(tc.ExcludeFile)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", tc.Name, err)
		}
		exclusions = append(exclusions, CleanPatterns(lines)...)
	}

	t, err := target.NewFromText(tc.Folders, exclusions, tc.Tags)
	if err != nil {
		return nil, fmt.Errorf("target %s: %w", tc.Name, err)
	}
	return t, nil
}
