package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// readEntries collects one entry per line. Blank lines and lines starting
// with # are skipped, and surrounding whitespace is trimmed.
func readEntries(r io.Reader) ([]string, error) {
	var entries []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// collectEntries reads entries from file when set, otherwise from args.
func collectEntries(file string, args []string) ([]string, error) {
	if file == "" {
		entries := make([]string, 0, len(args))
		for _, a := range args {
			if a = strings.TrimSpace(a); a != "" {
				entries = append(entries, a)
			}
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("no entries given")
		}
		return entries, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	entries, err := readEntries(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s contains no entries", file)
	}
	return entries, nil
}
