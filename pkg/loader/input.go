package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadInputList reads one harness path per line, skipping blank lines.
func ReadInputList(r io.Reader) ([]string, error) {
	var files []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		files = append(files, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input list: %w", err)
	}

	return files, nil
}

// ReadInputListFile reads the input list stored at path.
func ReadInputListFile(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // path from config or flags
	if err != nil {
		return nil, fmt.Errorf("opening input list: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadInputList(f)
}
