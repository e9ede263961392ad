// Package reports provides read access to harness execution reports.
package reports

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/ethpandaops/harnessoor/pkg/config"
)

// Reader looks up the report of a harness run within a batch. Reports are
// stored under harnesses/{batchTag}/details/{fileName}-details.txt.
type Reader interface {
	// GetReport returns the lines of the report, or (nil, nil) when the
	// batch holds no report for fileName.
	GetReport(ctx context.Context, batchTag, fileName string) ([]string, error)
}

// Key returns the slash separated location of a report relative to the
// storage root.
func Key(batchTag, fileName string) string {
	return path.Join("harnesses", batchTag, "details", fileName+"-details.txt")
}

// NewReader creates the Reader selected by cfg.
func NewReader(cfg *config.ReportsConfig) (Reader, error) {
	switch {
	case cfg.S3 != nil:
		return NewS3Reader(cfg.S3), nil
	case cfg.Local != nil:
		return NewLocalReader(cfg.Local), nil
	default:
		return nil, fmt.Errorf("no report backend configured")
	}
}

// splitLines splits report content into lines without the trailing empty
// line produced by a final newline.
func splitLines(data []byte) []string {
	s := strings.TrimSuffix(string(data), "\n")
	if s == "" {
		return []string{}
	}

	return strings.Split(s, "\n")
}
