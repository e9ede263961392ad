package reports

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethpandaops/harnessoor/pkg/config"
)

// Compile-time interface check.
var _ Reader = (*localReader)(nil)

type localReader struct {
	rootDir string
}

// NewLocalReader creates a Reader backed by {root_dir}/harnesses on the
// local filesystem.
func NewLocalReader(cfg *config.LocalReportsConfig) Reader {
	return &localReader{rootDir: cfg.RootDir}
}

// GetReport reads {rootDir}/harnesses/{batchTag}/details/{fileName}-details.txt.
// Returns (nil, nil) when the file does not exist.
func (r *localReader) GetReport(
	_ context.Context, batchTag, fileName string,
) ([]string, error) {
	p := filepath.Join(r.rootDir, filepath.FromSlash(Key(batchTag, fileName)))

	data, err := os.ReadFile(p) //nolint:gosec // trusted paths from config
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading report %s: %w", p, err)
	}

	return splitLines(data), nil
}
