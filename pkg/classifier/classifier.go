// Package classifier turns a harness file name and its execution report
// into a HarnessRecord.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ReportLookup returns the lines of the report for a harness run.
// It returns (nil, nil) when no report exists for the file.
type ReportLookup interface {
	GetReport(ctx context.Context, batchTag, fileName string) ([]string, error)
}

// Input is a normalized entry of the input list.
type Input struct {
	// Name is the path-free file name.
	Name string
	// Folder is the directory directly containing the file, if any.
	Folder string
}

// ParseInput trims raw and splits it into folder and file name.
func ParseInput(raw string) Input {
	parts := strings.Split(strings.TrimSpace(raw), "/")

	in := Input{Name: parts[len(parts)-1]}
	if len(parts) > 1 {
		in.Folder = parts[len(parts)-2]
	}

	return in
}

// Classifier builds HarnessRecords for one batch of harness runs.
type Classifier struct {
	log      logrus.FieldLogger
	reports  ReportLookup
	batchTag string
}

// New creates a Classifier that reads reports of batchTag from reports.
func New(log logrus.FieldLogger, reports ReportLookup, batchTag string) *Classifier {
	return &Classifier{
		log:      log.WithField("component", "classifier"),
		reports:  reports,
		batchTag: batchTag,
	}
}

// Classify builds the record for filename.
//
// It returns (nil, nil) when the batch holds no report for the file and an
// error wrapping ErrMalformedReport when the report cannot be parsed.
func (c *Classifier) Classify(ctx context.Context, filename string) (*HarnessRecord, error) {
	in := ParseInput(filename)

	lines, err := c.reports.GetReport(ctx, c.batchTag, in.Name)
	if err != nil {
		return nil, fmt.Errorf("reading report for %s: %w", in.Name, err)
	}

	if lines == nil {
		return nil, nil
	}

	metrics, err := parseReport(lines)
	if err != nil {
		return nil, fmt.Errorf("parsing report for %s: %w", in.Name, err)
	}

	meta := extractMetadata(in.Name)

	c.log.WithFields(logrus.Fields{
		"file":    in.Name,
		"folder":  in.Folder,
		"outcome": metrics.outcome.String(),
	}).Trace("Classified harness")

	return &HarnessRecord{
		FileCode:         meta.fileCode,
		SubsystemPath:    meta.subsystemPath,
		ToolchainVersion: meta.toolchainVersion,
		HarnessType:      meta.harnessType,
		FileName:         in.Name,
		RuntimeSeconds:   metrics.runtimeSeconds,
		MemoryKB:         metrics.memoryKB,
		CodeFileSize:     metrics.codeFileSize,
		HarnessFileSize:  metrics.harnessFileSize,
		RuntimeError:     metrics.runtimeError,
		TimedOut:         metrics.timedOut,
		HarnessSuccess:   metrics.outcome,
	}, nil
}
