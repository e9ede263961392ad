// Package loader applies the classifier to a batch of harness files and
// writes the results to the dataset store.
package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/docker/go-units"
	"github.com/ethpandaops/harnessoor/pkg/classifier"
	"github.com/sirupsen/logrus"
)

// Classifier builds the record of one input file. It returns (nil, nil)
// when the file has no report.
type Classifier interface {
	Classify(ctx context.Context, filename string) (*classifier.HarnessRecord, error)
}

// Sink receives the classified records of a batch.
type Sink interface {
	ReplaceSnapshot(ctx context.Context) error
	InsertRecord(ctx context.Context, rec *classifier.HarnessRecord) error
}

// Result summarizes a batch run.
type Result struct {
	Total     int
	Inserted  int
	Missing   int
	Malformed int
	// Failed counts inputs whose report could not be read.
	Failed int
}

// Skipped returns the number of inputs that produced no row.
func (r *Result) Skipped() int {
	return r.Missing + r.Malformed + r.Failed
}

// Loader runs one batch.
type Loader struct {
	log        logrus.FieldLogger
	classifier Classifier
	sink       Sink
}

// New creates a Loader.
func New(log logrus.FieldLogger, c Classifier, sink Sink) *Loader {
	return &Loader{
		log:        log.WithField("component", "loader"),
		classifier: c,
		sink:       sink,
	}
}

// Run replaces the dataset with the records built from files, in order.
//
// Inputs without a report or with an unreadable report are skipped. Only
// store failures abort the batch; rows inserted before such a failure stay
// in the store.
func (l *Loader) Run(ctx context.Context, files []string) (*Result, error) {
	if err := l.sink.ReplaceSnapshot(ctx); err != nil {
		return nil, fmt.Errorf("replacing snapshot: %w", err)
	}

	res := &Result{Total: len(files)}

	for _, file := range files {
		rec, err := l.classifier.Classify(ctx, file)
		if err != nil {
			log := l.log.WithError(err).WithField("input", file)

			if errors.Is(err, classifier.ErrMalformedReport) {
				res.Malformed++

				log.Warn("Skipping malformed report")
			} else {
				res.Failed++

				log.Error("Skipping unreadable report")
			}

			continue
		}

		if rec == nil {
			res.Missing++

			l.log.WithField("input", file).Debug("No report found")

			continue
		}

		if err := l.sink.InsertRecord(ctx, rec); err != nil {
			return res, fmt.Errorf("storing %s: %w", rec.FileName, err)
		}

		res.Inserted++

		l.log.WithFields(logrus.Fields{
			"file":         rec.FileName,
			"outcome":      rec.HarnessSuccess.String(),
			"runtime":      rec.RuntimeSeconds,
			"memory":       units.BytesSize(float64(rec.MemoryKB) * units.KiB),
			"code_size":    units.HumanSize(float64(rec.CodeFileSize)),
			"harness_size": units.HumanSize(float64(rec.HarnessFileSize)),
		}).Debug("Stored record")
	}

	return res, nil
}
