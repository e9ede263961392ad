package main

import (
	"fmt"

	"github.com/ethpandaops/harnessoor/pkg/classifier"
	"github.com/ethpandaops/harnessoor/pkg/datastore"
	"github.com/ethpandaops/harnessoor/pkg/fsutil"
	"github.com/ethpandaops/harnessoor/pkg/loader"
	"github.com/ethpandaops/harnessoor/pkg/reports"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	extractBatchTag  string
	extractInputList string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Classify a batch of harness reports into the data table",
	Long: `Read the input list, classify every listed file against the reports of
the batch and replace the "data" table with the result. Files without a
report, or with an unreadable report, are skipped.`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVar(&extractBatchTag, "batch-tag", "",
		"Batch tag selecting harnesses/<tag>/details (overrides extract.batch_tag)")
	extractCmd.Flags().StringVar(&extractInputList, "input-list", "",
		"Path to the newline-delimited input list (overrides extract.input_list)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if extractBatchTag != "" {
		cfg.Extract.BatchTag = extractBatchTag
	}

	if extractInputList != "" {
		cfg.Extract.InputList = extractInputList
	}

	if err := cfg.ValidateExtract(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx := cmd.Context()

	files, err := loader.ReadInputListFile(cfg.Extract.InputList)
	if err != nil {
		return err
	}

	var owner *fsutil.OwnerConfig

	if cfg.Database.Driver == "sqlite" {
		owner, err = fsutil.ParseOwner(cfg.Database.SQLite.Owner)
		if err != nil {
			return fmt.Errorf("parsing database.sqlite.owner: %w", err)
		}

		if err := fsutil.EnsureParentDir(cfg.Database.SQLite.Path); err != nil {
			return fmt.Errorf("preparing database directory: %w", err)
		}
	}

	reader, err := reports.NewReader(&cfg.Extract.Reports)
	if err != nil {
		return fmt.Errorf("creating report reader: %w", err)
	}

	store := datastore.NewStore(log, &cfg.Database)
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("starting datastore: %w", err)
	}

	defer func() {
		if err := store.Stop(); err != nil {
			log.WithError(err).Warn("Failed to close datastore")
		}
	}()

	log.WithFields(logrus.Fields{
		"batch_tag": cfg.Extract.BatchTag,
		"inputs":    len(files),
	}).Info("Starting extraction")

	c := classifier.New(log, reader, cfg.Extract.BatchTag)

	res, err := loader.New(log, c, store).Run(ctx, files)
	if err != nil {
		return fmt.Errorf("extracting batch: %w", err)
	}

	if cfg.Database.Driver == "sqlite" {
		if err := fsutil.Chown(cfg.Database.SQLite.Path, owner); err != nil {
			return fmt.Errorf("setting database owner: %w", err)
		}
	}

	log.WithFields(logrus.Fields{
		"total":     res.Total,
		"inserted":  res.Inserted,
		"missing":   res.Missing,
		"malformed": res.Malformed,
		"failed":    res.Failed,
	}).Info("Extraction complete")

	return nil
}
