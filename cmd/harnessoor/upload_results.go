package main

import (
	"fmt"

	"github.com/ethpandaops/harnessoor/pkg/upload"
	"github.com/spf13/cobra"
)

var uploadBatchTag string

var uploadResultsCmd = &cobra.Command{
	Use:   "upload-results",
	Short: "Upload the dataset file to remote storage",
	Long: `Upload the local sqlite dataset to S3-compatible storage using the
config file settings. The object is stored under <prefix>/<batch-tag>/.`,
	RunE: runUploadResults,
}

func init() {
	rootCmd.AddCommand(uploadResultsCmd)
	uploadResultsCmd.Flags().StringVar(&uploadBatchTag, "batch-tag", "",
		"Batch tag used in the object key (overrides extract.batch_tag)")
}

func runUploadResults(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if uploadBatchTag != "" {
		cfg.Extract.BatchTag = uploadBatchTag
	}

	if cfg.Extract.BatchTag == "" {
		return fmt.Errorf("batch tag is required (use --batch-tag or extract.batch_tag)")
	}

	if err := cfg.ValidateUpload(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx := cmd.Context()
	uploader := upload.NewS3Uploader(log, cfg.Upload.S3)

	if err := uploader.Preflight(ctx); err != nil {
		return fmt.Errorf("s3 preflight: %w", err)
	}

	log.WithField("file", cfg.Database.SQLite.Path).Info("Uploading dataset")

	if err := uploader.Upload(ctx, cfg.Database.SQLite.Path, cfg.Extract.BatchTag); err != nil {
		return fmt.Errorf("uploading dataset: %w", err)
	}

	log.Info("Upload completed successfully")

	return nil
}
