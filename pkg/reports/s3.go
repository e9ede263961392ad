package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ethpandaops/harnessoor/pkg/config"
	"github.com/ethpandaops/harnessoor/pkg/s3client"
)

// Compile-time interface check.
var _ Reader = (*s3Reader)(nil)

type s3Reader struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Reader creates a Reader backed by S3-compatible storage. Reports are
// read from {prefix}/harnesses/... in the configured bucket.
func NewS3Reader(cfg *config.S3ReportsConfig) Reader {
	return &s3Reader{
		client: s3client.New(cfg.S3ConnectionConfig),
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}
}

// GetReport reads the report object of fileName.
// Returns (nil, nil) when the key does not exist.
func (r *s3Reader) GetReport(
	ctx context.Context, batchTag, fileName string,
) ([]string, error) {
	key := r.objectKey(batchTag, fileName)

	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("getting object %q: %w", key, err)
	}

	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading object %q: %w", key, err)
	}

	return splitLines(data), nil
}

func (r *s3Reader) objectKey(batchTag, fileName string) string {
	if r.prefix == "" {
		return Key(batchTag, fileName)
	}

	return r.prefix + "/" + Key(batchTag, fileName)
}

func isS3NotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	return strings.Contains(err.Error(), "NoSuchKey")
}
