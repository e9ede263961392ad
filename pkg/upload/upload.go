package upload

import "context"

// Uploader publishes a finished dataset file to remote storage.
type Uploader interface {
	// Preflight verifies that the remote storage is reachable and writable.
	// Writes a small test object to the bucket to fail fast on misconfiguration.
	Preflight(ctx context.Context) error

	// Upload uploads localFile under prefix + "/" + batchTag + "/" + basename.
	Upload(ctx context.Context, localFile, batchTag string) error
}
