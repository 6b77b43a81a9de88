package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/idgate/internal/common"
	"github.com/dmitrijs2005/idgate/internal/logging"
	"github.com/dmitrijs2005/idgate/internal/server/storage"
)

const cleanupTimeout = 10 * time.Second

// stagedWriter stores an object and only then runs the relational commit.
// If the commit fails the object is deleted again on a best-effort basis;
// a crash between the two steps still leaves an orphaned object.
type stagedWriter struct {
	store   storage.ObjectStore
	timeout time.Duration
	logger  logging.Logger
}

// write returns an error wrapping common.ErrorUploadFailed when the object
// write fails or times out; commit is not called in that case. Commit
// errors are returned unchanged.
func (w *stagedWriter) write(ctx context.Context, in storage.PutObjectInput, commit func(ctx context.Context) error) error {
	putCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		putCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	if err := w.store.PutObject(putCtx, in); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorUploadFailed, err)
	}
	if err := putCtx.Err(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorUploadFailed, err)
	}

	if err := commit(ctx); err != nil {
		w.cleanup(ctx, in.Bucket, in.Key)
		return err
	}

	return nil
}

func (w *stagedWriter) cleanup(ctx context.Context, bucket, key string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := w.store.DeleteObject(cctx, bucket, key); err != nil {
		w.logger.Error(ctx, "orphaned object left in store", "bucket", bucket, "key", key, "error", err)
		return
	}
	w.logger.Warn(ctx, "removed object after failed commit", "bucket", bucket, "key", key)
}
