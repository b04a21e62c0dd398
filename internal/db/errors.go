package db

import (
	"context"
	"errors"
	"time"

	"github.com/ncruces/go-sqlite3"
	"github.com/sethvargo/go-retry"
)

// IsConflict reports whether err is a SQLite constraint violation, which is
// how a lost missing-then-insert race surfaces.
func IsConflict(err error) bool {
	var serr *sqlite3.Error
	return errors.As(err, &serr) && serr.Code() == sqlite3.CONSTRAINT
}

// RetryConflicts reruns fn when it fails on a uniqueness constraint. Two
// concurrent upserts for the same new external id race missing-then-insert;
// the loser's retry lands on the merge path instead of double-creating.
func RetryConflicts(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewConstant(25*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if IsConflict(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
