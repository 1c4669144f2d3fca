package archive

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/bangumi-archive/stats-loader/internal/loader"
)

// ProcessFunc loads the checked-out working files for one snapshot date.
type ProcessFunc func(ctx context.Context, dataDate string) error

// Controller walks the archive's revisions from a configured start date to
// the newest and loads each dated snapshot once. Revisions are handled
// strictly in order: clean the transient working files, force-checkout,
// resolve the snapshot date from the revision message, process, clean
// again. A revision that cannot be dated is skipped; a failed load is
// logged and not retried — rerunning the program is the recovery path,
// safe because upserts are idempotent per (id, data_date).
type Controller struct {
	Repo      Repo
	StartDate string
	Process   ProcessFunc
	// Transient lists the per-type working files removed between
	// revisions so every checkout starts from a clean slate.
	Transient []string
}

// Run iterates every revision at or after StartDate. It returns an error
// only for conditions that invalidate the whole walk (no revisions,
// checkout failure); per-revision load failures are logged and skipped.
func (c *Controller) Run(ctx context.Context) error {
	revs, err := c.Repo.Revisions(ctx)
	if err != nil {
		return fmt.Errorf("list revisions: %w", err)
	}
	if len(revs) == 0 {
		return errors.New("archive has no revisions")
	}

	var processed, failed, skipped int
	for _, rev := range revs {
		// Cheap pre-filter on the subject line; revisions without a
		// parseable subject still get a full look below.
		if d, err := DumpDate(rev.Subject); err == nil && d < c.StartDate {
			continue
		}

		c.clean()
		if err := c.Repo.Checkout(ctx, rev.Hash); err != nil {
			return fmt.Errorf("checkout %s: %w", rev.Hash, err)
		}

		msg, err := c.Repo.Message(ctx, rev.Hash)
		if err != nil {
			log.Printf("backfill: read message of %s: %v, skipping", rev.Hash, err)
			skipped++
			c.clean()
			continue
		}
		date, err := DumpDate(msg)
		if err != nil {
			log.Printf("backfill: %s: %v, skipping", rev.Hash, err)
			skipped++
			c.clean()
			continue
		}
		if date < c.StartDate {
			c.clean()
			continue
		}

		switch err := c.Process(ctx, date); {
		case errors.Is(err, loader.ErrConnect):
			// Without a database every remaining revision would fail
			// the same way; stop the walk instead of churning through
			// checkouts.
			c.clean()
			return fmt.Errorf("load %s (%s): %w", rev.Hash, date, err)
		case err != nil:
			log.Printf("backfill: %s (%s): %v", rev.Hash, date, err)
			failed++
		default:
			processed++
		}
		c.clean()
	}

	log.Printf("backfill: done, %d revisions processed, %d failed, %d skipped", processed, failed, skipped)
	return nil
}

// clean removes the transient working files. Failure is logged, never
// fatal; a leftover file only costs the next checkout some churn.
func (c *Controller) clean() {
	for _, path := range c.Transient {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("backfill: remove %s: %v", path, err)
		}
	}
}
