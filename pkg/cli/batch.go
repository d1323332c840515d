package cli

import (
	"context"
	"time"

	"redirect-mgmt-go/pkg/models"

	"golang.org/x/sync/errgroup"
)

// BatchWorkers bounds concurrent creates for `batch`.
const BatchWorkers = 4

// Creator creates short links.
type Creator interface {
	Create(ctx context.Context, target string, expiresAt *time.Time) (*models.Link, error)
	CheckTarget(ctx context.Context, target string) error
}

// BatchResult is the outcome for one URL, in input order.
type BatchResult struct {
	URL  string
	Link *models.Link
	Err  error
}

// BatchCreate creates a short link for every URL on at most workers
// goroutines. Failures are reported per URL and never stop the batch.
// With check set each target is probed before creating.
func BatchCreate(ctx context.Context, c Creator, urls []string, workers int, check bool) []BatchResult {
	if workers <= 0 {
		workers = BatchWorkers
	}
	results := make([]BatchResult, len(urls))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, u := range urls {
		results[i].URL = u
		g.Go(func() error {
			if check {
				if err := c.CheckTarget(ctx, u); err != nil {
					results[i].Err = err
					return nil
				}
			}
			link, err := c.Create(ctx, u, nil)
			results[i].Link, results[i].Err = link, err
			return nil
		})
	}
	_ = g.Wait()
	return results
}
