package store

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "accelerator-admin/internal/common/errors"
	"accelerator-admin/internal/common/logger"
	"accelerator-admin/internal/common/metrics"
	"accelerator-admin/internal/engine/aggregator"
	"accelerator-admin/internal/engine/normalizer"
	"accelerator-admin/internal/models"
)

// Lister reads the raw rows of one source table.
type Lister interface {
	List(ctx context.Context, st models.SourceType) ([]normalizer.Raw, error)
}

type FetchOptions struct {
	// Resilient lets a failed source contribute zero records instead of
	// failing the whole read.
	Resilient bool
}

// Fetcher reads all six sources concurrently and joins them.
type Fetcher struct {
	lister  Lister
	timeout time.Duration
	logger  logger.Logger
}

func NewFetcher(lister Lister, timeout time.Duration, log logger.Logger) *Fetcher {
	return &Fetcher{
		lister:  lister,
		timeout: timeout,
		logger:  log.WithFields(map[string]interface{}{"component": "fetcher"}),
	}
}

// FetchAll returns the normalized records of every source, newest first.
func (f *Fetcher) FetchAll(ctx context.Context, opts FetchOptions) ([]models.ApplicationRecord, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	results := make([][]models.ApplicationRecord, len(models.AllSourceTypes))

	var g *errgroup.Group
	gctx := ctx
	if opts.Resilient {
		g = &errgroup.Group{}
	} else {
		g, gctx = errgroup.WithContext(ctx)
	}

	for i, st := range models.AllSourceTypes {
		i, st := i, st
		g.Go(func() error {
			raws, err := f.lister.List(gctx, st)
			if err != nil {
				metrics.SourceFetchFailures.WithLabelValues(string(st)).Inc()
				if opts.Resilient {
					f.logger.Warn("source skipped", map[string]interface{}{
						"sourceType": string(st),
						"error":      err.Error(),
					})
					return nil
				}
				return err
			}
			results[i] = normalizer.NormalizeAll(raws, st)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if apperrors.Is(err, apperrors.ErrCodeUpstreamFailure) {
			return nil, err
		}
		return nil, apperrors.NewUpstreamFailureError("application sources", err)
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	records := make([]models.ApplicationRecord, 0, total)
	for _, r := range results {
		records = append(records, r...)
	}
	aggregator.SortNewestFirst(records)
	return records, nil
}
