// Package inspector runs the page inspection pipeline: normalize the URL,
// serve from cache when possible, otherwise fetch, analyze and validate.
package inspector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/seo-optimizer/tag-inspector/analyzer"
	"github.com/seo-optimizer/tag-inspector/cache"
	"github.com/seo-optimizer/tag-inspector/fetcher"
	"github.com/seo-optimizer/tag-inspector/logging"
	"github.com/seo-optimizer/tag-inspector/metrics"
	"github.com/seo-optimizer/tag-inspector/stats"
)

// PageFetcher retrieves the HTML of a page
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*fetcher.Page, error)
}

// Result is one served analysis
type Result struct {
	Analysis *analyzer.PageAnalysis
	Cached   bool
	Duration time.Duration
}

// Options carries the optional collaborators of an Inspector
type Options struct {
	Stats    *stats.Storage
	Visitors *stats.Visitors
	Logger   *zap.Logger
}

// Inspector is safe for concurrent use
type Inspector struct {
	fetcher  PageFetcher
	cache    cache.Store
	stats    *stats.Storage
	visitors *stats.Visitors
	logger   *zap.Logger
	inflight singleflight.Group
}

func New(f PageFetcher, store cache.Store, opts Options) *Inspector {
	if store == nil {
		store = cache.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.L()
	}
	return &Inspector{
		fetcher:  f,
		cache:    store,
		stats:    opts.Stats,
		visitors: opts.Visitors,
		logger:   opts.Logger,
	}
}

// Inspect returns the analysis of rawURL. Errors from URL normalization,
// fetching, analysis and validation are returned wrapped so callers can
// classify them with errors.Is and errors.As.
func (i *Inspector) Inspect(ctx context.Context, rawURL string) (*Result, error) {
	start := time.Now()

	pageURL, err := fetcher.NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	if err := analyzer.ValidateURL(pageURL); err != nil {
		return nil, err
	}
	key := cache.Key(pageURL)

	analysis, found, err := i.cache.Get(ctx, key)
	if err != nil {
		i.logger.Warn("cache lookup failed", zap.String("url", pageURL), zap.Error(err))
	}
	if found {
		metrics.CacheHits.Inc()
		i.record(analysis, true)
		return &Result{Analysis: analysis, Cached: true, Duration: time.Since(start)}, nil
	}
	metrics.CacheMisses.Inc()

	// Callers asking for the same page at once share a single fetch. The
	// shared work must not die with whichever caller started it; the fetch
	// client's timeout still bounds it.
	sharedCtx := context.WithoutCancel(ctx)
	value, err, shared := i.inflight.Do(key, func() (any, error) {
		return i.analyze(sharedCtx, pageURL, key)
	})
	if err != nil {
		return nil, err
	}
	analysis = value.(*analyzer.PageAnalysis)

	duration := time.Since(start)
	metrics.AnalysisDuration.Observe(duration.Seconds())
	i.record(analysis, false)
	i.logger.Info("page analyzed",
		zap.String("url", pageURL),
		zap.Int("score", analysis.Score.Value),
		zap.Int("tags", len(analysis.MetaTags)),
		zap.Bool("shared", shared),
		zap.Duration("duration", duration),
	)

	return &Result{Analysis: analysis, Duration: duration}, nil
}

func (i *Inspector) analyze(ctx context.Context, pageURL, key string) (*analyzer.PageAnalysis, error) {
	page, err := i.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		metrics.FetchFailures.Inc()
		if i.stats != nil {
			i.stats.RecordFetchFailure()
		}
		i.logger.Warn("page fetch failed", zap.String("url", pageURL), zap.Error(err))
		return nil, err
	}

	analysis, err := analyzer.Analyze(pageURL, page.HTML)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", pageURL, err)
	}
	if err := analyzer.Validate(analysis); err != nil {
		i.logger.Error("analysis failed validation", zap.String("url", pageURL), zap.Error(err))
		return nil, err
	}

	if err := i.cache.Set(ctx, key, analysis); err != nil {
		i.logger.Warn("failed to cache analysis", zap.String("url", pageURL), zap.Error(err))
	}

	return analysis, nil
}

func (i *Inspector) record(analysis *analyzer.PageAnalysis, cached bool) {
	metrics.Analyses.WithLabelValues(string(analysis.Score.Status)).Inc()
	if i.stats != nil {
		i.stats.RecordAnalysis(analysis.Score.Value, cached)
	}
	if i.visitors != nil {
		i.visitors.TrackURL(analysis.URL)
	}
}

// CacheSize reports the number of cached analyses
func (i *Inspector) CacheSize(ctx context.Context) (int, error) {
	return i.cache.Len(ctx)
}
