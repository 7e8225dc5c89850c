// Package service wires the scrape, export and load pipeline from
// configuration.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/tftscrape/internal/adapters/cache"
	"github.com/okian/tftscrape/internal/adapters/riot"
	"github.com/okian/tftscrape/internal/adapters/tablestore"
	"github.com/okian/tftscrape/internal/config"
	"github.com/okian/tftscrape/internal/domain/region"
	"github.com/okian/tftscrape/pkg/logger"
	"github.com/okian/tftscrape/pkg/metrics"
)

// Service runs pipeline commands against one configuration.
type Service struct {
	mu sync.Mutex

	cfg *config.Config

	// Core components, built lazily
	store    *cache.Store
	client   *riot.Client
	crawler  *Crawler
	exporter *Exporter
	loader   *tablestore.Loader

	// Test seams
	baseURL func(host string) string
	limiter riot.Limiter
	clock   func() time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBaseURL points the upstream client somewhere other than the public API.
func WithBaseURL(fn func(host string) string) Option {
	return func(s *Service) {
		s.baseURL = fn
	}
}

// WithLimiter replaces the limiter built from configuration.
func WithLimiter(l riot.Limiter) Option {
	return func(s *Service) {
		s.limiter = l
	}
}

// WithClock replaces time.Now for the load window.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

// New constructs a Service. Components are created on first use so that
// export and load work without upstream credentials.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:   cfg,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.store = cache.New(cfg.Scrape.CacheDir, cache.WithLogger(s.logger.Named("cache")))
	return s
}

// Limiter builds the upstream limiter from configuration: the sleep
// interval combined with every configured bucket.
func Limiter(cfg config.ScrapeConfig) riot.Limiter {
	limiters := []riot.Limiter{riot.NewIntervalLimiter(cfg.SleepDuration())}
	for _, rl := range cfg.RateLimits {
		limiters = append(limiters, riot.NewBucketLimiter(rl.Requests, rl.Per))
	}
	return riot.Chain(limiters...)
}

func (s *Service) ensureCrawler(ctx context.Context) (*Crawler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.crawler != nil {
		return s.crawler, nil
	}
	if err := s.cfg.ValidateScrape(); err != nil {
		return nil, err
	}

	overrides := make(map[string]region.Routing, len(s.cfg.Scrape.Regions))
	for code, r := range s.cfg.Scrape.Regions {
		overrides[code] = region.Routing{Platform: r.Platform, Gateway: r.Gateway}
	}
	routing, err := region.NewResolver(overrides).Resolve(s.cfg.Scrape.Region)
	if err != nil {
		return nil, err
	}

	limiter := s.limiter
	if limiter == nil {
		limiter = Limiter(s.cfg.Scrape)
	}
	opts := []riot.Option{
		riot.WithToken(s.cfg.Riot.Token),
		riot.WithLimiter(limiter),
		riot.WithTimeout(s.cfg.Riot.Timeout),
		riot.WithMaxRetries(s.cfg.Riot.MaxRetries),
		riot.WithLogger(s.logger.Named("riot")),
	}
	if s.baseURL != nil {
		opts = append(opts, riot.WithBaseURL(s.baseURL))
	}
	s.client = riot.New(s.store, routing, opts...)

	crawlerOpts := []CrawlerOption{
		WithCrawlerLogger(s.logger.Named("crawler")),
		WithDedupeMatches(s.cfg.Scrape.DedupeMatches),
	}
	if s.cfg.Scrape.RefreshLeagues {
		crawlerOpts = append(crawlerOpts, WithLeagueRefresh(s.store, riot.PartitionLeague))
	}
	s.crawler = NewCrawler(s.client, crawlerOpts...)

	hosts := s.client.Routing()
	s.logger.Info(ctx, "scraper ready",
		logger.String("region", s.cfg.Scrape.Region),
		logger.String("platform", hosts.Platform),
		logger.String("gateway", hosts.Gateway),
		logger.String("cache_dir", s.store.Dir()),
		logger.Float64("sleep_seconds", s.cfg.Scrape.Sleep),
	)
	return s.crawler, nil
}

func (s *Service) ensureExporter() *Exporter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exporter == nil {
		writer := tablestore.NewWriter(tablestore.WithLogger(s.logger.Named("tablestore")))
		s.exporter = NewExporter(s.store, riot.PartitionMatch, writer,
			WithExporterLogger(s.logger.Named("exporter")),
			WithWorkers(s.cfg.Data.Workers),
		)
	}
	return s.exporter
}

func (s *Service) ensureLoader() *tablestore.Loader {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loader == nil {
		s.loader = tablestore.NewLoader(tablestore.WithLogger(s.logger.Named("tablestore")))
	}
	return s.loader
}

// Scrape crawls every configured league.
func (s *Service) Scrape(ctx context.Context) ([]CrawlReport, error) {
	crawler, err := s.ensureCrawler(ctx)
	if err != nil {
		return nil, err
	}
	reports, err := crawler.CrawlLeagues(ctx, s.cfg.Scrape.Leagues)
	metrics.MarkRun("scrape")
	return reports, err
}

// Export flattens the match cache into the configured data directory.
func (s *Service) Export(ctx context.Context) (FlattenReport, error) {
	report, err := s.ensureExporter().Export(ctx, s.cfg.Data.Dir)
	metrics.MarkRun("export")
	return report, err
}

// LoadRequest selects tables and filters for Load. Nil pointers fall back
// to configuration.
type LoadRequest struct {
	Tables     []string
	DaysCutoff *int
	SetFilter  *string
}

// Load reads the tables from the configured data directory.
func (s *Service) Load(ctx context.Context, req LoadRequest) (*tablestore.TableSet, error) {
	days := s.cfg.Data.DaysCutoff
	if req.DaysCutoff != nil {
		days = *req.DaysCutoff
	}
	set := s.cfg.Data.SetFilter
	if req.SetFilter != nil {
		set = *req.SetFilter
	}

	tables, err := s.ensureLoader().Load(ctx, s.cfg.Data.Dir,
		tablestore.WithTables(req.Tables...),
		tablestore.WithDaysCutoff(days),
		tablestore.WithSetFilter(set),
		tablestore.WithClock(s.clock),
	)
	if err != nil {
		return nil, err
	}
	metrics.MarkRun("load")
	return tables, nil
}

// Purge removes cached entries whose partition matches glob.
func (s *Service) Purge(ctx context.Context, glob string) (int, error) {
	n, err := s.store.Purge(ctx, glob)
	if err != nil {
		return n, fmt.Errorf("purge %q: %w", glob, err)
	}
	metrics.MarkRun("purge")
	return n, nil
}
