package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/okian/tftscrape/internal/domain/dedupe"
	"github.com/okian/tftscrape/pkg/logger"
	"github.com/okian/tftscrape/pkg/metrics"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // codec config

// API is the subset of the upstream client the crawler needs.
type API interface {
	GetLeague(ctx context.Context, league string) (json.RawMessage, error)
	GetSummoner(ctx context.Context, summonerID string) (json.RawMessage, error)
	GetMatchIDsFor(ctx context.Context, puuid string) (json.RawMessage, error)
	GetMatch(ctx context.Context, matchID string) (json.RawMessage, error)
}

// Purger removes cached entries by partition glob.
type Purger interface {
	Purge(ctx context.Context, partitionGlob string) (int, error)
}

// CrawlReport summarizes one league crawl.
type CrawlReport struct {
	RunID            string
	League           string
	Summoners        int
	SummonerFailures int
	MatchIDs         int // distinct ids queued for fetching
	MatchesFetched   int // fetched from upstream in this run
	MatchesCached    int // already cached, skipped
	MatchFailures    int
	Elapsed          time.Duration
}

// CrawlerOption applies a configuration option to the Crawler.
type CrawlerOption func(*Crawler)

// WithCrawlerLogger sets a custom logger for the crawler.
func WithCrawlerLogger(l logger.Logger) CrawlerOption {
	return func(c *Crawler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDedupeMatches toggles skipping match ids already queued in a crawl.
func WithDedupeMatches(on bool) CrawlerOption {
	return func(c *Crawler) {
		c.dedupeMatches = on
	}
}

// WithLeagueRefresh purges the league partition before CrawlLeagues so
// listings are fetched fresh each run.
func WithLeagueRefresh(p Purger, partition string) CrawlerOption {
	return func(c *Crawler) {
		c.purger = p
		c.leaguePartition = partition
	}
}

// Crawler walks league -> summoners -> match ids -> matches, filling the
// response cache. It is sequential; pacing comes from the API's limiter.
type Crawler struct {
	api             API
	purger          Purger
	leaguePartition string
	dedupeMatches   bool

	// failures reports each failing id once per process
	failures dedupe.Deduper
	logger   logger.Logger
}

// NewCrawler creates a crawler over api.
func NewCrawler(api API, opts ...CrawlerOption) *Crawler {
	c := &Crawler{
		api:           api,
		dedupeMatches: true,
		failures:      dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(100_000)),
		logger:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type leagueList struct {
	Entries *[]leagueEntry `json:"entries"`
}

type leagueEntry struct {
	SummonerID string `json:"summonerId"`
	PUUID      string `json:"puuid"`
}

type summoner struct {
	PUUID string `json:"puuid"`
}

// CrawlLeagues crawls each league in turn. A failed league is logged and the
// next one still runs; the failures are returned joined. Cancellation stops
// the loop at once.
func (c *Crawler) CrawlLeagues(ctx context.Context, leagues []string) ([]CrawlReport, error) {
	if c.purger != nil && c.leaguePartition != "" {
		n, err := c.purger.Purge(ctx, c.leaguePartition)
		if err != nil {
			return nil, fmt.Errorf("refresh league listings: %w", err)
		}
		c.logger.Debug(ctx, "league listings purged", logger.Int("removed", n))
	}

	reports := make([]CrawlReport, 0, len(leagues))
	var errs []error
	for _, league := range leagues {
		report, err := c.CrawlLeague(ctx, league)
		reports = append(reports, report)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return reports, errors.Join(append(errs, ctxErr)...)
			}
			c.logger.Error(ctx, "league crawl failed",
				logger.String("league", league),
				logger.String("run_id", report.RunID),
				logger.Error(err),
			)
			errs = append(errs, err)
		}
	}
	c.logger.Info(ctx, "crawl finished",
		logger.Int("leagues", len(leagues)),
		logger.Int("failed_leagues", len(errs)),
		logger.Int("failing_ids", c.failures.Size()),
	)
	return reports, errors.Join(errs...)
}

// CrawlLeague crawls one league. Failures of a single summoner or match are
// logged, counted and skipped. A league that cannot be fetched or decoded
// and a cancelled context are returned as errors.
func (c *Crawler) CrawlLeague(ctx context.Context, league string) (report CrawlReport, err error) {
	start := time.Now()
	report = CrawlReport{RunID: uuid.NewString(), League: league}
	log := c.logger.With(logger.String("run_id", report.RunID), logger.String("league", league))
	defer func() { report.Elapsed = time.Since(start) }()

	entries, err := c.leagueEntries(ctx, league)
	if err != nil {
		metrics.RecordCrawlFailure(metrics.StageLeague)
		return report, err
	}
	log.Info(ctx, "league fetched", logger.Int("entries", len(entries)))

	var (
		queued []string
		seen   = dedupe.NewInMemoryDeduper()
	)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Summoners++
		metrics.RecordSummoner()

		ids, stage, lookupErr := c.summonerMatchIDs(ctx, entry)
		if lookupErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			report.SummonerFailures++
			metrics.RecordCrawlFailure(stage)
			c.reportFailure(ctx, log, stage, entry.key(), lookupErr)
			continue
		}
		c.clearFailure(ctx, entry.key(), metrics.StageSummoner, metrics.StageMatchIDs)
		metrics.RecordMatchIDs(len(ids))
		for _, id := range ids {
			if c.dedupeMatches && seen.SeenAndRecord(ctx, id) {
				continue
			}
			queued = append(queued, id)
		}
	}
	report.MatchIDs = len(queued)
	log.Info(ctx, "match ids collected",
		logger.Int("summoners", report.Summoners),
		logger.Int("summoner_failures", report.SummonerFailures),
		logger.Int("match_ids", report.MatchIDs),
	)

	for _, id := range queued {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		body, fetchErr := c.api.GetMatch(ctx, id)
		if fetchErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			report.MatchFailures++
			metrics.RecordCrawlFailure(metrics.StageMatch)
			c.reportFailure(ctx, log, metrics.StageMatch, id, fetchErr)
			continue
		}
		c.clearFailure(ctx, id, metrics.StageMatch)
		if body == nil {
			report.MatchesCached++
		} else {
			report.MatchesFetched++
		}
	}

	log.Info(ctx, "league crawled",
		logger.Int("matches_fetched", report.MatchesFetched),
		logger.Int("matches_cached", report.MatchesCached),
		logger.Int("match_failures", report.MatchFailures),
		logger.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}

func (c *Crawler) leagueEntries(ctx context.Context, league string) ([]leagueEntry, error) {
	raw, err := c.api.GetLeague(ctx, league)
	if err != nil {
		return nil, fmt.Errorf("league %s: %w", league, err)
	}
	var list leagueList
	if err := jsonAPI.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: league %s: %v", ErrMalformedLeagueResponse, league, err)
	}
	if list.Entries == nil {
		return nil, fmt.Errorf("%w: league %s: no entries", ErrMalformedLeagueResponse, league)
	}
	for i, e := range *list.Entries {
		if e.SummonerID == "" && e.PUUID == "" {
			return nil, fmt.Errorf("%w: league %s: entry %d has no summonerId", ErrMalformedLeagueResponse, league, i)
		}
	}
	return *list.Entries, nil
}

// key identifies an entry in logs.
func (e leagueEntry) key() string {
	if e.SummonerID != "" {
		return e.SummonerID
	}
	return e.PUUID
}

// summonerMatchIDs resolves the entry to a puuid, then lists its match ids.
// Entries that already carry a puuid skip the summoner lookup. The returned
// stage names the step that failed.
func (c *Crawler) summonerMatchIDs(ctx context.Context, e leagueEntry) ([]string, string, error) {
	puuid := e.PUUID
	if puuid == "" {
		raw, err := c.api.GetSummoner(ctx, e.SummonerID)
		if err != nil {
			return nil, metrics.StageSummoner, err
		}
		var s summoner
		if err := jsonAPI.Unmarshal(raw, &s); err != nil {
			return nil, metrics.StageSummoner, fmt.Errorf("%w: summoner %s: %v", ErrMalformedResponse, e.SummonerID, err)
		}
		if s.PUUID == "" {
			return nil, metrics.StageSummoner, fmt.Errorf("%w: summoner %s: no puuid", ErrMalformedResponse, e.SummonerID)
		}
		puuid = s.PUUID
	}

	raw, err := c.api.GetMatchIDsFor(ctx, puuid)
	if err != nil {
		return nil, metrics.StageMatchIDs, err
	}
	var ids []string
	if err := jsonAPI.Unmarshal(raw, &ids); err != nil {
		return nil, metrics.StageMatchIDs, fmt.Errorf("%w: match ids of %s: %v", ErrMalformedResponse, puuid, err)
	}
	return ids, "", nil
}

// reportFailure logs the first failure of an id at warn level and repeats
// at debug level.
func (c *Crawler) reportFailure(ctx context.Context, log logger.Logger, stage, id string, err error) {
	fields := []logger.Field{logger.String("stage", stage), logger.String("id", id), logger.Error(err)}
	if c.failures.SeenAndRecord(ctx, stage+":"+id) {
		log.Debug(ctx, "crawl step failed again", fields...)
		return
	}
	log.Warn(ctx, "crawl step failed, skipping", fields...)
}

// clearFailure forgets earlier failures of id so a later relapse is warned
// about again.
func (c *Crawler) clearFailure(ctx context.Context, id string, stages ...string) {
	for _, stage := range stages {
		c.failures.Forget(ctx, stage+":"+id)
	}
}
