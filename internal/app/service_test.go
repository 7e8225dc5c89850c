package service_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/tftscrape/internal/adapters/cache"
	"github.com/okian/tftscrape/internal/adapters/riot"
	"github.com/okian/tftscrape/internal/adapters/tablestore"
	service "github.com/okian/tftscrape/internal/app"
	"github.com/okian/tftscrape/internal/config"
	"github.com/okian/tftscrape/internal/domain/dataset"
	"github.com/okian/tftscrape/internal/domain/region"
	"github.com/okian/tftscrape/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const exampleMatch = `{"metadata":{"match_id":"M1"},"info":{"game_length":1800,
	"participants":[{"puuid":"P1","placement":1,"level":9,"augments":["A1"],"traits":[],"units":[]}]}}`

// upstream is a fake API serving the one-summoner example league.
type upstream struct {
	mu    sync.Mutex
	hits  map[string]int
	token string
	// limited paths answer 429
	limited map[string]bool
	srv   *httptest.Server
}

func newUpstream(t *testing.T) *upstream {
	u := &upstream{hits: map[string]int{}, limited: map[string]bool{}}
	bodies := map[string]string{
		"/tft/league/v1/challenger":             `{"entries":[{"summonerId":"S1"}]}`,
		"/tft/summoner/v1/summoners/S1":         `{"puuid":"P1"}`,
		"/tft/match/v1/matches/by-puuid/P1/ids": `["M1"]`,
		"/tft/match/v1/matches/M1":              exampleMatch,
	}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.hits[r.URL.Path]++
		u.token = r.Header.Get("X-Riot-Token")
		limited := u.limited[r.URL.Path]
		u.mu.Unlock()

		if limited {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"status":{"status_code":429}}`))
			return
		}

		body, ok := bodies[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":{"status_code":404}}`))
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) limit(path string, on bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.limited[path] = on
}

func (u *upstream) count(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[path]
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := config.New()
	cfg.Riot.Token = "RGAPI-e2e"
	cfg.Scrape.Leagues = []string{"challenger"}
	cfg.Scrape.CacheDir = filepath.Join(dir, "cache")
	cfg.Scrape.Sleep = 0
	cfg.Data.Dir = filepath.Join(dir, "data")
	cfg.Data.Workers = 2
	return cfg
}

func TestServiceEndToEnd(t *testing.T) {
	Convey("Given a service in front of a fake upstream", t, func() {
		ctx := context.Background()
		up := newUpstream(t)
		cfg := testConfig(t)
		svc := service.New(cfg,
			service.WithLogger(logger.Discard()),
			service.WithBaseURL(func(string) string { return up.srv.URL }),
			service.WithLimiter(riot.Unlimited()),
		)

		Convey("When scraping, exporting and loading", func() {
			reports, err := svc.Scrape(ctx)
			So(err, ShouldBeNil)
			_, err = svc.Export(ctx)
			So(err, ShouldBeNil)
			days := 0
			set, err := svc.Load(ctx, service.LoadRequest{DaysCutoff: &days})
			So(err, ShouldBeNil)

			Convey("Then the crawl report counts one summoner and one match", func() {
				So(reports, ShouldHaveLength, 1)
				So(reports[0].Summoners, ShouldEqual, 1)
				So(reports[0].MatchIDs, ShouldEqual, 1)
				So(reports[0].MatchesFetched, ShouldEqual, 1)
				up.mu.Lock()
				So(up.token, ShouldEqual, "RGAPI-e2e")
				up.mu.Unlock()
			})

			Convey("Then the tables hold the example rows", func() {
				m, _ := set.Table(dataset.Matches)
				So(m.Len(), ShouldEqual, 1)
				id, _ := m.Value(0, "match_id")
				length, _ := m.Value(0, "match_length")
				So(id, ShouldEqual, "M1")
				So(length, ShouldEqual, "1800")

				p, _ := set.Table(dataset.Participants)
				So(p.Len(), ShouldEqual, 1)
				placement, _ := p.Value(0, "placement")
				So(placement, ShouldEqual, "1")

				a, _ := set.Table(dataset.Augments)
				So(a.Len(), ShouldEqual, 1)
				aug, _ := a.Value(0, "augment")
				So(aug, ShouldEqual, "A1")

				for _, name := range []string{dataset.Traits, dataset.Units, dataset.Items} {
					tbl, ok := set.Table(name)
					So(ok, ShouldBeTrue)
					So(tbl.Len(), ShouldEqual, 0)
				}
			})

			Convey("Then a second scrape only refreshes the league listing", func() {
				_, err := svc.Scrape(ctx)
				So(err, ShouldBeNil)
				So(up.count("/tft/league/v1/challenger"), ShouldEqual, 2)
				So(up.count("/tft/summoner/v1/summoners/S1"), ShouldEqual, 1)
				So(up.count("/tft/match/v1/matches/M1"), ShouldEqual, 1)
			})

			Convey("Then the default window drops the undated match", func() {
				set, err := svc.Load(ctx, service.LoadRequest{Tables: []string{dataset.Matches}})
				So(err, ShouldBeNil)
				m, _ := set.Table(dataset.Matches)
				So(m.Len(), ShouldEqual, 0)
			})

			Convey("Then purging everything empties the cache", func() {
				n, err := svc.Purge(ctx, "*")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 4)
			})
		})

		Convey("When loading before any export", func() {
			_, err := svc.Load(ctx, service.LoadRequest{})

			Convey("Then ErrTableNotFound is returned", func() {
				So(errors.Is(err, tablestore.ErrTableNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestServiceScrapeRateLimited(t *testing.T) {
	Convey("Given an upstream that rate limits the match endpoint", t, func() {
		ctx := context.Background()
		up := newUpstream(t)
		up.limit("/tft/match/v1/matches/M1", true)
		cfg := testConfig(t)
		store := cache.New(cfg.Scrape.CacheDir)
		svc := service.New(cfg,
			service.WithLogger(logger.Discard()),
			service.WithBaseURL(func(string) string { return up.srv.URL }),
			service.WithLimiter(riot.Unlimited()),
		)

		Convey("When scraping", func() {
			reports, err := svc.Scrape(ctx)

			Convey("Then the match counts as a failure, not a fetch", func() {
				So(err, ShouldBeNil)
				So(reports, ShouldHaveLength, 1)
				So(reports[0].MatchIDs, ShouldEqual, 1)
				So(reports[0].MatchesFetched, ShouldEqual, 0)
				So(reports[0].MatchesCached, ShouldEqual, 0)
				So(reports[0].MatchFailures, ShouldEqual, 1)
				files, _ := store.Files(riot.PartitionMatch)
				So(files, ShouldBeEmpty)
			})

			Convey("Then the next scrape fetches it once the limit lifts", func() {
				up.limit("/tft/match/v1/matches/M1", false)
				reports, err := svc.Scrape(ctx)
				So(err, ShouldBeNil)
				So(reports[0].MatchesFetched, ShouldEqual, 1)
				So(reports[0].MatchFailures, ShouldEqual, 0)
				files, _ := store.Files(riot.PartitionMatch)
				So(files, ShouldHaveLength, 1)
			})
		})
	})
}

func TestServiceConfigErrors(t *testing.T) {
	Convey("Given configs the scraper cannot use", t, func() {
		ctx := context.Background()

		Convey("When the token is missing", func() {
			cfg := testConfig(t)
			cfg.Riot.Token = ""
			_, err := service.New(cfg, service.WithLogger(logger.Discard())).Scrape(ctx)

			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When the region is unknown", func() {
			cfg := testConfig(t)
			cfg.Scrape.Region = "ATLANTIS"
			_, err := service.New(cfg, service.WithLogger(logger.Discard())).Scrape(ctx)

			So(errors.Is(err, region.ErrUnknownRegion), ShouldBeTrue)
		})

		Convey("When export runs without a token", func() {
			cfg := testConfig(t)
			cfg.Riot.Token = ""
			_, err := service.New(cfg, service.WithLogger(logger.Discard())).Export(ctx)

			So(err, ShouldBeNil)
		})
	})
}

func TestLimiterFromConfig(t *testing.T) {
	Convey("Given a scrape config with a sleep and a bucket", t, func() {
		cfg := config.New().Scrape
		cfg.Sleep = 0
		cfg.RateLimits = []config.RateLimit{{Requests: 1, Per: time.Hour}}
		l := service.Limiter(cfg)

		Convey("Then the bucket governs after its burst", func() {
			So(l.Wait(context.Background()), ShouldBeNil)
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			So(l.Wait(ctx), ShouldNotBeNil)
		})
	})
}
