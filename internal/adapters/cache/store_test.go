package cache_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/tftscrape/internal/adapters/cache"
	. "github.com/smartystreets/goconvey/convey"
)

const matchURL = "https://americas.api.riotgames.com/tft/match/v1/matches/NA1_1"

func countingFetch(calls *int, body string) cache.FetchFunc {
	return func(context.Context) (cache.Result, error) {
		*calls++
		return cache.Result{Body: json.RawMessage(body)}, nil
	}
}

func TestKeyDerivation(t *testing.T) {
	Convey("Given a store", t, func() {
		dir := t.TempDir()
		s := cache.New(dir)

		Convey("Then the key is the md5 hex of the url", func() {
			So(cache.Key(""), ShouldEqual, "d41d8cd98f00b204e9800998ecf8427e")
			So(cache.Key("abc"), ShouldEqual, "900150983cd24fb0d6963f7d28e17f72")
		})

		Convey("Then the path joins partition and key", func() {
			So(s.Path("match", "abc"), ShouldEqual, filepath.Join(dir, "match-900150983cd24fb0d6963f7d28e17f72.json"))
		})
	})
}

func TestGetOrFetch(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		s := cache.New(filepath.Join(t.TempDir(), "nested"))
		calls := 0

		Convey("When the same request is made twice", func() {
			first, err1 := s.GetOrFetch(ctx, "summoner", matchURL, countingFetch(&calls, `{"puuid":"P1"}`), false)
			second, err2 := s.GetOrFetch(ctx, "summoner", matchURL, countingFetch(&calls, `{"puuid":"other"}`), false)

			Convey("Then fetch runs once and both calls return the stored body", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(calls, ShouldEqual, 1)
				So(string(first), ShouldEqual, `{"puuid":"P1"}`)
				So(string(second), ShouldEqual, `{"puuid":"P1"}`)

				stored, err := os.ReadFile(s.Path("summoner", matchURL))
				So(err, ShouldBeNil)
				So(string(stored), ShouldEqual, `{"puuid":"P1"}`)
			})
		})

		Convey("When skipIfPresent is set", func() {
			body, err := s.GetOrFetch(ctx, "match", matchURL, countingFetch(&calls, `{"a":1}`), true)
			So(err, ShouldBeNil)
			So(string(body), ShouldEqual, `{"a":1}`)

			again, err := s.GetOrFetch(ctx, "match", matchURL, countingFetch(&calls, `{"a":2}`), true)

			Convey("Then a present entry yields nothing and no fetch", func() {
				So(err, ShouldBeNil)
				So(again, ShouldBeNil)
				So(calls, ShouldEqual, 1)
			})
		})

		Convey("When the same url is used in two partitions", func() {
			_, _ = s.GetOrFetch(ctx, "get", matchURL, countingFetch(&calls, `{}`), false)
			_, _ = s.GetOrFetch(ctx, "match", matchURL, countingFetch(&calls, `{}`), false)

			Convey("Then each partition holds its own entry", func() {
				So(calls, ShouldEqual, 2)
				So(s.Path("get", matchURL), ShouldNotEqual, s.Path("match", matchURL))
			})
		})

		Convey("When fetch fails", func() {
			boom := errors.New("boom")
			_, err := s.GetOrFetch(ctx, "match", matchURL, func(context.Context) (cache.Result, error) {
				return cache.Result{}, boom
			}, false)

			Convey("Then the error is returned unchanged and nothing is stored", func() {
				So(err, ShouldEqual, boom)
				_, statErr := os.Stat(s.Path("match", matchURL))
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})
		})

		Convey("When fetch marks the result as not storable", func() {
			body, err := s.GetOrFetch(ctx, "summoner", matchURL, func(context.Context) (cache.Result, error) {
				calls++
				return cache.Result{Body: json.RawMessage(`{"status":{"status_code":404}}`), NoStore: true}, nil
			}, false)

			Convey("Then the body is returned but the next call fetches again", func() {
				So(err, ShouldBeNil)
				So(string(body), ShouldContainSubstring, "404")
				_, _ = s.GetOrFetch(ctx, "summoner", matchURL, countingFetch(&calls, `{}`), false)
				So(calls, ShouldEqual, 2)
			})
		})
	})

	Convey("Given a store whose directory is a regular file", t, func() {
		blocker := filepath.Join(t.TempDir(), "blocker")
		So(os.WriteFile(blocker, []byte("x"), 0o600), ShouldBeNil)
		s := cache.New(blocker)
		calls := 0

		_, err := s.GetOrFetch(context.Background(), "match", matchURL, countingFetch(&calls, `{}`), false)

		Convey("Then writing fails with ErrCacheIO", func() {
			So(errors.Is(err, cache.ErrCacheIO), ShouldBeTrue)
		})
	})
}

func TestFilesAndPurge(t *testing.T) {
	Convey("Given a store with entries in several partitions", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		s := cache.New(dir)
		calls := 0
		for _, u := range []string{"u1", "u2", "u3"} {
			_, err := s.GetOrFetch(ctx, "match", u, countingFetch(&calls, `{}`), false)
			So(err, ShouldBeNil)
		}
		_, _ = s.GetOrFetch(ctx, "get", "league", countingFetch(&calls, `{}`), false)
		_, _ = s.GetOrFetch(ctx, "summoner", "s1", countingFetch(&calls, `{}`), false)

		Convey("When listing a partition", func() {
			files, err := s.Files("match")

			Convey("Then only its entries are returned, sorted", func() {
				So(err, ShouldBeNil)
				So(files, ShouldHaveLength, 3)
				So(files[0] < files[1] && files[1] < files[2], ShouldBeTrue)
			})
		})

		Convey("When purging the get partition", func() {
			n, err := s.Purge(ctx, "get")

			Convey("Then only league listings are removed", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
				left, _ := filepath.Glob(filepath.Join(dir, "*.json"))
				So(left, ShouldHaveLength, 4)
			})
		})

		Convey("When purging with a wildcard", func() {
			n, err := s.Purge(ctx, "*")

			Convey("Then everything is removed", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 5)
			})
		})

		Convey("When purging with an empty pattern", func() {
			n, err := s.Purge(ctx, " ")

			Convey("Then nothing is removed", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)
			})
		})
	})
}
