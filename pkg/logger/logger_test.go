package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get returns a usable logger", func() {
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with an unknown format", func() {
			err := Init(WithFormat("xml"))

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "unknown log format")
			})
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a logger writing JSON into a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat("json"), WithWriter(&buf)), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Named("crawler").With(String("league", "challenger")).Info(ctx, "crawl started",
				Int("summoners", 3),
				Duration("elapsed", time.Second),
				Error(errors.New("boom")),
			)
			out := buf.String()

			Convey("Then the record carries message, fields and caller", func() {
				So(out, ShouldContainSubstring, `"msg":"crawl started"`)
				So(out, ShouldContainSubstring, `"component":"crawler"`)
				So(out, ShouldContainSubstring, `"league":"challenger"`)
				So(out, ShouldContainSubstring, `"summoners":3`)
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is raised to warn", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "shown")

			Convey("Then info records are dropped", func() {
				So(strings.Contains(buf.String(), "hidden"), ShouldBeFalse)
				So(buf.String(), ShouldContainSubstring, "shown")
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		for _, lvl := range []string{"debug", "info", "", "WARN", "warning", "error"} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("loud"), ShouldNotBeNil)
	})
}

func TestDiscard(t *testing.T) {
	Convey("Given a discard logger", t, func() {
		l := Discard()

		Convey("Then logging through it should not panic", func() {
			So(func() { l.Named("x").Error(context.Background(), "ignored") }, ShouldNotPanic)
		})
	})
}
