package service

import "errors"

var (
	// ErrMalformedLeagueResponse is returned when a league listing has no
	// usable entries array. It ends the crawl of that league.
	ErrMalformedLeagueResponse = errors.New("malformed league response")

	// ErrMalformedResponse is returned for a summoner or match id body of the
	// wrong shape. It only affects the summoner being processed.
	ErrMalformedResponse = errors.New("malformed response")
)
