// Package region maps player-facing region codes to API routing hosts.
package region

import (
	"fmt"
	"sort"
	"strings"
)

// Routing is the pair of API hosts serving a region. Platform hosts league
// and summoner endpoints, Gateway hosts match endpoints.
type Routing struct {
	Platform string
	Gateway  string
}

// builtin is the default routing table.
var builtin = map[string]Routing{ //nolint:gochecknoglobals // read-only table
	"NA":   {Platform: "na1", Gateway: "americas"},
	"BR":   {Platform: "br1", Gateway: "americas"},
	"LAN":  {Platform: "la1", Gateway: "americas"},
	"LAS":  {Platform: "la2", Gateway: "americas"},
	"OCE":  {Platform: "oc1", Gateway: "sea"},
	"PH":   {Platform: "ph2", Gateway: "sea"},
	"SG":   {Platform: "sg2", Gateway: "sea"},
	"TH":   {Platform: "th2", Gateway: "sea"},
	"TW":   {Platform: "tw2", Gateway: "sea"},
	"VN":   {Platform: "vn2", Gateway: "sea"},
	"EUW":  {Platform: "euw1", Gateway: "europe"},
	"EUNE": {Platform: "eun1", Gateway: "europe"},
	"TR":   {Platform: "tr1", Gateway: "europe"},
	"RU":   {Platform: "ru", Gateway: "europe"},
	"KR":   {Platform: "kr", Gateway: "asia"},
	"JP":   {Platform: "jp1", Gateway: "asia"},
	"CN":   {Platform: "cn1", Gateway: "asia"},
}

// Resolver looks up routing for region codes. It is immutable after
// construction and safe for concurrent use.
type Resolver struct {
	table map[string]Routing
}

// NewResolver returns a resolver over the built-in table with overrides
// applied on top. Override codes are matched case-insensitively; an override
// with an empty host keeps the built-in value for that host.
func NewResolver(overrides map[string]Routing) *Resolver {
	table := make(map[string]Routing, len(builtin)+len(overrides))
	for code, r := range builtin {
		table[code] = r
	}
	for code, r := range overrides {
		key := normalize(code)
		if key == "" {
			continue
		}
		base := table[key]
		if r.Platform != "" {
			base.Platform = r.Platform
		}
		if r.Gateway != "" {
			base.Gateway = r.Gateway
		}
		table[key] = base
	}
	return &Resolver{table: table}
}

// Resolve returns the routing for code.
func (r *Resolver) Resolve(code string) (Routing, error) {
	routing, ok := r.table[normalize(code)]
	if !ok || routing.Platform == "" || routing.Gateway == "" {
		return Routing{}, fmt.Errorf("%w: %q", ErrUnknownRegion, code)
	}
	return routing, nil
}

// Codes lists the known region codes in sorted order.
func (r *Resolver) Codes() []string {
	codes := make([]string, 0, len(r.table))
	for code := range r.table {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
