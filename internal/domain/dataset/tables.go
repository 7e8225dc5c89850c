// Package dataset turns match records into six flat tables that share the
// match columns as a join key.
package dataset

// Table names, also the CSV file stems.
const (
	Matches      = "matches"
	Participants = "participants"
	Augments     = "augments"
	Traits       = "traits"
	Units        = "units"
	Items        = "items"
)

// Column names referenced outside this package.
const (
	ColMatchID       = "match_id"
	ColMatchDatetime = "match_datetime"
	ColSetName       = "tft_set_name"
	ColPUUID         = "puuid"
)

var tableNames = []string{Matches, Participants, Augments, Traits, Units, Items} //nolint:gochecknoglobals // fixed order

var matchColumns = []string{ColMatchID, ColMatchDatetime, "match_length", "tft_set_number", ColSetName} //nolint:gochecknoglobals // fixed schema

var columns = map[string][]string{ //nolint:gochecknoglobals // fixed schema
	Matches:      matchColumns,
	Participants: withMatch("placement", "level", "total_damage_to_players", "last_round", ColPUUID),
	Augments:     withMatch("augment", ColPUUID),
	Traits:       withMatch("trait", "num_units", "style", "tier_current", "tier_total", ColPUUID),
	Units:        withMatch("character_id", "character_name", "rarity", "tier", ColPUUID),
	Items:        withMatch("item", "character_id", ColPUUID),
}

func withMatch(cols ...string) []string {
	out := make([]string, 0, len(cols)+len(matchColumns))
	out = append(out, cols...)
	return append(out, matchColumns...)
}

// TableNames returns the six table names in write order.
func TableNames() []string {
	return append([]string(nil), tableNames...)
}

// Columns returns the header of table, or false for an unknown table.
func Columns(table string) ([]string, bool) {
	cols, ok := columns[table]
	if !ok {
		return nil, false
	}
	return append([]string(nil), cols...), true
}

// KeyColumns returns the columns a loaded table is indexed by.
func KeyColumns(table string) []string {
	if table == Matches {
		return []string{ColMatchID}
	}
	return []string{ColMatchID, ColPUUID}
}
