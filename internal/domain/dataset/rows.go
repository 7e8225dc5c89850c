package dataset

import (
	"strconv"
)

// MatchRow is one row of the matches table. Its values are repeated at the
// end of every other row.
type MatchRow struct {
	MatchID       string
	MatchDatetime *int64 // epoch milliseconds
	MatchLength   float64
	SetNumber     *int
	SetName       *string
}

func (r MatchRow) values() []string {
	return []string{
		r.MatchID,
		optInt64(r.MatchDatetime),
		strconv.FormatFloat(r.MatchLength, 'f', -1, 64),
		optInt(r.SetNumber),
		optString(r.SetName),
	}
}

// ParticipantRow is one player of a match.
type ParticipantRow struct {
	Placement            *int
	Level                *int
	TotalDamageToPlayers *int
	LastRound            *int
	PUUID                string
	Match                MatchRow
}

func (r ParticipantRow) values() []string {
	return append([]string{
		optInt(r.Placement),
		optInt(r.Level),
		optInt(r.TotalDamageToPlayers),
		optInt(r.LastRound),
		r.PUUID,
	}, r.Match.values()...)
}

// AugmentRow is one augment picked by a player.
type AugmentRow struct {
	Augment string
	PUUID   string
	Match   MatchRow
}

func (r AugmentRow) values() []string {
	return append([]string{r.Augment, r.PUUID}, r.Match.values()...)
}

// TraitRow is one trait of a player's board.
type TraitRow struct {
	Trait       *string
	NumUnits    *int
	Style       *int
	TierCurrent *int
	TierTotal   *int
	PUUID       string
	Match       MatchRow
}

func (r TraitRow) values() []string {
	return append([]string{
		optString(r.Trait),
		optInt(r.NumUnits),
		optInt(r.Style),
		optInt(r.TierCurrent),
		optInt(r.TierTotal),
		r.PUUID,
	}, r.Match.values()...)
}

// UnitRow is one unit of a player's board.
type UnitRow struct {
	CharacterID   *string
	CharacterName *string
	Rarity        *int
	Tier          *int
	PUUID         string
	Match         MatchRow
}

func (r UnitRow) values() []string {
	return append([]string{
		optString(r.CharacterID),
		optString(r.CharacterName),
		optInt(r.Rarity),
		optInt(r.Tier),
		r.PUUID,
	}, r.Match.values()...)
}

// ItemRow is one item held by a unit.
type ItemRow struct {
	Item        string
	CharacterID *string
	PUUID       string
	Match       MatchRow
}

func (r ItemRow) values() []string {
	return append([]string{r.Item, optString(r.CharacterID), r.PUUID}, r.Match.values()...)
}

// Rows holds the six tables for any number of matches.
type Rows struct {
	Matches      []MatchRow
	Participants []ParticipantRow
	Augments     []AugmentRow
	Traits       []TraitRow
	Units        []UnitRow
	Items        []ItemRow
}

// Append adds every row of o after the rows of r.
func (r *Rows) Append(o *Rows) {
	if o == nil {
		return
	}
	r.Matches = append(r.Matches, o.Matches...)
	r.Participants = append(r.Participants, o.Participants...)
	r.Augments = append(r.Augments, o.Augments...)
	r.Traits = append(r.Traits, o.Traits...)
	r.Units = append(r.Units, o.Units...)
	r.Items = append(r.Items, o.Items...)
}

// Len returns the row count of table, 0 for an unknown table.
func (r *Rows) Len(table string) int {
	switch table {
	case Matches:
		return len(r.Matches)
	case Participants:
		return len(r.Participants)
	case Augments:
		return len(r.Augments)
	case Traits:
		return len(r.Traits)
	case Units:
		return len(r.Units)
	case Items:
		return len(r.Items)
	}
	return 0
}

// Records renders table as string records in column order. Absent optional
// values render as empty cells.
func (r *Rows) Records(table string) [][]string {
	out := make([][]string, 0, r.Len(table))
	switch table {
	case Matches:
		for _, row := range r.Matches {
			out = append(out, row.values())
		}
	case Participants:
		for _, row := range r.Participants {
			out = append(out, row.values())
		}
	case Augments:
		for _, row := range r.Augments {
			out = append(out, row.values())
		}
	case Traits:
		for _, row := range r.Traits {
			out = append(out, row.values())
		}
	case Units:
		for _, row := range r.Units {
			out = append(out, row.values())
		}
	case Items:
		for _, row := range r.Items {
			out = append(out, row.values())
		}
	}
	return out
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optInt64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func optString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
