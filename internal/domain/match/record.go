// Package match holds the decoded form of an upstream TFT match body.
//
// Required fields are plain values or slices and are checked by Validate.
// Optional fields are pointers; nil means the field was absent.
package match

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // codec config

// Record is one match.
type Record struct {
	Metadata Metadata `json:"metadata"`
	Info     Info     `json:"info"`
}

// Metadata identifies the match.
type Metadata struct {
	MatchID string `json:"match_id"`
}

// Info carries the match facts and its participants.
type Info struct {
	GameDatetime   *int64        `json:"game_datetime"`
	GameLength     *float64      `json:"game_length"`
	TFTSetNumber   *int          `json:"tft_set_number"`
	TFTSetCoreName *string       `json:"tft_set_core_name"`
	Participants   []Participant `json:"participants"`
}

// Participant is one player's board at elimination or victory.
type Participant struct {
	PUUID                string   `json:"puuid"`
	Placement            *int     `json:"placement"`
	Level                *int     `json:"level"`
	TotalDamageToPlayers *int     `json:"total_damage_to_players"`
	LastRound            *int     `json:"last_round"`
	Augments             []string `json:"augments"`
	Traits               []Trait  `json:"traits"`
	Units                []Unit   `json:"units"`
}

// Trait is an active or inactive trait of a participant.
type Trait struct {
	Name        *string `json:"name"`
	NumUnits    *int    `json:"num_units"`
	Style       *int    `json:"style"`
	TierCurrent *int    `json:"tier_current"`
	TierTotal   *int    `json:"tier_total"`
}

// Unit is a champion on the final board.
type Unit struct {
	CharacterID *string  `json:"character_id"`
	Name        *string  `json:"name"`
	Rarity      *int     `json:"rarity"`
	Tier        *int     `json:"tier"`
	ItemNames   []string `json:"itemNames"`
}

// Decode parses and validates a raw match body.
func Decode(raw []byte) (*Record, error) {
	var rec Record
	if err := jsonAPI.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMatch, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Validate reports the first missing required field.
func (r *Record) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrMalformedMatch)
	}
	if r.Metadata.MatchID == "" {
		return missing("metadata.match_id")
	}
	if r.Info.GameLength == nil {
		return missing("info.game_length")
	}
	if r.Info.Participants == nil {
		return missing("info.participants")
	}
	for i, p := range r.Info.Participants {
		if p.PUUID == "" {
			return missing(fmt.Sprintf("info.participants[%d].puuid", i))
		}
		if p.Traits == nil {
			return missing(fmt.Sprintf("info.participants[%d].traits", i))
		}
		if p.Units == nil {
			return missing(fmt.Sprintf("info.participants[%d].units", i))
		}
		for j, u := range p.Units {
			if u.ItemNames == nil {
				return missing(fmt.Sprintf("info.participants[%d].units[%d].itemNames", i, j))
			}
		}
	}
	return nil
}

func missing(field string) error {
	return fmt.Errorf("%w: missing %s", ErrMalformedMatch, field)
}
