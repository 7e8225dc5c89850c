package dataset

import (
	"fmt"

	"github.com/okian/tftscrape/internal/domain/match"
)

// Flatten turns one validated match into rows. Rows are emitted in
// participant order, and within a participant in source order.
func Flatten(rec *match.Record) (*Rows, error) {
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFlatten, err)
	}

	m := MatchRow{
		MatchID:       rec.Metadata.MatchID,
		MatchDatetime: rec.Info.GameDatetime,
		MatchLength:   *rec.Info.GameLength,
		SetNumber:     rec.Info.TFTSetNumber,
		SetName:       rec.Info.TFTSetCoreName,
	}

	rows := &Rows{
		Matches:      []MatchRow{m},
		Participants: make([]ParticipantRow, 0, len(rec.Info.Participants)),
	}
	for _, p := range rec.Info.Participants {
		rows.Participants = append(rows.Participants, ParticipantRow{
			Placement:            p.Placement,
			Level:                p.Level,
			TotalDamageToPlayers: p.TotalDamageToPlayers,
			LastRound:            p.LastRound,
			PUUID:                p.PUUID,
			Match:                m,
		})
		for _, a := range p.Augments {
			rows.Augments = append(rows.Augments, AugmentRow{Augment: a, PUUID: p.PUUID, Match: m})
		}
		for _, t := range p.Traits {
			rows.Traits = append(rows.Traits, TraitRow{
				Trait:       t.Name,
				NumUnits:    t.NumUnits,
				Style:       t.Style,
				TierCurrent: t.TierCurrent,
				TierTotal:   t.TierTotal,
				PUUID:       p.PUUID,
				Match:       m,
			})
		}
		for _, u := range p.Units {
			rows.Units = append(rows.Units, UnitRow{
				CharacterID:   u.CharacterID,
				CharacterName: u.Name,
				Rarity:        u.Rarity,
				Tier:          u.Tier,
				PUUID:         p.PUUID,
				Match:         m,
			})
			for _, item := range u.ItemNames {
				rows.Items = append(rows.Items, ItemRow{
					Item:        item,
					CharacterID: u.CharacterID,
					PUUID:       p.PUUID,
					Match:       m,
				})
			}
		}
	}
	return rows, nil
}
