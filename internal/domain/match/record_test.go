package match_test

import (
	"errors"
	"testing"

	"github.com/okian/tftscrape/internal/domain/match"
	. "github.com/smartystreets/goconvey/convey"
)

const fullMatch = `{
  "metadata": {"match_id": "NA1_4200000001", "participants": ["P1", "P2"]},
  "info": {
    "game_datetime": 1700000000000,
    "game_length": 2046.5,
    "tft_set_number": 9,
    "tft_set_core_name": "TFTSet9_Stage2",
    "participants": [
      {
        "puuid": "P1", "placement": 1, "level": 9, "last_round": 34,
        "total_damage_to_players": 160,
        "augments": ["TFT9_Augment_A", "TFT9_Augment_B"],
        "traits": [{"name": "Set9_Bruiser", "num_units": 4, "style": 2, "tier_current": 2, "tier_total": 3}],
        "units": [{"character_id": "TFT9_Sett", "name": "", "rarity": 4, "tier": 2, "itemNames": ["TFT_Item_Warmogs"]}]
      },
      {
        "puuid": "P2", "placement": 8,
        "traits": [],
        "units": []
      }
    ]
  }
}`

func TestDecode(t *testing.T) {
	Convey("Given a complete match body", t, func() {
		rec, err := match.Decode([]byte(fullMatch))

		Convey("Then every field is decoded", func() {
			So(err, ShouldBeNil)
			So(rec.Metadata.MatchID, ShouldEqual, "NA1_4200000001")
			So(*rec.Info.GameDatetime, ShouldEqual, int64(1700000000000))
			So(*rec.Info.GameLength, ShouldEqual, 2046.5)
			So(*rec.Info.TFTSetNumber, ShouldEqual, 9)
			So(*rec.Info.TFTSetCoreName, ShouldEqual, "TFTSet9_Stage2")
			So(rec.Info.Participants, ShouldHaveLength, 2)

			p1 := rec.Info.Participants[0]
			So(p1.Augments, ShouldResemble, []string{"TFT9_Augment_A", "TFT9_Augment_B"})
			So(*p1.Traits[0].Name, ShouldEqual, "Set9_Bruiser")
			So(*p1.Units[0].CharacterID, ShouldEqual, "TFT9_Sett")
			So(p1.Units[0].ItemNames, ShouldResemble, []string{"TFT_Item_Warmogs"})
		})

		Convey("Then absent optional fields stay nil", func() {
			p2 := rec.Info.Participants[1]
			So(p2.Level, ShouldBeNil)
			So(p2.LastRound, ShouldBeNil)
			So(p2.Augments, ShouldBeNil)
			So(p2.Traits, ShouldNotBeNil)
			So(p2.Traits, ShouldBeEmpty)
		})
	})
}

func TestDecodeMalformed(t *testing.T) {
	Convey("Given malformed match bodies", t, func() {
		cases := []struct {
			name string
			body string
			want string
		}{
			{"not json", `{"metadata":`, ""},
			{"no match id", `{"metadata":{},"info":{"game_length":1,"participants":[]}}`, "metadata.match_id"},
			{"no game length", `{"metadata":{"match_id":"M"},"info":{"participants":[]}}`, "info.game_length"},
			{"no participants", `{"metadata":{"match_id":"M"},"info":{"game_length":1}}`, "info.participants"},
			{"null participants", `{"metadata":{"match_id":"M"},"info":{"game_length":1,"participants":null}}`, "info.participants"},
			{"no puuid", `{"metadata":{"match_id":"M"},"info":{"game_length":1,"participants":[{"traits":[],"units":[]}]}}`, "participants[0].puuid"},
			{"no traits", `{"metadata":{"match_id":"M"},"info":{"game_length":1,"participants":[{"puuid":"P","units":[]}]}}`, "participants[0].traits"},
			{"no units", `{"metadata":{"match_id":"M"},"info":{"game_length":1,"participants":[{"puuid":"P","traits":[]}]}}`, "participants[0].units"},
			{"no item names", `{"metadata":{"match_id":"M"},"info":{"game_length":1,"participants":[{"puuid":"P","traits":[],"units":[{"character_id":"C"}]}]}}`, "units[0].itemNames"},
			{"wrong type", `{"metadata":{"match_id":"M"},"info":{"game_length":"long","participants":[]}}`, ""},
		}

		for _, tc := range cases {
			_, err := match.Decode([]byte(tc.body))

			So(errors.Is(err, match.ErrMalformedMatch), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, tc.want)
		}
	})

	Convey("Given a nil record", t, func() {
		var rec *match.Record
		So(errors.Is(rec.Validate(), match.ErrMalformedMatch), ShouldBeTrue)
	})
}
