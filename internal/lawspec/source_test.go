package lawspec

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type SourceReferenceSuite struct {
	suite.Suite
}

func TestSourceReferenceSuite(t *testing.T) {
	suite.Run(t, new(SourceReferenceSuite))
}

func (s *SourceReferenceSuite) TestFromMap() {
	s.Run("full reference", func() {
		ref, err := SourceReferenceFromMap(map[string]any{
			"table": "personen",
			"field": "geboortedatum",
			"select_on": []any{
				map[string]any{
					"name":        "bsn",
					"description": "Burgerservicenummer",
					"type":        "string",
					"value":       "$BSN",
				},
			},
		})
		s.Require().NoError(err)
		s.Equal("personen", ref.Table)
		s.Equal("geboortedatum", ref.Field)
		s.Require().Len(ref.SelectOn, 1)
		s.Equal("$BSN", ref.SelectOn[0].Value)
	})

	s.Run("missing select_on yields empty list", func() {
		ref, err := SourceReferenceFromMap(map[string]any{
			"table": "personen",
			"field": "woonplaats",
		})
		s.Require().NoError(err)
		s.NotNil(ref.SelectOn)
		s.Empty(ref.SelectOn)
	})

	s.Run("missing table rejected", func() {
		_, err := SourceReferenceFromMap(map[string]any{"field": "x"})
		s.Require().Error(err)
	})

	s.Run("incomplete selector rejected", func() {
		_, err := SourceReferenceFromMap(map[string]any{
			"table": "personen",
			"field": "geboortedatum",
			"select_on": []any{
				map[string]any{"name": "bsn", "value": "$BSN"},
			},
		})
		s.Require().Error(err)
	})
}

func (s *SourceReferenceSuite) TestBind() {
	ref := SourceReference{
		Table: "personen",
		Field: "geboortedatum",
		SelectOn: []SelectOnField{
			{Name: "bsn", Description: "Burgerservicenummer", Type: "string", Value: "$BSN"},
			{Name: "peildatum", Description: "Peildatum", Type: "date", Value: "$ONBEKEND"},
			{Name: "bron", Description: "Bronregister", Type: "string", Value: "BRP"},
		},
	}

	bound := ref.Bind(map[string]any{"BSN": "123456789"})

	s.Equal("123456789", bound.SelectOn[0].Value)
	// Unknown placeholders stay verbatim for the data-source layer to reject.
	s.Equal("$ONBEKEND", bound.SelectOn[1].Value)
	s.Equal("BRP", bound.SelectOn[2].Value)
	// The original is untouched.
	s.Equal("$BSN", ref.SelectOn[0].Value)
}
