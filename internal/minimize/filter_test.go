package minimize

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"machinelaw/internal/lawspec"
	"machinelaw/internal/sensitivity"
	"machinelaw/internal/tracking"
)

// fakeProvider serves canned demographics with per-field failure injection.
type fakeProvider struct {
	bracket  string
	partner  bool
	children bool
	employed bool
	country  string
	fail     map[string]bool
}

func (p *fakeProvider) err(field string) error {
	if p.fail[field] {
		return fmt.Errorf("%s unavailable", field)
	}
	return nil
}

func (p *fakeProvider) AgeBracket(context.Context, string) (string, error) {
	return p.bracket, p.err("age_bracket")
}

func (p *fakeProvider) HasPartner(context.Context, string) (bool, error) {
	return p.partner, p.err("has_partner")
}

func (p *fakeProvider) HasChildren(context.Context, string) (bool, error) {
	return p.children, p.err("has_children")
}

func (p *fakeProvider) IsEmployed(context.Context, string) (bool, error) {
	return p.employed, p.err("is_employed")
}

func (p *fakeProvider) ResidenceCountry(context.Context, string) (string, error) {
	return p.country, p.err("residence_country")
}

// fakeRecorder captures access and elimination notifications.
type fakeRecorder struct {
	mu           sync.Mutex
	accesses     map[string]int
	eliminations map[string]string
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		accesses:     map[string]int{},
		eliminations: map[string]string{},
	}
}

func (r *fakeRecorder) RecordFieldAccess(field, _, _ string, sensitivity int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accesses[field] = sensitivity
}

func (r *fakeRecorder) RecordEarlyElimination(law, _, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eliminations[law] = reason
}

type FilterSuite struct {
	suite.Suite
	provider *fakeProvider
	recorder *fakeRecorder
	filter   *Filter
	ctx      context.Context
}

func TestFilterSuite(t *testing.T) {
	suite.Run(t, new(FilterSuite))
}

func (s *FilterSuite) SetupTest() {
	s.provider = &fakeProvider{
		bracket:  sensitivity.BracketAdult,
		partner:  false,
		children: false,
		employed: true,
		country:  "NL",
		fail:     map[string]bool{},
	}
	s.recorder = newFakeRecorder()
	s.filter = NewFilter(s.provider, sensitivity.NewDefaultClassifier(nil), nil, nil)
	s.ctx = context.Background()
}

func lawWithHints(name string, hints *lawspec.DataMinimization) *lawspec.Specification {
	return &lawspec.Specification{Name: name, Service: "TEST", Minimization: hints}
}

func (s *FilterSuite) TestMinimalData() {
	data := s.filter.MinimalData(s.ctx, "123456789", s.recorder)

	s.Equal(sensitivity.BracketAdult, data.AgeBracket)
	s.Require().NotNil(data.HasPartner)
	s.False(*data.HasPartner)
	s.Require().NotNil(data.IsEmployed)
	s.True(*data.IsEmployed)
	s.Equal("NL", data.ResidenceCountry)

	// Every collected field is recorded at its declared sensitivity level.
	s.Equal(map[string]int{
		"age_bracket":       2,
		"has_partner":       1,
		"has_children":      1,
		"is_employed":       2,
		"residence_country": 3,
	}, s.recorder.accesses)
}

func (s *FilterSuite) TestMinimalDataPartialFailure() {
	s.provider.fail["age_bracket"] = true
	s.provider.fail["is_employed"] = true

	data := s.filter.MinimalData(s.ctx, "123456789", s.recorder)

	// Failed fields stay unset; the rest still arrive.
	s.Empty(data.AgeBracket)
	s.Nil(data.IsEmployed)
	s.NotNil(data.HasPartner)
	s.Equal("NL", data.ResidenceCountry)
	s.NotContains(s.recorder.accesses, "age_bracket")
}

func (s *FilterSuite) TestFilterApplicableLaws() {
	minAge18, minAge67 := 18, 67
	candidates := []*lawspec.Specification{
		lawWithHints("zorgtoeslagwet", &lawspec.DataMinimization{MinAge: &minAge18}),
		lawWithHints("aow", &lawspec.DataMinimization{MinAge: &minAge67}),
		lawWithHints("kinderbijslagwet", &lawspec.DataMinimization{RequiresChildren: true}),
		lawWithHints("zonder_hints", nil),
	}

	data := s.filter.MinimalData(s.ctx, "123456789", s.recorder)
	result := s.filter.FilterApplicableLaws(s.ctx, candidates, data, s.recorder)

	// Adult without children: the pension law and child benefit fall away,
	// input order is preserved among the survivors.
	s.Require().Len(result.Applicable, 2)
	s.Equal("zorgtoeslagwet", result.Applicable[0].Name)
	s.Equal("zonder_hints", result.Applicable[1].Name)

	s.Require().Len(result.Eliminated, 2)
	s.Equal(tracking.ReasonAgeFilter, s.recorder.eliminations["aow"])
	s.Equal(tracking.ReasonChildrenFilter, s.recorder.eliminations["kinderbijslagwet"])
}

func (s *FilterSuite) TestAllLawsEliminated() {
	s.provider.bracket = sensitivity.BracketMinor
	minAge18, minAge67 := 18, 67
	candidates := []*lawspec.Specification{
		lawWithHints("zorgtoeslagwet", &lawspec.DataMinimization{MinAge: &minAge18}),
		lawWithHints("aow", &lawspec.DataMinimization{MinAge: &minAge67}),
		lawWithHints("partnertoeslag", &lawspec.DataMinimization{RequiresPartner: true}),
	}

	data := s.filter.MinimalData(s.ctx, "123456789", s.recorder)
	result := s.filter.FilterApplicableLaws(s.ctx, candidates, data, s.recorder)

	s.Empty(result.Applicable)
	s.Len(result.Eliminated, 3)
}

func (s *FilterSuite) TestUnknownFieldsKeepLawsInPlay() {
	s.provider.fail["age_bracket"] = true
	s.provider.fail["has_partner"] = true
	minAge67 := 67
	candidates := []*lawspec.Specification{
		lawWithHints("aow", &lawspec.DataMinimization{MinAge: &minAge67}),
		lawWithHints("partnertoeslag", &lawspec.DataMinimization{RequiresPartner: true}),
	}

	data := s.filter.MinimalData(s.ctx, "123456789", s.recorder)
	result := s.filter.FilterApplicableLaws(s.ctx, candidates, data, s.recorder)

	s.Len(result.Applicable, 2)
	s.Empty(result.Eliminated)
}
