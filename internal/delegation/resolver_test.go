package delegation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"machinelaw/internal/engine"
	"machinelaw/internal/lawspec"
)

// fakeCatalog serves a fixed list of provider specs.
type fakeCatalog struct {
	specs []*lawspec.Specification
}

func (c *fakeCatalog) DiscoverableSpecs(tag string, _ time.Time) []*lawspec.Specification {
	var out []*lawspec.Specification
	for _, s := range c.specs {
		if s.Discoverable == tag {
			out = append(out, s)
		}
	}
	return out
}

// fakeEvaluator answers decision evaluations from canned per-law outputs.
type fakeEvaluator struct {
	outputs map[string]map[string]any // law name -> output name -> value
	fail    map[string]bool           // law name -> evaluation error
}

func (e *fakeEvaluator) Evaluate(_ context.Context, spec *lawspec.Specification, decisionID string, _ map[string]any) (*engine.EvaluationResult, error) {
	if e.fail[spec.Name] {
		return nil, fmt.Errorf("law %s broken", spec.Name)
	}
	d, ok := spec.DecisionByID(decisionID)
	if !ok {
		return nil, fmt.Errorf("decision %q not found", decisionID)
	}
	result := &engine.EvaluationResult{Output: map[string]any{}, RequirementsMet: true}
	if v, ok := e.outputs[spec.Name][d.Output]; ok {
		result.Output[d.Output] = v
	}
	return result, nil
}

// providerSpec declares the gate plus one decision per contract output, so
// DecisionByOutput finds them the way a real loaded law would.
func providerSpec(name string, outputs []string) *lawspec.Specification {
	spec := &lawspec.Specification{
		Name:         name,
		Service:      "KVK",
		Discoverable: DiscoverableTag,
	}
	for _, out := range outputs {
		spec.Decisions = append(spec.Decisions, &lawspec.Decision{ID: out, Output: out})
	}
	return spec
}

type ResolverSuite struct {
	suite.Suite
	ctx       context.Context
	reference time.Time
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctx = context.Background()
	s.reference = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
}

func fullContract() []string {
	return []string{
		keyHasDelegations, keySubjectIDs, keySubjectNames, keySubjectTypes,
		keyTypes, keyPermissions, keyValidFrom, keyValidUntil,
	}
}

func (s *ResolverSuite) TestDelegationsForUser() {
	spec := providerSpec("handelsregisterwet", fullContract())
	eval := &fakeEvaluator{outputs: map[string]map[string]any{
		"handelsregisterwet": {
			keyHasDelegations: true,
			keySubjectIDs:     []any{"87654321", "11223344"},
			keySubjectNames:   []any{"Bakkerij Jansen B.V.", "Stichting Dorpshuis"},
			keySubjectTypes:   []any{SubjectTypeBusiness, SubjectTypeBusiness},
			keyTypes:          []any{"bestuurder", "gemachtigde"},
			keyPermissions:    []any{[]any{"belastingaangifte", "subsidieaanvraag"}, []any{"inzage"}},
			keyValidFrom:      []any{"2024-01-01", "2025-01-01"},
			keyValidUntil:     []any{nil, "2025-12-31"},
		},
	}}
	r := NewResolver(&fakeCatalog{specs: []*lawspec.Specification{spec}}, eval, nil, nil)

	grants := r.DelegationsForUser(s.ctx, "123456789", s.reference)

	s.Require().Len(grants, 2)
	s.Equal("87654321", grants[0].SubjectID)
	s.Equal("Bakkerij Jansen B.V.", grants[0].SubjectName)
	s.Equal(SubjectTypeBusiness, grants[0].SubjectType)
	s.Equal([]string{"belastingaangifte", "subsidieaanvraag"}, grants[0].Permissions)
	s.Nil(grants[0].ValidUntil)
	s.Require().NotNil(grants[1].ValidUntil)
	s.True(grants[1].IsValid(s.reference))
}

func (s *ResolverSuite) TestGateFalseYieldsNothing() {
	spec := providerSpec("handelsregisterwet", fullContract())
	eval := &fakeEvaluator{outputs: map[string]map[string]any{
		"handelsregisterwet": {
			keyHasDelegations: false,
			keySubjectIDs:     []any{"87654321"},
		},
	}}
	r := NewResolver(&fakeCatalog{specs: []*lawspec.Specification{spec}}, eval, nil, nil)

	s.Empty(r.DelegationsForUser(s.ctx, "123456789", s.reference))
}

func (s *ResolverSuite) TestArrayMisalignment() {
	spec := providerSpec("handelsregisterwet", fullContract())
	eval := &fakeEvaluator{outputs: map[string]map[string]any{
		"handelsregisterwet": {
			keyHasDelegations: true,
			keySubjectIDs:     []any{"1", "2", "3"},
			keyPermissions:    []any{[]any{"inzage"}},
		},
	}}
	r := NewResolver(&fakeCatalog{specs: []*lawspec.Specification{spec}}, eval, nil, nil)

	grants := r.DelegationsForUser(s.ctx, "123456789", s.reference)

	s.Require().Len(grants, 3)
	s.Equal([]string{"inzage"}, grants[0].Permissions)
	// The missing tail degrades to defaults, never an index error.
	s.Empty(grants[1].Permissions)
	s.Empty(grants[2].Permissions)
	s.Equal(SubjectTypeUnknown, grants[1].SubjectType)
	s.Equal(SubjectTypeUnknown, grants[1].SubjectName)
}

func (s *ResolverSuite) TestNullSubjectIDSkipped() {
	spec := providerSpec("handelsregisterwet", fullContract())
	eval := &fakeEvaluator{outputs: map[string]map[string]any{
		"handelsregisterwet": {
			keyHasDelegations: true,
			keySubjectIDs:     []any{"1", nil, "3"},
		},
	}}
	r := NewResolver(&fakeCatalog{specs: []*lawspec.Specification{spec}}, eval, nil, nil)

	grants := r.DelegationsForUser(s.ctx, "123456789", s.reference)
	s.Require().Len(grants, 2)
	s.Equal("1", grants[0].SubjectID)
	s.Equal("3", grants[1].SubjectID)
}

func (s *ResolverSuite) TestBrokenProviderLawIsolated() {
	broken := providerSpec("kapotte_wet", fullContract())
	working := providerSpec("handelsregisterwet", fullContract())
	eval := &fakeEvaluator{
		fail: map[string]bool{"kapotte_wet": true},
		outputs: map[string]map[string]any{
			"handelsregisterwet": {
				keyHasDelegations: true,
				keySubjectIDs:     []any{"87654321"},
			},
		},
	}
	r := NewResolver(&fakeCatalog{specs: []*lawspec.Specification{broken, working}}, eval, nil, nil)

	grants := r.DelegationsForUser(s.ctx, "123456789", s.reference)
	s.Require().Len(grants, 1)
	s.Equal("87654321", grants[0].SubjectID)
}

func (s *ResolverSuite) TestValidity() {
	until := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	d := Delegation{
		SubjectID: "1",
		ValidFrom: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	s.Run("unbounded when valid_until absent", func() {
		s.True(d.IsValid(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))
	})
	s.Run("before valid_from", func() {
		s.False(d.IsValid(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
	})
	s.Run("boundary dates inclusive", func() {
		bounded := d
		bounded.ValidUntil = &until
		s.True(bounded.IsValid(d.ValidFrom))
		s.True(bounded.IsValid(until))
		s.False(bounded.IsValid(until.AddDate(0, 0, 1)))
	})
}

func (s *ResolverSuite) TestContextReadThroughs() {
	spec := providerSpec("handelsregisterwet", fullContract())
	eval := &fakeEvaluator{outputs: map[string]map[string]any{
		"handelsregisterwet": {
			keyHasDelegations: true,
			keySubjectIDs:     []any{"87654321"},
			keyPermissions:    []any{[]any{"inzage"}},
		},
	}}
	store := NewInMemoryContextStore()
	r := NewResolver(&fakeCatalog{specs: []*lawspec.Specification{spec}}, eval, store, nil)

	dc, err := r.DelegationContextFor(s.ctx, "123456789", s.reference)
	s.Require().NoError(err)
	s.Len(dc.Delegations, 1)

	ok, err := r.CanActOnBehalf(s.ctx, "123456789", "87654321", s.reference)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = r.CanActOnBehalf(s.ctx, "123456789", "99999999", s.reference)
	s.Require().NoError(err)
	s.False(ok)

	// Second read comes from the cache: break the evaluator and ask again.
	eval.fail = map[string]bool{"handelsregisterwet": true}
	dc, err = r.DelegationContextFor(s.ctx, "123456789", s.reference)
	s.Require().NoError(err)
	s.Len(dc.Delegations, 1)
}
