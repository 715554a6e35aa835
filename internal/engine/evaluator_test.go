package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"machinelaw/internal/engine/metrics"
	"machinelaw/internal/lawspec"
)

const zorgtoeslagYAML = `
uuid: a1b2c3d4-0001-0001-0001-000000000001
name: zorgtoeslagwet
law: zorgtoeslagwet
service: TOESLAGEN
valid_from: 2025-01-01T00:00:00Z
properties:
  parameters:
    - name: BSN
      type: string
      required: true
    - name: reference_date
      type: date
      required: true
  sources:
    - name: geboortedatum
      type: date
      required: true
      source_reference:
        table: personen
        field: geboortedatum
        select_on:
          - name: bsn
            description: Burgerservicenummer
            type: string
            value: $BSN
    - name: partnerschap_type
      type: string
      required: false
      source_reference:
        table: relaties
        field: partnerschap_type
        select_on:
          - name: bsn
            description: Burgerservicenummer
            type: string
            value: $BSN
    - name: loon_inkomen
      type: amount
      required: false
      source_reference:
        table: inkomen
        field: loon
        select_on:
          - name: bsn
            description: Burgerservicenummer
            type: string
            value: $BSN
    - name: spaargeld_rente
      type: amount
      required: false
      source_reference:
        table: inkomen
        field: rente
        select_on:
          - name: bsn
            description: Burgerservicenummer
            type: string
            value: $BSN
    - name: overige_inkomsten
      type: amount
      required: false
      source_reference:
        table: inkomen
        field: overig
        select_on:
          - name: bsn
            description: Burgerservicenummer
            type: string
            value: $BSN
decisions:
  - id: standaardpremie
    value: 211200
  - id: leeftijd
    age:
      birth_date: geboortedatum
      reference_date: reference_date
  - id: heeft_toeslagpartner
    table:
      rules:
        - when:
            partnerschap_type:
              in: [GEHUWD, GEREGISTREERD_PARTNERSCHAP]
          then: true
        - when:
            partnerschap_type: ALLEENSTAAND
          then: false
  - id: verzamelinkomen
    sum:
      - loon_inkomen
      - spaargeld_rente
      - overige_inkomsten
  - id: is_verzekerde_zorgtoeslag
    table:
      rules:
        - when:
            leeftijd:
              lt: 18
          then: false
        - when:
            verzamelinkomen:
              gt: 3749600
          then: false
        - when:
            leeftijd:
              gte: 18
          then: true
`

// fakeSource serves values keyed by "table.field". Lookup errors and misses
// are injected per key.
type fakeSource struct {
	values map[string]any
	errs   map[string]error
	calls  []string
}

func (f *fakeSource) Lookup(_ context.Context, ref lawspec.SourceReference) (any, bool, error) {
	key := ref.Table + "." + ref.Field
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return nil, false, err
	}
	v, ok := f.values[key]
	return v, ok, nil
}

type EvaluatorSuite struct {
	suite.Suite
	spec *lawspec.Specification
	ctx  context.Context
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}

func (s *EvaluatorSuite) SetupTest() {
	spec, err := lawspec.Parse([]byte(zorgtoeslagYAML))
	s.Require().NoError(err)
	s.spec = spec
	s.ctx = context.Background()
}

func (s *EvaluatorSuite) params() map[string]any {
	return map[string]any{
		"BSN":            "123456789",
		"reference_date": "2025-01-01",
	}
}

func (s *EvaluatorSuite) source() *fakeSource {
	return &fakeSource{values: map[string]any{
		"personen.geboortedatum":     "1985-05-15",
		"relaties.partnerschap_type": "GEHUWD",
		"inkomen.loon":               int64(3000000),
		"inkomen.overig":             int64(700000),
		// inkomen.rente deliberately absent
	}}
}

func (s *EvaluatorSuite) TestLiteral() {
	eval := New(s.source(), nil, nil)
	result, err := eval.Evaluate(s.ctx, s.spec, "standaardpremie", s.params())
	s.Require().NoError(err)
	s.Equal(int64(211200), result.Output["standaardpremie"])
	s.True(result.RequirementsMet)
	s.Empty(result.Errors)
}

func (s *EvaluatorSuite) TestSumTreatsNullAsZero() {
	eval := New(s.source(), nil, nil)
	result, err := eval.Evaluate(s.ctx, s.spec, "verzamelinkomen", s.params())
	s.Require().NoError(err)
	s.Equal(int64(3700000), result.Output["verzamelinkomen"])
	s.Empty(result.Errors)
}

func (s *EvaluatorSuite) TestAge() {
	s.Run("birthday later in year has not occurred", func() {
		eval := New(s.source(), nil, nil)
		result, err := eval.Evaluate(s.ctx, s.spec, "leeftijd", s.params())
		s.Require().NoError(err)
		s.Equal(int64(39), result.Output["leeftijd"])
	})

	s.Run("birthday on the reference date counts", func() {
		src := s.source()
		src.values["personen.geboortedatum"] = "1985-01-01"
		eval := New(src, nil, nil)
		result, err := eval.Evaluate(s.ctx, s.spec, "leeftijd", s.params())
		s.Require().NoError(err)
		s.Equal(int64(40), result.Output["leeftijd"])
	})
}

func (s *EvaluatorSuite) TestTable() {
	s.Run("married partner type matches in-list", func() {
		eval := New(s.source(), nil, nil)
		result, err := eval.Evaluate(s.ctx, s.spec, "heeft_toeslagpartner", s.params())
		s.Require().NoError(err)
		s.Equal(true, result.Output["heeft_toeslagpartner"])
	})

	s.Run("single matches equality shorthand", func() {
		src := s.source()
		src.values["relaties.partnerschap_type"] = "ALLEENSTAAND"
		eval := New(src, nil, nil)
		result, err := eval.Evaluate(s.ctx, s.spec, "heeft_toeslagpartner", s.params())
		s.Require().NoError(err)
		s.Equal(false, result.Output["heeft_toeslagpartner"])
	})

	s.Run("missing operand matches no rule", func() {
		src := s.source()
		delete(src.values, "relaties.partnerschap_type")
		eval := New(src, nil, nil)
		result, err := eval.Evaluate(s.ctx, s.spec, "heeft_toeslagpartner", s.params())
		s.Require().NoError(err)
		// Optional source missing: no output, but requirements still met.
		s.NotContains(result.Output, "heeft_toeslagpartner")
		s.True(result.RequirementsMet)
	})

	s.Run("first matching rule wins", func() {
		// An adult with an income above the threshold matches both the income
		// rule (false) and the adult rule (true); declaration order decides.
		src := s.source()
		src.values["inkomen.loon"] = int64(9900000)
		eval := New(src, nil, nil)
		result, err := eval.Evaluate(s.ctx, s.spec, "is_verzekerde_zorgtoeslag", s.params())
		s.Require().NoError(err)
		s.Equal(false, result.Output["is_verzekerde_zorgtoeslag"])
	})
}

func (s *EvaluatorSuite) TestMissingRequiredSource() {
	src := s.source()
	delete(src.values, "personen.geboortedatum")
	eval := New(src, nil, nil)
	result, err := eval.Evaluate(s.ctx, s.spec, "leeftijd", s.params())
	s.Require().NoError(err)
	s.NotContains(result.Output, "leeftijd")
	s.True(result.MissingRequired)
	s.False(result.RequirementsMet)
}

func (s *EvaluatorSuite) TestSourceError() {
	src := s.source()
	src.errs = map[string]error{"personen.geboortedatum": fmt.Errorf("upstream timeout")}
	eval := New(src, nil, nil)
	result, err := eval.Evaluate(s.ctx, s.spec, "leeftijd", s.params())
	s.Require().NoError(err)
	s.True(result.MissingRequired)
	s.Require().Len(result.Errors, 1)
	s.Contains(result.Errors[0], "personen.geboortedatum")
}

func (s *EvaluatorSuite) TestUnknownDecision() {
	eval := New(s.source(), nil, nil)
	_, err := eval.Evaluate(s.ctx, s.spec, "bestaat_niet", s.params())
	s.Require().Error(err)
}

func (s *EvaluatorSuite) TestSelectOnBinding() {
	src := s.source()
	bound := ""
	spy := &spySource{inner: src, onLookup: func(ref lawspec.SourceReference) {
		if ref.Table == "personen" {
			bound = ref.SelectOn[0].Value
		}
	}}
	eval := New(spy, nil, nil)
	_, err := eval.Evaluate(s.ctx, s.spec, "leeftijd", s.params())
	s.Require().NoError(err)
	s.Equal("123456789", bound)
}

type spySource struct {
	inner    *fakeSource
	onLookup func(ref lawspec.SourceReference)
}

func (p *spySource) Lookup(ctx context.Context, ref lawspec.SourceReference) (any, bool, error) {
	p.onLookup(ref)
	return p.inner.Lookup(ctx, ref)
}

func (s *EvaluatorSuite) TestSourceLatencyObserved() {
	m := metrics.New()
	eval := New(s.source(), m, nil)

	_, err := eval.Evaluate(s.ctx, s.spec, "leeftijd", s.params())
	s.Require().NoError(err)

	// One source lookup (personen.geboortedatum) yields one labelled series.
	s.Equal(1, testutil.CollectAndCount(m.SourceLatency))
}

func (s *EvaluatorSuite) TestTraceShape() {
	eval := New(s.source(), nil, nil)
	result, err := eval.Evaluate(s.ctx, s.spec, "is_verzekerde_zorgtoeslag", s.params())
	s.Require().NoError(err)

	root := result.Path
	s.Require().NotNil(root)
	s.Equal(NodeEvaluation, root.Type)
	s.Equal("is_verzekerde_zorgtoeslag", root.Name)
	s.Equal("zorgtoeslagwet", root.Details["law"])
	s.Require().NotEmpty(root.Children)
	s.Equal(NodeDecision, root.Children[0].Type)
}

func (s *EvaluatorSuite) TestDeterminism() {
	run := func() []byte {
		eval := New(s.source(), nil, nil)
		result, err := eval.Evaluate(s.ctx, s.spec, "is_verzekerde_zorgtoeslag", s.params())
		s.Require().NoError(err)
		raw, err := json.Marshal(result)
		s.Require().NoError(err)
		return raw
	}
	first := run()
	for range 5 {
		s.Equal(string(first), string(run()))
	}
}

const kinderbijslagYAML = `
uuid: a1b2c3d4-0002-0002-0002-000000000002
name: kinderbijslagwet
law: kinderbijslagwet
service: SVB
valid_from: 2025-01-01T00:00:00Z
imports:
  - namespace: zorgtoeslag
    location: zorgtoeslagwet.yaml
properties:
  parameters:
    - name: BSN
      type: string
      required: true
    - name: reference_date
      type: date
      required: true
decisions:
  - id: partner_check
    call:
      decision: heeft_toeslagpartner
      namespace: zorgtoeslag
      args:
        BSN: BSN
        reference_date: reference_date
`

func (s *EvaluatorSuite) TestCallAcrossNamespace() {
	loader := lawspec.NewLoader()
	dir := s.T().TempDir()
	s.writeFile(dir, "zorgtoeslagwet.yaml", zorgtoeslagYAML)
	path := s.writeFile(dir, "kinderbijslagwet.yaml", kinderbijslagYAML)

	spec, err := loader.Load(path)
	s.Require().NoError(err)

	eval := New(s.source(), nil, nil)
	result, err := eval.Evaluate(s.ctx, spec, "partner_check", s.params())
	s.Require().NoError(err)
	s.Equal(true, result.Output["partner_check"])
}

func (s *EvaluatorSuite) writeFile(dir, name, content string) string {
	s.T().Helper()
	path := filepath.Join(dir, name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
	return path
}
