package machine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"machinelaw/internal/lawspec"
)

const aow2020YAML = `
uuid: b1b2c3d4-0001-0001-0001-000000000001
name: aow
law: algemene_ouderdomswet
service: SVB
valid_from: 2020-01-01T00:00:00Z
data_minimization:
  min_age: 66
decisions:
  - id: is_gerechtigd
    value: true
`

const aow2024YAML = `
uuid: b1b2c3d4-0001-0001-0001-000000000002
name: aow
law: algemene_ouderdomswet
service: SVB
valid_from: 2024-01-01T00:00:00Z
data_minimization:
  min_age: 67
decisions:
  - id: is_gerechtigd
    value: true
`

const providerYAML = `
uuid: b1b2c3d4-0002-0002-0002-000000000001
name: vertegenwoordigingswet
law: vertegenwoordigingswet
service: RVDR
discoverable: DELEGATION_PROVIDER
valid_from: 2023-01-01T00:00:00Z
decisions:
  - id: heeft_delegaties
    value: false
`

type CatalogSuite struct {
	suite.Suite
	catalog *Catalog
}

func TestCatalogSuite(t *testing.T) {
	suite.Run(t, new(CatalogSuite))
}

func (s *CatalogSuite) SetupTest() {
	dir := s.T().TempDir()
	s.write(dir, "aow_2020.yaml", aow2020YAML)
	s.write(dir, "aow_2024.yaml", aow2024YAML)
	s.write(filepath.Join(dir, "nested"), "vertegenwoordigingswet.yaml", providerYAML)

	s.catalog = NewCatalog(lawspec.NewLoader(), nil)
	s.Require().NoError(s.catalog.LoadDir(dir))
}

func (s *CatalogSuite) write(dir, name, content string) {
	s.T().Helper()
	s.Require().NoError(os.MkdirAll(dir, 0o750))
	s.Require().NoError(os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func (s *CatalogSuite) date(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	s.Require().NoError(err)
	return t
}

func (s *CatalogSuite) TestLoadsRecursively() {
	s.Len(s.catalog.All(), 3)
}

func (s *CatalogSuite) TestVersionSelection() {
	s.Run("between versions picks the older", func() {
		spec, ok := s.catalog.SpecByName("aow", s.date("2022-06-01"))
		s.Require().True(ok)
		s.Equal(66, *spec.Minimization.MinAge)
	})

	s.Run("after the newer version picks it", func() {
		spec, ok := s.catalog.SpecByName("aow", s.date("2025-06-01"))
		s.Require().True(ok)
		s.Equal(67, *spec.Minimization.MinAge)
	})

	s.Run("the valid-from date itself counts", func() {
		spec, ok := s.catalog.SpecByName("aow", s.date("2024-01-01"))
		s.Require().True(ok)
		s.Equal(67, *spec.Minimization.MinAge)
	})

	s.Run("before any version finds nothing", func() {
		_, ok := s.catalog.SpecByName("aow", s.date("2019-01-01"))
		s.False(ok)
	})

	s.Run("unknown law finds nothing", func() {
		_, ok := s.catalog.SpecByName("bestaat_niet", s.date("2025-01-01"))
		s.False(ok)
	})
}

func (s *CatalogSuite) TestInForceDeduplicates() {
	specs := s.catalog.InForce(s.date("2025-06-01"))
	s.Require().Len(specs, 2)
	s.Equal("aow", specs[0].Name)
	s.Equal(67, *specs[0].Minimization.MinAge)
	s.Equal("vertegenwoordigingswet", specs[1].Name)
}

func (s *CatalogSuite) TestDiscoverableSpecs() {
	specs := s.catalog.DiscoverableSpecs("DELEGATION_PROVIDER", s.date("2025-06-01"))
	s.Require().Len(specs, 1)
	s.Equal("vertegenwoordigingswet", specs[0].Name)

	s.Run("before the provider law existed", func() {
		s.Empty(s.catalog.DiscoverableSpecs("DELEGATION_PROVIDER", s.date("2022-06-01")))
	})
}

func (s *CatalogSuite) TestDiscoverableSpecsVersionedByReference() {
	dir := s.T().TempDir()
	s.write(dir, "provider_2023.yaml", providerYAML)
	s.write(dir, "provider_2025.yaml", `
uuid: b1b2c3d4-0002-0002-0002-000000000002
name: vertegenwoordigingswet
law: vertegenwoordigingswet
service: RVDR
discoverable: DELEGATION_PROVIDER
valid_from: 2025-01-01T00:00:00Z
decisions:
  - id: heeft_delegaties
    value: true
`)

	catalog := NewCatalog(lawspec.NewLoader(), nil)
	s.Require().NoError(catalog.LoadDir(dir))

	// Resolving as of a past date must run the version in force back then,
	// not whichever one is current.
	past := catalog.DiscoverableSpecs("DELEGATION_PROVIDER", s.date("2024-06-01"))
	s.Require().Len(past, 1)
	s.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), past[0].ValidFrom)

	current := catalog.DiscoverableSpecs("DELEGATION_PROVIDER", s.date("2025-06-01"))
	s.Require().Len(current, 1)
	s.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), current[0].ValidFrom)
}

func (s *CatalogSuite) TestBrokenSpecFailsLoad() {
	dir := s.T().TempDir()
	s.write(dir, "broken.yaml", "name: broken\ndecisions:\n  - id: x\n")

	catalog := NewCatalog(lawspec.NewLoader(), nil)
	s.Error(catalog.LoadDir(dir))
}
