// Package machine orchestrates the evaluation pipeline: catalog lookup,
// early elimination, rule evaluation, delegation resolution and the
// minimization tracking around them.
package machine

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"machinelaw/internal/lawspec"
)

// Catalog indexes loaded law specifications by name. Multiple versions of one
// law coexist; selection is by reference date. The catalog is immutable after
// LoadDir and safe for concurrent use.
type Catalog struct {
	loader *lawspec.Loader
	logger *slog.Logger

	mu     sync.RWMutex
	all    []*lawspec.Specification
	byName map[string][]*lawspec.Specification
}

// NewCatalog returns an empty catalog backed by the given loader.
func NewCatalog(loader *lawspec.Loader, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Catalog{
		loader: loader,
		logger: logger,
		byName: make(map[string][]*lawspec.Specification),
	}
}

// LoadDir walks dir recursively and loads every YAML specification found. A
// single broken file fails the whole load; a half-loaded catalog would
// silently change which laws get evaluated.
func (c *Catalog) LoadDir(dir string) error {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan law directory %s: %w", dir, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, path := range paths {
		spec, err := c.loader.Load(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		c.register(spec)
	}

	c.logger.Info("law catalog loaded", "dir", dir, "specifications", len(c.all))
	return nil
}

// register must be called with the lock held. Imports loaded through the same
// loader may already be registered; a spec is indexed once.
func (c *Catalog) register(spec *lawspec.Specification) {
	for _, existing := range c.all {
		if existing == spec {
			return
		}
	}
	c.all = append(c.all, spec)
	versions := append(c.byName[spec.Name], spec)
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].ValidFrom.Before(versions[j].ValidFrom)
	})
	c.byName[spec.Name] = versions
}

// All returns every loaded specification in load order.
func (c *Catalog) All() []*lawspec.Specification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*lawspec.Specification, len(c.all))
	copy(out, c.all)
	return out
}

// SpecByName returns the version of the named law in force at the reference
// date: the latest version whose valid-from date is not after it.
func (c *Catalog) SpecByName(name string, reference time.Time) (*lawspec.Specification, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.specByNameLocked(name, reference)
}

// InForce returns one specification per law name: the version in force at the
// reference date. Laws whose earliest version postdates the reference are
// omitted. Order follows first registration.
func (c *Catalog) InForce(reference time.Time) []*lawspec.Specification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*lawspec.Specification
	seen := make(map[string]struct{})
	for _, spec := range c.all {
		if _, dup := seen[spec.Name]; dup {
			continue
		}
		seen[spec.Name] = struct{}{}
		if match, ok := c.specByNameLocked(spec.Name, reference); ok {
			out = append(out, match)
		}
	}
	return out
}

// DiscoverableSpecs returns the specifications carrying the given
// discoverability tag, the version of each law in force at the reference
// date.
func (c *Catalog) DiscoverableSpecs(tag string, reference time.Time) []*lawspec.Specification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*lawspec.Specification
	seen := make(map[string]struct{})
	for _, spec := range c.all {
		if spec.Discoverable != tag {
			continue
		}
		if _, dup := seen[spec.Name]; dup {
			continue
		}
		seen[spec.Name] = struct{}{}
		if match, ok := c.specByNameLocked(spec.Name, reference); ok && match.Discoverable == tag {
			out = append(out, match)
		}
	}
	return out
}

func (c *Catalog) specByNameLocked(name string, reference time.Time) (*lawspec.Specification, bool) {
	versions := c.byName[name]
	var match *lawspec.Specification
	for _, v := range versions {
		if v.ValidFrom.After(reference) {
			break
		}
		match = v
	}
	if match == nil {
		return nil, false
	}
	return match, true
}
