package lawspec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrCyclicReference is returned when a specification's decision reference
// graph or its import graph contains a cycle. Cycles are load-time errors so
// evaluation never has to guard against infinite recursion.
var ErrCyclicReference = errors.New("cyclic reference")

// Loader parses and caches law specifications by absolute file path. A load
// is atomic: a broken specification is never partially registered. The cache
// is read-mostly after warm-up and safe for concurrent use.
type Loader struct {
	mu     sync.RWMutex
	specs  map[string]*Specification
	inLoad map[string]struct{}
}

// NewLoader returns an empty loader.
func NewLoader() *Loader {
	return &Loader{
		specs:  make(map[string]*Specification),
		inLoad: make(map[string]struct{}),
	}
}

// Load parses the specification at path, resolving and linking its imports
// relative to the file. Repeated loads of the same path return the cached,
// immutable specification.
func (l *Loader) Load(path string) (*Specification, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path %s: %w", path, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(abs)
}

// load must be called with the lock held; imports recurse through it.
func (l *Loader) load(abs string) (*Specification, error) {
	if spec, ok := l.specs[abs]; ok {
		return spec, nil
	}
	if _, busy := l.inLoad[abs]; busy {
		return nil, fmt.Errorf("%w: import loop through %s", ErrCyclicReference, abs)
	}
	l.inLoad[abs] = struct{}{}
	defer delete(l.inLoad, abs)

	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read specification: %w", err)
	}

	spec, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}

	for _, imp := range spec.Imports {
		if imp.Namespace == "" || imp.Location == "" {
			return nil, fmt.Errorf("%s: import needs namespace and location", spec.Name)
		}
		target := filepath.Join(filepath.Dir(abs), imp.Location)
		child, err := l.load(target)
		if err != nil {
			return nil, fmt.Errorf("%s: import %q: %w", spec.Name, imp.Namespace, err)
		}
		spec.imported[imp.Namespace] = child
	}

	if err := checkDecisionGraph(spec); err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Name, err)
	}

	l.specs[abs] = spec
	return spec, nil
}

// Parse decodes and validates a single specification document. Imports are
// left unlinked; use a Loader when specifications reference one another.
func Parse(raw []byte) (*Specification, error) {
	var spec Specification
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("parse specification: %w", err)
	}
	spec.imported = make(map[string]*Specification)
	if err := spec.validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// checkDecisionGraph verifies the intra-specification decision reference
// graph is acyclic. Operand names that match another decision's output count
// as references, as do same-spec call targets. Cross-spec references cannot
// cycle once the import graph itself is acyclic.
func checkDecisionGraph(spec *Specification) error {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := make(map[string]int, len(spec.Decisions))

	var visit func(d *Decision) error
	visit = func(d *Decision) error {
		switch color[d.ID] {
		case grey:
			return fmt.Errorf("%w: decision %q depends on itself", ErrCyclicReference, d.ID)
		case black:
			return nil
		}
		color[d.ID] = grey
		for _, name := range d.Expression.operands() {
			if dep, ok := spec.DecisionByOutput(name); ok && dep.ID != d.ID {
				if err := visit(dep); err != nil {
					return err
				}
			} else if dep, ok := spec.DecisionByID(name); ok && dep.ID != d.ID {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		if call := d.Expression.Call; call != nil && call.Namespace == "" {
			dep, ok := spec.DecisionByID(call.Decision)
			if !ok {
				return fmt.Errorf("decision %q calls unknown decision %q", d.ID, call.Decision)
			}
			if dep.ID == d.ID {
				return fmt.Errorf("%w: decision %q calls itself", ErrCyclicReference, d.ID)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		if call := d.Expression.Call; call != nil && call.Namespace != "" {
			if _, ok := spec.imported[call.Namespace]; !ok {
				return fmt.Errorf("decision %q calls unresolved import %q", d.ID, call.Namespace)
			}
		}
		color[d.ID] = black
		return nil
	}

	for _, d := range spec.Decisions {
		if err := visit(d); err != nil {
			return err
		}
	}
	return nil
}

// operands lists the names an expression reads from its evaluation context.
func (e Expression) operands() []string {
	var names []string
	switch {
	case e.Table != nil:
		for _, rule := range e.Table.Rules {
			for _, cond := range rule.When {
				names = append(names, cond.Name)
			}
		}
	case len(e.Sum) > 0:
		names = append(names, e.Sum...)
	case e.Age != nil:
		names = append(names, e.Age.BirthDate)
		if e.Age.ReferenceDate != "" {
			names = append(names, e.Age.ReferenceDate)
		}
	case e.Call != nil:
		for _, src := range e.Call.Args {
			names = append(names, src)
		}
	}
	return names
}
