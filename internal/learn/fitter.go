// Package learn holds the fitting contracts shared by every learner and
// the Fitter, a dispatcher that picks a classification or regression
// learner based on the dataset it is handed.
package learn

import (
	"errors"
	"fmt"
	"sync"

	"mlfit/internal/dataset"
	"mlfit/internal/preprocessing"
)

// ProblemKind is the kind of prediction problem a dataset poses.
type ProblemKind int

const (
	Classification ProblemKind = iota
	Regression

	// kindUnset marks a fitter that has not dispatched yet.
	kindUnset ProblemKind = -1
)

func (k ProblemKind) String() string {
	switch k {
	case Classification:
		return "classification"
	case Regression:
		return "regression"
	case kindUnset:
		return "unset"
	default:
		return fmt.Sprintf("ProblemKind(%d)", int(k))
	}
}

var (
	// ErrInvalidDefinition reports a fitter definition with a missing
	// or malformed learner binding.
	ErrInvalidDefinition = errors.New("invalid fitter definition")

	// ErrUnsupportedProblemKind reports a dispatch against a problem
	// kind the definition binds no learner for, including dispatch
	// before any dataset has been seen.
	ErrUnsupportedProblemKind = errors.New("no learner defined that handles this kind of data")
)

// Constructor builds a learner from a filtered parameter set. ParamNames
// declares which shared-configuration keys the constructor accepts;
// everything else is dropped before New is called.
type Constructor struct {
	Name       string
	ParamNames []string
	New        func(Params) (Learner, error)
}

// Binding pairs at most one constructor per problem kind. A definition
// needs at least one side bound to be valid.
type Binding struct {
	Classification *Constructor
	Regression     *Constructor
}

func (b Binding) constructor(kind ProblemKind) *Constructor {
	switch kind {
	case Classification:
		return b.Classification
	case Regression:
		return b.Regression
	default:
		return nil
	}
}

// Definition is a validated fitter type: a name plus its learner
// binding. Definitions are made once, normally as package-level vars,
// and stamp out Fitter instances.
type Definition struct {
	name    string
	binding Binding
}

// Define validates a binding and returns the definition. A nil binding
// side is fine; an entirely empty binding, or a bound side missing its
// name or construction function, is ErrInvalidDefinition.
func Define(name string, b Binding) (*Definition, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: definition needs a name", ErrInvalidDefinition)
	}
	if b.Classification == nil && b.Regression == nil {
		return nil, fmt.Errorf("%w: %s binds no learners", ErrInvalidDefinition, name)
	}
	for _, side := range []*Constructor{b.Classification, b.Regression} {
		if side == nil {
			continue
		}
		if side.Name == "" || side.New == nil {
			return nil, fmt.Errorf("%w: %s has an incomplete constructor", ErrInvalidDefinition, name)
		}
	}
	return &Definition{name: name, binding: b}, nil
}

// MustDefine is Define for package-level definitions: an invalid
// binding fails at program init instead of first use.
func MustDefine(name string, b Binding) *Definition {
	def, err := Define(name, b)
	if err != nil {
		panic(err)
	}
	return def
}

func (d *Definition) Name() string {
	return d.name
}

// Supports reports whether the definition binds a learner for kind.
func (d *Definition) Supports(kind ProblemKind) bool {
	return d.binding.constructor(kind) != nil
}

// Fitter dispatches fitting to the bound learner matching a dataset's
// target kind. Learners are built lazily, once per kind, with the
// shared parameters filtered down to what each constructor accepts.
//
// A single fitter may be reused across datasets; each Fit re-evaluates
// the target kind, and a later dataset of the other kind simply
// dispatches to (and caches) the other learner. The cache and active
// kind are mutex-guarded so concurrent Fit calls stay safe.
type Fitter struct {
	def        *Definition
	params     Params
	useDefault bool

	mu         sync.Mutex
	activeKind ProblemKind
	learners   map[ProblemKind]Learner
}

// NewFitter builds a fitter instance from the definition. The
// preprocessor chain is stored into the shared parameters under the
// reserved key so whichever learner is selected receives it.
func (d *Definition) NewFitter(preprocessors []preprocessing.Transformer, params Params) *Fitter {
	shared := params.Clone()
	if shared == nil {
		shared = make(Params)
	}
	shared[PreprocessorsParam] = preprocessors

	return &Fitter{
		def:        d,
		params:     shared,
		activeKind: kindUnset,
		learners:   make(map[ProblemKind]Learner),
	}
}

// SetUseDefaultPreprocessors flips the default-preprocessor switch for
// learners built from now on, and for any already cached.
func (f *Fitter) SetUseDefaultPreprocessors(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.useDefault = v
	for _, l := range f.learners {
		l.SetUseDefaultPreprocessors(v)
	}
}

func (f *Fitter) Name() string {
	return f.def.name
}

// Fit inspects the dataset's target kind, dispatches to the matching
// learner and returns that learner's model untouched. Errors from the
// learner propagate unwrapped.
func (f *Fitter) Fit(ds *dataset.Dataset) (Model, error) {
	kind := Classification
	if ds.TargetKind() == dataset.TargetContinuous {
		kind = Regression
	}

	f.mu.Lock()
	f.activeKind = kind
	learner, err := f.resolveLocked(kind)
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return learner.Fit(ds)
}

// Learner resolves (building and caching if needed) the learner for a
// problem kind.
func (f *Fitter) Learner(kind ProblemKind) (Learner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolveLocked(kind)
}

// ActiveLearner returns the learner matching the target kind of the
// last dataset fitted. Before any Fit it fails with
// ErrUnsupportedProblemKind: there is no kind to dispatch on yet.
func (f *Fitter) ActiveLearner() (Learner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolveLocked(f.activeKind)
}

// ActiveKind returns the recorded problem kind and whether any dataset
// has been dispatched yet.
func (f *Fitter) ActiveKind() (ProblemKind, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeKind, f.activeKind != kindUnset
}

// Params exposes the active learner's constructed parameters, standing
// in for the learner the same way its other accessors do.
func (f *Fitter) Params() (Params, error) {
	learner, err := f.ActiveLearner()
	if err != nil {
		return nil, err
	}
	return learner.Params(), nil
}

func (f *Fitter) resolveLocked(kind ProblemKind) (Learner, error) {
	ctor := f.def.binding.constructor(kind)
	if ctor == nil {
		return nil, fmt.Errorf("%s: %w", f.def.name, ErrUnsupportedProblemKind)
	}

	if learner, ok := f.learners[kind]; ok {
		return learner, nil
	}

	learner, err := ctor.New(f.params.Filter(ctor.ParamNames))
	if err != nil {
		return nil, err
	}
	learner.SetUseDefaultPreprocessors(f.useDefault)
	f.learners[kind] = learner
	return learner, nil
}
