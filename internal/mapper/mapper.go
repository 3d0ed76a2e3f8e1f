package mapper

import (
	"fmt"
	"sync"

	"ctchen222/todo-api/internal/apperr"
)

// Kind names a shape that can take part in a mapping profile.
type Kind string

// Pair identifies a profile by its source and target shapes.
type Pair struct {
	From Kind
	To   Kind
}

func (p Pair) String() string {
	return fmt.Sprintf("%s->%s", p.From, p.To)
}

// Profile projects one source value onto a new target value.
type Profile func(src any) (any, error)

// Mapper is a registry of mapping profiles. Profiles are registered at
// startup; lookups after that are read-only.
type Mapper struct {
	mu       sync.RWMutex
	profiles map[Pair]Profile
}

// New creates an empty Mapper.
func New() *Mapper {
	return &Mapper{profiles: make(map[Pair]Profile)}
}

// Register adds a typed profile for the pair. Registering the same pair twice
// is a programming error.
func Register[S, D any](m *Mapper, pair Pair, fn func(*S) D) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[pair]; ok {
		panic(fmt.Sprintf("mapper: profile %s registered twice", pair))
	}
	m.profiles[pair] = func(src any) (any, error) {
		switch v := src.(type) {
		case *S:
			if v == nil {
				return nil, fmt.Errorf("nil %T", v)
			}
			return fn(v), nil
		case S:
			return fn(&v), nil
		default:
			return nil, fmt.Errorf("source is %T, profile expects %T", src, (*S)(nil))
		}
	}
}

func (m *Mapper) lookup(pair Pair) (Profile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[pair]
	return p, ok
}

// Map projects src through the profile registered for pair.
func Map[V any](m *Mapper, pair Pair, src any) (V, error) {
	var zero V

	profile, ok := m.lookup(pair)
	if !ok {
		return zero, apperr.Configuration("mapper.Map", fmt.Sprintf("no profile registered for %s", pair))
	}
	out, err := profile(src)
	if err != nil {
		return zero, apperr.Wrap(apperr.KindConfiguration, "mapper.Map", fmt.Errorf("%s: %w", pair, err))
	}
	v, ok := out.(V)
	if !ok {
		return zero, apperr.Configuration("mapper.Map", fmt.Sprintf("profile %s produced %T, want %T", pair, out, zero))
	}
	return v, nil
}

// MapSlice projects every element of srcs. The result is never nil.
func MapSlice[V, S any](m *Mapper, pair Pair, srcs []S) ([]V, error) {
	out := make([]V, 0, len(srcs))
	for _, src := range srcs {
		v, err := Map[V](m, pair, src)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
