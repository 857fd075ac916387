package skill

import (
	"fmt"
	"iter"
	"strings"
)

// Registry holds the installed skills in registration order. It is filled
// during startup and read-only afterwards, so reads take no locks.
type Registry struct {
	skills []*Skill
	index  map[string]int
	sealed bool
}

// NewRegistry creates a new skill registry
func NewRegistry() *Registry {
	return &Registry{
		index: make(map[string]int),
	}
}

// Register validates a skill, compiles its triggers and appends it.
func (r *Registry) Register(s *Skill) error {
	if r.sealed {
		return ErrRegistrySealed
	}
	if s == nil {
		return fmt.Errorf("%w: nil skill", ErrInvalidSkill)
	}

	name := strings.TrimSpace(s.Name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidSkill)
	}
	if _, exists := r.index[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSkill, name)
	}
	if len(s.Triggers) == 0 {
		return fmt.Errorf("%w: %s has no trigger patterns", ErrInvalidSkill, name)
	}
	if s.Handler == nil {
		return fmt.Errorf("%w: %s has no handler", ErrInvalidSkill, name)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("%w: %s has negative timeout", ErrInvalidSkill, name)
	}

	patterns := make([]Pattern, 0, len(s.Triggers))
	for _, t := range s.Triggers {
		p, err := CompilePattern(t)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidSkill, name, err)
		}
		patterns = append(patterns, p)
	}

	s.Name = name
	s.patterns = patterns
	r.index[name] = len(r.skills)
	r.skills = append(r.skills, s)
	return nil
}

// RegisterAll registers skills in order and stops at the first error.
func (r *Registry) RegisterAll(skills ...*Skill) error {
	for _, s := range skills {
		if err := r.Register(s); err != nil {
			return err
		}
	}
	return nil
}

// Seal ends the registration phase.
func (r *Registry) Seal() {
	r.sealed = true
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	return r.sealed
}

// Get retrieves a skill by name
func (r *Registry) Get(name string) (*Skill, error) {
	i, exists := r.index[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSkill, name)
	}
	return r.skills[i], nil
}

// All yields the registered skills in registration order. The sequence can
// be ranged over any number of times.
func (r *Registry) All() iter.Seq[*Skill] {
	return func(yield func(*Skill) bool) {
		for _, s := range r.skills {
			if !yield(s) {
				return
			}
		}
	}
}

// Names returns all registered skill names in registration order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.skills))
	for _, s := range r.skills {
		names = append(names, s.Name)
	}
	return names
}

// Exists checks if a skill exists
func (r *Registry) Exists(name string) bool {
	_, exists := r.index[name]
	return exists
}

// Count returns the number of registered skills
func (r *Registry) Count() int {
	return len(r.skills)
}
