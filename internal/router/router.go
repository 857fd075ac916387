// Package router maps free-form input text to a registered skill.
//
// Matching is lexical. Every trigger of every skill is tried against the
// normalized input; literal triggers must equal the input exactly and score
// 1.0, templated triggers score literal/total pattern tokens. The best score
// wins and ties go to the skill registered first, then to its earlier
// trigger. Results below the threshold are reported as no match.
package router

import (
	"context"
	"fmt"
	"sort"

	"github.com/hb-chen/skillrt/internal/skill"
)

// DefaultThreshold is the minimum confidence a match needs.
const DefaultThreshold = 0.5

// Match is a routing decision.
type Match struct {
	Skill      *skill.Skill
	Params     skill.Params
	Confidence float64
	// Trigger is the raw pattern that matched. For classifier results it is
	// the trigger whose slots the answer fills.
	Trigger    string
	Classified bool
}

// Classification is a classifier's suggestion.
type Classification struct {
	Skill      string
	Params     map[string]string
	Confidence float64
}

// Classifier is an optional fallback consulted when no trigger matches.
type Classifier interface {
	Classify(ctx context.Context, text string, skills []*skill.Skill) (Classification, error)
}

// Router routes input text to skills
type Router struct {
	registry   *skill.Registry
	threshold  float64
	classifier Classifier
}

// Option configures a Router.
type Option func(*Router)

// WithThreshold sets the minimum confidence. Values outside [0,1] are
// ignored.
func WithThreshold(threshold float64) Option {
	return func(r *Router) {
		if threshold >= 0 && threshold <= 1 {
			r.threshold = threshold
		}
	}
}

// WithClassifier installs a fallback classifier.
func WithClassifier(c Classifier) Option {
	return func(r *Router) {
		r.classifier = c
	}
}

// New creates a router over a registry
func New(registry *skill.Registry, opts ...Option) *Router {
	r := &Router{
		registry:  registry,
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Threshold returns the configured minimum confidence.
func (r *Router) Threshold() float64 {
	return r.threshold
}

// Route returns the best lexical match for text. It has no side effects and
// depends only on the registry, text and threshold.
func (r *Router) Route(text string) (Match, bool) {
	in := newInput(text)
	if in.empty() {
		return Match{}, false
	}

	var best Match
	found := false
	r.scan(in, func(m Match) {
		if !found || m.Confidence > best.Confidence {
			best, found = m, true
		}
	})

	if !found || best.Confidence < r.threshold {
		return Match{}, false
	}
	return best, true
}

// Candidates returns every lexical match ranked by confidence, including
// those under the threshold.
func (r *Router) Candidates(text string) []Match {
	in := newInput(text)
	if in.empty() {
		return nil
	}

	var all []Match
	r.scan(in, func(m Match) {
		all = append(all, m)
	})
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Confidence > all[j].Confidence
	})
	return all
}

// Resolve routes text and falls back to the classifier, if one is
// installed, when no trigger clears the threshold.
func (r *Router) Resolve(ctx context.Context, text string) (Match, bool, error) {
	if m, ok := r.Route(text); ok {
		return m, true, nil
	}
	if r.classifier == nil || newInput(text).empty() {
		return Match{}, false, nil
	}

	skills := make([]*skill.Skill, 0, r.registry.Count())
	for s := range r.registry.All() {
		skills = append(skills, s)
	}

	c, err := r.classifier.Classify(ctx, text, skills)
	if err != nil {
		return Match{}, false, fmt.Errorf("classifier: %w", err)
	}
	if c.Skill == "" || c.Confidence < r.threshold {
		return Match{}, false, nil
	}
	s, err := r.registry.Get(c.Skill)
	if err != nil {
		return Match{}, false, nil
	}

	params, trigger, ok := fitParams(s, c.Params)
	if !ok {
		return Match{}, false, nil
	}
	return Match{
		Skill:      s,
		Params:     params,
		Confidence: min(c.Confidence, 1),
		Trigger:    trigger,
		Classified: true,
	}, true, nil
}

// scan reports every successful trigger match in registration order.
func (r *Router) scan(in input, emit func(Match)) {
	for s := range r.registry.All() {
		if h, ok := s.Handler.(skill.MatchHinter); ok && !h.MatchHint(in.text) {
			continue
		}
		for _, p := range s.Patterns() {
			params, ok := matchPattern(p, in)
			if !ok {
				continue
			}
			emit(Match{
				Skill:      s,
				Params:     params,
				Confidence: confidence(p),
				Trigger:    p.Raw,
			})
		}
	}
}

func confidence(p skill.Pattern) float64 {
	if !p.Templated() {
		return 1.0
	}
	return float64(p.Literals) / float64(len(p.Tokens))
}
