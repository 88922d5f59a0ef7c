package tracking

import (
	"slices"
	"strings"
)

// Classifier maps free-text carrier status labels to derivation rules.
// Exact labels take precedence over prefixes; among prefixes the longest
// match wins.
type Classifier[R any] struct {
	exact    map[string]R
	prefixes []prefixRule[R]
}

type prefixRule[R any] struct {
	prefix string
	rule   R
}

// NewClassifier returns an empty classifier.
func NewClassifier[R any]() *Classifier[R] {
	return &Classifier[R]{exact: make(map[string]R)}
}

// Exact registers rule for each of the given labels.
func (c *Classifier[R]) Exact(rule R, labels ...string) *Classifier[R] {
	for _, label := range labels {
		c.exact[label] = rule
	}
	return c
}

// Prefix registers rule for labels starting with any of the given prefixes.
func (c *Classifier[R]) Prefix(rule R, prefixes ...string) *Classifier[R] {
	for _, p := range prefixes {
		c.prefixes = append(c.prefixes, prefixRule[R]{prefix: p, rule: rule})
	}
	slices.SortStableFunc(c.prefixes, func(a, b prefixRule[R]) int {
		return len(b.prefix) - len(a.prefix)
	})
	return c
}

// Match looks up the rule for label.
func (c *Classifier[R]) Match(label string) (R, bool) {
	if rule, ok := c.exact[label]; ok {
		return rule, true
	}
	for _, p := range c.prefixes {
		if strings.HasPrefix(label, p.prefix) {
			return p.rule, true
		}
	}
	var zero R
	return zero, false
}

// Labels returns the exact labels known to the classifier.
func (c *Classifier[R]) Labels() []string {
	out := make([]string, 0, len(c.exact))
	for label := range c.exact {
		out = append(out, label)
	}
	slices.Sort(out)
	return out
}
