package extract

import (
	"regexp"
	"strings"
)

// DefaultProtectedPhrases are extractor diagnostics that indicate login-gated,
// private, age-gated or region-locked content. Matching is case-insensitive.
// The list is best effort: the extractor's wording changes between releases.
var DefaultProtectedPhrases = []string{
	"login required",
	"sign in to confirm",
	"private video",
	"this video is private",
	"this account is private",
	"requires authentication",
	"members-only",
	"age-restricted",
	"confirm your age",
	"not available in your country",
	"geo restricted",
	"unable to extract shared data",
	"use --cookies",
	"rate-limit reached or login required",
}

// Predicate reports whether extractor stderr indicates protected content.
type Predicate func(stderr string) bool

// Classifier decides whether a failed extractor run hit an access restriction.
type Classifier struct {
	predicates []Predicate
}

// NewClassifier builds a classifier from the default phrases plus extra.
func NewClassifier(extra ...string) *Classifier {
	c := &Classifier{}
	for _, p := range DefaultProtectedPhrases {
		c.AddPhrase(p)
	}
	for _, p := range extra {
		c.AddPhrase(p)
	}
	return c
}

// AddPhrase registers a case-insensitive substring match. Blank phrases are ignored.
func (c *Classifier) AddPhrase(phrase string) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return
	}
	c.predicates = append(c.predicates, func(stderr string) bool {
		return strings.Contains(strings.ToLower(stderr), phrase)
	})
}

// AddPattern registers a regular expression match.
func (c *Classifier) AddPattern(re *regexp.Regexp) {
	c.predicates = append(c.predicates, re.MatchString)
}

// AddPredicate registers an arbitrary check.
func (c *Classifier) AddPredicate(p Predicate) {
	c.predicates = append(c.predicates, p)
}

// Protected reports whether any predicate matches stderr.
func (c *Classifier) Protected(stderr string) bool {
	if c == nil || stderr == "" {
		return false
	}
	for _, p := range c.predicates {
		if p(stderr) {
			return true
		}
	}
	return false
}
