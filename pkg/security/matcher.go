package security

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gobwas/glob"
)

// RequestMatcher decides whether a stage applies to a request.
type RequestMatcher interface {
	Matches(r *http.Request) bool
}

// MatcherFunc adapts a function to RequestMatcher.
type MatcherFunc func(r *http.Request) bool

func (f MatcherFunc) Matches(r *http.Request) bool { return f(r) }

// AnyMethod matches every HTTP method in a PermitRule or PathMatcher.
const AnyMethod = "*"

// PermitRule exempts matching requests from authorization.
type PermitRule struct {
	Method  string `yaml:"method" json:"method" validate:"required"`
	Pattern string `yaml:"pattern" json:"pattern" validate:"required,startswith=/"`
}

type pathMatcher struct {
	method  string
	pattern string
	g       glob.Glob

	// prefix is set for patterns ending in "/**" so the bare prefix matches
	// too ("/docs/**" matches "/docs").
	prefix string
}

// PathMatcher builds an ant-style matcher. "?" matches one character, "*"
// matches within a single path segment and "**" matches across segments.
// An empty method or "*" matches any method.
func PathMatcher(method, pattern string) (RequestMatcher, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("security: compile pattern %q: %w", pattern, err)
	}

	m := &pathMatcher{
		method:  strings.ToUpper(strings.TrimSpace(method)),
		pattern: pattern,
		g:       g,
	}
	if m.method == AnyMethod {
		m.method = ""
	}
	if strings.HasSuffix(pattern, "/**") {
		m.prefix = strings.TrimSuffix(pattern, "/**")
		if m.prefix == "" {
			m.prefix = "/"
		}
	}

	return m, nil
}

// MustPathMatcher is like PathMatcher but panics on a bad pattern.
func MustPathMatcher(method, pattern string) RequestMatcher {
	m, err := PathMatcher(method, pattern)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *pathMatcher) Matches(r *http.Request) bool {
	if m.method != "" && !strings.EqualFold(r.Method, m.method) {
		return false
	}

	path := r.URL.Path
	if m.prefix != "" && path == m.prefix {
		return true
	}
	return m.g.Match(path)
}

func (m *pathMatcher) String() string {
	method := m.method
	if method == "" {
		method = AnyMethod
	}
	return method + " " + m.pattern
}

// Or matches when any of ms matches. With no matchers it matches nothing.
func Or(ms ...RequestMatcher) RequestMatcher {
	return MatcherFunc(func(r *http.Request) bool {
		for _, m := range ms {
			if m.Matches(r) {
				return true
			}
		}
		return false
	})
}

// Negate inverts m.
func Negate(m RequestMatcher) RequestMatcher {
	return MatcherFunc(func(r *http.Request) bool { return !m.Matches(r) })
}

// Any matches every request.
func Any() RequestMatcher { return MatcherFunc(func(*http.Request) bool { return true }) }

// None matches no request.
func None() RequestMatcher { return MatcherFunc(func(*http.Request) bool { return false }) }

// NewPermitMatcher compiles the permit list. An empty list bypasses nothing.
func NewPermitMatcher(rules []PermitRule) (RequestMatcher, error) {
	if len(rules) == 0 {
		return None(), nil
	}

	ms := make([]RequestMatcher, 0, len(rules))
	for _, rule := range rules {
		m, err := PathMatcher(rule.Method, rule.Pattern)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return Or(ms...), nil
}
