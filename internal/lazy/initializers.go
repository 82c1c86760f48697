package lazy

import "regexp"

// Initializer is one module id recognized as an application initializer or
// instance-initializer.
type Initializer struct {
	ModuleName string `json:"moduleName"`
	// Matches holds the full pattern submatch: the matched prefix followed by
	// "initializers" or "instance-initializers".
	Matches []string `json:"matches"`
}

// InitializerMatcher classifies module ids against an application's
// initializer namespaces.
type InitializerMatcher struct {
	re *regexp.Regexp
}

// NewInitializerMatcher builds a matcher for <appName>/initializers/... and
// <appName>/instance-initializers/... ids. It returns nil for an empty app
// name; a nil matcher matches nothing.
func NewInitializerMatcher(appName string) *InitializerMatcher {
	if appName == "" {
		return nil
	}
	return &InitializerMatcher{
		re: regexp.MustCompile(`^` + regexp.QuoteMeta(appName) + `/((?:instance-)?initializers)/`),
	}
}

// Match returns the initializer entry for id, if it is one.
func (m *InitializerMatcher) Match(id string) (Initializer, bool) {
	if m == nil {
		return Initializer{}, false
	}
	sub := m.re.FindStringSubmatch(id)
	if sub == nil {
		return Initializer{}, false
	}
	return Initializer{ModuleName: id, Matches: sub}, true
}

// Pattern returns the regular expression source, or "" for a nil matcher.
func (m *InitializerMatcher) Pattern() string {
	if m == nil {
		return ""
	}
	return m.re.String()
}
