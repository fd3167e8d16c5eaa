package rules

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/Iron-Ham/tabtint/internal/errors"
	"github.com/Iron-Ham/tabtint/internal/util"
)

// newMatcher translates a server or database pattern. An empty pattern
// yields nil, meaning "matches anything".
func newMatcher(pattern string) (*matcher, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, nil
	}
	if !strings.Contains(pattern, Wildcard) {
		return &matcher{pattern: pattern, exact: util.FoldKey(pattern)}, nil
	}

	parts := strings.Split(pattern, Wildcard)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	re, err := regexp.Compile(`(?is)^` + strings.Join(parts, ".*") + `$`)
	if err != nil {
		return nil, err
	}
	return &matcher{pattern: pattern, re: re}, nil
}

// match reports whether value satisfies the pattern. An empty value never
// satisfies a non-empty pattern.
func (m *matcher) match(value string) bool {
	if value == "" {
		return false
	}
	if m.re != nil {
		return m.re.MatchString(value)
	}
	return util.FoldKey(value) == m.exact
}

// Compile translates the group rules of cfg into matchers, ordered by
// priority and then by group name (ordinal, ignoring case). Rules with
// neither a server nor a database pattern are skipped; every skipped rule is
// reported in the returned error slice and the rest still compile.
func Compile(cfg *Config) ([]CompiledRule, []error) {
	if cfg == nil {
		return nil, nil
	}

	var compiled []CompiledRule
	var problems []error
	for i, r := range cfg.Groups {
		if r.IsEmpty() {
			problems = append(problems, errors.NewRuleError("skipping rule", errors.ErrEmptyRule).
				WithGroup(r.GroupName).WithIndex(i))
			continue
		}
		server, err := newMatcher(r.Server)
		if err != nil {
			problems = append(problems, errors.NewRuleError("skipping rule",
				fmt.Errorf("%w: %v", errors.ErrInvalidPattern, err)).
				WithGroup(r.GroupName).WithPattern(r.Server).WithIndex(i))
			continue
		}
		database, err := newMatcher(r.Database)
		if err != nil {
			problems = append(problems, errors.NewRuleError("skipping rule",
				fmt.Errorf("%w: %v", errors.ErrInvalidPattern, err)).
				WithGroup(r.GroupName).WithPattern(r.Database).WithIndex(i))
			continue
		}
		compiled = append(compiled, CompiledRule{Rule: r, server: server, database: database})
	}

	slices.SortStableFunc(compiled, func(a, b CompiledRule) int {
		if a.Priority != b.Priority {
			return cmp.Compare(a.Priority, b.Priority)
		}
		return util.CompareFold(a.GroupName, b.GroupName)
	})
	return compiled, problems
}

// Matches reports whether the rule is satisfied by server and database.
func (r CompiledRule) Matches(server, database string) bool {
	if r.server != nil && !r.server.match(server) {
		return false
	}
	if r.database != nil && !r.database.match(database) {
		return false
	}
	return r.server != nil || r.database != nil
}

// MatchGroup returns the group of the first rule, in compiled order, that
// server and database satisfy. This is first-match, not best-match: a
// broader rule with a lower priority wins over a more specific one.
func MatchGroup(rules []CompiledRule, server, database string) (string, bool) {
	r, ok := MatchRule(rules, server, database)
	if !ok {
		return "", false
	}
	return r.GroupName, true
}

// MatchRule is MatchGroup returning the whole rule.
func MatchRule(rules []CompiledRule, server, database string) (CompiledRule, bool) {
	if server == "" && database == "" {
		return CompiledRule{}, false
	}
	for _, r := range rules {
		if r.Matches(server, database) {
			return r, true
		}
	}
	return CompiledRule{}, false
}

// CompileManual compiles the manual rules of cfg, ordered by priority only
// (ties keep file order). Patterns that do not compile are skipped and
// reported; they can still be emitted verbatim into the colorization file,
// which uses its own regex dialect.
func CompileManual(cfg *Config) ([]CompiledManualRule, []error) {
	if cfg == nil {
		return nil, nil
	}

	var compiled []CompiledManualRule
	var problems []error
	for i, r := range cfg.ManualRegexLines {
		if strings.TrimSpace(r.Pattern) == "" {
			problems = append(problems, errors.NewRuleError("skipping manual rule", errors.ErrEmptyRule).
				WithGroup(r.GroupName).WithIndex(i))
			continue
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			problems = append(problems, errors.NewRuleError("skipping manual rule",
				fmt.Errorf("%w: %v", errors.ErrInvalidPattern, err)).
				WithGroup(r.GroupName).WithPattern(r.Pattern).WithIndex(i))
			continue
		}
		compiled = append(compiled, CompiledManualRule{ManualRule: r, re: re})
	}

	slices.SortStableFunc(compiled, func(a, b CompiledManualRule) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	return compiled, problems
}

// MatchManual returns the first manual rule whose pattern matches path.
func MatchManual(rules []CompiledManualRule, path string) (CompiledManualRule, bool) {
	if path == "" {
		return CompiledManualRule{}, false
	}
	for _, r := range rules {
		if r.re.MatchString(path) {
			return r, true
		}
	}
	return CompiledManualRule{}, false
}

// ManualLines returns the manual rules that should be emitted into the
// colorization file, ordered by priority. Only empty patterns are dropped.
func ManualLines(cfg *Config) []ManualRule {
	if cfg == nil {
		return nil
	}
	lines := make([]ManualRule, 0, len(cfg.ManualRegexLines))
	for _, r := range cfg.ManualRegexLines {
		if strings.TrimSpace(r.Pattern) != "" {
			lines = append(lines, r)
		}
	}
	slices.SortStableFunc(lines, func(a, b ManualRule) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	return lines
}
