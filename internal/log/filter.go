package log

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// FilterRule drops a record when every populated matcher matches.
// List-valued matchers match when any element matches.
type FilterRule struct {
	Name      string   `yaml:"name" mapstructure:"name"`
	Disabled  bool     `yaml:"disabled" mapstructure:"disabled"`
	Level     []string `yaml:"level" mapstructure:"level"`
	Component []string `yaml:"component" mapstructure:"component"`
	Contains  []string `yaml:"contains" mapstructure:"contains"`
	Prefix    []string `yaml:"prefix" mapstructure:"prefix"`
	Suffix    []string `yaml:"suffix" mapstructure:"suffix"`
	Regex     []string `yaml:"regex" mapstructure:"regex"`
}

type compiledRule struct {
	FilterRule
	levels  []slog.Level
	regexes []*regexp.Regexp
}

func compileRules(rules []FilterRule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if r.Disabled {
			continue
		}
		cr := compiledRule{FilterRule: r}
		for _, name := range r.Level {
			l, ok := LookupLevel(name)
			if !ok {
				return nil, fmt.Errorf("log filter %q: unknown level %q", r.Name, name)
			}
			cr.levels = append(cr.levels, l.ToSlogLevel())
		}
		for _, pat := range r.Regex {
			re, err := regexp.Compile(pat)
			if err != nil {
				return nil, fmt.Errorf("log filter %q: %w", r.Name, err)
			}
			cr.regexes = append(cr.regexes, re)
		}
		out = append(out, cr)
	}
	return out, nil
}

func (r compiledRule) matches(level slog.Level, component, msg string) bool {
	if len(r.levels) > 0 && !anyOf(r.levels, func(l slog.Level) bool { return l == level }) {
		return false
	}
	if len(r.Component) > 0 && !anyOf(r.Component, func(c string) bool { return c == component }) {
		return false
	}
	if len(r.Contains) > 0 && !anyOf(r.Contains, func(s string) bool { return strings.Contains(msg, s) }) {
		return false
	}
	if len(r.regexes) > 0 && !anyOf(r.regexes, func(re *regexp.Regexp) bool { return re.MatchString(msg) }) {
		return false
	}
	if len(r.Prefix) > 0 && !anyOf(r.Prefix, func(s string) bool { return strings.HasPrefix(msg, s) }) {
		return false
	}
	if len(r.Suffix) > 0 && !anyOf(r.Suffix, func(s string) bool { return strings.HasSuffix(msg, s) }) {
		return false
	}
	return true
}

func anyOf[T any](items []T, pred func(T) bool) bool {
	for _, it := range items {
		if pred(it) {
			return true
		}
	}
	return false
}

// FilterHandler is a slog.Handler that discards records matching any rule.
// The "component" attribute, when attached through With, is matched by
// FilterRule.Component.
type FilterHandler struct {
	next      slog.Handler
	rules     []compiledRule
	component string
}

// NewFilterHandler wraps next with rules. Disabled rules are ignored.
func NewFilterHandler(next slog.Handler, rules []FilterRule) (*FilterHandler, error) {
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}
	return &FilterHandler{next: next, rules: compiled}, nil
}

// Enabled implements slog.Handler.
func (h *FilterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *FilterHandler) Handle(ctx context.Context, r slog.Record) error {
	component := h.component
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			component = a.Value.String()
			return false
		}
		return true
	})
	for _, rule := range h.rules {
		if rule.matches(r.Level, component, r.Message) {
			return nil
		}
	}
	return h.next.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *FilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	component := h.component
	for _, a := range attrs {
		if a.Key == "component" {
			component = a.Value.String()
		}
	}
	return &FilterHandler{next: h.next.WithAttrs(attrs), rules: h.rules, component: component}
}

// WithGroup implements slog.Handler.
func (h *FilterHandler) WithGroup(name string) slog.Handler {
	return &FilterHandler{next: h.next.WithGroup(name), rules: h.rules, component: h.component}
}
