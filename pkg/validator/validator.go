// Package validator implements rule-driven input validation with a
// security focus. Rules are declared as pipe-delimited strings
// ("required|email|max:120"); failures accumulate into a per-field error
// map instead of propagating as errors.
package validator

import (
	"context"
	"log/slog"
	"strings"
)

// UniqueChecker answers uniqueness queries for the "unique" rule.
// The repository layer provides the storage-backed implementation.
type UniqueChecker interface {
	// Exists reports whether a row with column = value exists in table,
	// excluding the row with id exceptID when exceptID is non-empty.
	Exists(ctx context.Context, table, column, value, exceptID string) (bool, error)
}

// Validator validates a flat map of input fields against named rules.
// Not safe for concurrent use; build one per request.
type Validator struct {
	ctx    context.Context
	data   map[string]string
	rules  map[string]string
	errors map[string][]string
	logger *slog.Logger
	unique UniqueChecker
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger used for security-event logging
// (no_script hits, repeated failures).
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// WithUniqueChecker enables the "unique" rule.
func WithUniqueChecker(u UniqueChecker) Option {
	return func(v *Validator) { v.unique = u }
}

// WithContext sets the context passed to storage-backed rules.
func WithContext(ctx context.Context) Option {
	return func(v *Validator) { v.ctx = ctx }
}

// New creates a Validator over data. All string inputs are pre-sanitized:
// null bytes stripped and surrounding whitespace trimmed.
func New(data map[string]string, opts ...Option) *Validator {
	clean := make(map[string]string, len(data))
	for k, val := range data {
		clean[k] = Sanitize(val)
	}

	v := &Validator{
		ctx:    context.Background(),
		data:   clean,
		errors: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Sanitize strips null bytes and trims surrounding whitespace.
func Sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

// Validate runs the rule map against the data. Evaluation stops at the
// first failing rule per field; fields are evaluated independently.
// Returns true when every field passed.
func (v *Validator) Validate(rules map[string]string) bool {
	v.rules = rules
	v.errors = make(map[string][]string)

	for field, ruleSpec := range rules {
		v.validateField(field, ruleSpec)
	}

	if len(v.errors) > 0 && v.logger != nil {
		fields := make([]string, 0, len(v.errors))
		for f := range v.errors {
			fields = append(fields, f)
		}
		v.logger.Warn("validation failed", slog.Any("fields", fields))
	}

	return len(v.errors) == 0
}

// Errors returns the accumulated field error map.
func (v *Validator) Errors() map[string][]string {
	return v.errors
}

// FirstError returns one failure message, or "" when validation passed.
func (v *Validator) FirstError() string {
	for _, msgs := range v.errors {
		if len(msgs) > 0 {
			return msgs[0]
		}
	}
	return ""
}

// Validated returns the subset of the sanitized input named by the last
// rule map. Call after Validate.
func (v *Validator) Validated() map[string]string {
	out := make(map[string]string, len(v.rules))
	for field := range v.rules {
		if val, ok := v.data[field]; ok {
			out[field] = val
		}
	}
	return out
}

func (v *Validator) validateField(field, ruleSpec string) {
	value := v.data[field]

	for _, rule := range strings.Split(ruleSpec, "|") {
		name, param, _ := strings.Cut(rule, ":")
		if !v.applyRule(field, value, name, param) {
			return // first failure per field wins
		}
	}
}

func (v *Validator) addError(field, msg string) {
	v.errors[field] = append(v.errors[field], msg)
}
