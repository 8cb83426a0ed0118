package filter

import (
	"fmt"
	"slices"
	"strings"
)

// Predicate reports whether item satisfies the filter value supplied for its key.
type Predicate[T any] func(item T, filterValue string) bool

// StringValueProvider extracts a single string value from an item of type T.
type StringValueProvider[T any] func(T) string

// StringValuesProvider extracts a slice of string values from an item of type T.
type StringValuesProvider[T any] func(T) []string

// Options holds the matchers used by Match, keyed by normalized filter key.
type Options[T any] struct {
	matchers map[string]Predicate[T]
	strict   bool
}

// Option configures filter Options.
type Option[T any] func(*Options[T]) error

// NewOptions creates Options with the given options applied.
func NewOptions[T any](opt ...Option[T]) (Options[T], error) {
	opts := Options[T]{matchers: make(map[string]Predicate[T])}

	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(&opts); err != nil {
			return Options[T]{}, err
		}
	}

	return opts, nil
}

// NormalizeString lowercases s and trims surrounding whitespace.
func NormalizeString(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeSlice normalizes every value of s with NormalizeString, returning a new slice.
func NormalizeSlice(s []string) []string {
	out := make([]string, len(s))
	for i := range s {
		out[i] = NormalizeString(s[i])
	}
	return out
}

// Equals matches when the provided value equals the filter value (normalized).
func Equals[T any](provider StringValueProvider[T]) Predicate[T] {
	return func(item T, val string) bool {
		return NormalizeString(provider(item)) == NormalizeString(val)
	}
}

// Partial matches when the provided value contains the filter value (normalized).
func Partial[T any](provider StringValueProvider[T]) Predicate[T] {
	return func(item T, val string) bool {
		return strings.Contains(NormalizeString(provider(item)), NormalizeString(val))
	}
}

// HasAll matches when the provided values include every comma-separated filter value (normalized).
func HasAll[T any](provider StringValuesProvider[T]) Predicate[T] {
	return func(item T, val string) bool {
		actual := NormalizeSlice(provider(item))
		for _, r := range NormalizeSlice(strings.Split(val, ",")) {
			if r == "" {
				continue
			}
			if !slices.Contains(actual, r) {
				return false
			}
		}
		return true
	}
}

// WithMatcher adds or overrides the matcher for key.
func WithMatcher[T any](key string, p Predicate[T]) Option[T] {
	return func(o *Options[T]) error {
		k := NormalizeString(key)
		if k == "" {
			return fmt.Errorf("filter key cannot be empty")
		}
		if p == nil {
			return fmt.Errorf("matcher for '%s' cannot be nil", k)
		}
		o.matchers[k] = p
		return nil
	}
}

// WithStrictKeys makes Match return an error for filter keys without a matcher, instead of ignoring them.
func WithStrictKeys[T any]() Option[T] {
	return func(o *Options[T]) error {
		o.strict = true
		return nil
	}
}

// Match reports whether item satisfies every filter.
// Filters with an empty value are ignored, so unset flags can be passed through as-is.
func Match[T any](item T, filters map[string]string, opts ...Option[T]) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}

	options, err := NewOptions(opts...)
	if err != nil {
		return false, err
	}

	for key, val := range filters {
		k := NormalizeString(key)
		if k == "" || strings.TrimSpace(val) == "" {
			continue
		}

		matcher, ok := options.matchers[k]
		if !ok {
			if options.strict {
				return false, fmt.Errorf("unsupported filter '%s'", k)
			}
			continue
		}
		if !matcher(item, val) {
			return false, nil
		}
	}

	return true, nil
}
