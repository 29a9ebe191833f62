// Package webtemplate implements the lazy %KEY% substitution engine used by
// the web UI pages. Values are producers evaluated at injection time, so a
// page rendered twice reflects live values (current hash rate, connected
// miners) without re-registration.
package webtemplate

import "strings"

// Producer yields the current value for a template key.
type Producer func() string

// Variables maps keys in their canonical form ("%KEY%") to value producers.
type Variables map[string]Producer

// Static returns a producer for a fixed value.
func Static(value string) Producer {
	return func() string { return value }
}

// Inject replaces every registered %KEY% occurrence in source with its
// producer's current value. The substitution is a single pass: produced
// values are never re-scanned for further keys, and unregistered %KEY%-shaped
// text is left unchanged.
func (v Variables) Inject(source string) string {
	if len(v) == 0 {
		return source
	}

	pairs := make([]string, 0, len(v)*2)
	for key, producer := range v {
		pairs = append(pairs, key, producer())
	}
	return strings.NewReplacer(pairs...).Replace(source)
}

// Merge returns a new set holding the union of v and rhs. On identical keys
// the rhs producer wins.
func (v Variables) Merge(rhs Variables) Variables {
	merged := make(Variables, len(v)+len(rhs))
	for key, producer := range v {
		merged[key] = producer
	}
	for key, producer := range rhs {
		merged[key] = producer
	}
	return merged
}
