package cache

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Key identifies one logical remote call: the operation name plus its
// ordered arguments. Equality is structural.
type Key struct {
	// Op is the logical operation (e.g. "match_detail", "match_page")
	Op string

	// Args are the call arguments in call order, already rendered as strings
	Args []string
}

// NewKey builds a key from an operation and its arguments.
// time.Time arguments are rendered as UTC RFC3339 with nanoseconds so
// monotonic clock readings never leak into the key.
func NewKey(op string, args ...any) Key {
	k := Key{Op: op, Args: make([]string, 0, len(args))}
	for _, a := range args {
		k.Args = append(k.Args, formatArg(a))
	}
	return k
}

func formatArg(a any) string {
	switch v := a.(type) {
	case string:
		return v
	case time.Time:
		if v.IsZero() {
			return "head"
		}
		return v.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// String generates a deterministic key string.
// Format: wzstats:op:arg1:arg2, each part query-escaped so that a ':'
// inside an argument cannot collide with the separator.
//
// Example:
//
//	wzstats:match_detail:battle:1234567890
func (k Key) String() string {
	parts := make([]string, 0, len(k.Args)+2)
	parts = append(parts, "wzstats", url.QueryEscape(k.Op))
	for _, a := range k.Args {
		parts = append(parts, url.QueryEscape(a))
	}
	return strings.Join(parts, ":")
}

// Equal reports whether two keys name the same call.
func (k Key) Equal(other Key) bool {
	if k.Op != other.Op || len(k.Args) != len(other.Args) {
		return false
	}
	for i := range k.Args {
		if k.Args[i] != other.Args[i] {
			return false
		}
	}
	return true
}

// IsZero reports whether the key has no operation.
func (k Key) IsZero() bool {
	return k.Op == ""
}
