package query

import "strings"

// Key identifies a cached read: entity type first, then filter parameters.
type Key []string

func NewKey(entity string, params ...string) Key {
	return append(Key{entity}, params...)
}

func (k Key) String() string {
	return strings.Join(k, "\x1f")
}

// HasPrefix reports whether k starts with every element of prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (k Key) Equal(other Key) bool {
	return len(k) == len(other) && k.HasPrefix(other)
}
