package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) Pattern {
	t.Helper()
	p, err := Parse(s)
	require.NoError(t, err, "pattern %q", s)
	return p
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a/b/c", "a/b/c"},
		{"/a//b/", "a/b"},
		{"a/*/c", "a/*/c"},
		{"+/b", "+/b"},
		{"sensor/+/temp", "sensor/+/temp"},
		{"single", "single"},
	}
	for _, tt := range tests {
		p, err := Parse(tt.in)
		require.NoError(t, err, "pattern %q", tt.in)
		assert.Equal(t, tt.want, p.String())
	}
}

func TestParseErrors(t *testing.T) {
	for _, s := range []string{"", "/", "///"} {
		_, err := Parse(s)
		assert.ErrorIs(t, err, ErrEmptyPattern, "pattern %q", s)
	}
	for _, s := range []string{"*/+", "a/*/+/b", "+/+", "a/*/*"} {
		_, err := Parse(s)
		assert.ErrorIs(t, err, ErrAdjacentWildcards, "pattern %q", s)
	}
}

// oracleMatch is a straightforward reference implementation: "*" matches
// one or more tokens, "+" exactly one, literals match themselves.
func oracleMatch(pattern, subject []string) bool {
	if len(pattern) == 0 {
		return len(subject) == 0
	}
	if len(subject) == 0 {
		return false
	}
	switch pattern[0] {
	case "+":
		return oracleMatch(pattern[1:], subject[1:])
	case "*":
		for n := 1; n <= len(subject); n++ {
			if oracleMatch(pattern[1:], subject[n:]) {
				return true
			}
		}
		return false
	default:
		return pattern[0] == subject[0] && oracleMatch(pattern[1:], subject[1:])
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		pattern string
		subject string
		want    bool
	}{
		{"a/b/c", "a/b/c", true},
		{"a/b/c", "a/b", false},
		{"a/b", "a/b/c", false},

		{"a/+/c", "a/x/c", true},
		{"a/+/c", "a/c", false},
		{"a/+/c", "a/x/y/c", false},
		{"+", "x", true},
		{"+", "x/y", false},

		{"a/*/b", "a/x/b", true},
		{"a/*/b", "a/x/y/b", true},
		{"a/*/b", "a/b", false},
		{"a/*/c", "a/b/x/c", true},
		{"a/*/c", "a/c", false},

		{"*/a/*", "x/a/y", true},
		{"*/a/*", "a/a/a", true},
		{"*/a/*", "a/a", false},
		{"*", "x", true},
		{"*", "x/y/z", true},

		{"a/*/b/*/c", "a/1/b/2/c", true},
		{"a/*/b/*/c", "a/1/2/b/3/c", true},
		{"a/*/b/*/c", "a/1/b/c", false},

		// Backtracking: the greedy "*" must retreat to let the literal
		// match at an earlier position.
		{"*/b/c", "b/b/c", true},
		{"a/*/b", "a/b/b", true},

		{"sensor/+/temp", "sensor/room1/temp", true},
		{"sensor/+/temp", "sensor/room1/hum", false},
	}

	for _, tt := range tests {
		p := mustParse(t, tt.pattern)
		s := mustParse(t, tt.subject)

		got, err := p.Matches(s)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%q vs %q", tt.pattern, tt.subject)

		// Cross-check against the oracle.
		assert.Equal(t, oracleMatch(p.tokens, s.tokens), got,
			"oracle disagreement on %q vs %q", tt.pattern, tt.subject)
	}
}

func TestMatchesRejectsWildcardSubject(t *testing.T) {
	p := mustParse(t, "a/b")
	_, err := p.Matches(mustParse(t, "a/*"))
	assert.ErrorIs(t, err, ErrWildcardSubject)
}

func TestStringEquality(t *testing.T) {
	a := mustParse(t, "/a//b/")
	b := mustParse(t, "a/b")
	assert.Equal(t, a.String(), b.String())
}
