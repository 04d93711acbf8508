// Package glob implements shell-style pattern matching with capture groups.
//
// Supported syntax:
//
//	*       matches any run of characters (captured as a group)
//	?       matches exactly one character (captured as a group)
//	[a-z_]  matches one character from the set (captured as a group)
//	[^a-z]  matches one character not in the set (captured as a group)
//	\       escapes the next character
//
// Groups are reported left to right, one per wildcard or set matcher.
package glob

import (
	"bytes"
	"fmt"
	"sort"
)

type matchKind int

const (
	matchLiteral matchKind = iota
	matchAnyChar
	matchCharIn
	matchCharNotIn
	matchAnyString
)

type matcher struct {
	kind matchKind
	set  []byte // literal bytes, or the sorted character set
}

// Pattern is a compiled glob expression.
type Pattern struct {
	matchers []matcher
}

// Compile parses a glob expression into a Pattern.
func Compile(expr string) (*Pattern, error) {
	re := []byte(expr)
	var ms []matcher
	for i := 0; i < len(re); {
		m, next, err := parseMatcher(re, i)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
		i = next
	}
	return &Pattern{matchers: ms}, nil
}

// MustCompile is like Compile but panics on error.
// Intended for package-level patterns with constant expressions.
func MustCompile(expr string) *Pattern {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether the pattern matches the whole string.
func (p *Pattern) Match(s string) bool {
	_, ok := p.match([]byte(s), 0, 0)
	return ok
}

// Groups matches the whole string and returns the captured groups in
// left-to-right order, one per wildcard or character-set matcher.
func (p *Pattern) Groups(s string) ([]string, bool) {
	groups, ok := p.match([]byte(s), 0, 0)
	if !ok {
		return nil, false
	}
	// Groups are appended on recursion unwind, rightmost first.
	for i, j := 0, len(groups)-1; i < j; i, j = i+1, j-1 {
		groups[i], groups[j] = groups[j], groups[i]
	}
	return groups, true
}

// String reconstructs the pattern expression.
func (p *Pattern) String() string {
	var b bytes.Buffer
	for _, m := range p.matchers {
		switch m.kind {
		case matchLiteral:
			b.Write(m.set)
		case matchAnyChar:
			b.WriteByte('?')
		case matchCharIn:
			fmt.Fprintf(&b, "[%s]", m.set)
		case matchCharNotIn:
			fmt.Fprintf(&b, "[^%s]", m.set)
		case matchAnyString:
			b.WriteByte('*')
		}
	}
	return b.String()
}

func (p *Pattern) match(s []byte, pos, idx int) ([]string, bool) {
	if idx >= len(p.matchers) {
		return nil, pos == len(s)
	}

	m := p.matchers[idx]
	switch m.kind {
	case matchLiteral:
		if pos+len(m.set) <= len(s) && bytes.Equal(s[pos:pos+len(m.set)], m.set) {
			return p.match(s, pos+len(m.set), idx+1)
		}
	case matchAnyChar:
		if pos < len(s) {
			return p.matchOne(s, pos, idx)
		}
	case matchCharIn:
		if pos < len(s) && bytes.IndexByte(m.set, s[pos]) >= 0 {
			return p.matchOne(s, pos, idx)
		}
	case matchCharNotIn:
		if pos < len(s) && bytes.IndexByte(m.set, s[pos]) < 0 {
			return p.matchOne(s, pos, idx)
		}
	case matchAnyString:
		// Shortest match first; the end position may equal len(s) so a
		// trailing star can swallow the rest of the string.
		for end := pos; end <= len(s); end++ {
			if groups, ok := p.match(s, end, idx+1); ok {
				return append(groups, string(s[pos:end])), true
			}
		}
	}
	return nil, false
}

func (p *Pattern) matchOne(s []byte, pos, idx int) ([]string, bool) {
	groups, ok := p.match(s, pos+1, idx+1)
	if !ok {
		return nil, false
	}
	return append(groups, string(s[pos:pos+1])), true
}

func parseMatcher(re []byte, idx int) (matcher, int, error) {
	switch re[idx] {
	case '*':
		return matcher{kind: matchAnyString}, idx + 1, nil
	case '?':
		return matcher{kind: matchAnyChar}, idx + 1, nil
	case '\\':
		if idx+1 >= len(re) {
			return matcher{}, 0, fmt.Errorf("glob: trailing backslash")
		}
		return matcher{kind: matchLiteral, set: re[idx+1 : idx+2]}, idx + 2, nil
	case '[':
		return parseSet(re, idx+1)
	}

	end := idx + 1
	for end < len(re) && !isSpecial(re[end]) {
		end++
	}
	return matcher{kind: matchLiteral, set: re[idx:end]}, end, nil
}

func parseSet(re []byte, idx int) (matcher, int, error) {
	i := idx
	invert := false
	var set []byte

	if i < len(re) && re[i] == '^' {
		invert = true
		i++
	}

	for i < len(re) && re[i] != ']' {
		begin, end, next, err := parseSetItem(re, i)
		if err != nil {
			return matcher{}, 0, err
		}
		for c := int(begin); c <= int(end); c++ {
			set = append(set, byte(c))
		}
		i = next
	}
	if i >= len(re) {
		return matcher{}, 0, fmt.Errorf("glob: unterminated character set")
	}

	sort.Slice(set, func(a, b int) bool { return set[a] < set[b] })
	dedup := set[:0]
	var prev byte
	for _, c := range set {
		if len(dedup) == 0 || c != prev {
			dedup = append(dedup, c)
			prev = c
		}
	}

	kind := matchCharIn
	if invert {
		kind = matchCharNotIn
	}
	return matcher{kind: kind, set: dedup}, i + 1, nil
}

// parseSetItem reads one set entry, either a single character or an
// inclusive range like a-z. A minus directly before the closing bracket
// is a plain character.
func parseSetItem(re []byte, idx int) (begin, end byte, next int, err error) {
	i := idx
	begin = re[i]
	if begin == '\\' {
		i++
		if i >= len(re) {
			return 0, 0, 0, fmt.Errorf("glob: trailing backslash in character set")
		}
		begin = re[i]
	}

	i++
	if i >= len(re) {
		return 0, 0, 0, fmt.Errorf("glob: unterminated character set")
	}
	if re[i] != '-' {
		return begin, begin, i, nil
	}
	if i+1 >= len(re) {
		return 0, 0, 0, fmt.Errorf("glob: unterminated character set")
	}
	if re[i+1] == ']' {
		return begin, begin, i, nil
	}

	i++
	end = re[i]
	if end == '\\' {
		i++
		if i >= len(re) {
			return 0, 0, 0, fmt.Errorf("glob: trailing backslash in character set")
		}
		end = re[i]
	}
	if end < begin {
		return 0, 0, 0, fmt.Errorf("glob: invalid range %c-%c", begin, end)
	}
	return begin, end, i + 1, nil
}

func isSpecial(c byte) bool {
	return c == '*' || c == '?' || c == '[' || c == '\\'
}
