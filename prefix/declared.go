package prefix

import (
	"regexp"
	"strings"
)

var (
	declRe = regexp.MustCompile(`^(?i:PREFIX)\s+(\p{L}[\p{L}\p{N}_.-]*)?\s*:\s*<([^>]*)>`)
	baseRe = regexp.MustCompile(`^(?i:BASE)\s*<([^>]*)>`)
)

// Prologue is the PREFIX/BASE header of a query.
type Prologue struct {
	Base     string
	Prefixes map[string]string

	// End is the byte offset just past the last declaration, or 0 when the
	// query has no prologue.
	End int
}

// ParsePrologue reads the PREFIX and BASE declarations at the top of
// query, skipping whitespace and "#" comments between them.
func ParsePrologue(query string) Prologue {
	p := Prologue{Prefixes: make(map[string]string)}

	pos := 0
	for {
		pos = skipSpaceAndComments(query, pos)
		rest := query[pos:]

		if m := declRe.FindStringSubmatch(rest); m != nil {
			p.Prefixes[m[1]] = m[2]
			pos += len(m[0])
			p.End = pos
			continue
		}
		if m := baseRe.FindStringSubmatch(rest); m != nil {
			p.Base = m[1]
			pos += len(m[0])
			p.End = pos
			continue
		}
		return p
	}
}

// Declared returns the prefixes declared in the prologue of query.
func Declared(query string) map[string]string {
	return ParsePrologue(query).Prefixes
}

// InsertDeclaration returns query with "PREFIX key: <iri>" placed after the
// existing prologue, or at the top when there is none.
func InsertDeclaration(query, key, iri string) string {
	decl := "PREFIX " + key + ": <" + iri + ">"

	end := ParsePrologue(query).End
	if end == 0 {
		return decl + "\n" + query
	}

	// Keep the rest of the last declaration line together when it is blank.
	lineRest := query[end:]
	if nl := strings.IndexByte(lineRest, '\n'); nl >= 0 && strings.TrimSpace(lineRest[:nl]) == "" {
		at := end + nl + 1
		return query[:at] + decl + "\n" + query[at:]
	}
	if strings.TrimSpace(lineRest) == "" {
		return query[:end] + "\n" + decl + lineRest
	}
	return query[:end] + "\n" + decl + query[end:]
}

func skipSpaceAndComments(s string, pos int) int {
	for pos < len(s) {
		switch c := s[pos]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			pos++
		case c == '#':
			nl := strings.IndexByte(s[pos:], '\n')
			if nl < 0 {
				return len(s)
			}
			pos += nl + 1
		default:
			return pos
		}
	}
	return pos
}
