package canon

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// startTagAttrs re-reads the attributes of a start tag from its source bytes.
// encoding/xml keeps literal TAB, CR and LF in attribute values and accepts
// attributes with no whitespace between them; XML attribute-value
// normalization turns the former into spaces and the latter is not
// well-formed.
func startTagAttrs(raw []byte) ([]Attr, error) {
	if start := bytes.IndexByte(raw, '<'); start > 0 {
		raw = raw[start:]
	}
	i := 1
	for i < len(raw) && !isXMLSpace(raw[i]) && raw[i] != '>' && raw[i] != '/' {
		i++
	}

	var attrs []Attr
	seen := make(map[string]struct{})
	for {
		sep := i
		i = skipXMLSpace(raw, i)
		if i >= len(raw) {
			return nil, malformed("truncated start tag")
		}
		if raw[i] == '>' || raw[i] == '/' {
			return attrs, nil
		}
		if i == sep {
			return nil, malformed("missing whitespace between attributes")
		}

		nameStart := i
		for i < len(raw) && !isXMLSpace(raw[i]) && raw[i] != '=' {
			i++
		}
		name := string(raw[nameStart:i])
		i = skipXMLSpace(raw, i)
		if i >= len(raw) || raw[i] != '=' {
			return nil, malformed(fmt.Sprintf("attribute %s has no value", name))
		}
		i = skipXMLSpace(raw, i+1)
		if i >= len(raw) || (raw[i] != '"' && raw[i] != '\'') {
			return nil, malformed(fmt.Sprintf("attribute %s is not quoted", name))
		}
		quote := raw[i]
		end := bytes.IndexByte(raw[i+1:], quote)
		if end < 0 {
			return nil, malformed(fmt.Sprintf("attribute %s is not terminated", name))
		}
		literal := raw[i+1 : i+1+end]
		i += end + 2

		if _, dup := seen[name]; dup {
			return nil, malformed(fmt.Sprintf("duplicate attribute %s", name))
		}
		seen[name] = struct{}{}
		value, err := attrValue(literal)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, Attr{Name: name, Value: value})
	}
}

// attrValue normalizes an attribute literal: each literal line break or TAB
// becomes one space, then references are resolved. Whitespace that arrives
// through a character reference is kept.
func attrValue(literal []byte) (string, error) {
	s := strings.ReplaceAll(string(literal), "\r\n", "\n")
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		switch c := s[i]; c {
		case '\r', '\n', '\t':
			b.WriteByte(' ')
			i++
		case '<':
			return "", malformed("'<' in attribute value")
		case '&':
			semi := strings.IndexByte(s[i:], ';')
			if semi < 0 {
				return "", malformed("unterminated reference in attribute value")
			}
			resolved, ok := resolveReference(s[i+1 : i+semi])
			if !ok {
				return "", malformed(fmt.Sprintf("invalid reference &%s;", s[i+1:i+semi]))
			}
			b.WriteString(resolved)
			i += semi + 1
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

func resolveReference(ref string) (string, bool) {
	switch ref {
	case "amp":
		return "&", true
	case "lt":
		return "<", true
	case "gt":
		return ">", true
	case "quot":
		return `"`, true
	case "apos":
		return "'", true
	}
	if !strings.HasPrefix(ref, "#") {
		return "", false
	}
	digits, base := ref[1:], 10
	if strings.HasPrefix(digits, "x") {
		digits, base = digits[1:], 16
	}
	n, err := strconv.ParseUint(digits, base, 32)
	if err != nil || !utf8.ValidRune(rune(n)) {
		return "", false
	}
	return string(rune(n)), true
}

func skipXMLSpace(raw []byte, i int) int {
	for i < len(raw) && isXMLSpace(raw[i]) {
		i++
	}
	return i
}

func isXMLSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
