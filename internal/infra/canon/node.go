// Package canon turns a certificate document into its leaf digest.
//
// The serialized form of a node is a pinned wire format: two implementations
// only agree on a leaf digest if they agree on these bytes. It follows the
// ElementTree serializer byte for byte for documents without namespaces:
//
//   - start tag with the qualified name as written and attributes in document order
//   - text, children and the end tag, or " />" when there is neither text nor children
//   - the tail text that follows the node inside its parent
//
// Text escapes & < >. Attribute values additionally escape " and encode
// CR, LF and TAB as &#13; &#10; &#09;. Those three only reach the output
// through character references, since Parse normalizes literal whitespace in
// attribute values to a space. Output is UTF-8 without a declaration.
package canon

import (
	"bytes"
	"strings"
)

type Attr struct {
	Name  string
	Value string
}

// Node is one element of a parsed certificate. Tail is the character data
// between the end of this element and the next sibling (or the parent's end).
type Node struct {
	Tag      string
	Attrs    []Attr
	Text     string
	Children []*Node
	Tail     string
}

// Canonical returns the pinned serialization of n, including its tail.
func (n *Node) Canonical() []byte {
	var buf bytes.Buffer
	n.writeCanonical(&buf)
	return buf.Bytes()
}

func (n *Node) writeCanonical(buf *bytes.Buffer) {
	buf.WriteByte('<')
	buf.WriteString(n.Tag)
	for _, attr := range n.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(attr.Name)
		buf.WriteString(`="`)
		buf.WriteString(escapeAttr(attr.Value))
		buf.WriteByte('"')
	}
	if n.Text == "" && len(n.Children) == 0 {
		buf.WriteString(" />")
	} else {
		buf.WriteByte('>')
		buf.WriteString(escapeText(n.Text))
		for _, child := range n.Children {
			child.writeCanonical(buf)
		}
		buf.WriteString("</")
		buf.WriteString(n.Tag)
		buf.WriteByte('>')
	}
	buf.WriteString(escapeText(n.Tail))
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"\r", "&#13;",
		"\n", "&#10;",
		"\t", "&#09;",
	)
)

func escapeText(s string) string {
	if s == "" {
		return s
	}
	return textEscaper.Replace(s)
}

func escapeAttr(s string) string {
	if s == "" {
		return s
	}
	return attrEscaper.Replace(s)
}
