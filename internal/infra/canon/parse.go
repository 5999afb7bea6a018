package canon

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"certanchor/internal/domain"
)

// Parse reads a certificate document into a tree. The document must be
// well-formed with exactly one root element. Comments, processing instructions
// and directives are dropped; character data around them is merged. All
// failures wrap domain.ErrMalformedDocument.
func Parse(doc []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.Strict = true

	var (
		root   *Node
		stack  []*Node
		closed bool
	)
	for {
		offset := dec.InputOffset()
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed(err.Error())
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if closed {
				return nil, malformed("content after root element")
			}
			attrs, err := startTagAttrs(doc[offset:dec.InputOffset()])
			if err != nil {
				return nil, err
			}
			if len(attrs) != len(t.Attr) {
				return nil, malformed(fmt.Sprintf("start tag <%s> has unreadable attributes", qualifiedName(t.Name)))
			}
			n := &Node{Tag: qualifiedName(t.Name), Attrs: attrs}
			if len(stack) == 0 {
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, malformed("unexpected end element")
			}
			name := qualifiedName(t.Name)
			if top := stack[len(stack)-1]; top.Tag != name {
				return nil, malformed(fmt.Sprintf("element <%s> closed by </%s>", top.Tag, name))
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				closed = true
			}
		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimLeft(t, " \t\r\n")) != 0 {
					return nil, malformed("character data outside root element")
				}
				continue
			}
			appendCharData(stack[len(stack)-1], string(t))
		}
	}
	if root == nil {
		return nil, malformed("no root element")
	}
	if len(stack) != 0 {
		return nil, malformed(fmt.Sprintf("unclosed element <%s>", stack[len(stack)-1].Tag))
	}
	return root, nil
}

// appendCharData attaches text to the parent's text before its first child,
// or to the tail of the last child seen so far.
func appendCharData(parent *Node, text string) {
	if len(parent.Children) == 0 {
		parent.Text += text
		return
	}
	last := parent.Children[len(parent.Children)-1]
	last.Tail += text
}

func qualifiedName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", domain.ErrMalformedDocument, reason)
}
