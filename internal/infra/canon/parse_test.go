package canon

import "testing"

func TestParseRejectsMalformedDocuments(t *testing.T) {
	cases := map[string]string{
		"empty":               "",
		"whitespace only":     "  \n ",
		"not markup":          "certificate",
		"unclosed root":       "<certificate><a>1</a>",
		"mismatched end":      "<certificate><a>1</b></certificate>",
		"two roots":           "<a/><b/>",
		"trailing text":       "<a/>junk",
		"leading text":        "junk<a/>",
		"unknown entity":      "<a>&nbsp;</a>",
		"unquoted attribute":  "<a x=1/>",
		"stray end":           "</a>",
		"duplicate attribute": `<a x="1" x="2"/>`,
		"duplicate prefixed":  `<r xmlns:p="urn:p"><a p:k="1" p:k="2"/></r>`,
		"no attribute gap":    `<a x="1"y="2"/>`,
		"lt in attribute":     `<a x="<"/>`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); !isMalformed(err) {
				t.Fatalf("expected malformed document error, got %v", err)
			}
		})
	}
}

func TestParseKeepsTextAndTails(t *testing.T) {
	root, err := Parse([]byte("<r>head<a>in</a>mid<!-- c -->dle<b/>end</r>"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if root.Tag != "r" || root.Text != "head" {
		t.Fatalf("unexpected root: %+v", root)
	}
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(root.Children))
	}
	if root.Children[0].Tail != "middle" {
		t.Fatalf("expected comment to be dropped and text merged, got %q", root.Children[0].Tail)
	}
	if root.Children[1].Tail != "end" {
		t.Fatalf("unexpected tail %q", root.Children[1].Tail)
	}
}

func TestParseAllowsProlog(t *testing.T) {
	doc := `<?xml version="1.0"?>
<!DOCTYPE certificate>
<!-- prolog comment -->
<certificate><a/></certificate>
<!-- trailing comment -->
`
	root, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if root.Tag != "certificate" || len(root.Children) != 1 {
		t.Fatalf("unexpected tree: %+v", root)
	}
}

func TestCanonicalForm(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{name: "empty element", doc: "<r><a></a></r>", want: "<a />"},
		{name: "self closing", doc: "<r><a/></r>", want: "<a />"},
		{name: "attribute order kept", doc: `<r><a z="1" a="2"/></r>`, want: `<a z="1" a="2" />`},
		{name: "text escaping", doc: "<r><a>x &amp; &lt;y&gt; \"q\"</a></r>", want: "<a>x &amp; &lt;y&gt; \"q\"</a>"},
		{name: "attribute escaping", doc: `<r><a v="&quot;&amp;&#10;&#9;&#13;"/></r>`, want: `<a v="&quot;&amp;&#10;&#09;&#13;" />`},
		{name: "single quoted attribute", doc: `<r><a v='say "hi"'/></r>`, want: `<a v="say &quot;hi&quot;" />`},
		{name: "cdata becomes text", doc: "<r><a><![CDATA[<b>]]></a></r>", want: "<a>&lt;b&gt;</a>"},
		{name: "tail included", doc: "<r><a>1</a>\n  <b/></r>", want: "<a>1</a>\n  "},
		{name: "prefixed names kept", doc: `<r xmlns:x="urn:x"><x:a x:k="v"/></r>`, want: `<x:a x:k="v" />`},
		{name: "line endings normalized", doc: "<r><a>1\r\n2</a></r>", want: "<a>1\n2</a>"},
		{name: "attribute whitespace normalized", doc: "<r><a x=\"p\tq\nr\"/></r>", want: `<a x="p q r" />`},
		{name: "attribute crlf is one space", doc: "<r><a v=\"x\r\ny\rz\"/></r>", want: `<a v="x y z" />`},
		{name: "attribute spacing around equals", doc: "<r><a  k = 'v'\n/></r>", want: `<a k="v" />`},
		{name: "attribute references resolved", doc: `<r><a v="&#x41;&#66;&apos;&lt;&gt;"/></r>`, want: `<a v="AB'&lt;&gt;" />`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Parse([]byte(tt.doc))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got := string(root.Children[0].Canonical()); got != tt.want {
				t.Fatalf("canonical %q, want %q", got, tt.want)
			}
		})
	}
}
