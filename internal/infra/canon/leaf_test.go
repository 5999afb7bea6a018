package canon

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"certanchor/internal/domain"
)

type leafVector struct {
	Document   string       `json:"document"`
	LeafDigest string       `json:"leaf_digest"`
	Parts      []partVector `json:"parts"`
}

type partVector struct {
	Tag          string `json:"tag"`
	Canonical    string `json:"canonical"`
	Contribution string `json:"contribution"`
}

func TestLeafDigestVectors(t *testing.T) {
	for _, name := range []string{"certificate_basic.json", "certificate_mixed.json", "certificate_attr_whitespace.json"} {
		t.Run(name, func(t *testing.T) {
			vec := loadLeafVector(t, name)
			doc := readVectorFile(t, vec.Document)

			root, err := Parse(doc)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if len(root.Children) != len(vec.Parts) {
				t.Fatalf("expected %d children, got %d", len(vec.Parts), len(root.Children))
			}
			for i, part := range vec.Parts {
				child := root.Children[i]
				if child.Tag != part.Tag {
					t.Fatalf("child %d: expected tag %q, got %q", i, part.Tag, child.Tag)
				}
				if part.Canonical != "" && string(child.Canonical()) != part.Canonical {
					t.Fatalf("child %d: canonical mismatch\n got: %q\nwant: %q", i, child.Canonical(), part.Canonical)
				}
				if got := hex.EncodeToString(Contribution(child)); got != part.Contribution {
					t.Fatalf("child %d: contribution %s, want %s", i, got, part.Contribution)
				}
			}

			leaf := ComputeLeafDigest(root)
			if leaf.Hex() != vec.LeafDigest {
				t.Fatalf("leaf digest %s, want %s", leaf.Hex(), vec.LeafDigest)
			}
		})
	}
}

func TestLeafDigestIsSHA256OfChildDigests(t *testing.T) {
	doc := []byte("<certificate><a>1</a><b>2</b></certificate>")
	d1 := sha256.Sum256([]byte("<a>1</a>"))
	d2 := sha256.Sum256([]byte("<b>2</b>"))
	want := sha256.Sum256(append(d1[:], d2[:]...))

	leaf, _, err := LeafDigestFromDocument(doc)
	if err != nil {
		t.Fatalf("leaf digest: %v", err)
	}
	if leaf != domain.Digest(want) {
		t.Fatalf("leaf digest %s, want %x", leaf.Hex(), want)
	}
	if leaf.Hex() != "9db41bc13e7a06ee3e741c2590c5aa5fae0bf55e7b41ab733319509bfa0f0d7d" {
		t.Fatalf("unexpected golden leaf digest %s", leaf.Hex())
	}
}

func TestLeafDigestDeterministic(t *testing.T) {
	doc := readVectorFile(t, "certificate_mixed.xml")
	root, err := Parse(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	first := ComputeLeafDigest(root)
	second := ComputeLeafDigest(root)
	if first != second {
		t.Fatal("leaf digest changed between calls on the same tree")
	}

	reparsed, err := Parse(doc)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if ComputeLeafDigest(reparsed) != first {
		t.Fatal("leaf digest changed between parses of the same document")
	}
}

func TestLeafDigestOrderSensitive(t *testing.T) {
	a, _, err := LeafDigestFromDocument([]byte("<c><x>1</x><y>2</y></c>"))
	if err != nil {
		t.Fatalf("leaf digest: %v", err)
	}
	b, _, err := LeafDigestFromDocument([]byte("<c><y>2</y><x>1</x></c>"))
	if err != nil {
		t.Fatalf("leaf digest: %v", err)
	}
	if a == b {
		t.Fatal("expected reordered children to change the leaf digest")
	}
}

func TestDigestChildContribution(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []byte
	}{
		{name: "lowercase", text: "deadbeef", want: []byte{0xde, 0xad, 0xbe, 0xef}},
		{name: "uppercase", text: "DEADBEEF", want: []byte{0xde, 0xad, 0xbe, 0xef}},
		{name: "invalid hex", text: "zz", want: nil},
		{name: "odd length", text: "abc", want: nil},
		{name: "surrounding whitespace", text: " deadbeef ", want: nil},
		{name: "empty", text: "", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Contribution(&Node{Tag: DigestTag, Text: tt.text})
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("contribution %x, want %x", got, tt.want)
			}
		})
	}
}

func TestInvalidDigestTextIsNotAnError(t *testing.T) {
	leaf, _, err := LeafDigestFromDocument([]byte("<c><digest>zz</digest></c>"))
	if err != nil {
		t.Fatalf("expected lenient digest handling, got %v", err)
	}
	empty := sha256.Sum256(nil)
	if leaf != domain.Digest(empty) {
		t.Fatalf("expected digest of empty buffer, got %s", leaf.Hex())
	}

	withBytes, _, err := LeafDigestFromDocument([]byte("<c><digest>deadbeef</digest></c>"))
	if err != nil {
		t.Fatalf("leaf digest: %v", err)
	}
	want := sha256.Sum256([]byte{0xde, 0xad, 0xbe, 0xef})
	if withBytes != domain.Digest(want) {
		t.Fatalf("leaf digest %s, want %x", withBytes.Hex(), want)
	}
}

func TestComputeLeafDigestWithoutChildren(t *testing.T) {
	empty := sha256.Sum256(nil)
	if got := ComputeLeafDigest(&Node{Tag: "c"}); got != domain.Digest(empty) {
		t.Fatalf("leaf digest %s, want %x", got.Hex(), empty)
	}
}

func loadLeafVector(t *testing.T, name string) leafVector {
	t.Helper()
	var vec leafVector
	if err := json.Unmarshal(readVectorFile(t, name), &vec); err != nil {
		t.Fatalf("unmarshal %s: %v", name, err)
	}
	return vec
}

func readVectorFile(t *testing.T, name string) []byte {
	t.Helper()
	path := filepath.Join("..", "..", "..", "testvectors", "v0", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

func isMalformed(err error) bool {
	return errors.Is(err, domain.ErrMalformedDocument)
}
